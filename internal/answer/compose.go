// Package answer turns a question plus retrieved chunks into a grounded
// reply. The composer owns prompt assembly and the grounded/ungrounded
// split; model access sits behind the Generator interface so tests can
// script replies.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docuchat/docuchat/internal/retrieve"
)

// ErrUnavailable reports that retrieval infrastructure failed and the
// question could not be answered at all.
var ErrUnavailable = errors.New("answering unavailable")

// RefusalNotice is the fixed reply the model is instructed to use when the
// retrieved context does not cover the question.
const RefusalNotice = "The uploaded documents do not contain the information needed to answer this question."

// State records whether an answer drew on retrieved context.
type State string

const (
	// StateNoContext means the thread had no ready documents and the reply
	// is ordinary chat.
	StateNoContext State = "no_context"
	// StateContextRetrieved means chunks were retrieved and the reply was
	// generated against them.
	StateContextRetrieved State = "context_retrieved"
)

// Answer is a composed reply.
type Answer struct {
	Text         string
	CitedSources []string
	State        State
}

// Retriever is what the composer needs from retrieval.
type Retriever interface {
	Retrieve(ctx context.Context, ownerID, threadID, question string) ([]retrieve.Result, error)
}

const groundedSystemPrompt = `You are a careful assistant answering questions about the user's uploaded documents.

Rules:
- Answer using ONLY the document excerpts provided below. Do not use outside knowledge.
- When you use an excerpt, mention its source document by filename.
- If the excerpts do not contain the information needed, reply with exactly:
  "` + RefusalNotice + `"
- Never invent content that is not in the excerpts.`

const plainSystemPrompt = `You are a helpful assistant. The user has not uploaded any documents to this conversation, so answer from general knowledge. If the user seems to expect answers about specific documents, let them know none are available in this conversation.`

// Composer builds prompts from retrieved chunks and generates answers.
type Composer struct {
	retriever Retriever
	generator Generator
	logger    *slog.Logger
}

// NewComposer creates a Composer. A nil logger falls back to slog.Default.
func NewComposer(retriever Retriever, generator Generator, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{retriever: retriever, generator: generator, logger: logger}
}

// Compose answers a question within one owner's thread. Threads without
// documents get a plain-chat reply; threads with documents get a reply
// grounded in the retrieved chunks, with the source filenames it cited.
// Retrieval failures surface as ErrUnavailable rather than silently
// degrading to an ungrounded answer.
func (c *Composer) Compose(ctx context.Context, ownerID, threadID, question string) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, fmt.Errorf("question must not be empty")
	}

	results, err := c.retriever.Retrieve(ctx, ownerID, threadID, question)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if len(results) == 0 {
		text, err := c.generator.Generate(ctx, plainSystemPrompt, question)
		if err != nil {
			return Answer{}, fmt.Errorf("generating answer: %w", err)
		}
		return Answer{Text: text, State: StateNoContext}, nil
	}

	prompt := buildGroundedPrompt(results, question)
	text, err := c.generator.Generate(ctx, groundedSystemPrompt, prompt)
	if err != nil {
		return Answer{}, fmt.Errorf("generating answer: %w", err)
	}

	ans := Answer{Text: text, State: StateContextRetrieved}
	if !isRefusal(text) {
		ans.CitedSources = citedSources(results, text)
	}

	c.logger.Debug("answer composed",
		"state", ans.State,
		"chunks", len(results),
		"sources", len(ans.CitedSources))
	return ans, nil
}

// buildGroundedPrompt renders each chunk under a source header and appends
// the question verbatim.
func buildGroundedPrompt(results []retrieve.Result, question string) string {
	var b strings.Builder
	b.WriteString("Document excerpts:\n\n")
	for _, r := range results {
		fmt.Fprintf(&b, "[Document: %s]\n%s\n\n", r.SourceFilename, r.ChunkText)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

func isRefusal(text string) bool {
	return strings.Contains(text, RefusalNotice)
}

// citedSources returns the distinct retrieved filenames the answer
// mentions, in retrieval order. An answer naming none of them falls back
// to every retrieved source, since the reply was still grounded in them.
func citedSources(results []retrieve.Result, text string) []string {
	seen := map[string]bool{}
	var all, cited []string
	for _, r := range results {
		if seen[r.SourceFilename] {
			continue
		}
		seen[r.SourceFilename] = true
		all = append(all, r.SourceFilename)
		if strings.Contains(text, r.SourceFilename) {
			cited = append(cited, r.SourceFilename)
		}
	}
	if len(cited) == 0 {
		return all
	}
	return cited
}
