package testutil

import (
	"context"
	"strings"
	"sync"
)

// GeneratorRule maps prompts to a canned reply. A rule fires when the
// prompt contains every string in ContainsAll.
type GeneratorRule struct {
	ContainsAll []string
	Reply       string
}

// ScriptedGenerator is a fake answer generator driven by rules. The first
// matching rule wins; Default answers everything else.
type ScriptedGenerator struct {
	Rules   []GeneratorRule
	Default string

	mu         sync.Mutex
	callCount  int
	lastSystem string
	lastPrompt string
}

// Generate returns the scripted reply for prompt.
func (g *ScriptedGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	g.mu.Lock()
	g.callCount++
	g.lastSystem = system
	g.lastPrompt = prompt
	g.mu.Unlock()

	for _, rule := range g.Rules {
		matched := true
		for _, want := range rule.ContainsAll {
			if !strings.Contains(prompt, want) {
				matched = false
				break
			}
		}
		if matched {
			return rule.Reply, nil
		}
	}
	return g.Default, nil
}

// CallCount returns how many times Generate has been invoked.
func (g *ScriptedGenerator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.callCount
}

// LastSystem returns the system prompt of the most recent call.
func (g *ScriptedGenerator) LastSystem() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastSystem
}

// LastPrompt returns the user prompt of the most recent call.
func (g *ScriptedGenerator) LastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastPrompt
}
