package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/docuchat/docuchat/internal/answer"
	"github.com/docuchat/docuchat/internal/document"
	"github.com/docuchat/docuchat/internal/log"
	"github.com/docuchat/docuchat/internal/retrieve"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubIngester struct {
	doc       document.Document
	ingestErr error
	deleteErr error

	lastOwner, lastThread, lastFilename string
	lastData                            []byte
	deletedID                           uuid.UUID
}

func (s *stubIngester) Ingest(_ context.Context, owner, thread, filename string, data []byte) (document.Document, error) {
	s.lastOwner, s.lastThread, s.lastFilename, s.lastData = owner, thread, filename, data
	return s.doc, s.ingestErr
}

func (s *stubIngester) Delete(_ context.Context, _ string, id uuid.UUID) error {
	s.deletedID = id
	return s.deleteErr
}

type stubReader struct {
	doc     document.Document
	docs    []document.Document
	getErr  error
	listErr error
}

func (s *stubReader) Get(context.Context, string, uuid.UUID) (document.Document, error) {
	return s.doc, s.getErr
}

func (s *stubReader) ListByThread(context.Context, string, string) ([]document.Document, error) {
	return s.docs, s.listErr
}

type stubComposer struct {
	ans answer.Answer
	err error
}

func (s *stubComposer) Compose(context.Context, string, string, string) (answer.Answer, error) {
	return s.ans, s.err
}

type stubRetriever struct {
	results []retrieve.Result
	err     error
}

func (s *stubRetriever) Retrieve(context.Context, string, string, string) ([]retrieve.Result, error) {
	return s.results, s.err
}

func newTestServer(pinger Pinger, ingester Ingester, docs DocumentReader, composer Composer, retriever Retriever) *httptest.Server {
	s := NewServer(pinger, ingester, docs, composer, retriever, log.NewNop())
	return httptest.NewServer(s.Handler())
}

func multipartUpload(t *testing.T, url, owner, thread, filename string, content []byte) *http.Response {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("owner_id", owner); err != nil {
		t.Fatal(err)
	}
	if err := mw.WriteField("thread_id", thread); err != nil {
		t.Fatal(err)
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(url+"/api/documents", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST /api/documents: %v", err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(stubPinger{}, &stubIngester{}, &stubReader{}, &stubComposer{}, &stubRetriever{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestReadyFailure(t *testing.T) {
	srv := newTestServer(stubPinger{err: errors.New("down")}, &stubIngester{}, &stubReader{}, &stubComposer{}, &stubRetriever{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ready")
	if err != nil {
		t.Fatalf("GET /ready: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestUpload(t *testing.T) {
	docID := uuid.New()
	ingester := &stubIngester{doc: document.Document{
		ID:               docID,
		ThreadID:         "t1",
		OriginalFilename: "notes.txt",
		Status:           document.StatusUploaded,
	}}
	srv := newTestServer(stubPinger{}, ingester, &stubReader{}, &stubComposer{}, &stubRetriever{})
	defer srv.Close()

	resp := multipartUpload(t, srv.URL, "alice", "t1", "notes.txt", []byte("enough content here"))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	var got struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != docID.String() || got.Status != "uploaded" {
		t.Errorf("got %+v", got)
	}
	if ingester.lastOwner != "alice" || ingester.lastFilename != "notes.txt" {
		t.Errorf("ingester saw %q/%q", ingester.lastOwner, ingester.lastFilename)
	}
}

func TestUploadUnsupportedExtension(t *testing.T) {
	ingester := &stubIngester{}
	srv := newTestServer(stubPinger{}, ingester, &stubReader{}, &stubComposer{}, &stubRetriever{})
	defer srv.Close()

	resp := multipartUpload(t, srv.URL, "alice", "t1", "payload.exe", []byte("enough content here"))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", resp.StatusCode)
	}
	if ingester.lastFilename != "" {
		t.Error("rejected upload still reached the ingester")
	}
}

func TestUploadTooSmall(t *testing.T) {
	srv := newTestServer(stubPinger{}, &stubIngester{}, &stubReader{}, &stubComposer{}, &stubRetriever{})
	defer srv.Close()

	resp := multipartUpload(t, srv.URL, "alice", "t1", "tiny.txt", []byte("hi"))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUploadMissingFields(t *testing.T) {
	srv := newTestServer(stubPinger{}, &stubIngester{}, &stubReader{}, &stubComposer{}, &stubRetriever{})
	defer srv.Close()

	resp := multipartUpload(t, srv.URL, "", "", "notes.txt", []byte("enough content here"))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	reader := &stubReader{getErr: document.ErrNotFound}
	srv := newTestServer(stubPinger{}, &stubIngester{}, reader, &stubComposer{}, &stubRetriever{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/documents/" + uuid.NewString() + "?owner_id=alice")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDeleteDocument(t *testing.T) {
	ingester := &stubIngester{}
	srv := newTestServer(stubPinger{}, ingester, &stubReader{}, &stubComposer{}, &stubRetriever{})
	defer srv.Close()

	id := uuid.New()
	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/documents/"+id.String()+"?owner_id=alice", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if ingester.deletedID != id {
		t.Error("delete did not reach the ingester")
	}
}

func TestChat(t *testing.T) {
	composer := &stubComposer{ans: answer.Answer{
		Text:         "Per notes.txt, the answer is yes.",
		CitedSources: []string{"notes.txt"},
		State:        answer.StateContextRetrieved,
	}}
	srv := newTestServer(stubPinger{}, &stubIngester{}, &stubReader{}, composer, &stubRetriever{})
	defer srv.Close()

	body := `{"owner_id":"alice","thread_id":"t1","question":"is it true?"}`
	resp, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/chat: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got struct {
		Answer  string   `json:"answer"`
		Sources []string `json:"sources"`
		State   string   `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.State != "context_retrieved" || len(got.Sources) != 1 {
		t.Errorf("got %+v", got)
	}
}

func TestChatUnavailable(t *testing.T) {
	composer := &stubComposer{err: answer.ErrUnavailable}
	srv := newTestServer(stubPinger{}, &stubIngester{}, &stubReader{}, composer, &stubRetriever{})
	defer srv.Close()

	body := `{"owner_id":"alice","thread_id":"t1","question":"q"}`
	resp, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/chat: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestChatValidation(t *testing.T) {
	srv := newTestServer(stubPinger{}, &stubIngester{}, &stubReader{}, &stubComposer{}, &stubRetriever{})
	defer srv.Close()

	for _, body := range []string{
		`not json`,
		`{"owner_id":"","thread_id":"t","question":"q"}`,
		`{"owner_id":"a","thread_id":"t","question":"   "}`,
	} {
		resp, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestRetrieve(t *testing.T) {
	retriever := &stubRetriever{results: []retrieve.Result{
		{ChunkText: "chunk", SourceFilename: "a.txt", Score: 0.8},
	}}
	srv := newTestServer(stubPinger{}, &stubIngester{}, &stubReader{}, &stubComposer{}, retriever)
	defer srv.Close()

	body := `{"owner_id":"alice","thread_id":"t1","question":"q"}`
	resp, err := http.Post(srv.URL+"/api/retrieve", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/retrieve: %v", err)
	}
	defer resp.Body.Close()

	var got struct {
		Matches []struct {
			Text     string  `json:"text"`
			Filename string  `json:"filename"`
			Score    float32 `json:"score"`
		} `json:"matches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Matches) != 1 || got.Matches[0].Filename != "a.txt" {
		t.Errorf("got %+v", got)
	}
}

func TestListDocuments(t *testing.T) {
	reader := &stubReader{docs: []document.Document{
		{ID: uuid.New(), ThreadID: "t1", OriginalFilename: "a.txt", Status: document.StatusReady, ChunkCount: 3},
	}}
	srv := newTestServer(stubPinger{}, &stubIngester{}, reader, &stubComposer{}, &stubRetriever{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/documents?owner_id=alice&thread_id=t1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var got struct {
		Documents []struct {
			Filename   string `json:"filename"`
			Status     string `json:"status"`
			ChunkCount int    `json:"chunk_count"`
		} `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Documents) != 1 || got.Documents[0].Status != "ready" || got.Documents[0].ChunkCount != 3 {
		t.Errorf("got %+v", got)
	}
}
