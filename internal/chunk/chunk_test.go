package chunk

import (
	"strings"
	"testing"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{name: "defaults", size: DefaultSize, overlap: DefaultOverlap, wantErr: false},
		{name: "zero size", size: 0, overlap: 0, wantErr: true},
		{name: "negative size", size: -1, overlap: 0, wantErr: true},
		{name: "negative overlap", size: 100, overlap: -1, wantErr: true},
		{name: "overlap equals size", size: 100, overlap: 100, wantErr: true},
		{name: "overlap inside tolerance window", size: 100, overlap: 85, wantErr: true},
		{name: "small valid", size: 10, overlap: 2, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.size, tt.overlap)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%d, %d) error = %v, wantErr %v", tt.size, tt.overlap, err, tt.wantErr)
			}
		})
	}
}

func TestSplitEmpty(t *testing.T) {
	s, err := New(100, 20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, input := range []string{"", "   ", "\n\n\t"} {
		if got := s.Split(input); got != nil {
			t.Errorf("Split(%q) = %v, want nil", input, got)
		}
	}
}

func TestSplitShortInput(t *testing.T) {
	s, err := New(100, 20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	chunks := s.Split("hello world")
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Index != 0 || chunks[0].Text != "hello world" {
		t.Errorf("got %+v, want {0 hello world}", chunks[0])
	}
}

func TestSplitReconstruction(t *testing.T) {
	s, err := New(50, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	input := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)
	chunks := s.Split(input)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	var b strings.Builder
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if i == 0 {
			b.WriteString(c.Text)
			continue
		}
		runes := []rune(c.Text)
		if len(runes) <= s.Overlap() {
			t.Fatalf("chunk %d shorter than overlap: %d runes", i, len(runes))
		}
		b.WriteString(string(runes[s.Overlap():]))
	}

	if b.String() != input {
		t.Error("dropping each chunk's overlap prefix did not reconstruct the input")
	}
}

func TestSplitDeterministic(t *testing.T) {
	s, err := New(80, 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	input := strings.Repeat("Some sentences here. More text follows.\n\nAnother paragraph. ", 10)
	first := s.Split(input)
	second := s.Split(input)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitPrefersParagraphBoundary(t *testing.T) {
	s, err := New(100, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Blank line sits inside the tolerance window below the 100-rune target.
	para := strings.Repeat("a", 90) + "\n\n" + strings.Repeat("b", 120)
	chunks := s.Split(para)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Text, "\n\n") {
		t.Errorf("first chunk does not end at the paragraph break: %q", chunks[0].Text)
	}
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	s, err := New(100, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	input := strings.Repeat("c", 88) + ". " + strings.Repeat("d", 120)
	chunks := s.Split(input)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Text, ". ") {
		t.Errorf("first chunk does not end at the sentence boundary: %q", chunks[0].Text)
	}
}

func TestSplitHardCutWithoutBoundaries(t *testing.T) {
	s, err := New(50, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	input := strings.Repeat("x", 130)
	chunks := s.Split(input)
	for i, c := range chunks[:len(chunks)-1] {
		if got := len([]rune(c.Text)); got != 50 {
			t.Errorf("chunk %d length = %d, want hard cut at 50", i, got)
		}
	}
}

func TestSplitMultibyte(t *testing.T) {
	s, err := New(20, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	input := strings.Repeat("héllo wörld日本語 ", 8)
	chunks := s.Split(input)

	var b strings.Builder
	for i, c := range chunks {
		if i == 0 {
			b.WriteString(c.Text)
			continue
		}
		b.WriteString(string([]rune(c.Text)[s.Overlap():]))
	}
	if b.String() != input {
		t.Error("multibyte reconstruction mismatch")
	}
}
