package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"papergraph/db"
	"papergraph/storage"
	"papergraph/tools"

	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/require"
)

// scriptedLLM answers by operation; calls are recorded.
type scriptedLLM struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	calls   []tools.CompletionRequest
}

func (s *scriptedLLM) Complete(_ context.Context, req tools.CompletionRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	if err := s.errs[req.Operation]; err != nil {
		return "", err
	}
	if r, ok := s.replies[req.Operation]; ok {
		return r, nil
	}
	return "", errors.New("no scripted reply for " + req.Operation)
}

func (s *scriptedLLM) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Operation == op {
			n++
		}
	}
	return n
}

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) Extract(data []byte) (tools.ExtractedText, error) {
	if f.err != nil {
		return tools.ExtractedText{}, f.err
	}
	if !strings.HasPrefix(string(data), "%PDF") {
		return tools.ExtractedText{}, tools.ErrNoText
	}
	return tools.ExtractedText{Text: f.text, Pages: 3}, nil
}

const goodSummary = "```json\n" + `{"title":"Graph Attention Networks","goal":"classify nodes","method":"masked self-attention",
"background":"spectral GCNs","future":"larger graphs","gaps":["edge features","scalability"]}` + "\n```"

func newTestPipeline(t *testing.T, llm tools.Completer, ex tools.TextExtractor) (*Pipeline, *gorm.DB) {
	t.Helper()
	conn, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	store, err := storage.NewLocal(t.TempDir(), "/files")
	require.NoError(t, err)

	opts := Options{Model: "m", ChatModel: "cm", MaxInputTokens: 2000, ExcerptChars: 40, ChatHistory: 4}
	return New(llm, ex, store, nil, opts, nil), conn
}

// nopRunner accepts every statement.
type nopRunner struct{}

func (nopRunner) Write(context.Context, string, map[string]any) ([]map[string]any, error) {
	return nil, nil
}

func (nopRunner) Read(context.Context, string, map[string]any) ([]map[string]any, error) {
	return nil, nil
}
