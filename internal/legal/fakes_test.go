package legal

import (
	"context"
	"sync"

	"github.com/54b3r/lawglance-go/internal/rag"
)

// scriptedLLM returns its replies in order and records every prompt.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
}

func (s *scriptedLLM) Generate(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", nil
	}
	r := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return r, nil
}

func (s *scriptedLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

// stubRetriever returns a fixed document list and records the parameters
// it was called with.
type stubRetriever struct {
	docs      []rag.Document
	err       error
	called    int
	topK      int
	threshold float32
}

func (s *stubRetriever) Retrieve(_ context.Context, _ string, topK int, threshold float32) ([]rag.Document, error) {
	s.called++
	s.topK = topK
	s.threshold = threshold
	if s.err != nil {
		return nil, s.err
	}
	return s.docs, nil
}
