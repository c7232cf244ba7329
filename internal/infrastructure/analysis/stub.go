package analysis

import (
	"context"
	"sync"

	"mailtriage/internal/domain/email"
)

// Stub is a deterministic analyzer returning a fixed result.
type Stub struct {
	Result email.Analysis
	Err    error

	mu    sync.Mutex
	texts []string
}

func NewStub(polarity float64, entities ...email.Entity) *Stub {
	return &Stub{Result: email.Analysis{Polarity: polarity, Entities: entities}}
}

func (s *Stub) Analyze(_ context.Context, text string) (*email.Analysis, error) {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	out := s.Result
	out.Entities = append([]email.Entity(nil), s.Result.Entities...)
	return &out, nil
}

// Texts returns every text the stub was asked to analyze.
func (s *Stub) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}
