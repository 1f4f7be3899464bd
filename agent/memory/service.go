package memory

import (
	"fmt"
	"strings"
	"sync"
)

// Service owns the per-identity memory agents. It replaces the ad hoc
// process-global caches with one explicit object constructed at startup and
// handed to the pipeline. The mutex guards first initialization only;
// callers must still serialize same-identity queries (the store itself has
// no write lock).
type Service struct {
	dir      string
	embedder Embedder

	mu     sync.Mutex
	agents map[string]*Agent
}

func NewService(dir string, embedder Embedder) *Service {
	return &Service{
		dir:      dir,
		embedder: embedder,
		agents:   make(map[string]*Agent),
	}
}

// ForIdentity returns the identity's memory agent, creating and caching it
// on first use.
func (s *Service) ForIdentity(identity string) (*Agent, error) {
	id := strings.TrimSpace(identity)
	if id == "" {
		return nil, fmt.Errorf("identity is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if agent, ok := s.agents[id]; ok {
		return agent, nil
	}

	store, err := NewStore(s.dir, id, s.embedder)
	if err != nil {
		return nil, err
	}
	agent := NewAgent(id, store)
	s.agents[id] = agent
	return agent, nil
}
