package importer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/mrlokans/phonedir/internal/entities"
)

type importScript struct {
	outcome entities.ImportOutcome
	err     error
	hang    bool // block until the request context is done
}

type resolveCall struct {
	ContactID uint
	Action    entities.ResolutionAction
	DN        string
}

type mockBackend struct {
	mu       sync.Mutex
	scripts  map[string]importScript
	imported []string
	resolves []resolveCall

	resolveErr error

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newMockBackend() *mockBackend {
	return &mockBackend{scripts: make(map[string]importScript)}
}

func (m *mockBackend) script(dn string, s importScript) *mockBackend {
	m.scripts[dn] = s
	return m
}

func (m *mockBackend) Import(ctx context.Context, dn string) (entities.ImportOutcome, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxInFlight.Load()
		if n <= cur || m.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	m.mu.Lock()
	m.imported = append(m.imported, dn)
	s, ok := m.scripts[dn]
	m.mu.Unlock()

	if !ok {
		return entities.SuccessOutcome("imported " + dn), nil
	}
	if s.hang {
		<-ctx.Done()
		return entities.ImportOutcome{}, ctx.Err()
	}
	return s.outcome, s.err
}

func (m *mockBackend) ResolveConflict(ctx context.Context, contactID uint, action entities.ResolutionAction, dn string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolves = append(m.resolves, resolveCall{ContactID: contactID, Action: action, DN: dn})
	return m.resolveErr
}

func (m *mockBackend) importedDNs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.imported...)
}

var errConnRefused = errors.New("dial tcp 127.0.0.1:8188: connect: connection refused")

func candidates(dns ...string) []entities.ImportCandidate {
	out := make([]entities.ImportCandidate, len(dns))
	for i, dn := range dns {
		out[i] = entities.ImportCandidate{DN: dn, Name: dn, UID: dn}
	}
	return out
}
