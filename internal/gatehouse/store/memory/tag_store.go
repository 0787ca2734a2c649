package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gatehouse/gatehouse/internal/gatehouse/store"
)

// TagStore is an in-memory credential directory for tests and dev runs.
type TagStore struct {
	mu           sync.RWMutex
	byCredential map[string]store.TagRecord
	byPrincipal  map[string]string
}

// NewTagStore seeds the directory from credential -> principal pairs.
// Blank keys or names are skipped.
func NewTagStore(seed map[string]string) *TagStore {
	s := &TagStore{
		byCredential: make(map[string]store.TagRecord, len(seed)),
		byPrincipal:  make(map[string]string, len(seed)),
	}
	now := time.Now().UTC()
	for cred, name := range seed {
		cred, name = strings.TrimSpace(cred), strings.TrimSpace(name)
		if cred == "" || name == "" {
			continue
		}
		s.byCredential[cred] = store.TagRecord{
			Credential:    cred,
			PrincipalName: name,
			ImageRef:      store.DefaultImageRef,
			CreatedAt:     now,
		}
		s.byPrincipal[name] = cred
	}
	return s
}

func (s *TagStore) Lookup(_ context.Context, credential string) (store.TagRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byCredential[credential]
	return rec, ok, nil
}

func (s *TagStore) Register(_ context.Context, rec store.TagRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byCredential[rec.Credential]; ok {
		return store.ErrDuplicateCredential
	}
	if _, ok := s.byPrincipal[rec.PrincipalName]; ok {
		return store.ErrDuplicatePrincipal
	}
	if rec.ImageRef == "" {
		rec.ImageRef = store.DefaultImageRef
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.byCredential[rec.Credential] = rec
	s.byPrincipal[rec.PrincipalName] = rec.Credential
	return nil
}

func (s *TagStore) List(_ context.Context) ([]store.TagRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.TagRecord, 0, len(s.byCredential))
	for _, rec := range s.byCredential {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PrincipalName < out[j].PrincipalName })
	return out, nil
}
