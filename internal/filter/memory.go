package filter

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"tubelinks/internal/domain"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps filter words in process memory. Everything is lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	defaults domain.WordSet
	users    map[domain.UserID]domain.WordSet
	log      logrus.FieldLogger
}

// NewMemoryStore returns an empty store that hands out copies of defaults.
func NewMemoryStore(defaults domain.WordSet, logger logrus.FieldLogger) *MemoryStore {
	return &MemoryStore{
		defaults: defaults.Clone(),
		users:    make(map[domain.UserID]domain.WordSet),
		log:      logger.WithField("component", "filter_store"),
	}
}

// lookup must be called with mu held.
func (s *MemoryStore) lookup(user domain.UserID) domain.WordSet {
	set, ok := s.users[user]
	if !ok {
		set = s.defaults.Clone()
		s.users[user] = set
		s.log.WithField("user_id", user).Debug("Initialized filters from defaults")
	}
	return set
}

func (s *MemoryStore) GetFilters(_ context.Context, user domain.UserID) (domain.WordSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(user).Clone(), nil
}

func (s *MemoryStore) AddFilter(_ context.Context, user domain.UserID, word string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, added := WithWord(s.lookup(user), Normalize(word))
	s.users[user] = set
	return added, nil
}

func (s *MemoryStore) RemoveFilter(_ context.Context, user domain.UserID, word string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, removed := WithoutWord(s.lookup(user), Normalize(word))
	s.users[user] = set
	return removed, nil
}

func (s *MemoryStore) ResetFilters(_ context.Context, user domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user] = s.defaults.Clone()
	return nil
}

func (s *MemoryStore) ReplaceFilters(_ context.Context, user domain.UserID, words []string) error {
	set := NormalizeAll(words)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user] = set
	return nil
}
