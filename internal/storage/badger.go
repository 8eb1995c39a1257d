package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"tubelinks/internal/domain"
	"tubelinks/internal/filter"
)

var _ filter.Store = (*BadgerStore)(nil)

// BadgerStore implements filter.Store on top of BadgerDB, so filter words
// survive restarts.
type BadgerStore struct {
	db       *badger.DB
	defaults domain.WordSet
	log      logrus.FieldLogger

	// writeMu serializes read-modify-write transactions so concurrent calls
	// never fail with badger.ErrConflict.
	writeMu sync.Mutex
}

// filterRecord is the JSON value stored per user.
type filterRecord struct {
	Words     []string  `json:"words"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewBadgerStore opens the database at dbPath.
func NewBadgerStore(dbPath string, defaults domain.WordSet, logger logrus.FieldLogger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}

	db, err := badger.Open(opts)
	if err != nil {
		logger.WithError(err).Error("Failed to open BadgerDB")
		return nil, fmt.Errorf("failed to open badger db at %s: %w", dbPath, err)
	}
	logger.Info("BadgerDB opened successfully at path: ", dbPath)

	return &BadgerStore{
		db:       db,
		defaults: defaults.Clone(),
		log:      logger.WithField("component", "filter_store"),
	}, nil
}

// Close closes the BadgerDB database.
func (s *BadgerStore) Close() error {
	s.log.Info("Closing BadgerDB...")
	if err := s.db.Close(); err != nil {
		s.log.WithError(err).Error("Error closing BadgerDB")
		return err
	}
	s.log.Info("BadgerDB closed.")
	return nil
}

// filterKey formats as filters:user:{userID}.
func filterKey(user domain.UserID) []byte {
	return []byte(fmt.Sprintf("filters:user:%d", user))
}

// load returns the stored set, or a copy of the defaults when the user has none yet.
func (s *BadgerStore) load(txn *badger.Txn, user domain.UserID) (domain.WordSet, error) {
	item, err := txn.Get(filterKey(user))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return s.defaults.Clone(), nil
	}
	if err != nil {
		return nil, err
	}
	var rec filterRecord
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode filters for user %d: %w", user, err)
	}
	return domain.WordSet(rec.Words).Clone(), nil
}

func (s *BadgerStore) save(txn *badger.Txn, user domain.UserID, set domain.WordSet) error {
	val, err := json.Marshal(filterRecord{Words: set, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal filters: %w", err)
	}
	return txn.SetEntry(badger.NewEntry(filterKey(user), val))
}

// update runs fn in a serialized read-write transaction. fn returns the new
// set and whether it should be written.
func (s *BadgerStore) update(user domain.UserID, op string, fn func(domain.WordSet) (domain.WordSet, bool)) (bool, error) {
	log := s.log.WithFields(logrus.Fields{"user_id": user, "op": op})

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var changed bool
	err := s.db.Update(func(txn *badger.Txn) error {
		cur, err := s.load(txn, user)
		if err != nil {
			return err
		}
		next, ok := fn(cur)
		changed = ok
		if !ok {
			return nil
		}
		return s.save(txn, user, next)
	})
	if err != nil {
		log.WithError(err).Error("Failed to update filters in BadgerDB")
		return false, fmt.Errorf("failed to %s filters for user %d: %w", op, user, err)
	}
	log.WithField("changed", changed).Debug("Filters updated")
	return changed, nil
}

func (s *BadgerStore) GetFilters(_ context.Context, user domain.UserID) (domain.WordSet, error) {
	var set domain.WordSet
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		set, err = s.load(txn, user)
		return err
	})
	if err != nil {
		s.log.WithError(err).WithField("user_id", user).Error("Failed to read filters from BadgerDB")
		return nil, fmt.Errorf("failed to get filters for user %d: %w", user, err)
	}
	return set, nil
}

func (s *BadgerStore) AddFilter(_ context.Context, user domain.UserID, word string) (bool, error) {
	word = filter.Normalize(word)
	return s.update(user, "add", func(cur domain.WordSet) (domain.WordSet, bool) {
		return filter.WithWord(cur, word)
	})
}

func (s *BadgerStore) RemoveFilter(_ context.Context, user domain.UserID, word string) (bool, error) {
	word = filter.Normalize(word)
	return s.update(user, "remove", func(cur domain.WordSet) (domain.WordSet, bool) {
		return filter.WithoutWord(cur, word)
	})
}

func (s *BadgerStore) ResetFilters(_ context.Context, user domain.UserID) error {
	_, err := s.update(user, "reset", func(domain.WordSet) (domain.WordSet, bool) {
		return s.defaults.Clone(), true
	})
	return err
}

func (s *BadgerStore) ReplaceFilters(_ context.Context, user domain.UserID, words []string) error {
	set := filter.NormalizeAll(words)
	_, err := s.update(user, "replace", func(domain.WordSet) (domain.WordSet, bool) {
		return set, true
	})
	return err
}

// RunGC reclaims value log space every interval until ctx is cancelled.
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			err := s.db.RunValueLogGC(0.7)
			switch {
			case err == nil:
				s.log.Info("BadgerDB GC completed successfully")
			case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrRejected):
				s.log.Debug("BadgerDB GC: No rewrite needed")
			default:
				s.log.WithError(err).Error("BadgerDB GC failed")
			}
		case <-ctx.Done():
			s.log.Info("Stopping BadgerDB GC routine due to context cancellation")
			return
		}
	}
}

// badgerLogger adapts logrus.FieldLogger to Badger's logger interface.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Errorf(f, v...)
}
func (l *badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warningf(f, v...)
}
func (l *badgerLogger) Infof(f string, v ...interface{}) {
	l.logger.Infof(f, v...)
}
func (l *badgerLogger) Debugf(f string, v ...interface{}) {
	l.logger.Debugf(f, v...)
}
