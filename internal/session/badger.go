package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"pansobot/internal/domain"
)

// BadgerStore implements the Store interface using an in-memory BadgerDB.
// Sessions are ephemeral: nothing survives a process restart. Entries carry
// a TTL so abandoned sessions do not accumulate for the process lifetime;
// an expired entry surfaces as ErrNotFound, the same as a missing one.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
	log logrus.FieldLogger
}

// NewBadgerStore creates the session store. A ttl of zero disables expiry.
func NewBadgerStore(ttl time.Duration, logger logrus.FieldLogger) (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}

	db, err := badger.Open(opts)
	if err != nil {
		logger.WithError(err).Error("Failed to open in-memory BadgerDB")
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	return &BadgerStore{
		db:  db,
		ttl: ttl,
		log: logger.WithField("component", "session_store"),
	}, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		s.log.WithError(err).Error("Error closing session store")
		return err
	}
	return nil
}

// sessionKey formats the key for a user's current session.
// Format: session:{userID}
func sessionKey(userID int64) []byte {
	return []byte(fmt.Sprintf("session:%d", userID))
}

// revealKey formats the key for a revealable link entry.
// Format: reveal:{userID}:{key}
func revealKey(userID int64, key string) []byte {
	return []byte(fmt.Sprintf("reveal:%d:%s", userID, key))
}

// quickKey formats the key for a pending quick-search provider type.
// Format: quick:{userID}
func quickKey(userID int64) []byte {
	return []byte(fmt.Sprintf("quick:%d", userID))
}

func (s *BadgerStore) set(key, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key, value)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
}

func (s *BadgerStore) get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

// Put stores the user's session, replacing any previous one.
func (s *BadgerStore) Put(ctx context.Context, userID int64, sess domain.Session) error {
	log := s.log.WithFields(logrus.Fields{"user_id": userID, "keyword": sess.Keyword})

	data, err := json.Marshal(sess)
	if err != nil {
		log.WithError(err).Error("Failed to marshal session")
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.set(sessionKey(userID), data); err != nil {
		log.WithError(err).Error("Failed to store session")
		return fmt.Errorf("failed to store session: %w", err)
	}

	log.WithField("total", sess.Total).Debug("Session stored")
	return nil
}

// Get retrieves the user's current session.
func (s *BadgerStore) Get(ctx context.Context, userID int64) (domain.Session, error) {
	data, err := s.get(sessionKey(userID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Session{}, ErrNotFound
		}
		s.log.WithError(err).WithField("user_id", userID).Error("Failed to read session")
		return domain.Session{}, fmt.Errorf("failed to read session for user %d: %w", userID, err)
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("Failed to unmarshal session")
		return domain.Session{}, fmt.Errorf("failed to unmarshal session for user %d: %w", userID, err)
	}
	return sess, nil
}

// PutReveal records a revealable link under key. Re-rendering a page writes
// the same keys with the same URLs, so overwrites are harmless.
func (s *BadgerStore) PutReveal(ctx context.Context, userID int64, key, url string) error {
	if err := s.set(revealKey(userID, key), []byte(url)); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "key": key}).Error("Failed to store reveal entry")
		return fmt.Errorf("failed to store reveal entry %s: %w", key, err)
	}
	return nil
}

// GetReveal returns the link recorded under key.
func (s *BadgerStore) GetReveal(ctx context.Context, userID int64, key string) (string, error) {
	data, err := s.get(revealKey(userID, key))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read reveal entry %s: %w", key, err)
	}
	return string(data), nil
}

// PutQuickType records the provider type for the user's next search.
func (s *BadgerStore) PutQuickType(ctx context.Context, userID int64, resourceType string) error {
	if err := s.set(quickKey(userID), []byte(resourceType)); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("Failed to store quick-search type")
		return fmt.Errorf("failed to store quick-search type: %w", err)
	}
	return nil
}

// TakeQuickType returns and clears the pending provider type in one
// transaction, so rapid successive searches consume it at most once.
func (s *BadgerStore) TakeQuickType(ctx context.Context, userID int64) (string, error) {
	key := quickKey(userID)

	var resourceType string
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		resourceType = string(value)
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("Failed to take quick-search type")
		return "", fmt.Errorf("failed to take quick-search type: %w", err)
	}
	return resourceType, nil
}

// --- BadgerDB Internal Logger ---

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
