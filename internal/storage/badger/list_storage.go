package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/interfaces"
)

// listKeyPrefix keeps raw list entries apart from badgerhold records
const listKeyPrefix = "list:"

// ListStorage implements interfaces.ListStorage on raw Badger entries.
// Each list is one JSON-encoded []string stored under a single key, so the
// whole list shares one expiry like a Redis list does.
type ListStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex // serializes read-modify-write of list entries
}

// NewListStorage creates a new ListStorage instance
func NewListStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ListStorage {
	return &ListStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ListStorage) rawKey(key string) []byte {
	return []byte(listKeyPrefix + key)
}

// load reads the list and its expiry (unix seconds, 0 = none) inside txn
func (s *ListStorage) load(txn *badger.Txn, key string) ([]string, uint64, error) {
	item, err := txn.Get(s.rawKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, 0, interfaces.ErrKeyNotFound
	}
	if err != nil {
		return nil, 0, err
	}

	raw, err := item.ValueCopy(nil)
	if err != nil {
		return nil, 0, err
	}

	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, 0, fmt.Errorf("corrupt list at %s: %w", key, err)
	}
	return values, item.ExpiresAt(), nil
}

// save writes the list keeping the given expiry
func (s *ListStorage) save(txn *badger.Txn, key string, values []string, expiresAt uint64) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	entry := badger.NewEntry(s.rawKey(key), raw)
	entry.ExpiresAt = expiresAt
	return txn.SetEntry(entry)
}

// LPush inserts values at the head of the list; the last value ends up first
func (s *ListStorage) LPush(ctx context.Context, key string, values ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	length := 0
	err := s.db.Store().Badger().Update(func(txn *badger.Txn) error {
		current, expiresAt, err := s.load(txn, key)
		if err != nil && !errors.Is(err, interfaces.ErrKeyNotFound) {
			return err
		}

		list := make([]string, 0, len(current)+len(values))
		for i := len(values) - 1; i >= 0; i-- {
			list = append(list, values[i])
		}
		list = append(list, current...)
		length = len(list)

		return s.save(txn, key, list, expiresAt)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to push to list: %w", err)
	}
	return length, nil
}

// LTrim keeps the elements in [start, stop]; an empty range deletes the list
func (s *ListStorage) LTrim(ctx context.Context, key string, start, stop int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Store().Badger().Update(func(txn *badger.Txn) error {
		current, expiresAt, err := s.load(txn, key)
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		from, to, ok := normalizeRange(len(current), start, stop)
		if !ok {
			return txn.Delete(s.rawKey(key))
		}
		return s.save(txn, key, current[from:to+1], expiresAt)
	})
	if err != nil {
		return fmt.Errorf("failed to trim list: %w", err)
	}
	return nil
}

// LRange returns the elements in [start, stop]
func (s *ListStorage) LRange(ctx context.Context, key string, start, stop int) ([]string, error) {
	var result []string
	err := s.db.Store().Badger().View(func(txn *badger.Txn) error {
		current, _, err := s.load(txn, key)
		if err != nil {
			return err
		}
		from, to, ok := normalizeRange(len(current), start, stop)
		if ok {
			result = current[from : to+1]
		}
		return nil
	})
	if errors.Is(err, interfaces.ErrKeyNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read list: %w", err)
	}
	if result == nil {
		result = []string{}
	}
	return result, nil
}

// Expire rewrites the list with a fresh time-to-live
func (s *ListStorage) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Store().Badger().Update(func(txn *badger.Txn) error {
		current, _, err := s.load(txn, key)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(current)
		if err != nil {
			return err
		}
		return txn.SetEntry(badger.NewEntry(s.rawKey(key), raw).WithTTL(ttl))
	})
	if errors.Is(err, interfaces.ErrKeyNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to set list expiry: %w", err)
	}
	return nil
}

// TTL returns the remaining time-to-live of the list
func (s *ListStorage) TTL(ctx context.Context, key string) (time.Duration, error) {
	var expiresAt uint64
	err := s.db.Store().Badger().View(func(txn *badger.Txn) error {
		_, exp, err := s.load(txn, key)
		expiresAt = exp
		return err
	})
	if err != nil {
		return 0, err
	}
	if expiresAt == 0 {
		return 0, nil
	}
	return time.Until(time.Unix(int64(expiresAt), 0)), nil
}

// Delete removes the list
func (s *ListStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Store().Badger().Update(func(txn *badger.Txn) error {
		return txn.Delete(s.rawKey(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}
	return nil
}

// normalizeRange resolves Redis-style inclusive indices against a list length
func normalizeRange(length, start, stop int) (int, int, bool) {
	if start < 0 {
		start += length
	}
	if stop < 0 {
		stop += length
	}
	if start < 0 {
		start = 0
	}
	if stop >= length {
		stop = length - 1
	}
	if length == 0 || start > stop || start >= length {
		return 0, 0, false
	}
	return start, stop, true
}
