package watch

import (
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// Store persists watch entries so the watch list survives restarts.
// Badger KV keyed by token address, JSON values.
type Store struct {
	db *badger.DB
}

// OpenStore opens (or creates) the watch store at dir.
func OpenStore(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open watch store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put writes one entry.
func (s *Store) Put(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode watch entry: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(e.Address), data)
	})
}

// Delete removes one entry. Deleting a missing key is not an error.
func (s *Store) Delete(address string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(address))
	})
}

// Get reads one entry; found=false when absent.
func (s *Store) Get(address string) (Entry, bool, error) {
	var e Entry
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(address))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	return e, found, err
}

// List returns every stored entry. Entries that fail to decode are skipped
// rather than failing the whole scan.
func (s *Store) List() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var e Entry
			decodeErr := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			})
			if decodeErr != nil {
				continue
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan watch store: %w", err)
	}
	return entries, nil
}
