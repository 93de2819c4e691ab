package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
)

// Badger stores the slot in an embedded Badger database.
type Badger struct {
	db  *badger.DB
	key []byte
}

// OpenBadger opens the Badger database in dir.
func OpenBadger(dir, key string) (*Badger, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening badger db: %w", err)
	}
	return &Badger{db: db, key: []byte("slot/" + key)}, nil
}

func (b *Badger) Load(_ context.Context) (string, bool, error) {
	var text []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key)
		if err != nil {
			return err
		}
		text, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("loading slot %s: %w", b.key, err)
	}
	return string(text), true, nil
}

func (b *Badger) Save(_ context.Context, text string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.key, []byte(text))
	})
	if err != nil {
		return fmt.Errorf("saving slot %s: %w", b.key, err)
	}
	return nil
}

func (b *Badger) Clear(_ context.Context) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(b.key)
	})
	if err != nil {
		return fmt.Errorf("clearing slot %s: %w", b.key, err)
	}
	return nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}
