package container

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/hupe1980/geostore/core"
)

// Badger is a Store backed by a BadgerDB directory. It trades the
// single-file layout for incremental writes, which suits sessions that
// mutate very large stores without ever rewriting them wholesale.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a badger-backed store at dir.
func OpenBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Badger{db: db}, nil
}

// NewBadger wraps an already-open badger database.
func NewBadger(db *badger.DB) *Badger {
	return &Badger{db: db}
}

func badgerKey(prefix string, uid core.UID, name string) []byte {
	return []byte(fmt.Sprintf("%s/%s/%s", prefix, uid, name))
}

func (b *Badger) get(prefix string, uid core.UID, name string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(prefix, uid, name))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%q of %s: %w", name, uid, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Badger) set(prefix string, uid core.UID, name string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(prefix, uid, name), value)
	})
}

// ReadAttribute implements Store.
func (b *Badger) ReadAttribute(uid core.UID, name string) ([]byte, error) {
	return b.get("attr", uid, name)
}

// WriteAttribute implements Store.
func (b *Badger) WriteAttribute(uid core.UID, name string, value []byte) error {
	return b.set("attr", uid, name, value)
}

// ReadArray implements Store.
func (b *Badger) ReadArray(uid core.UID, name string) ([]byte, error) {
	return b.get("arr", uid, name)
}

// ReadArrayRange implements Store.
func (b *Badger) ReadArrayRange(uid core.UID, name string, off, length int64) ([]byte, error) {
	buf, err := b.ReadArray(uid, name)
	if err != nil {
		return nil, err
	}
	if off < 0 || length < 0 || off+length > int64(len(buf)) {
		return nil, fmt.Errorf("array %q of %s: range out of bounds: %w", name, uid, core.ErrValue)
	}
	return buf[off : off+length], nil
}

// WriteArray implements Store.
func (b *Badger) WriteArray(uid core.UID, name string, data []byte) error {
	return b.set("arr", uid, name, data)
}

// DeleteEntity implements Store.
func (b *Badger) DeleteEntity(uid core.UID) error {
	for _, prefix := range []string{"attr", "arr"} {
		scope := []byte(fmt.Sprintf("%s/%s/", prefix, uid))
		err := b.db.Update(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.IteratorOptions{Prefix: scope})
			defer it.Close()

			var keys [][]byte
			for it.Rewind(); it.Valid(); it.Next() {
				keys = append(keys, it.Item().KeyCopy(nil))
			}
			for _, k := range keys {
				if err := txn.Delete(k); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Flush implements Store.
func (b *Badger) Flush() error {
	return b.db.Sync()
}

// Close implements Store.
func (b *Badger) Close() error {
	return b.db.Close()
}
