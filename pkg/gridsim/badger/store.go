// Package badger implements gridsim.Store on BadgerDB.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/dittogrid/pkg/gridsim"
)

// Config configures a Store.
type Config struct {
	// DBPath is the BadgerDB directory. Ignored when InMemory is set.
	DBPath string `mapstructure:"db_path"`

	// InMemory keeps the catalog in memory only
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`
}

// Store is a gridsim.Store backed by BadgerDB.
//
// Thread Safety: safe for concurrent use; BadgerDB transactions provide
// isolation.
type Store struct {
	db  *badger.DB
	seq *badger.Sequence
}

var _ gridsim.Store = (*Store)(nil)

// New opens a Store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !cfg.InMemory && cfg.DBPath == "" {
		return nil, fmt.Errorf("badger store: db_path is required unless in_memory is set")
	}

	opts := badger.DefaultOptions(cfg.DBPath)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	blockCacheMB := cfg.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %q: %w", cfg.DBPath, err)
	}

	seq, err := db.GetSequence([]byte(keySequence), 100)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open id sequence: %w", err)
	}

	return &Store{db: db, seq: seq}, nil
}

// Get implements gridsim.Store.
func (s *Store) Get(ctx context.Context, p string) (*gridsim.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var obj *gridsim.Object
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		obj, err = getObject(txn, p)
		return err
	})
	return obj, err
}

func getObject(txn *badger.Txn, p string) (*gridsim.Object, error) {
	item, err := txn.Get(keyObject(p))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, gridsim.ErrNoSuchObject
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", p, err)
	}

	var obj gridsim.Object
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &obj)
	})
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", p, err)
	}
	return &obj, nil
}

// Put implements gridsim.Store.
func (s *Store) Put(ctx context.Context, obj *gridsim.Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if obj.Path == "" || obj.Path[0] != '/' {
		return fmt.Errorf("put: path %q is not absolute", obj.Path)
	}

	if obj.ID == 0 {
		id, err := s.seq.Next()
		if err != nil {
			return fmt.Errorf("put %s: allocate id: %w", obj.Path, err)
		}
		obj.ID = int64(id) + 10000
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("put %s: encode: %w", obj.Path, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if obj.Path != "/" {
			parent, err := getObject(txn, obj.Parent())
			if err != nil {
				return fmt.Errorf("put %s: parent: %w", obj.Path, err)
			}
			if !parent.IsCollection() {
				return fmt.Errorf("put %s: parent is not a collection", obj.Path)
			}
			if err := txn.Set(keyChild(obj.Parent(), obj.Name()), []byte(obj.Path)); err != nil {
				return err
			}
		}
		return txn.Set(keyObject(obj.Path), data)
	})
}

// Children implements gridsim.Store.
func (s *Store) Children(ctx context.Context, p string) ([]*gridsim.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var children []*gridsim.Object
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := keyChildPrefix(p)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			childPath, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			child, err := getObject(txn, string(childPath))
			if err != nil {
				return err
			}
			children = append(children, child)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", p, err)
	}
	return children, nil
}

// Count implements gridsim.Store.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixObject)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close implements gridsim.Store.
func (s *Store) Close() error {
	seqErr := s.seq.Release()
	if err := s.db.Close(); err != nil {
		return err
	}
	return seqErr
}
