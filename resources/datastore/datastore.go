// Package datastore is the application's key/value datastore, backed by goleveldb.
package datastore

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	ErrNotFound = errors.New("key not found")
	ErrNotOpen  = errors.New("datastore is not open")
)

type LevelDB struct {
	// path to the database directory. Empty means in-memory.
	path string

	mu sync.RWMutex
	db *leveldb.DB
}

// New returns a datastore at path. Nothing is opened until [LevelDB.Open].
func New(path string) *LevelDB {
	return &LevelDB{path: path}
}

func (l *LevelDB) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.db != nil {
		return nil
	}

	var (
		db  *leveldb.DB
		err error
	)
	if l.path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(l.path, nil)
	}
	if err != nil {
		return errors.Wrapf(err, "opening leveldb %q", l.path)
	}

	l.db = db
	return nil
}

func (l *LevelDB) handle() (*leveldb.DB, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.db == nil {
		return nil, ErrNotOpen
	}
	return l.db, nil
}

func (l *LevelDB) Get(ctx context.Context, key string) ([]byte, error) {
	db, err := l.handle()
	if err != nil {
		return nil, err
	}

	v, err := db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, errors.Wrap(ErrNotFound, key)
	}
	return v, errors.Wrapf(err, "getting %q", key)
}

func (l *LevelDB) Put(ctx context.Context, key string, value []byte) error {
	db, err := l.handle()
	if err != nil {
		return err
	}
	return errors.Wrapf(db.Put([]byte(key), value, nil), "putting %q", key)
}

func (l *LevelDB) Delete(ctx context.Context, key string) error {
	db, err := l.handle()
	if err != nil {
		return err
	}
	return errors.Wrapf(db.Delete([]byte(key), nil), "deleting %q", key)
}

// Keys lists keys starting with prefix in ascending order.
func (l *LevelDB) Keys(ctx context.Context, prefix string) ([]string, error) {
	db, err := l.handle()
	if err != nil {
		return nil, err
	}

	iter := db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	var keys []string
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		keys = append(keys, string(iter.Key()))
	}
	return keys, errors.Wrap(iter.Error(), "iterating keys")
}

func (l *LevelDB) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return errors.Wrap(err, "closing leveldb")
}
