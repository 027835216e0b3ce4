// Copyright (c) 2024 The Bastion developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lvldb

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/provernet/bastion/kv"
)

var _ kv.Store = (*LevelDB)(nil)

// Options options for creating level db instance.
type Options struct {
	CacheSize              int
	OpenFilesCacheCapacity int
}

var writeOpt = opt.WriteOptions{}
var readOpt = opt.ReadOptions{}

// LevelDB wraps level db impls.
type LevelDB struct {
	db *leveldb.DB
}

// New create a persistent level db instance.
// Create an empty one if not exists, or open if already there.
func New(path string, opts Options) (*LevelDB, error) {
	stg, err := storage.OpenFile(path, false)
	if err != nil {
		return nil, errors.Wrap(err, "new persistent level db")
	}
	return openLevelDB(stg, opts.CacheSize, opts.OpenFilesCacheCapacity)
}

// NewMem create a level db in memory.
func NewMem() (*LevelDB, error) {
	return openLevelDB(storage.NewMemStorage(), 0, 0)
}

func openLevelDB(stg storage.Storage, cacheSize, openFilesCacheCapacity int) (*LevelDB, error) {
	if cacheSize < 16 {
		cacheSize = 16
	}

	if openFilesCacheCapacity < 16 {
		openFilesCacheCapacity = 16
	}

	db, err := leveldb.Open(stg, &opt.Options{
		OpenFilesCacheCapacity: openFilesCacheCapacity,
		BlockCacheCapacity:     cacheSize / 2 * opt.MiB,
		WriteBuffer:            cacheSize / 4 * opt.MiB, // Two of these are used internally
		Filter:                 filter.NewBloomFilter(10),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open level db")
	}
	return &LevelDB{db: db}, nil
}

// IsNotFound to check if the error returned by Get indicates key not found.
func (ldb *LevelDB) IsNotFound(err error) bool {
	return err == leveldb.ErrNotFound
}

// Get retrieve value for given key.
// It returns an error if key not found. The error can be checked via IsNotFound.
func (ldb *LevelDB) Get(key []byte) (value []byte, err error) {
	return ldb.db.Get(key, &readOpt)
}

// Has returns whether a key exists.
func (ldb *LevelDB) Has(key []byte) (bool, error) {
	return ldb.db.Has(key, &readOpt)
}

// Put save value fo give key.
func (ldb *LevelDB) Put(key, value []byte) error {
	return ldb.db.Put(key, value, &writeOpt)
}

// Delete deletes the give key and its value.
func (ldb *LevelDB) Delete(key []byte) error {
	return ldb.db.Delete(key, &writeOpt)
}

// Close close the level db.
// Later operations will all fail.
func (ldb *LevelDB) Close() error {
	return ldb.db.Close()
}

// Snapshot takes a snapshot of the current db state.
func (ldb *LevelDB) Snapshot() kv.Snapshot {
	s, err := ldb.db.GetSnapshot()
	return &snapshot{s, err}
}

// Bulk creates a bulk for writing lots of kv pairs.
func (ldb *LevelDB) Bulk() kv.Bulk {
	return &bulk{db: ldb.db}
}

// Iterate create an iterator by range.
func (ldb *LevelDB) Iterate(r kv.Range) kv.Iterator {
	return ldb.db.NewIterator(&util.Range{
		Start: r.Start,
		Limit: r.Limit,
	}, &readOpt)
}

type snapshot struct {
	s   *leveldb.Snapshot
	err error
}

func (sn *snapshot) Get(key []byte) ([]byte, error) {
	if sn.err != nil {
		return nil, sn.err
	}
	return sn.s.Get(key, &readOpt)
}

func (sn *snapshot) Has(key []byte) (bool, error) {
	if sn.err != nil {
		return false, sn.err
	}
	return sn.s.Has(key, &readOpt)
}

func (sn *snapshot) IsNotFound(err error) bool {
	return err == leveldb.ErrNotFound
}

func (sn *snapshot) Release() {
	if sn.err == nil {
		sn.s.Release()
	}
}

// bulk collects writes and flushes them in batch.
type bulk struct {
	db        *leveldb.DB
	batch     leveldb.Batch
	autoFlush bool
}

// if the bulk collects more ops than this with auto flush enabled,
// it's flushed to the db without atomicity guarantee.
const bulkFlushThreshold = 8192

func (b *bulk) Put(key, value []byte) error {
	b.batch.Put(key, value)
	return b.tryFlush()
}

func (b *bulk) Delete(key []byte) error {
	b.batch.Delete(key)
	return b.tryFlush()
}

func (b *bulk) EnableAutoFlush() {
	b.autoFlush = true
}

func (b *bulk) Write() error {
	if err := b.db.Write(&b.batch, &writeOpt); err != nil {
		return errors.Wrap(err, "write batch")
	}
	b.batch.Reset()
	return nil
}

func (b *bulk) tryFlush() error {
	if !b.autoFlush {
		return nil
	}
	if b.batch.Len() < bulkFlushThreshold {
		return nil
	}
	return b.Write()
}
