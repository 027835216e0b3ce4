// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import "github.com/qianbin/directcache"

// cachedStore wraps a store with a read-through value cache.
// It assumes a single writer, which holds for the ledger host.
type cachedStore struct {
	Store
	cache *directcache.Cache
}

// NewCachedStore creates a store which caches values read from src.
// cacheSize is the cache capacity in bytes.
func NewCachedStore(src Store, cacheSize int) Store {
	if cacheSize < directcache.MinCapacity {
		cacheSize = directcache.MinCapacity
	}
	return &cachedStore{
		src,
		directcache.New(cacheSize),
	}
}

func (c *cachedStore) Get(key []byte) ([]byte, error) {
	if val, ok := c.cache.Get(key); ok {
		return val, nil
	}
	val, err := c.Store.Get(key)
	if err != nil {
		return nil, err
	}
	_ = c.cache.Set(key, val)
	return val, nil
}

func (c *cachedStore) Has(key []byte) (bool, error) {
	if c.cache.Has(key) {
		return true, nil
	}
	return c.Store.Has(key)
}

func (c *cachedStore) Put(key, val []byte) error {
	if err := c.Store.Put(key, val); err != nil {
		return err
	}
	_ = c.cache.Set(key, val)
	return nil
}

func (c *cachedStore) Delete(key []byte) error {
	if err := c.Store.Delete(key); err != nil {
		return err
	}
	c.cache.Del(key)
	return nil
}

// Bulk returns a bulk whose writes evict affected cache entries.
// Reads repopulate the cache afterwards.
func (c *cachedStore) Bulk() Bulk {
	bulk := c.Store.Bulk()
	return &struct {
		Putter
		EnableAutoFlushFunc
		WriteFunc
	}{
		&struct {
			PutFunc
			DeleteFunc
		}{
			func(key, val []byte) error {
				c.cache.Del(key)
				return bulk.Put(key, val)
			},
			func(key []byte) error {
				c.cache.Del(key)
				return bulk.Delete(key)
			},
		},
		bulk.EnableAutoFlush,
		bulk.Write,
	}
}

// Snapshot bypasses the cache, which may be ahead of the snapshot.
func (c *cachedStore) Snapshot() Snapshot {
	return c.Store.Snapshot()
}
