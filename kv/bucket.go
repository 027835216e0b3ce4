// Copyright (c) 2024 The Bastion developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"sync"

	"github.com/syndtr/goleveldb/leveldb/util"
)

// Bucket carves a keyspace out of a store by prefixing every key.
type Bucket string

// NewGetter creates a getter which reads under the bucket prefix.
func (b Bucket) NewGetter(src Getter) Getter {
	return &struct {
		GetFunc
		HasFunc
		IsNotFoundFunc
	}{
		func(key []byte) ([]byte, error) {
			kb := keyPool.Get().(*keyBuf)
			defer keyPool.Put(kb)
			kb.k = append(append(kb.k[:0], b...), key...)

			return src.Get(kb.k)
		},
		func(key []byte) (bool, error) {
			kb := keyPool.Get().(*keyBuf)
			defer keyPool.Put(kb)
			kb.k = append(append(kb.k[:0], b...), key...)

			return src.Has(kb.k)
		},
		src.IsNotFound,
	}
}

// NewPutter creates a putter which writes under the bucket prefix.
func (b Bucket) NewPutter(src Putter) Putter {
	return &struct {
		PutFunc
		DeleteFunc
	}{
		func(key, val []byte) error {
			kb := keyPool.Get().(*keyBuf)
			defer keyPool.Put(kb)
			kb.k = append(append(kb.k[:0], b...), key...)

			return src.Put(kb.k, val)
		},
		func(key []byte) error {
			kb := keyPool.Get().(*keyBuf)
			defer keyPool.Put(kb)
			kb.k = append(append(kb.k[:0], b...), key...)

			return src.Delete(kb.k)
		},
	}
}

// NewStore creates a store whose whole surface, iteration included, lives
// under the bucket prefix.
func (b Bucket) NewStore(src Store) Store {
	return &struct {
		Getter
		Putter
		SnapshotFunc
		BulkFunc
		IterateFunc
	}{
		b.NewGetter(src),
		b.NewPutter(src),
		func() Snapshot {
			snapshot := src.Snapshot()
			return &struct {
				Getter
				ReleaseFunc
			}{
				b.NewGetter(snapshot),
				snapshot.Release,
			}
		},
		func() Bulk {
			bulk := src.Bulk()
			return &struct {
				Putter
				EnableAutoFlushFunc
				WriteFunc
			}{
				b.NewPutter(bulk),
				bulk.EnableAutoFlush,
				bulk.Write,
			}
		},
		func(r Range) Iterator {
			{
				kb := keyPool.Get().(*keyBuf)
				defer keyPool.Put(kb)
				kb.k = append(append(kb.k[:0], b...), r.Start...)
				r.Start = kb.k
			}

			if len(r.Limit) == 0 {
				r.Limit = util.BytesPrefix([]byte(b)).Limit
			} else {
				kb := keyPool.Get().(*keyBuf)
				defer keyPool.Put(kb)
				kb.k = append(append(kb.k[:0], b...), r.Limit...)
				r.Limit = kb.k
			}
			iter := src.Iterate(r)
			return &struct {
				FirstFunc
				LastFunc
				NextFunc
				PrevFunc
				KeyFunc
				ValueFunc
				ReleaseFunc
				ErrorFunc
			}{
				iter.First,
				iter.Last,
				iter.Next,
				iter.Prev,
				// hand keys back without the prefix
				func() []byte { return iter.Key()[len(b):] },
				iter.Value,
				iter.Release,
				iter.Error,
			}
		},
	}
}

// keyBuf is a reusable scratch buffer for prefixed keys.
type keyBuf struct {
	k []byte
}

var keyPool = sync.Pool{
	New: func() interface{} {
		return &keyBuf{}
	},
}
