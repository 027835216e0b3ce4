// Copyright (c) 2024 The Bastion developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bastion

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlake2b(t *testing.T) {
	singleData := []byte("data")
	multipleData := [][]byte{[]byte("multi"), []byte("ple"), []byte("data")}

	singleHash := Blake2b(singleData)
	assert.Len(t, singleHash, 32)

	multiHash := Blake2b(multipleData...)
	assert.Len(t, multiHash, 32)

	// Different data must yield different hashes.
	assert.NotEqual(t, singleHash, multiHash)

	// Multi-slice form must be concat-equivalent.
	assert.Equal(t, Blake2b([]byte("multipledata")), multiHash)
}

func TestBlake2bFn(t *testing.T) {
	h := Blake2bFn(func(w io.Writer) {
		w.Write([]byte("custom writer"))
	})

	assert.Equal(t, Blake2b([]byte("custom writer")), h)
}

func BenchmarkBlake2b(b *testing.B) {
	data := make([]byte, 100)

	b.Run("Blake2b", func(b *testing.B) {
		for b.Loop() {
			Blake2b(data).Bytes()
		}
	})

	b.Run("Blake2bFn", func(b *testing.B) {
		for b.Loop() {
			Blake2bFn(func(w io.Writer) {
				w.Write(data)
			})
		}
	})
}
