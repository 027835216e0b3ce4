// Copyright (c) 2024 The Bastion developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package datagen

import (
	"math/big"
	mathrand "math/rand/v2"
)

func RandInt() int {
	return mathrand.Int() //#nosec G404
}

func RandIntN(n int) int {
	return mathrand.N(n) //#nosec G404
}

// RandAmount returns a random value in [1, n] whole tokens, in base units.
func RandAmount(n int) *big.Int {
	tokens := int64(mathrand.N(n) + 1) //#nosec G404
	return new(big.Int).Mul(big.NewInt(tokens), big.NewInt(1e18))
}
