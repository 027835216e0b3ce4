// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsRevertErr(t *testing.T) {
	assert.True(t, IsRevertErr(ErrZeroAmount))
	assert.True(t, IsRevertErr(New("custom rejection")))

	assert.False(t, IsRevertErr(nil))
	assert.False(t, IsRevertErr(errors.New("storage failure")))
	assert.False(t, IsRevertErr("not an error"))
}

func TestWrappedRevertErr(t *testing.T) {
	wrapped := pkgerrors.Wrap(ErrUnknownProver, "failed to load prover")

	assert.True(t, IsRevertErr(wrapped))
	assert.True(t, errors.Is(wrapped, ErrUnknownProver))
	assert.False(t, errors.Is(wrapped, ErrNotActive))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "zero amount", ErrZeroAmount.Error())
	assert.Equal(t, "unauthorized", ErrUnauthorized.Error())
}
