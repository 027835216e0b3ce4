// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package linkedlist

import (
	"math/big"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/builtin/slots"
)

// LinkedList is a doubly linked list of addresses held in contract-style
// storage slots. Entries keep insertion order, which the prover registry
// relies on for stable enumeration.
type LinkedList struct {
	head  *slots.Address
	tail  *slots.Address
	count *slots.Uint256
	next  *slots.Mapping[bastion.Address, bastion.Address]
	prev  *slots.Mapping[bastion.Address, bastion.Address]
}

// New creates a linked list rooted at the given slot positions. The pointer
// mappings reuse the head and tail positions as bases; cell and mapping
// entries never collide since mapping entries live at hashed positions.
func New(sctx *slots.Context, headPos, tailPos, countPos bastion.Bytes32) *LinkedList {
	return &LinkedList{
		head:  slots.NewAddress(sctx, headPos),
		tail:  slots.NewAddress(sctx, tailPos),
		count: slots.NewUint256(sctx, countPos),
		next:  slots.NewMapping[bastion.Address, bastion.Address](sctx, headPos),
		prev:  slots.NewMapping[bastion.Address, bastion.Address](sctx, tailPos),
	}
}

// Add appends an address to the end of the list.
func (l *LinkedList) Add(address bastion.Address) error {
	oldTail, err := l.tail.Get()
	if err != nil {
		return err
	}

	if oldTail.IsZero() {
		// the list is currently empty, set this entry to head & tail
		l.head.Set(&address)
		l.tail.Set(&address)
		return l.count.Add(big.NewInt(1))
	}

	if err := l.next.Set(oldTail, address, false); err != nil {
		return err
	}

	if err := l.prev.Set(address, oldTail, false); err != nil {
		return err
	}

	l.tail.Set(&address)

	return l.count.Add(big.NewInt(1))
}

// Remove extracts an address from anywhere in the list, reconnecting its
// neighbours and clearing the removed node's pointers. Removing an address
// that is not in the list is a no-op.
func (l *LinkedList) Remove(address bastion.Address) error {
	if address.IsZero() {
		return nil
	}

	prev, err := l.prev.Get(address)
	if err != nil {
		return err
	}

	next, err := l.next.Get(address)
	if err != nil {
		return err
	}

	if prev.IsZero() && !l.isHead(address) {
		return nil // not in list
	}

	if !prev.IsZero() {
		if err := l.next.Set(prev, next, false); err != nil {
			return err
		}
	} else {
		l.head.Set(&next)
	}

	if !next.IsZero() {
		if err := l.prev.Set(next, prev, false); err != nil {
			return err
		}
	} else {
		l.tail.Set(&prev)
	}

	if err = l.next.Set(address, bastion.Address{}, false); err != nil {
		return err
	}
	if err = l.prev.Set(address, bastion.Address{}, false); err != nil {
		return err
	}

	return l.count.Sub(big.NewInt(1))
}

// Len returns the current number of addresses in the list.
func (l *LinkedList) Len() (*big.Int, error) {
	return l.count.Get()
}

// Iter traverses the list in insertion order, calling callback for each
// address until completion or error.
func (l *LinkedList) Iter(callback func(bastion.Address) error) error {
	ptr, err := l.head.Get()
	if err != nil {
		return err
	}

	for !ptr.IsZero() {
		if err := callback(ptr); err != nil {
			return err
		}

		next, err := l.next.Get(ptr)
		if err != nil {
			return err
		}

		if next.IsZero() {
			break
		}
		ptr = next
	}

	return nil
}

// Next returns the successor address in the list, or the zero address at
// the end.
func (l *LinkedList) Next(address bastion.Address) (bastion.Address, error) {
	return l.next.Get(address)
}

// Head returns the first address in the list, or the zero address when the
// list is empty.
func (l *LinkedList) Head() (bastion.Address, error) {
	return l.head.Get()
}

func (l *LinkedList) isHead(address bastion.Address) bool {
	head, err := l.head.Get()
	if err != nil {
		return false
	}
	return head == address
}
