// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package unbonding

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/builtin/ledger/reverts"
	"github.com/provernet/bastion/builtin/ledger/slashing"
	"github.com/provernet/bastion/builtin/slots"
)

var (
	slotQueues    = bastion.BytesToBytes32([]byte("unbonding-queues"))
	slotRawTotals = bastion.BytesToBytes32([]byte("unbonding-raw-totals"))
)

// Service is the single writer of unbonding queues. Queues are bounded per
// pair, so each lives in one storage entry, while the per-prover raw total
// lets a slash reprice every in-flight request in one read.
type Service struct {
	queues *slots.Mapping[bastion.Bytes32, *Queue]
	totals *slots.Mapping[bastion.Address, *big.Int]
}

func New(sctx *slots.Context) *Service {
	return &Service{
		queues: slots.NewMapping[bastion.Bytes32, *Queue](sctx, slotQueues),
		totals: slots.NewMapping[bastion.Address, *big.Int](sctx, slotRawTotals),
	}
}

// QueueKey derives the storage key of a staker's queue with a prover.
func QueueKey(id, staker bastion.Address) bastion.Bytes32 {
	return bastion.Blake2b(id.Bytes(), staker.Bytes())
}

// GetQueue returns the pair's queue, a zero-initialized one if absent.
func (s *Service) GetQueue(id, staker bastion.Address) (*Queue, error) {
	q, err := s.queues.Get(QueueKey(id, staker))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get queue")
	}
	if q.IsEmpty() {
		return newQueue(), nil
	}
	return q, nil
}

// TotalRaw returns the prover's outstanding unbonding amount in raw units.
func (s *Service) TotalRaw(id bastion.Address) (*big.Int, error) {
	total, err := s.totals.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get raw total")
	}
	return total, nil
}

// EffectiveTotal returns the prover's outstanding unbonding value under the
// given scale.
func (s *Service) EffectiveTotal(id bastion.Address, scale uint32) (*big.Int, error) {
	total, err := s.TotalRaw(id)
	if err != nil {
		return nil, err
	}
	return slashing.Effective(total, scale), nil
}

// Push appends a request and returns its id, the first id being 1.
func (s *Service) Push(id, staker bastion.Address, raw *big.Int, readyAt uint32, maxPending uint64) (uint64, error) {
	q, err := s.GetQueue(id, staker)
	if err != nil {
		return 0, err
	}
	if uint64(len(q.Requests)) >= maxPending {
		return 0, reverts.ErrTooManyPending
	}
	qIsNew := q.IsEmpty()

	q.NextID++
	q.Requests = append(q.Requests, &Request{
		ID:      q.NextID,
		Raw:     raw,
		ReadyAt: readyAt,
	})

	if err := s.queues.Set(QueueKey(id, staker), q, qIsNew); err != nil {
		return 0, errors.Wrap(err, "failed to set queue")
	}
	if err := s.addToTotal(id, raw); err != nil {
		return 0, err
	}
	return q.NextID, nil
}

// CollectDue removes every request matured at now and returns the summed
// payout under the given scale along with the raw units released. It fails
// when nothing has matured yet.
func (s *Service) CollectDue(id, staker bastion.Address, now, scale uint32) (paid, rawRemoved *big.Int, removed int, err error) {
	q, err := s.GetQueue(id, staker)
	if err != nil {
		return nil, nil, 0, err
	}

	paid = new(big.Int)
	rawRemoved = new(big.Int)
	kept := make([]*Request, 0, len(q.Requests))
	for _, r := range q.Requests {
		if r.ReadyAt <= now {
			paid.Add(paid, r.Effective(scale))
			rawRemoved.Add(rawRemoved, r.Raw)
			removed++
		} else {
			kept = append(kept, r)
		}
	}
	if removed == 0 {
		return nil, nil, 0, reverts.ErrNoReadyRequests
	}

	q.Requests = kept
	if err := s.queues.Set(QueueKey(id, staker), q, false); err != nil {
		return nil, nil, 0, errors.Wrap(err, "failed to set queue")
	}
	if err := s.subFromTotal(id, rawRemoved); err != nil {
		return nil, nil, 0, err
	}
	return paid, rawRemoved, removed, nil
}

// PendingCount returns the number of requests in the pair's queue.
func (s *Service) PendingCount(id, staker bastion.Address) (int, error) {
	q, err := s.GetQueue(id, staker)
	if err != nil {
		return 0, err
	}
	return len(q.Requests), nil
}

// DeleteQueue clears the pair's queue record. Callers must ensure it holds
// no requests.
func (s *Service) DeleteQueue(id, staker bastion.Address) error {
	if err := s.queues.Delete(QueueKey(id, staker)); err != nil {
		return errors.Wrap(err, "failed to delete queue")
	}
	return nil
}

func (s *Service) addToTotal(id bastion.Address, raw *big.Int) error {
	total, err := s.TotalRaw(id)
	if err != nil {
		return err
	}
	isNew := total.Sign() == 0
	if err := s.totals.Set(id, new(big.Int).Add(total, raw), isNew); err != nil {
		return errors.Wrap(err, "failed to set raw total")
	}
	return nil
}

func (s *Service) subFromTotal(id bastion.Address, raw *big.Int) error {
	total, err := s.TotalRaw(id)
	if err != nil {
		return err
	}
	if raw.Cmp(total) > 0 {
		return errors.New("raw removal exceeds total")
	}
	if err := s.totals.Set(id, new(big.Int).Sub(total, raw), false); err != nil {
		return errors.Wrap(err, "failed to set raw total")
	}
	return nil
}
