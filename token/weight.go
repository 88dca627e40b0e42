// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package token

import (
	"github.com/holiman/uint256"

	"github.com/blinklabs-io/gavel/chain"
	"github.com/blinklabs-io/gavel/timeindex"
)

// aggregate sums a set of lots. The weight of the set at block b is
// b*Balance - BlockSum, the balance integrated over the blocks each lot was held
type aggregate struct {
	Balance  uint256.Int
	BlockSum uint256.Int
}

func (a aggregate) add(delta aggregate) aggregate {
	var ret aggregate
	ret.Balance.Add(&a.Balance, &delta.Balance)
	ret.BlockSum.Add(&a.BlockSum, &delta.BlockSum)
	return ret
}

func (a aggregate) sub(delta aggregate) aggregate {
	var ret aggregate
	ret.Balance.Sub(&a.Balance, &delta.Balance)
	ret.BlockSum.Sub(&a.BlockSum, &delta.BlockSum)
	return ret
}

func (a aggregate) weightAt(block uint64) *uint256.Int {
	w := new(uint256.Int).Mul(&a.Balance, uint256.NewInt(block))
	return w.Sub(w, &a.BlockSum)
}

// adjustChain applies delta to the aggregate of start and of every account it
// delegates to, transitively
func (t *Token) adjustChain(ctx *chain.Context, start chain.Principal, delta aggregate, add bool) {
	j := ctx.Journal()
	block := ctx.Block()
	for p := start; !chain.IsNil(p); p = t.delegates[p] {
		current := t.aggregates.Latest(p)
		var next aggregate
		if add {
			next = current.add(delta)
		} else {
			next = current.sub(delta)
		}
		// Positions only move forward, so this cannot fail
		_ = t.aggregates.Record(j, p, block, next)
	}
}

func (t *Token) adjustTotals(ctx *chain.Context, delta aggregate, add bool) {
	current := t.totals.Latest()
	var next aggregate
	if add {
		next = current.add(delta)
	} else {
		next = current.sub(delta)
	}
	_ = t.totals.Record(ctx.Journal(), ctx.Block(), next)
}

// Delegate makes target accrue weight for the caller and every account
// delegating to it. A nil target removes the delegation
func (t *Token) Delegate(ctx *chain.Context, target chain.Principal) error {
	return ctx.Invoke(t.address, func(frame *chain.Context) error {
		caller := frame.Caller()
		for p := target; !chain.IsNil(p); p = t.delegates[p] {
			if p == caller {
				return ErrDelegationCycle
			}
		}
		j := frame.Journal()
		old := t.delegates[caller]
		if old != target {
			subtree := t.aggregates.Latest(caller)
			t.adjustChain(frame, old, subtree, false)
			t.adjustChain(frame, target, subtree, true)
			if chain.IsNil(target) {
				chain.DeleteMap(j, t.delegates, caller)
			} else {
				chain.StoreMap(j, t.delegates, caller, target)
			}
			_ = t.delegateHistory.Record(j, caller, frame.Block(), target)
		}
		frame.Emit(
			"Delegate",
			chain.Indexed("delegator", caller),
			chain.Indexed("delegate", target),
		)
		return nil
	})
}

// DelegateOf returns the current delegate of account, or nil
func (t *Token) DelegateOf(account chain.Principal) chain.Principal {
	return t.delegates[account]
}

// DelegateOfAt returns the delegate of account as of block
func (t *Token) DelegateOfAt(account chain.Principal, block uint64) (chain.Principal, error) {
	if err := timeindex.Guard(block, t.chain.BlockNumber()); err != nil {
		return chain.NilPrincipal, err
	}
	return t.delegateHistory.ValueAt(account, block), nil
}

// WeightOf returns the current weight of account, including its delegators
func (t *Token) WeightOf(account chain.Principal) *uint256.Int {
	block := t.chain.BlockNumber()
	return t.aggregates.ValueAt(account, block).weightAt(block)
}

// WeightOfAt returns the weight of account as of block
func (t *Token) WeightOfAt(account chain.Principal, block uint64) (*uint256.Int, error) {
	if err := timeindex.Guard(block, t.chain.BlockNumber()); err != nil {
		return nil, err
	}
	return t.aggregates.ValueAt(account, block).weightAt(block), nil
}

// DelegatedBalanceOf returns the balance of account plus the balances of its delegators
func (t *Token) DelegatedBalanceOf(account chain.Principal) *uint256.Int {
	agg := t.aggregates.Latest(account)
	return new(uint256.Int).Set(&agg.Balance)
}

// DelegatedBalanceOfAt returns the delegated balance of account as of block
func (t *Token) DelegatedBalanceOfAt(account chain.Principal, block uint64) (*uint256.Int, error) {
	if err := timeindex.Guard(block, t.chain.BlockNumber()); err != nil {
		return nil, err
	}
	agg := t.aggregates.ValueAt(account, block)
	return new(uint256.Int).Set(&agg.Balance), nil
}

// TotalWeightAt returns the sum of the weights of all holders as of block
func (t *Token) TotalWeightAt(block uint64) (*uint256.Int, error) {
	if err := timeindex.Guard(block, t.chain.BlockNumber()); err != nil {
		return nil, err
	}
	return t.totals.ValueAt(block).weightAt(block), nil
}

// VotingWeightAt implements the voting weight source
func (t *Token) VotingWeightAt(account chain.Principal, block uint64) (*uint256.Int, error) {
	return t.WeightOfAt(account, block)
}

// TotalVotingWeightAt implements the voting weight source
func (t *Token) TotalVotingWeightAt(block uint64) (*uint256.Int, error) {
	return t.TotalWeightAt(block)
}

// DelegateAt implements the voting weight source
func (t *Token) DelegateAt(account chain.Principal, block uint64) (chain.Principal, error) {
	return t.DelegateOfAt(account, block)
}
