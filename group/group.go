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

// Package group implements a weighted membership registry with optional
// transitive delegation of weight
package group

import (
	"math"

	"github.com/holiman/uint256"

	"github.com/blinklabs-io/gavel/chain"
	"github.com/blinklabs-io/gavel/timeindex"
)

var (
	ErrNotOwner = chain.NewError(
		chain.ErrAuthorization,
		"caller is not the group owner",
	)
	ErrNegativeWeight = chain.NewError(
		chain.ErrInvariantViolation,
		"member weight cannot be negative",
	)
	ErrWeightOverflow = chain.NewError(
		chain.ErrInvariantViolation,
		"member weight overflow",
	)
	ErrDelegationCycle = chain.NewError(
		chain.ErrInvariantViolation,
		"delegation would create a cycle",
	)
	ErrDelegationDisabled = chain.NewError(
		chain.ErrInvariantViolation,
		"group does not support delegation",
	)
)

// Config holds the constructor parameters
type Config struct {
	Members []chain.Principal
	// Weights of the leading members. Members without a weight get 1
	Weights []int64
	// Owner may change weights and ownership. The deployer owns the group when
	// this is nil
	Owner chain.Principal
	// Delegation enables Delegate
	Delegation bool
}

// Group is a registry of member weights. The effective weight of a member is
// its own weight plus the own weights of every member delegating to it,
// directly or transitively.
//
// Own weights never go negative, so effective weights never do either. A nil
// owner set through SetOwner leaves the group unrestricted
type Group struct {
	address         chain.Principal
	chain           *chain.Chain
	owner           chain.Principal
	delegation      bool
	own             map[chain.Principal]int64
	delegates       map[chain.Principal]chain.Principal
	effective       *timeindex.Index[chain.Principal, int64]
	total           *timeindex.History[int64]
	delegateHistory *timeindex.Index[chain.Principal, chain.Principal]
	dispatcher      *chain.Dispatcher
}

// New constructs a group in the deploying frame
func New(ctx *chain.Context, cfg Config) (*Group, error) {
	g := &Group{
		address:         ctx.Self(),
		chain:           ctx.Chain(),
		owner:           cfg.Owner,
		delegation:      cfg.Delegation,
		own:             make(map[chain.Principal]int64),
		delegates:       make(map[chain.Principal]chain.Principal),
		effective:       timeindex.NewIndex[chain.Principal, int64](),
		total:           &timeindex.History[int64]{},
		delegateHistory: timeindex.NewIndex[chain.Principal, chain.Principal](),
	}
	if chain.IsNil(g.owner) {
		g.owner = ctx.Caller()
	}
	for i, member := range cfg.Members {
		weight := int64(1)
		if i < len(cfg.Weights) {
			weight = cfg.Weights[i]
		}
		if err := g.setWeight(ctx, member, weight); err != nil {
			return nil, err
		}
	}
	g.dispatcher = g.newDispatcher()
	return g, nil
}

func (g *Group) Address() chain.Principal {
	return g.address
}

func (g *Group) Owner() chain.Principal {
	return g.owner
}

func (g *Group) DelegationEnabled() bool {
	return g.delegation
}

func (g *Group) authorize(ctx *chain.Context) error {
	if chain.IsNil(g.owner) || ctx.Caller() == g.owner {
		return nil
	}
	return ErrNotOwner
}

// SetOwner transfers ownership
func (g *Group) SetOwner(ctx *chain.Context, owner chain.Principal) error {
	return ctx.Invoke(g.address, func(frame *chain.Context) error {
		if err := g.authorize(frame); err != nil {
			return err
		}
		old := g.owner
		chain.Store(frame.Journal(), &g.owner, owner)
		frame.Emit(
			"OwnerChanged",
			chain.Indexed("previousOwner", old),
			chain.Indexed("newOwner", owner),
		)
		return nil
	})
}

// SetWeightOf sets the own weight of member
func (g *Group) SetWeightOf(ctx *chain.Context, member chain.Principal, weight int64) error {
	return ctx.Invoke(g.address, func(frame *chain.Context) error {
		if err := g.authorize(frame); err != nil {
			return err
		}
		return g.setWeight(frame, member, weight)
	})
}

// ModifyWeightOf adds delta to the own weight of member
func (g *Group) ModifyWeightOf(ctx *chain.Context, member chain.Principal, delta int64) error {
	return ctx.Invoke(g.address, func(frame *chain.Context) error {
		if err := g.authorize(frame); err != nil {
			return err
		}
		current := g.own[member]
		if (delta > 0 && current > math.MaxInt64-delta) || (delta < 0 && current < math.MinInt64-delta) {
			return ErrWeightOverflow
		}
		return g.setWeight(frame, member, current+delta)
	})
}

func (g *Group) setWeight(ctx *chain.Context, member chain.Principal, weight int64) error {
	if weight < 0 {
		return ErrNegativeWeight
	}
	current := g.own[member]
	delta := weight - current
	if delta == 0 {
		return nil
	}
	if err := g.checkPropagation(member, delta); err != nil {
		return err
	}
	j := ctx.Journal()
	if weight == 0 {
		chain.DeleteMap(j, g.own, member)
	} else {
		chain.StoreMap(j, g.own, member, weight)
	}
	_ = g.total.Record(j, ctx.Block(), g.total.Latest()+delta)
	g.propagate(ctx, member, delta)
	return nil
}

// checkPropagation verifies that adding delta along the delegate chain of
// start neither overflows nor goes negative
func (g *Group) checkPropagation(start chain.Principal, delta int64) error {
	for p := start; !chain.IsNil(p); p = g.delegates[p] {
		eff := g.effective.Latest(p)
		if delta > 0 && eff > math.MaxInt64-delta {
			return ErrWeightOverflow
		}
		if eff+delta < 0 {
			return ErrNegativeWeight
		}
	}
	total := g.total.Latest()
	if delta > 0 && total > math.MaxInt64-delta {
		return ErrWeightOverflow
	}
	return nil
}

// propagate adds delta to the effective weight of start and of its delegate
// chain, emitting the new values
func (g *Group) propagate(ctx *chain.Context, start chain.Principal, delta int64) {
	j := ctx.Journal()
	for p := start; !chain.IsNil(p); p = g.delegates[p] {
		eff := g.effective.Latest(p) + delta
		_ = g.effective.Record(j, p, ctx.Block(), eff)
		ctx.Emit(
			"WeightChanged",
			chain.Indexed("member", p),
			chain.Data("weight", eff),
		)
	}
}

// Delegate makes target carry the caller's effective weight. A nil target
// removes the delegation
func (g *Group) Delegate(ctx *chain.Context, target chain.Principal) error {
	return ctx.Invoke(g.address, func(frame *chain.Context) error {
		if !g.delegation {
			return ErrDelegationDisabled
		}
		caller := frame.Caller()
		for p := target; !chain.IsNil(p); p = g.delegates[p] {
			if p == caller {
				return ErrDelegationCycle
			}
		}
		old := g.delegates[caller]
		if old == target {
			return nil
		}
		subtree := g.effective.Latest(caller)
		if subtree != 0 {
			if err := g.checkPropagation(old, -subtree); err != nil {
				return err
			}
			if err := g.checkPropagation(target, subtree); err != nil {
				return err
			}
		}
		j := frame.Journal()
		if chain.IsNil(target) {
			chain.DeleteMap(j, g.delegates, caller)
		} else {
			chain.StoreMap(j, g.delegates, caller, target)
		}
		_ = g.delegateHistory.Record(j, caller, frame.Block(), target)
		frame.Emit(
			"DelegateChanged",
			chain.Indexed("member", caller),
			chain.Indexed("delegate", target),
		)
		if subtree != 0 {
			g.propagate(frame, old, -subtree)
			g.propagate(frame, target, subtree)
		}
		return nil
	})
}

// OwnWeightOf returns the weight assigned to member itself
func (g *Group) OwnWeightOf(member chain.Principal) int64 {
	return g.own[member]
}

// WeightOf returns the current effective weight of member
func (g *Group) WeightOf(member chain.Principal) int64 {
	return g.effective.Latest(member)
}

// WeightOfAt returns the effective weight of member as of block
func (g *Group) WeightOfAt(member chain.Principal, block uint64) (int64, error) {
	if err := timeindex.Guard(block, g.chain.BlockNumber()); err != nil {
		return 0, err
	}
	return g.effective.ValueAt(member, block), nil
}

// TotalWeight returns the sum of all own weights
func (g *Group) TotalWeight() int64 {
	return g.total.Latest()
}

// TotalWeightAt returns the sum of all own weights as of block
func (g *Group) TotalWeightAt(block uint64) (int64, error) {
	if err := timeindex.Guard(block, g.chain.BlockNumber()); err != nil {
		return 0, err
	}
	return g.total.ValueAt(block), nil
}

// DelegateOf returns the current delegate of member, or nil
func (g *Group) DelegateOf(member chain.Principal) chain.Principal {
	return g.delegates[member]
}

// DelegateOfAt returns the delegate of member as of block
func (g *Group) DelegateOfAt(member chain.Principal, block uint64) (chain.Principal, error) {
	if err := timeindex.Guard(block, g.chain.BlockNumber()); err != nil {
		return chain.NilPrincipal, err
	}
	return g.delegateHistory.ValueAt(member, block), nil
}

// VotingWeightAt implements the voting weight source
func (g *Group) VotingWeightAt(member chain.Principal, block uint64) (*uint256.Int, error) {
	w, err := g.WeightOfAt(member, block)
	if err != nil {
		return nil, err
	}
	return clampWeight(w), nil
}

// TotalVotingWeightAt implements the voting weight source
func (g *Group) TotalVotingWeightAt(block uint64) (*uint256.Int, error) {
	w, err := g.TotalWeightAt(block)
	if err != nil {
		return nil, err
	}
	return clampWeight(w), nil
}

// DelegateAt implements the voting weight source
func (g *Group) DelegateAt(member chain.Principal, block uint64) (chain.Principal, error) {
	return g.DelegateOfAt(member, block)
}

func clampWeight(w int64) *uint256.Int {
	if w <= 0 {
		return new(uint256.Int)
	}
	return uint256.NewInt(uint64(w))
}
