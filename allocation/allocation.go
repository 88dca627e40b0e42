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

// Package allocation implements a per account and token allocation ledger.
// An authority grants allocations; accounts claim them after a lock period
// during which the account, a supervisor or the authority may revoke the claim
package allocation

import (
	"math"

	"github.com/holiman/uint256"

	"github.com/blinklabs-io/gavel/chain"
	"github.com/blinklabs-io/gavel/token"
)

const (
	// LockInstant as a lock duration lets claims be enacted in the block they are proposed
	LockInstant uint64 = math.MaxUint64
	// LockForever as a lock duration prevents claims from being enacted
	LockForever uint64 = math.MaxUint64 - 1
	// lockUnset is the raw value of a missing override
	lockUnset uint64 = 0
)

type key struct {
	account chain.Principal
	token   chain.Principal
}

// Claim is a pending claim on an allocation
type Claim struct {
	Amount     uint256.Int
	ProposedAt uint64
}

// Config holds the constructor parameters
type Config struct {
	// Authority grants allocations and sets supervisors and lock durations
	Authority           chain.Principal
	DefaultLockDuration uint64
	GlobalSupervisors   []chain.Principal
}

type Ledger struct {
	address             chain.Principal
	chain               *chain.Chain
	authority           chain.Principal
	defaultLockDuration uint64
	allocations         map[key]uint256.Int
	claims              map[key]Claim
	// lockDurations holds raw overrides. A nil account or token is a wildcard
	lockDurations map[key]uint64
	// supervisors maps account, or nil for every account, to its supervisors
	supervisors map[chain.Principal]map[chain.Principal]bool
	dispatcher  *chain.Dispatcher
}

// New constructs an allocation ledger in the deploying frame
func New(ctx *chain.Context, cfg Config) (*Ledger, error) {
	l := &Ledger{
		address:             ctx.Self(),
		chain:               ctx.Chain(),
		authority:           cfg.Authority,
		defaultLockDuration: cfg.DefaultLockDuration,
		allocations:         make(map[key]uint256.Int),
		claims:              make(map[key]Claim),
		lockDurations:       make(map[key]uint64),
		supervisors:         make(map[chain.Principal]map[chain.Principal]bool),
	}
	for _, supervisor := range cfg.GlobalSupervisors {
		l.setSupervisor(ctx.Journal(), chain.NilPrincipal, supervisor, true)
	}
	l.dispatcher = l.newDispatcher()
	return l, nil
}

func (l *Ledger) Address() chain.Principal {
	return l.address
}

func (l *Ledger) Authority() chain.Principal {
	return l.authority
}

func (l *Ledger) DefaultLockDuration() uint64 {
	return l.defaultLockDuration
}

func (l *Ledger) authorize(ctx *chain.Context) error {
	if ctx.Caller() != l.authority {
		return ErrNotAuthority
	}
	return nil
}

// Allocation returns the allocation of account in token
func (l *Ledger) Allocation(account, token chain.Principal) *uint256.Int {
	v := l.allocations[key{account, token}]
	return new(uint256.Int).Set(&v)
}

// PendingClaim returns the pending claim of account on token
func (l *Ledger) PendingClaim(account, token chain.Principal) (Claim, bool) {
	claim, ok := l.claims[key{account, token}]
	return claim, ok
}

// IncreaseAllocation grants account amount more of token
func (l *Ledger) IncreaseAllocation(ctx *chain.Context, account, token chain.Principal, amount *uint256.Int) error {
	return ctx.Invoke(l.address, func(frame *chain.Context) error {
		if err := l.authorize(frame); err != nil {
			return err
		}
		k := key{account, token}
		current := l.allocations[k]
		updated, err := chain.Add(&current, amount)
		if err != nil {
			return err
		}
		chain.StoreMap(frame.Journal(), l.allocations, k, *updated)
		l.emitAllocationChanged(frame, k, updated)
		return nil
	})
}

// RevokeAllocation takes up to amount of token from the allocation of account.
// A pending claim above the remaining allocation is reduced to fit
func (l *Ledger) RevokeAllocation(ctx *chain.Context, account, token chain.Principal, amount *uint256.Int) error {
	return ctx.Invoke(l.address, func(frame *chain.Context) error {
		if err := l.authorize(frame); err != nil {
			return err
		}
		k := key{account, token}
		current := l.allocations[k]
		updated := chain.SaturatingSub(&current, amount)
		j := frame.Journal()
		chain.StoreMap(j, l.allocations, k, *updated)
		l.emitAllocationChanged(frame, k, updated)
		if claim, ok := l.claims[k]; ok && claim.Amount.Gt(updated) {
			if updated.IsZero() {
				chain.DeleteMap(j, l.claims, k)
			} else {
				claim.Amount.Set(updated)
				chain.StoreMap(j, l.claims, k, claim)
			}
			frame.Emit(
				"ClaimClamped",
				chain.Indexed("account", account),
				chain.Indexed("token", token),
				chain.Data("amount", chain.CopyAmount(updated)),
			)
		}
		return nil
	})
}

func (l *Ledger) emitAllocationChanged(ctx *chain.Context, k key, allocation *uint256.Int) {
	ctx.Emit(
		"AllocationChanged",
		chain.Indexed("account", k.account),
		chain.Indexed("token", k.token),
		chain.Data("allocation", chain.CopyAmount(allocation)),
	)
}

// IncreaseClaim adds amount to the caller's pending claim on token and
// restarts its lock period
func (l *Ledger) IncreaseClaim(ctx *chain.Context, token chain.Principal, amount *uint256.Int) error {
	return ctx.Invoke(l.address, func(frame *chain.Context) error {
		if amount.IsZero() {
			return ErrZeroAmount
		}
		k := key{frame.Caller(), token}
		claim := l.claims[k]
		total, err := chain.Add(&claim.Amount, amount)
		if err != nil {
			return err
		}
		allocation := l.allocations[k]
		if total.Gt(&allocation) {
			return ErrClaimExceedsAllocation
		}
		chain.StoreMap(frame.Journal(), l.claims, k, Claim{Amount: *total, ProposedAt: frame.Block()})
		frame.Emit(
			"ClaimProposed",
			chain.Indexed("account", k.account),
			chain.Indexed("token", token),
			chain.Data("amount", total),
		)
		return nil
	})
}

// RevokeClaim drops the pending claim of account on token. The account, its
// supervisors and the authority may revoke
func (l *Ledger) RevokeClaim(ctx *chain.Context, account, token chain.Principal) error {
	return ctx.Invoke(l.address, func(frame *chain.Context) error {
		caller := frame.Caller()
		if caller != account && caller != l.authority && !l.IsSupervisorFor(account, caller) {
			return ErrNotRevoker
		}
		k := key{account, token}
		claim, ok := l.claims[k]
		if !ok {
			return ErrNoClaim
		}
		chain.DeleteMap(frame.Journal(), l.claims, k)
		frame.Emit(
			"ClaimRevoked",
			chain.Indexed("account", account),
			chain.Indexed("token", token),
			chain.Data("amount", chain.CopyAmount(&claim.Amount)),
		)
		return nil
	})
}

// EnactClaim pays out the caller's pending claim on token once its lock
// period has passed
func (l *Ledger) EnactClaim(ctx *chain.Context, tokenAddr chain.Principal) error {
	return ctx.Invoke(l.address, func(frame *chain.Context) error {
		account := frame.Caller()
		k := key{account, tokenAddr}
		claim, ok := l.claims[k]
		if !ok {
			return ErrNoClaim
		}
		if !l.unlocked(claim, l.LockDuration(account, tokenAddr), frame.Block()) {
			return ErrClaimLocked
		}
		j := frame.Journal()
		allocation := l.allocations[k]
		remaining := new(uint256.Int).Sub(&allocation, &claim.Amount)
		chain.StoreMap(j, l.allocations, k, *remaining)
		chain.DeleteMap(j, l.claims, k)
		t, err := chain.ContractAs[token.Fungible](l.chain, tokenAddr)
		if err != nil {
			return chain.NewExternalCallError(tokenAddr, err)
		}
		if err := t.Transfer(frame, account, &claim.Amount); err != nil {
			return chain.NewExternalCallError(tokenAddr, err)
		}
		frame.Emit(
			"ClaimEnacted",
			chain.Indexed("account", account),
			chain.Indexed("token", tokenAddr),
			chain.Data("amount", chain.CopyAmount(&claim.Amount)),
		)
		l.emitAllocationChanged(frame, k, remaining)
		return nil
	})
}

func (l *Ledger) unlocked(claim Claim, duration, block uint64) bool {
	switch duration {
	case 0:
		return true
	case LockForever:
		return false
	}
	if claim.ProposedAt > math.MaxUint64-duration {
		return false
	}
	return block >= claim.ProposedAt+duration
}

// OnTransferReceived accepts transfer-and-call funding from any token
func (l *Ledger) OnTransferReceived(
	ctx *chain.Context,
	operator, from chain.Principal,
	amount *uint256.Int,
	data []byte,
) ([4]byte, error) {
	err := ctx.Invoke(l.address, func(frame *chain.Context) error {
		frame.Emit(
			"Funded",
			chain.Indexed("token", frame.Caller()),
			chain.Indexed("from", from),
			chain.Data("amount", chain.CopyAmount(amount)),
		)
		return nil
	})
	if err != nil {
		return [4]byte{}, err
	}
	return token.TransferReceivedMagic, nil
}
