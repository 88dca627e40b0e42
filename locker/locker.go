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

// Package locker locks a token for a number of blocks in exchange for the same
// amount of a locked token, which can carry voting weight of its own
package locker

import (
	"github.com/holiman/uint256"

	"github.com/blinklabs-io/gavel/chain"
	"github.com/blinklabs-io/gavel/token"
)

// Lock is one locked amount and the block it was locked at
type Lock struct {
	Amount uint256.Int
	Block  uint64
}

// Config holds the constructor parameters
type Config struct {
	Token chain.Principal
	// LockedToken must list the locker as a minter
	LockedToken chain.Principal
	Owner       chain.Principal
	LockTime    uint64
}

type Locker struct {
	address     chain.Principal
	chain       *chain.Chain
	token       chain.Principal
	lockedToken chain.Principal
	owner       chain.Principal
	lockTime    uint64
	// locks holds the open locks of each account, oldest first
	locks      map[chain.Principal][]Lock
	dispatcher *chain.Dispatcher
}

// New constructs a locker in the deploying frame
func New(ctx *chain.Context, cfg Config) (*Locker, error) {
	l := &Locker{
		address:     ctx.Self(),
		chain:       ctx.Chain(),
		token:       cfg.Token,
		lockedToken: cfg.LockedToken,
		owner:       cfg.Owner,
		lockTime:    cfg.LockTime,
		locks:       make(map[chain.Principal][]Lock),
	}
	l.dispatcher = l.newDispatcher()
	return l, nil
}

func (l *Locker) Address() chain.Principal {
	return l.address
}

func (l *Locker) Owner() chain.Principal {
	return l.owner
}

func (l *Locker) LockTime() uint64 {
	return l.lockTime
}

// Locks returns the open locks of account, oldest first
func (l *Locker) Locks(account chain.Principal) []Lock {
	locks := l.locks[account]
	ret := make([]Lock, len(locks))
	copy(ret, locks)
	return ret
}

// LockedBalance returns the total amount account has locked
func (l *Locker) LockedBalance(account chain.Principal) *uint256.Int {
	ret := new(uint256.Int)
	for _, lock := range l.locks[account] {
		ret.Add(ret, &lock.Amount)
	}
	return ret
}

// UnlockableBalance returns the amount account could unlock now
func (l *Locker) UnlockableBalance(account chain.Principal) *uint256.Int {
	return l.matured(account, l.chain.BlockNumber())
}

func (l *Locker) matured(account chain.Principal, block uint64) *uint256.Int {
	ret := new(uint256.Int)
	for _, lock := range l.locks[account] {
		if !l.isMatured(lock, block) {
			break
		}
		ret.Add(ret, &lock.Amount)
	}
	return ret
}

func (l *Locker) isMatured(lock Lock, block uint64) bool {
	return block >= lock.Block && block-lock.Block >= l.lockTime
}

// Lock pulls amount of the token from the caller and mints the same amount of
// the locked token to it
func (l *Locker) Lock(ctx *chain.Context, amount *uint256.Int) error {
	return ctx.Invoke(l.address, func(frame *chain.Context) error {
		if amount.IsZero() {
			return ErrZeroAmount
		}
		account := frame.Caller()
		t, err := chain.ContractAs[token.Fungible](l.chain, l.token)
		if err != nil {
			return chain.NewExternalCallError(l.token, err)
		}
		if err := t.TransferFrom(frame, account, l.address, amount); err != nil {
			return chain.NewExternalCallError(l.token, err)
		}
		locked, err := chain.ContractAs[token.Mintable](l.chain, l.lockedToken)
		if err != nil {
			return chain.NewExternalCallError(l.lockedToken, err)
		}
		if err := locked.Mint(frame, account, amount); err != nil {
			return chain.NewExternalCallError(l.lockedToken, err)
		}
		lock := Lock{Block: frame.Block()}
		lock.Amount.Set(amount)
		locks := append(l.Locks(account), lock)
		chain.StoreMap(frame.Journal(), l.locks, account, locks)
		frame.Emit(
			"Locked",
			chain.Indexed("account", account),
			chain.Data("amount", chain.CopyAmount(amount)),
		)
		return nil
	})
}

// Unlock consumes matured locks of the caller oldest first, burns amount of
// the locked token with the caller's allowance and returns the token
func (l *Locker) Unlock(ctx *chain.Context, amount *uint256.Int) error {
	return ctx.Invoke(l.address, func(frame *chain.Context) error {
		if amount.IsZero() {
			return ErrZeroAmount
		}
		account := frame.Caller()
		if l.matured(account, frame.Block()).Lt(amount) {
			return ErrStillLocked
		}
		locks := l.Locks(account)
		remaining := chain.CopyAmount(amount)
		for !remaining.IsZero() {
			head := &locks[0]
			if head.Amount.Gt(remaining) {
				head.Amount.Sub(&head.Amount, remaining)
				break
			}
			remaining.Sub(remaining, &head.Amount)
			locks = locks[1:]
		}
		j := frame.Journal()
		if len(locks) == 0 {
			chain.DeleteMap(j, l.locks, account)
		} else {
			chain.StoreMap(j, l.locks, account, locks)
		}
		locked, err := chain.ContractAs[token.Mintable](l.chain, l.lockedToken)
		if err != nil {
			return chain.NewExternalCallError(l.lockedToken, err)
		}
		if err := locked.BurnFrom(frame, account, amount); err != nil {
			return chain.NewExternalCallError(l.lockedToken, err)
		}
		t, err := chain.ContractAs[token.Fungible](l.chain, l.token)
		if err != nil {
			return chain.NewExternalCallError(l.token, err)
		}
		if err := t.Transfer(frame, account, amount); err != nil {
			return chain.NewExternalCallError(l.token, err)
		}
		frame.Emit(
			"Unlocked",
			chain.Indexed("account", account),
			chain.Data("amount", chain.CopyAmount(amount)),
		)
		return nil
	})
}

// SetLockTime changes the lock time of every open and future lock. Only the
// owner may call it
func (l *Locker) SetLockTime(ctx *chain.Context, blocks uint64) error {
	return ctx.Invoke(l.address, func(frame *chain.Context) error {
		if frame.Caller() != l.owner {
			return ErrNotOwner
		}
		chain.Store(frame.Journal(), &l.lockTime, blocks)
		frame.Emit(
			"LockTimeChanged",
			chain.Data("lockTime", blocks),
		)
		return nil
	})
}
