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

// Package token implements a fungible token ledger whose holders accrue
// voting weight with token age, optionally on behalf of a delegate
package token

import (
	"github.com/holiman/uint256"

	"github.com/blinklabs-io/gavel/chain"
	"github.com/blinklabs-io/gavel/timeindex"
)

// MaxSupply bounds the total supply so that amount times block products fit in 256 bits
var MaxSupply = new(uint256.Int).Sub(
	new(uint256.Int).Lsh(uint256.NewInt(1), 192),
	uint256.NewInt(1),
)

// Fungible is the part of the token interface other components transfer with
type Fungible interface {
	chain.Contract
	Transfer(ctx *chain.Context, to chain.Principal, amount *uint256.Int) error
	TransferFrom(ctx *chain.Context, from, to chain.Principal, amount *uint256.Int) error
	BalanceOf(account chain.Principal) *uint256.Int
}

// Mintable is a fungible token with a restricted supply interface
type Mintable interface {
	Fungible
	Mint(ctx *chain.Context, to chain.Principal, amount *uint256.Int) error
	BurnFrom(ctx *chain.Context, from chain.Principal, amount *uint256.Int) error
}

// Config holds the constructor parameters
type Config struct {
	Name     string
	Symbol   string
	Decimals uint8
	Holders  []chain.Principal
	Amounts  []*uint256.Int
	// Minters may mint and burn with allowance
	Minters []chain.Principal
}

type allowanceKey struct {
	owner   chain.Principal
	spender chain.Principal
}

type Token struct {
	address     chain.Principal
	chain       *chain.Chain
	name        string
	symbol      string
	decimals    uint8
	minters     map[chain.Principal]bool
	totalSupply uint256.Int
	balances    map[chain.Principal]uint256.Int
	allowances  map[allowanceKey]uint256.Int
	lots        map[chain.Principal]*lotStack
	delegates   map[chain.Principal]chain.Principal
	// aggregates holds the subtree of each account: its own lots plus those of
	// every account delegating to it, directly or transitively
	aggregates      *timeindex.Index[chain.Principal, aggregate]
	totals          *timeindex.History[aggregate]
	delegateHistory *timeindex.Index[chain.Principal, chain.Principal]
	dispatcher      *chain.Dispatcher
}

// New constructs a token in the deploying frame and mints the initial balances
func New(ctx *chain.Context, cfg Config) (*Token, error) {
	if len(cfg.Holders) != len(cfg.Amounts) {
		return nil, ErrLengthMismatch
	}
	t := &Token{
		address:         ctx.Self(),
		chain:           ctx.Chain(),
		name:            cfg.Name,
		symbol:          cfg.Symbol,
		decimals:        cfg.Decimals,
		minters:         make(map[chain.Principal]bool),
		balances:        make(map[chain.Principal]uint256.Int),
		allowances:      make(map[allowanceKey]uint256.Int),
		lots:            make(map[chain.Principal]*lotStack),
		delegates:       make(map[chain.Principal]chain.Principal),
		aggregates:      timeindex.NewIndex[chain.Principal, aggregate](),
		totals:          &timeindex.History[aggregate]{},
		delegateHistory: timeindex.NewIndex[chain.Principal, chain.Principal](),
	}
	for _, minter := range cfg.Minters {
		t.minters[minter] = true
	}
	for i, holder := range cfg.Holders {
		if err := t.mint(ctx, holder, cfg.Amounts[i]); err != nil {
			return nil, err
		}
	}
	t.dispatcher = t.newDispatcher()
	return t, nil
}

func (t *Token) Address() chain.Principal {
	return t.address
}

func (t *Token) Name() string {
	return t.name
}

func (t *Token) Symbol() string {
	return t.symbol
}

func (t *Token) Decimals() uint8 {
	return t.decimals
}

func (t *Token) TotalSupply() *uint256.Int {
	return new(uint256.Int).Set(&t.totalSupply)
}

func (t *Token) BalanceOf(account chain.Principal) *uint256.Int {
	bal := t.balances[account]
	return new(uint256.Int).Set(&bal)
}

func (t *Token) Allowance(owner, spender chain.Principal) *uint256.Int {
	a := t.allowances[allowanceKey{owner, spender}]
	return new(uint256.Int).Set(&a)
}

// IsMinter reports whether account may mint and burn
func (t *Token) IsMinter(account chain.Principal) bool {
	return t.minters[account]
}

// Transfer moves amount from the caller to to
func (t *Token) Transfer(ctx *chain.Context, to chain.Principal, amount *uint256.Int) error {
	return ctx.Invoke(t.address, func(frame *chain.Context) error {
		return t.transfer(frame, frame.Caller(), to, amount)
	})
}

// TransferFrom moves amount from from to to using the caller's allowance
func (t *Token) TransferFrom(
	ctx *chain.Context,
	from, to chain.Principal,
	amount *uint256.Int,
) error {
	return ctx.Invoke(t.address, func(frame *chain.Context) error {
		if err := t.spendAllowance(frame, from, frame.Caller(), amount); err != nil {
			return err
		}
		return t.transfer(frame, from, to, amount)
	})
}

// Approve sets the caller's allowance for spender
func (t *Token) Approve(ctx *chain.Context, spender chain.Principal, amount *uint256.Int) error {
	return ctx.Invoke(t.address, func(frame *chain.Context) error {
		return t.approve(frame, frame.Caller(), spender, amount)
	})
}

// SafeApprove sets the caller's allowance for spender only if it currently
// equals expected
func (t *Token) SafeApprove(
	ctx *chain.Context,
	spender chain.Principal,
	amount *uint256.Int,
	expected *uint256.Int,
) error {
	return ctx.Invoke(t.address, func(frame *chain.Context) error {
		current := t.allowances[allowanceKey{frame.Caller(), spender}]
		if !current.Eq(expected) {
			return ErrAllowanceMismatch
		}
		return t.approve(frame, frame.Caller(), spender, amount)
	})
}

// Mint creates amount for to. Only minters may call it
func (t *Token) Mint(ctx *chain.Context, to chain.Principal, amount *uint256.Int) error {
	return ctx.Invoke(t.address, func(frame *chain.Context) error {
		if !t.minters[frame.Caller()] {
			return ErrNotMinter
		}
		if chain.IsNil(to) {
			return ErrInvalidAddress
		}
		return t.mint(frame, to, amount)
	})
}

// BurnFrom destroys amount held by from, using the minter's allowance
func (t *Token) BurnFrom(ctx *chain.Context, from chain.Principal, amount *uint256.Int) error {
	return ctx.Invoke(t.address, func(frame *chain.Context) error {
		if !t.minters[frame.Caller()] {
			return ErrNotMinter
		}
		if err := t.spendAllowance(frame, from, frame.Caller(), amount); err != nil {
			return err
		}
		return t.burn(frame, from, amount)
	})
}

func (t *Token) approve(ctx *chain.Context, owner, spender chain.Principal, amount *uint256.Int) error {
	if chain.IsNil(spender) {
		return ErrInvalidAddress
	}
	chain.StoreMap(ctx.Journal(), t.allowances, allowanceKey{owner, spender}, *amount)
	ctx.Emit(
		"Approval",
		chain.Indexed("owner", owner),
		chain.Indexed("spender", spender),
		chain.Data("value", chain.CopyAmount(amount)),
	)
	return nil
}

func (t *Token) spendAllowance(ctx *chain.Context, owner, spender chain.Principal, amount *uint256.Int) error {
	key := allowanceKey{owner, spender}
	current := t.allowances[key]
	if chain.IsAllOnes(&current) {
		return nil
	}
	if current.Lt(amount) {
		return ErrInsufficientAllowance
	}
	chain.StoreMap(ctx.Journal(), t.allowances, key, *new(uint256.Int).Sub(&current, amount))
	return nil
}

func (t *Token) transfer(ctx *chain.Context, from, to chain.Principal, amount *uint256.Int) error {
	if chain.IsNil(to) {
		return ErrInvalidAddress
	}
	if err := t.debit(ctx, from, amount); err != nil {
		return err
	}
	t.credit(ctx, to, amount)
	ctx.Emit(
		"Transfer",
		chain.Indexed("from", from),
		chain.Indexed("to", to),
		chain.Data("value", chain.CopyAmount(amount)),
	)
	return nil
}

func (t *Token) mint(ctx *chain.Context, to chain.Principal, amount *uint256.Int) error {
	supply, err := chain.Add(&t.totalSupply, amount)
	if err != nil {
		return err
	}
	if supply.Gt(MaxSupply) {
		return ErrSupplyCap
	}
	chain.Store(ctx.Journal(), &t.totalSupply, *supply)
	t.credit(ctx, to, amount)
	ctx.Emit(
		"Transfer",
		chain.Indexed("from", chain.NilPrincipal),
		chain.Indexed("to", to),
		chain.Data("value", chain.CopyAmount(amount)),
	)
	return nil
}

func (t *Token) burn(ctx *chain.Context, from chain.Principal, amount *uint256.Int) error {
	if err := t.debit(ctx, from, amount); err != nil {
		return err
	}
	chain.Store(ctx.Journal(), &t.totalSupply, *new(uint256.Int).Sub(&t.totalSupply, amount))
	ctx.Emit(
		"Transfer",
		chain.Indexed("from", from),
		chain.Indexed("to", chain.NilPrincipal),
		chain.Data("value", chain.CopyAmount(amount)),
	)
	return nil
}

// debit removes amount from the youngest lots of account
func (t *Token) debit(ctx *chain.Context, account chain.Principal, amount *uint256.Int) error {
	bal := t.balances[account]
	if bal.Lt(amount) {
		return ErrInsufficientBalance
	}
	if amount.IsZero() {
		return nil
	}
	j := ctx.Journal()
	chain.StoreMap(j, t.balances, account, *new(uint256.Int).Sub(&bal, amount))
	blockSum := t.lotsOf(j, account).pop(j, amount)
	delta := aggregate{Balance: *amount, BlockSum: *blockSum}
	t.adjustChain(ctx, account, delta, false)
	t.adjustTotals(ctx, delta, false)
	return nil
}

// credit adds amount to account as a lot received in the current block
func (t *Token) credit(ctx *chain.Context, account chain.Principal, amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	j := ctx.Journal()
	bal := t.balances[account]
	chain.StoreMap(j, t.balances, account, *new(uint256.Int).Add(&bal, amount))
	t.lotsOf(j, account).push(j, ctx.Block(), amount)
	delta := aggregate{Balance: *amount, BlockSum: *lotProduct(ctx.Block(), amount)}
	t.adjustChain(ctx, account, delta, true)
	t.adjustTotals(ctx, delta, true)
}

func (t *Token) lotsOf(j *chain.Journal, account chain.Principal) *lotStack {
	s, ok := t.lots[account]
	if !ok {
		s = &lotStack{}
		chain.StoreMap(j, t.lots, account, s)
	}
	return s
}

// Lots returns the lots held by account, oldest first
func (t *Token) Lots(account chain.Principal) []Lot {
	s, ok := t.lots[account]
	if !ok {
		return nil
	}
	return s.snapshot()
}
