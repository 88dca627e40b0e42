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

// Package vesting holds escrowed tokens and releases them over time. Engine
// tracks transferable positions that vest in equal steps per period; Linear
// vests a single balance for one beneficiary
package vesting

import (
	"github.com/holiman/uint256"

	"github.com/blinklabs-io/gavel/chain"
	"github.com/blinklabs-io/gavel/token"
)

// Position is one vesting entry
type Position struct {
	Amount   uint256.Int
	Claimed  uint256.Int
	Schedule Schedule
}

// Vested returns the amount of the position vested at block
func (p Position) Vested(block uint64) *uint256.Int {
	if block < p.Schedule.Start {
		return new(uint256.Int)
	}
	periods := (block - p.Schedule.Start) / p.Schedule.PeriodBlocks
	if periods >= p.Schedule.PeriodCount {
		return new(uint256.Int).Set(&p.Amount)
	}
	// The quotient is below Amount, so it cannot overflow
	vested, _ := new(uint256.Int).MulDivOverflow(
		&p.Amount,
		uint256.NewInt(periods),
		uint256.NewInt(p.Schedule.PeriodCount),
	)
	return vested
}

// Releasable returns the vested amount not yet claimed at block
func (p Position) Releasable(block uint64) *uint256.Int {
	return chain.SaturatingSub(p.Vested(block), &p.Claimed)
}

// Config holds the constructor parameters
type Config struct {
	Token  chain.Principal
	Name   string
	Symbol string
}

type Engine struct {
	address    chain.Principal
	chain      *chain.Chain
	token      chain.Principal
	name       string
	symbol     string
	nextID     uint64
	positions  map[uint64]Position
	owners     map[uint64]chain.Principal
	balances   map[chain.Principal]uint64
	dispatcher *chain.Dispatcher
}

// New constructs a vesting engine escrowing cfg.Token
func New(ctx *chain.Context, cfg Config) (*Engine, error) {
	e := &Engine{
		address:   ctx.Self(),
		chain:     ctx.Chain(),
		token:     cfg.Token,
		name:      cfg.Name,
		symbol:    cfg.Symbol,
		positions: make(map[uint64]Position),
		owners:    make(map[uint64]chain.Principal),
		balances:  make(map[chain.Principal]uint64),
	}
	e.dispatcher = e.newDispatcher()
	return e, nil
}

func (e *Engine) Address() chain.Principal {
	return e.address
}

func (e *Engine) Token() chain.Principal {
	return e.token
}

func (e *Engine) Name() string {
	return e.name
}

func (e *Engine) Symbol() string {
	return e.symbol
}

// OwnerOf returns the owner of position id
func (e *Engine) OwnerOf(id uint64) (chain.Principal, bool) {
	owner, ok := e.owners[id]
	return owner, ok
}

// BalanceOf returns the number of positions owned by owner
func (e *Engine) BalanceOf(owner chain.Principal) uint64 {
	return e.balances[owner]
}

// Position returns position id
func (e *Engine) Position(id uint64) (Position, bool) {
	p, ok := e.positions[id]
	return p, ok
}

// Releasable returns what the owner of position id could claim now
func (e *Engine) Releasable(id uint64) *uint256.Int {
	p, ok := e.positions[id]
	if !ok {
		return new(uint256.Int)
	}
	return p.Releasable(e.chain.BlockNumber())
}

// Mint pulls amount of the escrowed token from the caller and creates a
// position owned by beneficiary, or by the caller when beneficiary is nil
func (e *Engine) Mint(
	ctx *chain.Context,
	beneficiary chain.Principal,
	amount *uint256.Int,
	schedule Schedule,
) (uint64, error) {
	var id uint64
	err := ctx.Invoke(e.address, func(frame *chain.Context) error {
		t, err := e.escrowed()
		if err != nil {
			return err
		}
		if err := t.TransferFrom(frame, frame.Caller(), e.address, amount); err != nil {
			return chain.NewExternalCallError(e.token, err)
		}
		if chain.IsNil(beneficiary) {
			beneficiary = frame.Caller()
		}
		id, err = e.create(frame, beneficiary, amount, schedule)
		return err
	})
	return id, err
}

// OnTransferReceived creates a position from a transfer-and-call deposit of
// the escrowed token. The data carries the target and the schedule
func (e *Engine) OnTransferReceived(
	ctx *chain.Context,
	operator, from chain.Principal,
	amount *uint256.Int,
	data []byte,
) ([4]byte, error) {
	err := ctx.Invoke(e.address, func(frame *chain.Context) error {
		if frame.Caller() != e.token {
			return ErrNotToken
		}
		target, schedule, err := DecodeDeposit(data)
		if err != nil {
			return err
		}
		if chain.IsNil(target) {
			target = from
		}
		_, err = e.create(frame, target, amount, schedule)
		return err
	})
	if err != nil {
		return [4]byte{}, err
	}
	return token.TransferReceivedMagic, nil
}

func (e *Engine) create(
	ctx *chain.Context,
	owner chain.Principal,
	amount *uint256.Int,
	schedule Schedule,
) (uint64, error) {
	if amount.IsZero() {
		return 0, ErrZeroAmount
	}
	if err := schedule.validate(); err != nil {
		return 0, err
	}
	j := ctx.Journal()
	id := e.nextID
	chain.Store(j, &e.nextID, id+1)
	p := Position{Schedule: schedule}
	p.Amount.Set(amount)
	chain.StoreMap(j, e.positions, id, p)
	e.setOwner(ctx, chain.NilPrincipal, owner, id)
	return id, nil
}

func (e *Engine) setOwner(ctx *chain.Context, from, to chain.Principal, id uint64) {
	j := ctx.Journal()
	if !chain.IsNil(from) {
		chain.StoreMap(j, e.balances, from, e.balances[from]-1)
	}
	if chain.IsNil(to) {
		chain.DeleteMap(j, e.owners, id)
	} else {
		chain.StoreMap(j, e.owners, id, to)
		chain.StoreMap(j, e.balances, to, e.balances[to]+1)
	}
	ctx.Emit(
		"Transfer",
		chain.Indexed("from", from),
		chain.Indexed("to", to),
		chain.Indexed("id", id),
	)
}

// TransferPosition moves position id from the caller to to
func (e *Engine) TransferPosition(ctx *chain.Context, to chain.Principal, id uint64) error {
	return ctx.Invoke(e.address, func(frame *chain.Context) error {
		owner, ok := e.owners[id]
		if !ok {
			return ErrUnknownPosition
		}
		if owner != frame.Caller() {
			return ErrNotPositionOwner
		}
		if chain.IsNil(to) {
			return ErrNilRecipient
		}
		e.setOwner(frame, owner, to, id)
		return nil
	})
}

// Claim pays the releasable amount of position id to recipient, or to the
// caller when recipient is nil. A fully claimed position is burned. Nothing
// is recorded when the token transfer fails, so the claim can be retried
func (e *Engine) Claim(ctx *chain.Context, id uint64, recipient chain.Principal) error {
	return ctx.Invoke(e.address, func(frame *chain.Context) error {
		owner, ok := e.owners[id]
		if !ok {
			return ErrUnknownPosition
		}
		if owner != frame.Caller() {
			return ErrNotPositionOwner
		}
		if chain.IsNil(recipient) {
			recipient = owner
		}
		p := e.positions[id]
		releasable := p.Releasable(frame.Block())
		if releasable.IsZero() {
			return nil
		}
		j := frame.Journal()
		p.Claimed.Add(&p.Claimed, releasable)
		chain.StoreMap(j, e.positions, id, p)
		t, err := e.escrowed()
		if err != nil {
			return err
		}
		if err := t.Transfer(frame, recipient, releasable); err != nil {
			return chain.NewExternalCallError(e.token, err)
		}
		frame.Emit(
			"Claimed",
			chain.Indexed("id", id),
			chain.Indexed("recipient", recipient),
			chain.Data("amount", releasable),
		)
		if p.Claimed.Eq(&p.Amount) {
			chain.DeleteMap(j, e.positions, id)
			e.setOwner(frame, owner, chain.NilPrincipal, id)
		}
		return nil
	})
}

func (e *Engine) escrowed() (token.Fungible, error) {
	t, err := chain.ContractAs[token.Fungible](e.chain, e.token)
	if err != nil {
		return nil, chain.NewExternalCallError(e.token, err)
	}
	return t, nil
}
