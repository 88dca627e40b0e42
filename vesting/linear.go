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

package vesting

import (
	"github.com/holiman/uint256"

	"github.com/blinklabs-io/gavel/chain"
	"github.com/blinklabs-io/gavel/token"
)

// LinearConfig holds the constructor parameters of a Linear vesting
type LinearConfig struct {
	Token chain.Principal
	// Owner may change the beneficiary
	Owner        chain.Principal
	Beneficiary  chain.Principal
	Start        uint64
	Duration     uint64
	Installments uint64
}

// Linear releases its whole token balance to one beneficiary in equal
// installments spread over Duration blocks from Start
type Linear struct {
	address      chain.Principal
	chain        *chain.Chain
	token        chain.Principal
	owner        chain.Principal
	beneficiary  chain.Principal
	start        uint64
	duration     uint64
	installments uint64
	released     uint256.Int
	dispatcher   *chain.Dispatcher
}

// NewLinear constructs a linear vesting in the deploying frame. It is funded
// with plain transfers to its address
func NewLinear(ctx *chain.Context, cfg LinearConfig) (*Linear, error) {
	if cfg.Installments == 0 {
		return nil, ErrInvalidSchedule
	}
	if chain.IsNil(cfg.Beneficiary) {
		return nil, ErrNilRecipient
	}
	l := &Linear{
		address:      ctx.Self(),
		chain:        ctx.Chain(),
		token:        cfg.Token,
		owner:        cfg.Owner,
		beneficiary:  cfg.Beneficiary,
		start:        cfg.Start,
		duration:     cfg.Duration,
		installments: cfg.Installments,
	}
	l.dispatcher = l.newDispatcher()
	return l, nil
}

func (l *Linear) Address() chain.Principal {
	return l.address
}

func (l *Linear) Beneficiary() chain.Principal {
	return l.beneficiary
}

func (l *Linear) Owner() chain.Principal {
	return l.owner
}

// Released returns the amount paid out so far
func (l *Linear) Released() *uint256.Int {
	return new(uint256.Int).Set(&l.released)
}

// VestedAt returns the amount vested at block out of everything the vesting
// has received
func (l *Linear) VestedAt(block uint64) (*uint256.Int, error) {
	t, err := chain.ContractAs[token.Fungible](l.chain, l.token)
	if err != nil {
		return nil, chain.NewExternalCallError(l.token, err)
	}
	total, err := chain.Add(t.BalanceOf(l.address), &l.released)
	if err != nil {
		return nil, err
	}
	if block < l.start {
		return new(uint256.Int), nil
	}
	elapsed := block - l.start
	if elapsed >= l.duration {
		return total, nil
	}
	passed, err := chain.MulDiv(
		uint256.NewInt(elapsed),
		uint256.NewInt(l.installments),
		uint256.NewInt(l.duration),
	)
	if err != nil {
		return nil, err
	}
	return chain.MulDiv(total, passed, uint256.NewInt(l.installments))
}

// Releasable returns the amount Release would pay now
func (l *Linear) Releasable() (*uint256.Int, error) {
	return l.releasableAt(l.chain.BlockNumber())
}

func (l *Linear) releasableAt(block uint64) (*uint256.Int, error) {
	vested, err := l.VestedAt(block)
	if err != nil {
		return nil, err
	}
	return chain.SaturatingSub(vested, &l.released), nil
}

// Release pays the releasable amount to the beneficiary. Anyone may call it
func (l *Linear) Release(ctx *chain.Context) error {
	return ctx.Invoke(l.address, func(frame *chain.Context) error {
		amount, err := l.releasableAt(frame.Block())
		if err != nil {
			return err
		}
		if amount.IsZero() {
			return nil
		}
		released, err := chain.Add(&l.released, amount)
		if err != nil {
			return err
		}
		chain.Store(frame.Journal(), &l.released, *released)
		t, err := chain.ContractAs[token.Fungible](l.chain, l.token)
		if err != nil {
			return chain.NewExternalCallError(l.token, err)
		}
		if err := t.Transfer(frame, l.beneficiary, amount); err != nil {
			return chain.NewExternalCallError(l.token, err)
		}
		frame.Emit(
			"Released",
			chain.Indexed("beneficiary", l.beneficiary),
			chain.Data("amount", amount),
		)
		return nil
	})
}

// SetBeneficiary redirects future releases. Only the owner may call it
func (l *Linear) SetBeneficiary(ctx *chain.Context, beneficiary chain.Principal) error {
	return ctx.Invoke(l.address, func(frame *chain.Context) error {
		if frame.Caller() != l.owner {
			return ErrNotOwner
		}
		if chain.IsNil(beneficiary) {
			return ErrNilRecipient
		}
		chain.Store(frame.Journal(), &l.beneficiary, beneficiary)
		frame.Emit(
			"BeneficiaryChanged",
			chain.Indexed("beneficiary", beneficiary),
		)
		return nil
	})
}
