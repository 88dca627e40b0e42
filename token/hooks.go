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
)

var (
	// TransferReceivedMagic acknowledges OnTransferReceived
	TransferReceivedMagic = [4]byte(chain.SelectorOf("onTransferReceived(address,address,uint256,bytes)"))
	// ApprovalReceivedMagic acknowledges OnApprovalReceived
	ApprovalReceivedMagic = [4]byte(chain.SelectorOf("onApprovalReceived(address,uint256,bytes)"))
)

// TransferReceiver is notified by TransferAndCall and TransferFromAndCall
type TransferReceiver interface {
	chain.Contract
	OnTransferReceived(
		ctx *chain.Context,
		operator, from chain.Principal,
		amount *uint256.Int,
		data []byte,
	) ([4]byte, error)
}

// ApprovalReceiver is notified by ApproveAndCall
type ApprovalReceiver interface {
	chain.Contract
	OnApprovalReceived(
		ctx *chain.Context,
		owner chain.Principal,
		amount *uint256.Int,
		data []byte,
	) ([4]byte, error)
}

// TransferAndCall transfers to a receiver contract and notifies it. The whole
// operation fails unless the receiver acknowledges
func (t *Token) TransferAndCall(
	ctx *chain.Context,
	to chain.Principal,
	amount *uint256.Int,
	data []byte,
) error {
	return ctx.Invoke(t.address, func(frame *chain.Context) error {
		from := frame.Caller()
		if err := t.transfer(frame, from, to, amount); err != nil {
			return err
		}
		return t.notifyTransfer(frame, from, from, to, amount, data)
	})
}

// TransferFromAndCall is TransferFrom followed by a receiver notification
func (t *Token) TransferFromAndCall(
	ctx *chain.Context,
	from, to chain.Principal,
	amount *uint256.Int,
	data []byte,
) error {
	return ctx.Invoke(t.address, func(frame *chain.Context) error {
		operator := frame.Caller()
		if err := t.spendAllowance(frame, from, operator, amount); err != nil {
			return err
		}
		if err := t.transfer(frame, from, to, amount); err != nil {
			return err
		}
		return t.notifyTransfer(frame, operator, from, to, amount, data)
	})
}

// ApproveAndCall approves a spender contract and notifies it
func (t *Token) ApproveAndCall(
	ctx *chain.Context,
	spender chain.Principal,
	amount *uint256.Int,
	data []byte,
) error {
	return ctx.Invoke(t.address, func(frame *chain.Context) error {
		owner := frame.Caller()
		if err := t.approve(frame, owner, spender, amount); err != nil {
			return err
		}
		receiver, err := chain.ContractAs[ApprovalReceiver](frame.Chain(), spender)
		if err != nil {
			return chain.NewExternalCallError(spender, err)
		}
		ret, err := receiver.OnApprovalReceived(frame, owner, chain.CopyAmount(amount), data)
		if err != nil {
			return chain.NewExternalCallError(spender, err)
		}
		if ret != ApprovalReceivedMagic {
			return chain.NewExternalCallError(spender, ErrInvalidReceiverResponse)
		}
		return nil
	})
}

func (t *Token) notifyTransfer(
	ctx *chain.Context,
	operator, from, to chain.Principal,
	amount *uint256.Int,
	data []byte,
) error {
	receiver, err := chain.ContractAs[TransferReceiver](ctx.Chain(), to)
	if err != nil {
		return chain.NewExternalCallError(to, err)
	}
	ret, err := receiver.OnTransferReceived(ctx, operator, from, chain.CopyAmount(amount), data)
	if err != nil {
		return chain.NewExternalCallError(to, err)
	}
	if ret != TransferReceivedMagic {
		return chain.NewExternalCallError(to, ErrInvalidReceiverResponse)
	}
	return nil
}
