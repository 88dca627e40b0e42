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
	"github.com/blinklabs-io/gavel/chain"
)

var (
	MethodMint             = chain.NewMethod("mint", []string{"address", "uint256", "uint64", "uint64", "uint64"}, []string{"uint64"})
	MethodClaim            = chain.NewMethod("claim", []string{"uint64", "address"}, nil)
	MethodTransferPosition = chain.NewMethod("transferPosition", []string{"address", "uint64"}, nil)
	MethodOwnerOf          = chain.NewReadOnlyMethod("ownerOf", []string{"uint64"}, []string{"address"})
	MethodBalanceOf        = chain.NewReadOnlyMethod("balanceOf", []string{"address"}, []string{"uint64"})
	MethodReleasable       = chain.NewReadOnlyMethod("releasable", []string{"uint64"}, []string{"uint256"})

	MethodRelease          = chain.NewMethod("release", nil, nil)
	MethodSetBeneficiary   = chain.NewMethod("setBeneficiary", []string{"address"}, nil)
	MethodLinearReleasable = chain.NewReadOnlyMethod("releasable", nil, []string{"uint256"})
	MethodReleased         = chain.NewReadOnlyMethod("released", nil, []string{"uint256"})
)

func (e *Engine) Dispatch(ctx *chain.Context, input []byte) ([]byte, error) {
	return e.dispatcher.Dispatch(ctx, input)
}

func (e *Engine) Methods() *chain.Dispatcher {
	return e.dispatcher
}

func (e *Engine) newDispatcher() *chain.Dispatcher {
	return chain.NewDispatcher().
		Register(MethodMint, func(ctx *chain.Context, args []any) ([]any, error) {
			beneficiary, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			amount, err := chain.ArgAmount(args, 1)
			if err != nil {
				return nil, err
			}
			var schedule Schedule
			if schedule.Start, err = chain.ArgUint64(args, 2); err != nil {
				return nil, err
			}
			if schedule.PeriodCount, err = chain.ArgUint64(args, 3); err != nil {
				return nil, err
			}
			if schedule.PeriodBlocks, err = chain.ArgUint64(args, 4); err != nil {
				return nil, err
			}
			id, err := e.Mint(ctx, beneficiary, amount, schedule)
			if err != nil {
				return nil, err
			}
			return []any{id}, nil
		}).
		Register(MethodClaim, func(ctx *chain.Context, args []any) ([]any, error) {
			id, err := chain.ArgUint64(args, 0)
			if err != nil {
				return nil, err
			}
			recipient, err := chain.ArgPrincipal(args, 1)
			if err != nil {
				return nil, err
			}
			return nil, e.Claim(ctx, id, recipient)
		}).
		Register(MethodTransferPosition, func(ctx *chain.Context, args []any) ([]any, error) {
			to, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			id, err := chain.ArgUint64(args, 1)
			if err != nil {
				return nil, err
			}
			return nil, e.TransferPosition(ctx, to, id)
		}).
		Register(MethodOwnerOf, func(ctx *chain.Context, args []any) ([]any, error) {
			id, err := chain.ArgUint64(args, 0)
			if err != nil {
				return nil, err
			}
			owner, ok := e.OwnerOf(id)
			if !ok {
				return nil, ErrUnknownPosition
			}
			return []any{owner}, nil
		}).
		Register(MethodBalanceOf, func(ctx *chain.Context, args []any) ([]any, error) {
			owner, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			return []any{e.BalanceOf(owner)}, nil
		}).
		Register(MethodReleasable, func(ctx *chain.Context, args []any) ([]any, error) {
			id, err := chain.ArgUint64(args, 0)
			if err != nil {
				return nil, err
			}
			return []any{e.Releasable(id).ToBig()}, nil
		})
}

func (l *Linear) Dispatch(ctx *chain.Context, input []byte) ([]byte, error) {
	return l.dispatcher.Dispatch(ctx, input)
}

func (l *Linear) Methods() *chain.Dispatcher {
	return l.dispatcher
}

func (l *Linear) newDispatcher() *chain.Dispatcher {
	return chain.NewDispatcher().
		Register(MethodRelease, func(ctx *chain.Context, args []any) ([]any, error) {
			return nil, l.Release(ctx)
		}).
		Register(MethodSetBeneficiary, func(ctx *chain.Context, args []any) ([]any, error) {
			beneficiary, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			return nil, l.SetBeneficiary(ctx, beneficiary)
		}).
		Register(MethodLinearReleasable, func(ctx *chain.Context, args []any) ([]any, error) {
			amount, err := l.releasableAt(ctx.Block())
			if err != nil {
				return nil, err
			}
			return []any{amount.ToBig()}, nil
		}).
		Register(MethodReleased, func(ctx *chain.Context, args []any) ([]any, error) {
			return []any{l.Released().ToBig()}, nil
		})
}
