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

package bondingcurve

import (
	"github.com/holiman/uint256"

	"github.com/blinklabs-io/gavel/chain"
)

var (
	MethodBuy                  = chain.NewMethod("buy", []string{"uint256", "uint256", "address"}, nil)
	MethodSell                 = chain.NewMethod("sell", []string{"uint256", "uint256", "address"}, nil)
	MethodWithdraw             = chain.NewMethod("withdraw", []string{"address", "uint256"}, nil)
	MethodEnactTransition      = chain.NewMethod("enactTransition", nil, nil)
	MethodBalanceA             = chain.NewReadOnlyMethod("balanceA", nil, []string{"uint256"})
	MethodGetBuyPrice          = chain.NewReadOnlyMethod("getBuyPrice", nil, []string{"uint256"})
	MethodGetSellPrice         = chain.NewReadOnlyMethod("getSellPrice", nil, []string{"uint256"})
	MethodGetBuyTotal          = chain.NewReadOnlyMethod("getBuyTotal", []string{"uint256"}, []string{"uint256"})
	MethodGetSellTotal         = chain.NewReadOnlyMethod("getSellTotal", []string{"uint256"}, []string{"uint256"})
	MethodCalculateDueBalanceB = chain.NewReadOnlyMethod("calculateDueBalanceB", []string{"uint256"}, []string{"uint256"})
	MethodWithdrawableAmount   = chain.NewReadOnlyMethod("withdrawableAmount", nil, []string{"uint256"})
	MethodTransitionState      = chain.NewReadOnlyMethod("transitionState", nil, []string{"uint8"})
)

func (c *Curve) Dispatch(ctx *chain.Context, input []byte) ([]byte, error) {
	return c.dispatcher.Dispatch(ctx, input)
}

func (c *Curve) Methods() *chain.Dispatcher {
	return c.dispatcher
}

type amountRead func() (*uint256.Int, error)

func readAmount(read amountRead) ([]any, error) {
	v, err := read()
	if err != nil {
		return nil, err
	}
	return []any{v.ToBig()}, nil
}

func (c *Curve) newDispatcher() *chain.Dispatcher {
	trade := func(fn func(*chain.Context, *uint256.Int, *uint256.Int, chain.Principal) error) chain.Handler {
		return func(ctx *chain.Context, args []any) ([]any, error) {
			amountA, err := chain.ArgAmount(args, 0)
			if err != nil {
				return nil, err
			}
			limitB, err := chain.ArgAmount(args, 1)
			if err != nil {
				return nil, err
			}
			referrer, err := chain.ArgPrincipal(args, 2)
			if err != nil {
				return nil, err
			}
			return nil, fn(ctx, amountA, limitB, referrer)
		}
	}
	return chain.NewDispatcher().
		Register(MethodBuy, trade(c.Buy)).
		Register(MethodSell, trade(c.Sell)).
		Register(MethodWithdraw, func(ctx *chain.Context, args []any) ([]any, error) {
			recipient, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			amount, err := chain.ArgAmount(args, 1)
			if err != nil {
				return nil, err
			}
			return nil, c.Withdraw(ctx, recipient, amount)
		}).
		Register(MethodEnactTransition, func(ctx *chain.Context, args []any) ([]any, error) {
			return nil, c.EnactTransition(ctx)
		}).
		Register(MethodBalanceA, func(ctx *chain.Context, args []any) ([]any, error) {
			return []any{c.balanceA.ToBig()}, nil
		}).
		Register(MethodGetBuyPrice, func(ctx *chain.Context, args []any) ([]any, error) {
			return readAmount(c.GetBuyPrice)
		}).
		Register(MethodGetSellPrice, func(ctx *chain.Context, args []any) ([]any, error) {
			return readAmount(c.GetSellPrice)
		}).
		Register(MethodGetBuyTotal, func(ctx *chain.Context, args []any) ([]any, error) {
			amount, err := chain.ArgAmount(args, 0)
			if err != nil {
				return nil, err
			}
			return readAmount(func() (*uint256.Int, error) { return c.GetBuyTotal(amount) })
		}).
		Register(MethodGetSellTotal, func(ctx *chain.Context, args []any) ([]any, error) {
			amount, err := chain.ArgAmount(args, 0)
			if err != nil {
				return nil, err
			}
			return readAmount(func() (*uint256.Int, error) { return c.GetSellTotal(amount) })
		}).
		Register(MethodCalculateDueBalanceB, func(ctx *chain.Context, args []any) ([]any, error) {
			supply, err := chain.ArgAmount(args, 0)
			if err != nil {
				return nil, err
			}
			return readAmount(func() (*uint256.Int, error) { return c.CalculateDueBalanceB(supply) })
		}).
		Register(MethodWithdrawableAmount, func(ctx *chain.Context, args []any) ([]any, error) {
			return readAmount(c.WithdrawableAmount)
		}).
		Register(MethodTransitionState, func(ctx *chain.Context, args []any) ([]any, error) {
			return []any{uint8(c.state)}, nil
		})
}
