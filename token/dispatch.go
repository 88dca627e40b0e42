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
	"github.com/blinklabs-io/gavel/chain"
)

// Methods callable through Dispatch
var (
	MethodName                 = chain.NewReadOnlyMethod("name", nil, []string{"string"})
	MethodSymbol               = chain.NewReadOnlyMethod("symbol", nil, []string{"string"})
	MethodDecimals             = chain.NewReadOnlyMethod("decimals", nil, []string{"uint8"})
	MethodTotalSupply          = chain.NewReadOnlyMethod("totalSupply", nil, []string{"uint256"})
	MethodBalanceOf            = chain.NewReadOnlyMethod("balanceOf", []string{"address"}, []string{"uint256"})
	MethodAllowance            = chain.NewReadOnlyMethod("allowance", []string{"address", "address"}, []string{"uint256"})
	MethodTransfer             = chain.NewMethod("transfer", []string{"address", "uint256"}, []string{"bool"})
	MethodTransferFrom         = chain.NewMethod("transferFrom", []string{"address", "address", "uint256"}, []string{"bool"})
	MethodApprove              = chain.NewMethod("approve", []string{"address", "uint256"}, []string{"bool"})
	MethodSafeApprove          = chain.NewMethod("safeApprove", []string{"address", "uint256", "uint256"}, []string{"bool"})
	MethodTransferAndCall      = chain.NewMethod("transferAndCall", []string{"address", "uint256", "bytes"}, []string{"bool"})
	MethodTransferFromAndCall  = chain.NewMethod("transferFromAndCall", []string{"address", "address", "uint256", "bytes"}, []string{"bool"})
	MethodApproveAndCall       = chain.NewMethod("approveAndCall", []string{"address", "uint256", "bytes"}, []string{"bool"})
	MethodMint                 = chain.NewMethod("mint", []string{"address", "uint256"}, nil)
	MethodBurnFrom             = chain.NewMethod("burnFrom", []string{"address", "uint256"}, nil)
	MethodDelegate             = chain.NewMethod("delegate", []string{"address"}, nil)
	MethodDelegates            = chain.NewReadOnlyMethod("delegates", []string{"address"}, []string{"address"})
	MethodWeightOf             = chain.NewReadOnlyMethod("weightOf", []string{"address"}, []string{"uint256"})
	MethodWeightOfAt           = chain.NewReadOnlyMethod("weightOfAt", []string{"address", "uint256"}, []string{"uint256"})
	MethodDelegatedBalanceOf   = chain.NewReadOnlyMethod("delegatedBalanceOf", []string{"address"}, []string{"uint256"})
	MethodDelegatedBalanceOfAt = chain.NewReadOnlyMethod("delegatedBalanceOfAt", []string{"address", "uint256"}, []string{"uint256"})
	MethodTotalWeightAt        = chain.NewReadOnlyMethod("totalWeightAt", []string{"uint256"}, []string{"uint256"})
)

// Dispatch runs an encoded call
func (t *Token) Dispatch(ctx *chain.Context, input []byte) ([]byte, error) {
	return t.dispatcher.Dispatch(ctx, input)
}

// Methods returns the dispatch table
func (t *Token) Methods() *chain.Dispatcher {
	return t.dispatcher
}

func (t *Token) newDispatcher() *chain.Dispatcher {
	return chain.NewDispatcher().
		Register(MethodName, func(ctx *chain.Context, args []any) ([]any, error) {
			return []any{t.name}, nil
		}).
		Register(MethodSymbol, func(ctx *chain.Context, args []any) ([]any, error) {
			return []any{t.symbol}, nil
		}).
		Register(MethodDecimals, func(ctx *chain.Context, args []any) ([]any, error) {
			return []any{t.decimals}, nil
		}).
		Register(MethodTotalSupply, func(ctx *chain.Context, args []any) ([]any, error) {
			return []any{t.TotalSupply().ToBig()}, nil
		}).
		Register(MethodBalanceOf, func(ctx *chain.Context, args []any) ([]any, error) {
			account, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			return []any{t.BalanceOf(account).ToBig()}, nil
		}).
		Register(MethodAllowance, func(ctx *chain.Context, args []any) ([]any, error) {
			owner, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			spender, err := chain.ArgPrincipal(args, 1)
			if err != nil {
				return nil, err
			}
			return []any{t.Allowance(owner, spender).ToBig()}, nil
		}).
		Register(MethodTransfer, func(ctx *chain.Context, args []any) ([]any, error) {
			to, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			amount, err := chain.ArgAmount(args, 1)
			if err != nil {
				return nil, err
			}
			if err := t.Transfer(ctx, to, amount); err != nil {
				return nil, err
			}
			return []any{true}, nil
		}).
		Register(MethodTransferFrom, func(ctx *chain.Context, args []any) ([]any, error) {
			from, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			to, err := chain.ArgPrincipal(args, 1)
			if err != nil {
				return nil, err
			}
			amount, err := chain.ArgAmount(args, 2)
			if err != nil {
				return nil, err
			}
			if err := t.TransferFrom(ctx, from, to, amount); err != nil {
				return nil, err
			}
			return []any{true}, nil
		}).
		Register(MethodApprove, func(ctx *chain.Context, args []any) ([]any, error) {
			spender, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			amount, err := chain.ArgAmount(args, 1)
			if err != nil {
				return nil, err
			}
			if err := t.Approve(ctx, spender, amount); err != nil {
				return nil, err
			}
			return []any{true}, nil
		}).
		Register(MethodSafeApprove, func(ctx *chain.Context, args []any) ([]any, error) {
			spender, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			amount, err := chain.ArgAmount(args, 1)
			if err != nil {
				return nil, err
			}
			expected, err := chain.ArgAmount(args, 2)
			if err != nil {
				return nil, err
			}
			if err := t.SafeApprove(ctx, spender, amount, expected); err != nil {
				return nil, err
			}
			return []any{true}, nil
		}).
		Register(MethodTransferAndCall, func(ctx *chain.Context, args []any) ([]any, error) {
			to, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			amount, err := chain.ArgAmount(args, 1)
			if err != nil {
				return nil, err
			}
			data, err := chain.ArgBytes(args, 2)
			if err != nil {
				return nil, err
			}
			if err := t.TransferAndCall(ctx, to, amount, data); err != nil {
				return nil, err
			}
			return []any{true}, nil
		}).
		Register(MethodTransferFromAndCall, func(ctx *chain.Context, args []any) ([]any, error) {
			from, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			to, err := chain.ArgPrincipal(args, 1)
			if err != nil {
				return nil, err
			}
			amount, err := chain.ArgAmount(args, 2)
			if err != nil {
				return nil, err
			}
			data, err := chain.ArgBytes(args, 3)
			if err != nil {
				return nil, err
			}
			if err := t.TransferFromAndCall(ctx, from, to, amount, data); err != nil {
				return nil, err
			}
			return []any{true}, nil
		}).
		Register(MethodApproveAndCall, func(ctx *chain.Context, args []any) ([]any, error) {
			spender, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			amount, err := chain.ArgAmount(args, 1)
			if err != nil {
				return nil, err
			}
			data, err := chain.ArgBytes(args, 2)
			if err != nil {
				return nil, err
			}
			if err := t.ApproveAndCall(ctx, spender, amount, data); err != nil {
				return nil, err
			}
			return []any{true}, nil
		}).
		Register(MethodMint, func(ctx *chain.Context, args []any) ([]any, error) {
			to, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			amount, err := chain.ArgAmount(args, 1)
			if err != nil {
				return nil, err
			}
			return nil, t.Mint(ctx, to, amount)
		}).
		Register(MethodBurnFrom, func(ctx *chain.Context, args []any) ([]any, error) {
			from, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			amount, err := chain.ArgAmount(args, 1)
			if err != nil {
				return nil, err
			}
			return nil, t.BurnFrom(ctx, from, amount)
		}).
		Register(MethodDelegate, func(ctx *chain.Context, args []any) ([]any, error) {
			target, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			return nil, t.Delegate(ctx, target)
		}).
		Register(MethodDelegates, func(ctx *chain.Context, args []any) ([]any, error) {
			account, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			return []any{t.DelegateOf(account)}, nil
		}).
		Register(MethodWeightOf, func(ctx *chain.Context, args []any) ([]any, error) {
			account, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			return []any{t.WeightOf(account).ToBig()}, nil
		}).
		Register(MethodWeightOfAt, func(ctx *chain.Context, args []any) ([]any, error) {
			account, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			block, err := chain.ArgUint64(args, 1)
			if err != nil {
				return nil, err
			}
			w, err := t.WeightOfAt(account, block)
			if err != nil {
				return nil, err
			}
			return []any{w.ToBig()}, nil
		}).
		Register(MethodDelegatedBalanceOf, func(ctx *chain.Context, args []any) ([]any, error) {
			account, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			return []any{t.DelegatedBalanceOf(account).ToBig()}, nil
		}).
		Register(MethodDelegatedBalanceOfAt, func(ctx *chain.Context, args []any) ([]any, error) {
			account, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			block, err := chain.ArgUint64(args, 1)
			if err != nil {
				return nil, err
			}
			b, err := t.DelegatedBalanceOfAt(account, block)
			if err != nil {
				return nil, err
			}
			return []any{b.ToBig()}, nil
		}).
		Register(MethodTotalWeightAt, func(ctx *chain.Context, args []any) ([]any, error) {
			block, err := chain.ArgUint64(args, 0)
			if err != nil {
				return nil, err
			}
			w, err := t.TotalWeightAt(block)
			if err != nil {
				return nil, err
			}
			return []any{w.ToBig()}, nil
		})
}
