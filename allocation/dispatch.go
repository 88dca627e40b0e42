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

package allocation

import (
	"github.com/blinklabs-io/gavel/chain"
)

var (
	MethodIncreaseAllocation = chain.NewMethod("increaseAllocation", []string{"address", "address", "uint256"}, nil)
	MethodRevokeAllocation   = chain.NewMethod("revokeAllocation", []string{"address", "address", "uint256"}, nil)
	MethodSetSupervisor      = chain.NewMethod("setSupervisor", []string{"address", "address", "bool"}, nil)
	MethodSetLockDuration    = chain.NewMethod("setLockDuration", []string{"address", "address", "uint64"}, nil)
	MethodIncreaseClaim      = chain.NewMethod("increaseClaim", []string{"address", "uint256"}, nil)
	MethodRevokeClaim        = chain.NewMethod("revokeClaim", []string{"address", "address"}, nil)
	MethodEnactClaim         = chain.NewMethod("enactClaim", []string{"address"}, nil)
	MethodAllocation         = chain.NewReadOnlyMethod("allocation", []string{"address", "address"}, []string{"uint256"})
	MethodPendingClaim       = chain.NewReadOnlyMethod("pendingClaim", []string{"address", "address"}, []string{"uint256", "uint64"})
	MethodLockDuration       = chain.NewReadOnlyMethod("lockDuration", []string{"address", "address"}, []string{"uint64"})
	MethodLockDurationRaw    = chain.NewReadOnlyMethod("lockDurationRaw", []string{"address", "address"}, []string{"uint64"})
	MethodIsSupervisor       = chain.NewReadOnlyMethod("isSupervisor", []string{"address", "address"}, []string{"bool"})
	MethodIsSupervisorFor    = chain.NewReadOnlyMethod("isSupervisorFor", []string{"address", "address"}, []string{"bool"})
)

func (l *Ledger) Dispatch(ctx *chain.Context, input []byte) ([]byte, error) {
	return l.dispatcher.Dispatch(ctx, input)
}

func (l *Ledger) Methods() *chain.Dispatcher {
	return l.dispatcher
}

// pair decodes two leading address arguments
func pair(args []any) (chain.Principal, chain.Principal, error) {
	first, err := chain.ArgPrincipal(args, 0)
	if err != nil {
		return chain.NilPrincipal, chain.NilPrincipal, err
	}
	second, err := chain.ArgPrincipal(args, 1)
	if err != nil {
		return chain.NilPrincipal, chain.NilPrincipal, err
	}
	return first, second, nil
}

func (l *Ledger) newDispatcher() *chain.Dispatcher {
	return chain.NewDispatcher().
		Register(MethodIncreaseAllocation, func(ctx *chain.Context, args []any) ([]any, error) {
			account, token, err := pair(args)
			if err != nil {
				return nil, err
			}
			amount, err := chain.ArgAmount(args, 2)
			if err != nil {
				return nil, err
			}
			return nil, l.IncreaseAllocation(ctx, account, token, amount)
		}).
		Register(MethodRevokeAllocation, func(ctx *chain.Context, args []any) ([]any, error) {
			account, token, err := pair(args)
			if err != nil {
				return nil, err
			}
			amount, err := chain.ArgAmount(args, 2)
			if err != nil {
				return nil, err
			}
			return nil, l.RevokeAllocation(ctx, account, token, amount)
		}).
		Register(MethodSetSupervisor, func(ctx *chain.Context, args []any) ([]any, error) {
			account, supervisor, err := pair(args)
			if err != nil {
				return nil, err
			}
			enabled, err := chain.ArgBool(args, 2)
			if err != nil {
				return nil, err
			}
			return nil, l.SetSupervisor(ctx, account, supervisor, enabled)
		}).
		Register(MethodSetLockDuration, func(ctx *chain.Context, args []any) ([]any, error) {
			account, token, err := pair(args)
			if err != nil {
				return nil, err
			}
			duration, err := chain.ArgUint64(args, 2)
			if err != nil {
				return nil, err
			}
			return nil, l.SetLockDuration(ctx, account, token, duration)
		}).
		Register(MethodIncreaseClaim, func(ctx *chain.Context, args []any) ([]any, error) {
			token, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			amount, err := chain.ArgAmount(args, 1)
			if err != nil {
				return nil, err
			}
			return nil, l.IncreaseClaim(ctx, token, amount)
		}).
		Register(MethodRevokeClaim, func(ctx *chain.Context, args []any) ([]any, error) {
			account, token, err := pair(args)
			if err != nil {
				return nil, err
			}
			return nil, l.RevokeClaim(ctx, account, token)
		}).
		Register(MethodEnactClaim, func(ctx *chain.Context, args []any) ([]any, error) {
			token, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			return nil, l.EnactClaim(ctx, token)
		}).
		Register(MethodAllocation, func(ctx *chain.Context, args []any) ([]any, error) {
			account, token, err := pair(args)
			if err != nil {
				return nil, err
			}
			return []any{l.Allocation(account, token).ToBig()}, nil
		}).
		Register(MethodPendingClaim, func(ctx *chain.Context, args []any) ([]any, error) {
			account, token, err := pair(args)
			if err != nil {
				return nil, err
			}
			claim, _ := l.PendingClaim(account, token)
			return []any{claim.Amount.ToBig(), claim.ProposedAt}, nil
		}).
		Register(MethodLockDuration, func(ctx *chain.Context, args []any) ([]any, error) {
			account, token, err := pair(args)
			if err != nil {
				return nil, err
			}
			return []any{l.LockDuration(account, token)}, nil
		}).
		Register(MethodLockDurationRaw, func(ctx *chain.Context, args []any) ([]any, error) {
			account, token, err := pair(args)
			if err != nil {
				return nil, err
			}
			return []any{l.LockDurationRaw(account, token)}, nil
		}).
		Register(MethodIsSupervisor, func(ctx *chain.Context, args []any) ([]any, error) {
			account, supervisor, err := pair(args)
			if err != nil {
				return nil, err
			}
			return []any{l.IsSupervisor(account, supervisor)}, nil
		}).
		Register(MethodIsSupervisorFor, func(ctx *chain.Context, args []any) ([]any, error) {
			account, supervisor, err := pair(args)
			if err != nil {
				return nil, err
			}
			return []any{l.IsSupervisorFor(account, supervisor)}, nil
		})
}
