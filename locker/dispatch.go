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

package locker

import (
	"github.com/blinklabs-io/gavel/chain"
)

var (
	MethodLock              = chain.NewMethod("lock", []string{"uint256"}, nil)
	MethodUnlock            = chain.NewMethod("unlock", []string{"uint256"}, nil)
	MethodSetLockTime       = chain.NewMethod("setLockTime", []string{"uint64"}, nil)
	MethodLockTime          = chain.NewReadOnlyMethod("lockTime", nil, []string{"uint64"})
	MethodLockedBalance     = chain.NewReadOnlyMethod("lockedBalance", []string{"address"}, []string{"uint256"})
	MethodUnlockableBalance = chain.NewReadOnlyMethod("unlockableBalance", []string{"address"}, []string{"uint256"})
)

func (l *Locker) Dispatch(ctx *chain.Context, input []byte) ([]byte, error) {
	return l.dispatcher.Dispatch(ctx, input)
}

func (l *Locker) Methods() *chain.Dispatcher {
	return l.dispatcher
}

func (l *Locker) newDispatcher() *chain.Dispatcher {
	return chain.NewDispatcher().
		Register(MethodLock, func(ctx *chain.Context, args []any) ([]any, error) {
			amount, err := chain.ArgAmount(args, 0)
			if err != nil {
				return nil, err
			}
			return nil, l.Lock(ctx, amount)
		}).
		Register(MethodUnlock, func(ctx *chain.Context, args []any) ([]any, error) {
			amount, err := chain.ArgAmount(args, 0)
			if err != nil {
				return nil, err
			}
			return nil, l.Unlock(ctx, amount)
		}).
		Register(MethodSetLockTime, func(ctx *chain.Context, args []any) ([]any, error) {
			blocks, err := chain.ArgUint64(args, 0)
			if err != nil {
				return nil, err
			}
			return nil, l.SetLockTime(ctx, blocks)
		}).
		Register(MethodLockTime, func(ctx *chain.Context, args []any) ([]any, error) {
			return []any{l.lockTime}, nil
		}).
		Register(MethodLockedBalance, func(ctx *chain.Context, args []any) ([]any, error) {
			account, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			return []any{l.LockedBalance(account).ToBig()}, nil
		}).
		Register(MethodUnlockableBalance, func(ctx *chain.Context, args []any) ([]any, error) {
			account, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			return []any{l.matured(account, ctx.Block()).ToBig()}, nil
		})
}
