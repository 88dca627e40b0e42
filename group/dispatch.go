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

package group

import "github.com/blinklabs-io/gavel/chain"

// Methods callable through Dispatch
var (
	MethodOwner         = chain.NewReadOnlyMethod("owner", nil, []string{"address"})
	MethodSetOwner      = chain.NewMethod("setOwner", []string{"address"}, nil)
	MethodSetWeightOf   = chain.NewMethod("setWeightOf", []string{"address", "int64"}, nil)
	MethodModifyWeight  = chain.NewMethod("modifyWeightOf", []string{"address", "int64"}, nil)
	MethodDelegate      = chain.NewMethod("delegate", []string{"address"}, nil)
	MethodDelegates     = chain.NewReadOnlyMethod("delegates", []string{"address"}, []string{"address"})
	MethodWeightOf      = chain.NewReadOnlyMethod("weightOf", []string{"address"}, []string{"int64"})
	MethodWeightOfAt    = chain.NewReadOnlyMethod("weightOfAt", []string{"address", "uint256"}, []string{"int64"})
	MethodTotalWeight   = chain.NewReadOnlyMethod("totalWeight", nil, []string{"int64"})
	MethodTotalWeightAt = chain.NewReadOnlyMethod("totalWeightAt", []string{"uint256"}, []string{"int64"})
)

// Dispatch runs an encoded call
func (g *Group) Dispatch(ctx *chain.Context, input []byte) ([]byte, error) {
	return g.dispatcher.Dispatch(ctx, input)
}

// Methods returns the dispatch table
func (g *Group) Methods() *chain.Dispatcher {
	return g.dispatcher
}

func (g *Group) newDispatcher() *chain.Dispatcher {
	return chain.NewDispatcher().
		Register(MethodOwner, func(ctx *chain.Context, args []any) ([]any, error) {
			return []any{g.owner}, nil
		}).
		Register(MethodSetOwner, func(ctx *chain.Context, args []any) ([]any, error) {
			owner, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			return nil, g.SetOwner(ctx, owner)
		}).
		Register(MethodSetWeightOf, func(ctx *chain.Context, args []any) ([]any, error) {
			member, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			weight, err := chain.ArgInt64(args, 1)
			if err != nil {
				return nil, err
			}
			return nil, g.SetWeightOf(ctx, member, weight)
		}).
		Register(MethodModifyWeight, func(ctx *chain.Context, args []any) ([]any, error) {
			member, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			delta, err := chain.ArgInt64(args, 1)
			if err != nil {
				return nil, err
			}
			return nil, g.ModifyWeightOf(ctx, member, delta)
		}).
		Register(MethodDelegate, func(ctx *chain.Context, args []any) ([]any, error) {
			target, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			return nil, g.Delegate(ctx, target)
		}).
		Register(MethodDelegates, func(ctx *chain.Context, args []any) ([]any, error) {
			member, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			return []any{g.DelegateOf(member)}, nil
		}).
		Register(MethodWeightOf, func(ctx *chain.Context, args []any) ([]any, error) {
			member, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			return []any{g.WeightOf(member)}, nil
		}).
		Register(MethodWeightOfAt, func(ctx *chain.Context, args []any) ([]any, error) {
			member, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			block, err := chain.ArgUint64(args, 1)
			if err != nil {
				return nil, err
			}
			w, err := g.WeightOfAt(member, block)
			if err != nil {
				return nil, err
			}
			return []any{w}, nil
		}).
		Register(MethodTotalWeight, func(ctx *chain.Context, args []any) ([]any, error) {
			return []any{g.TotalWeight()}, nil
		}).
		Register(MethodTotalWeightAt, func(ctx *chain.Context, args []any) ([]any, error) {
			block, err := chain.ArgUint64(args, 0)
			if err != nil {
				return nil, err
			}
			w, err := g.TotalWeightAt(block)
			if err != nil {
				return nil, err
			}
			return []any{w}, nil
		})
}
