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

package voting

import (
	"github.com/blinklabs-io/gavel/chain"
)

// Methods callable through Dispatch
var (
	MethodPropose           = chain.NewMethod("propose", []string{"bytes32", "bytes32"}, []string{"bytes32"})
	MethodVote              = chain.NewMethod("vote", []string{"bytes32", "uint8"}, nil)
	MethodEnact             = chain.NewMethod("enact", []string{"bytes32", chain.ActionTupleType}, nil)
	MethodVoteCounts        = chain.NewReadOnlyMethod("voteCounts", []string{"bytes32"}, []string{"uint256", "uint256"})
	MethodStatus            = chain.NewReadOnlyMethod("status", []string{"bytes32"}, []string{"uint8"})
	MethodVoteDeadline      = chain.NewReadOnlyMethod("voteDeadline", nil, []string{"uint64"})
	MethodEnactDelay        = chain.NewReadOnlyMethod("enactDelay", nil, []string{"uint64"})
	MethodRequiredQuorum    = chain.NewReadOnlyMethod("requiredQuorum", nil, []string{"uint256"})
	MethodSetVoteDeadline   = chain.NewMethod("setVoteDeadline", []string{"uint64"}, nil)
	MethodSetEnactDelay     = chain.NewMethod("setEnactDelay", []string{"uint64"}, nil)
	MethodSetRequiredQuorum = chain.NewMethod("setRequiredQuorum", []string{"uint256"}, nil)
	MethodSetProposerACL    = chain.NewMethod("setProposerACL", []string{"address"}, nil)
	MethodSetEnacterACL     = chain.NewMethod("setEnacterACL", []string{"address"}, nil)
	MethodSetOwner          = chain.NewMethod("setOwner", []string{"address"}, nil)
)

// Dispatch runs an encoded call
func (e *Engine) Dispatch(ctx *chain.Context, input []byte) ([]byte, error) {
	return e.dispatcher.Dispatch(ctx, input)
}

// Methods returns the dispatch table
func (e *Engine) Methods() *chain.Dispatcher {
	return e.dispatcher
}

func (e *Engine) newDispatcher() *chain.Dispatcher {
	return chain.NewDispatcher().
		Register(MethodPropose, func(ctx *chain.Context, args []any) ([]any, error) {
			rationaleHash, err := chain.ArgHash(args, 0)
			if err != nil {
				return nil, err
			}
			actionsHash, err := chain.ArgHash(args, 1)
			if err != nil {
				return nil, err
			}
			id, err := e.Propose(ctx, rationaleHash, actionsHash)
			if err != nil {
				return nil, err
			}
			return []any{[32]byte(id)}, nil
		}).
		Register(MethodVote, func(ctx *chain.Context, args []any) ([]any, error) {
			id, err := chain.ArgHash(args, 0)
			if err != nil {
				return nil, err
			}
			choice, ok := args[1].(uint8)
			if !ok {
				return nil, chain.ErrMalformedCall
			}
			return nil, e.CastVote(ctx, id, Choice(choice))
		}).
		Register(MethodEnact, func(ctx *chain.Context, args []any) ([]any, error) {
			rationaleHash, err := chain.ArgHash(args, 0)
			if err != nil {
				return nil, err
			}
			actions, err := chain.ArgActions(args, 1)
			if err != nil {
				return nil, err
			}
			return nil, e.Enact(ctx, rationaleHash, actions)
		}).
		Register(MethodVoteCounts, func(ctx *chain.Context, args []any) ([]any, error) {
			id, err := chain.ArgHash(args, 0)
			if err != nil {
				return nil, err
			}
			against, inFavor := e.VoteCounts(id)
			return []any{against.ToBig(), inFavor.ToBig()}, nil
		}).
		Register(MethodStatus, func(ctx *chain.Context, args []any) ([]any, error) {
			id, err := chain.ArgHash(args, 0)
			if err != nil {
				return nil, err
			}
			return []any{uint8(e.Status(id))}, nil
		}).
		Register(MethodVoteDeadline, func(ctx *chain.Context, args []any) ([]any, error) {
			return []any{e.voteDeadline}, nil
		}).
		Register(MethodEnactDelay, func(ctx *chain.Context, args []any) ([]any, error) {
			return []any{e.enactDelay}, nil
		}).
		Register(MethodRequiredQuorum, func(ctx *chain.Context, args []any) ([]any, error) {
			return []any{e.RequiredQuorum().ToBig()}, nil
		}).
		Register(MethodSetVoteDeadline, func(ctx *chain.Context, args []any) ([]any, error) {
			blocks, err := chain.ArgUint64(args, 0)
			if err != nil {
				return nil, err
			}
			return nil, e.SetVoteDeadline(ctx, blocks)
		}).
		Register(MethodSetEnactDelay, func(ctx *chain.Context, args []any) ([]any, error) {
			blocks, err := chain.ArgUint64(args, 0)
			if err != nil {
				return nil, err
			}
			return nil, e.SetEnactDelay(ctx, blocks)
		}).
		Register(MethodSetRequiredQuorum, func(ctx *chain.Context, args []any) ([]any, error) {
			quorum, err := chain.ArgAmount(args, 0)
			if err != nil {
				return nil, err
			}
			return nil, e.SetRequiredQuorum(ctx, quorum)
		}).
		Register(MethodSetProposerACL, func(ctx *chain.Context, args []any) ([]any, error) {
			acl, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			return nil, e.SetProposerACL(ctx, acl)
		}).
		Register(MethodSetEnacterACL, func(ctx *chain.Context, args []any) ([]any, error) {
			acl, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			return nil, e.SetEnacterACL(ctx, acl)
		}).
		Register(MethodSetOwner, func(ctx *chain.Context, args []any) ([]any, error) {
			owner, err := chain.ArgPrincipal(args, 0)
			if err != nil {
				return nil, err
			}
			return nil, e.SetOwner(ctx, owner)
		})
}
