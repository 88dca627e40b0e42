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
	"github.com/holiman/uint256"

	"github.com/blinklabs-io/gavel/chain"
)

// authorizeSetter allows the engine itself, through enactment, and the owner
func (e *Engine) authorizeSetter(ctx *chain.Context) error {
	caller := ctx.Caller()
	if caller == e.address {
		return nil
	}
	if !chain.IsNil(e.owner) && caller == e.owner {
		return nil
	}
	return ErrNotOwner
}

func (e *Engine) setParameter(ctx *chain.Context, name string, value any, apply func(j *chain.Journal)) error {
	return ctx.Invoke(e.address, func(frame *chain.Context) error {
		if err := e.authorizeSetter(frame); err != nil {
			return err
		}
		apply(frame.Journal())
		frame.Emit(
			"ParameterChanged",
			chain.Indexed("name", name),
			chain.Data("value", value),
		)
		return nil
	})
}

// SetVoteDeadline sets the voting window of future proposals
func (e *Engine) SetVoteDeadline(ctx *chain.Context, blocks uint64) error {
	return e.setParameter(ctx, "voteDeadline", blocks, func(j *chain.Journal) {
		chain.Store(j, &e.voteDeadline, blocks)
	})
}

// SetEnactDelay sets the delay before future proposals can be enacted
func (e *Engine) SetEnactDelay(ctx *chain.Context, blocks uint64) error {
	return e.setParameter(ctx, "enactDelay", blocks, func(j *chain.Journal) {
		chain.Store(j, &e.enactDelay, blocks)
	})
}

// SetRequiredQuorum sets the quorum fraction of future proposals
func (e *Engine) SetRequiredQuorum(ctx *chain.Context, quorum *uint256.Int) error {
	value := chain.CopyAmount(quorum)
	return e.setParameter(ctx, "requiredQuorum", value, func(j *chain.Journal) {
		chain.Store(j, &e.quorum, *value)
	})
}

func (e *Engine) SetProposerACL(ctx *chain.Context, acl chain.Principal) error {
	return e.setParameter(ctx, "proposerACL", acl, func(j *chain.Journal) {
		chain.Store(j, &e.proposerACL, acl)
	})
}

func (e *Engine) SetEnacterACL(ctx *chain.Context, acl chain.Principal) error {
	return e.setParameter(ctx, "enacterACL", acl, func(j *chain.Journal) {
		chain.Store(j, &e.enacterACL, acl)
	})
}

func (e *Engine) SetOwner(ctx *chain.Context, owner chain.Principal) error {
	return e.setParameter(ctx, "owner", owner, func(j *chain.Journal) {
		chain.Store(j, &e.owner, owner)
	})
}
