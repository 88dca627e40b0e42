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

import "github.com/blinklabs-io/gavel/chain"

var (
	ErrNotAuthorized = chain.NewError(
		chain.ErrAuthorization,
		"caller does not satisfy the access control policy",
	)
	ErrNotOwner = chain.NewError(
		chain.ErrAuthorization,
		"caller is neither the voting engine nor its owner",
	)
	ErrAlreadyProposed = chain.NewError(
		chain.ErrInvariantViolation,
		"vote already proposed",
	)
	ErrVoteNotFound = chain.NewError(
		chain.ErrInvariantViolation,
		"vote not proposed",
	)
	ErrInvalidChoice = chain.NewError(
		chain.ErrInvariantViolation,
		"invalid vote choice",
	)
	ErrAlreadyVoted = chain.NewError(
		chain.ErrInvariantViolation,
		"voter already cast this choice",
	)
	ErrNoWeight = chain.NewError(
		chain.ErrInvariantViolation,
		"voter has no weight at the proposal block",
	)
	ErrNotPassed = chain.NewError(
		chain.ErrInvariantViolation,
		"vote does not have a majority in favor",
	)
	ErrQuorumNotReached = chain.NewError(
		chain.ErrInvariantViolation,
		"vote did not reach quorum",
	)
	ErrDeadlinePassed = chain.NewError(
		chain.ErrTemporal,
		"voting deadline has passed",
	)
	ErrTooEarly = chain.NewError(
		chain.ErrTemporal,
		"vote cannot be enacted yet",
	)
	ErrAlreadyEnacted = chain.NewError(
		chain.ErrReentrancy,
		"vote already enacted",
	)
)
