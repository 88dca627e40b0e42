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

import "github.com/blinklabs-io/gavel/chain"

var (
	ErrInsufficientBalance = chain.NewError(
		chain.ErrInvariantViolation,
		"insufficient balance",
	)
	ErrInsufficientAllowance = chain.NewError(
		chain.ErrInvariantViolation,
		"insufficient allowance",
	)
	ErrAllowanceMismatch = chain.NewError(
		chain.ErrInvariantViolation,
		"current allowance does not match the expected value",
	)
	ErrInvalidAddress = chain.NewError(
		chain.ErrInvariantViolation,
		"nil principal is not a valid recipient",
	)
	ErrDelegationCycle = chain.NewError(
		chain.ErrInvariantViolation,
		"delegation would create a cycle",
	)
	ErrLengthMismatch = chain.NewError(
		chain.ErrInvariantViolation,
		"holders and amounts differ in length",
	)
	ErrSupplyCap = chain.NewError(
		chain.ErrInvariantViolation,
		"total supply cap exceeded",
	)
	ErrNotMinter = chain.NewError(
		chain.ErrAuthorization,
		"caller is not a minter",
	)
	ErrInvalidReceiverResponse = chain.NewError(
		chain.ErrExternalCall,
		"receiver did not acknowledge the call",
	)
)
