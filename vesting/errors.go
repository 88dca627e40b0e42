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

import "github.com/blinklabs-io/gavel/chain"

var (
	ErrNotToken = chain.NewError(
		chain.ErrAuthorization,
		"caller is not the escrowed token",
	)
	ErrNotPositionOwner = chain.NewError(
		chain.ErrAuthorization,
		"caller does not own the position",
	)
	ErrNotOwner = chain.NewError(
		chain.ErrAuthorization,
		"caller is not the owner",
	)
	ErrUnknownPosition = chain.NewError(
		chain.ErrInvariantViolation,
		"position does not exist",
	)
	ErrInvalidSchedule = chain.NewError(
		chain.ErrInvariantViolation,
		"invalid vesting schedule",
	)
	ErrZeroAmount = chain.NewError(
		chain.ErrInvariantViolation,
		"amount is zero",
	)
	ErrNilRecipient = chain.NewError(
		chain.ErrInvariantViolation,
		"recipient is the nil principal",
	)
)
