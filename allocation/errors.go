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

import "github.com/blinklabs-io/gavel/chain"

var (
	ErrNotAuthority = chain.NewError(
		chain.ErrAuthorization,
		"caller is not the allocation authority",
	)
	ErrNotRevoker = chain.NewError(
		chain.ErrAuthorization,
		"caller may not revoke this claim",
	)
	ErrClaimExceedsAllocation = chain.NewError(
		chain.ErrInvariantViolation,
		"claim exceeds allocation",
	)
	ErrNoClaim = chain.NewError(
		chain.ErrInvariantViolation,
		"no pending claim",
	)
	ErrZeroAmount = chain.NewError(
		chain.ErrInvariantViolation,
		"amount is zero",
	)
	ErrClaimLocked = chain.NewError(
		chain.ErrTemporal,
		"claim is still locked",
	)
)
