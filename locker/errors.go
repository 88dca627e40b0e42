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

import "github.com/blinklabs-io/gavel/chain"

var (
	ErrNotOwner = chain.NewError(
		chain.ErrAuthorization,
		"caller is not the locker owner",
	)
	ErrZeroAmount = chain.NewError(
		chain.ErrInvariantViolation,
		"amount is zero",
	)
	ErrStillLocked = chain.NewError(
		chain.ErrTemporal,
		"not enough matured locks to unlock amount",
	)
)
