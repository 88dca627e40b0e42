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

package bondingcurve

import "github.com/blinklabs-io/gavel/chain"

var (
	ErrInvalidConfig = chain.NewError(
		chain.ErrInvariantViolation,
		"invalid bonding curve parameters",
	)
	ErrZeroAmount = chain.NewError(
		chain.ErrInvariantViolation,
		"trade amount is zero",
	)
	ErrSlippage = chain.NewError(
		chain.ErrInvariantViolation,
		"price is outside the accepted limit",
	)
	ErrSellExceedsSold = chain.NewError(
		chain.ErrInvariantViolation,
		"sell amount exceeds the amount bought from the curve",
	)
	ErrInsufficientWithdrawable = chain.NewError(
		chain.ErrInvariantViolation,
		"amount exceeds the withdrawable balance",
	)
	ErrNotBeneficiary = chain.NewError(
		chain.ErrAuthorization,
		"caller is not the beneficiary",
	)
	ErrTradingClosed = chain.NewError(
		chain.ErrTemporal,
		"trading closed after the transition",
	)
	ErrNoTransition = chain.NewError(
		chain.ErrTemporal,
		"no transition is pending",
	)
	ErrTransitionTooEarly = chain.NewError(
		chain.ErrTemporal,
		"transition deadline not reached",
	)
	ErrAboveThreshold = chain.NewError(
		chain.ErrTemporal,
		"remaining supply is not below the threshold",
	)
	ErrTransitionCompleted = chain.NewError(
		chain.ErrReentrancy,
		"transition already completed",
	)
)
