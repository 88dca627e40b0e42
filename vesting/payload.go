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

import (
	"math/big"

	"github.com/blinklabs-io/gavel/chain"
)

// depositPayload is the layout of the data attached to a transfer-and-call
// deposit: target (nil for the sender), start block, period count and period length
var depositPayload = chain.NewMethod(
	"deposit",
	[]string{"address", "uint128", "uint64", "uint64"},
	nil,
)

// Schedule describes when a position releases its amount
type Schedule struct {
	Start        uint64
	PeriodCount  uint64
	PeriodBlocks uint64
}

func (s Schedule) validate() error {
	if s.PeriodCount == 0 || s.PeriodBlocks == 0 {
		return ErrInvalidSchedule
	}
	return nil
}

// EncodeDeposit builds the data for a transfer-and-call deposit into a vesting engine
func EncodeDeposit(target chain.Principal, schedule Schedule) ([]byte, error) {
	return depositPayload.Inputs.Pack(
		target,
		new(big.Int).SetUint64(schedule.Start),
		schedule.PeriodCount,
		schedule.PeriodBlocks,
	)
}

// DecodeDeposit parses deposit data
func DecodeDeposit(data []byte) (chain.Principal, Schedule, error) {
	args, err := depositPayload.Unpack(data)
	if err != nil {
		return chain.NilPrincipal, Schedule{}, err
	}
	target, err := chain.ArgPrincipal(args, 0)
	if err != nil {
		return chain.NilPrincipal, Schedule{}, err
	}
	var schedule Schedule
	// Start is encoded as uint128 but blocks are tracked as uint64
	if schedule.Start, err = chain.ArgUint64(args, 1); err != nil {
		return chain.NilPrincipal, Schedule{}, err
	}
	if schedule.PeriodCount, err = chain.ArgUint64(args, 2); err != nil {
		return chain.NilPrincipal, Schedule{}, err
	}
	if schedule.PeriodBlocks, err = chain.ArgUint64(args, 3); err != nil {
		return chain.NilPrincipal, Schedule{}, err
	}
	return target, schedule, nil
}
