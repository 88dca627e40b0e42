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

import (
	"github.com/holiman/uint256"

	"github.com/blinklabs-io/gavel/chain"
)

// lot is an amount received by an account in one block
type lot struct {
	block  uint64
	amount uint256.Int
}

// lotStack keeps the lots held by one account, oldest first. Sends consume
// the youngest lots, so transfers reset the age of the moved tokens only
type lotStack struct {
	lots []lot
}

// push adds amount received at block, merging with a lot from the same block
func (s *lotStack) push(j *chain.Journal, block uint64, amount *uint256.Int) {
	n := len(s.lots)
	if n > 0 && s.lots[n-1].block == block {
		old := s.lots[n-1]
		j.Append(func() { s.lots[n-1] = old })
		s.lots[n-1].amount.Add(&old.amount, amount)
		return
	}
	prev := s.lots
	j.Append(func() { s.lots = prev })
	s.lots = append(s.lots, lot{block: block, amount: *amount})
}

// pop removes amount starting from the youngest lot and returns the sum of
// amount times block over what was removed. The caller checks the balance
func (s *lotStack) pop(j *chain.Journal, amount *uint256.Int) *uint256.Int {
	remaining := new(uint256.Int).Set(amount)
	blockSum := new(uint256.Int)
	i := len(s.lots)
	for i > 0 && !remaining.IsZero() && !s.lots[i-1].amount.Gt(remaining) {
		l := &s.lots[i-1]
		remaining.Sub(remaining, &l.amount)
		blockSum.Add(blockSum, lotProduct(l.block, &l.amount))
		i--
	}
	tail := make([]lot, len(s.lots)-i)
	copy(tail, s.lots[i:])
	partial := !remaining.IsZero() && i > 0
	var old lot
	if partial {
		old = s.lots[i-1]
	}
	j.Append(func() {
		restored := append(s.lots[:i:i], tail...)
		if partial {
			restored[i-1] = old
		}
		s.lots = restored
	})
	s.lots = s.lots[:i]
	if partial {
		l := &s.lots[i-1]
		l.amount.Sub(&l.amount, remaining)
		blockSum.Add(blockSum, lotProduct(l.block, remaining))
	}
	return blockSum
}

// snapshot returns a copy of the lots, oldest first
func (s *lotStack) snapshot() []Lot {
	ret := make([]Lot, 0, len(s.lots))
	for _, l := range s.lots {
		ret = append(ret, Lot{Block: l.block, Amount: new(uint256.Int).Set(&l.amount)})
	}
	return ret
}

// Lot is an amount an account received in one block and still holds
type Lot struct {
	Block  uint64
	Amount *uint256.Int
}

func lotProduct(block uint64, amount *uint256.Int) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(block), amount)
}
