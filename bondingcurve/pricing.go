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

import (
	"github.com/holiman/uint256"

	"github.com/blinklabs-io/gavel/chain"
)

// pricing is the linear price schedule over the initial supply. The k-th unit
// sold (k from 1 to n) costs (start + (end-start)*k/n) / divisor
type pricing struct {
	n        uint256.Int
	start    uint256.Int
	end      uint256.Int
	divisor  uint256.Int
	taxNum   uint256.Int
	taxDenom uint256.Int
	// full is due(n), the cost of the whole supply
	full uint256.Int
}

// due returns the cost of buying the remaining supply s down to zero:
// floor(s * (start*(s-1) + end*(2n-s+1)) / (2n*divisor))
func (p *pricing) due(s *uint256.Int) (*uint256.Int, error) {
	if s.IsZero() {
		return new(uint256.Int), nil
	}
	one := uint256.NewInt(1)
	twoN := new(uint256.Int).Lsh(&p.n, 1)
	startTerm, err := chain.Mul(&p.start, new(uint256.Int).Sub(s, one))
	if err != nil {
		return nil, err
	}
	// s <= n so 2n-s+1 cannot underflow
	endFactor := new(uint256.Int).Add(new(uint256.Int).Sub(twoN, s), one)
	endTerm, err := chain.Mul(&p.end, endFactor)
	if err != nil {
		return nil, err
	}
	inner, err := chain.Add(startTerm, endTerm)
	if err != nil {
		return nil, err
	}
	denom, err := chain.Mul(twoN, &p.divisor)
	if err != nil {
		return nil, err
	}
	return chain.MulDiv(s, inner, denom)
}

// reserve returns the quote balance backing remaining supply s: the cost of
// the units sold so far minus the tax taken on them
func (p *pricing) reserve(s *uint256.Int) (*uint256.Int, error) {
	d, err := p.due(s)
	if err != nil {
		return nil, err
	}
	sold := new(uint256.Int).Sub(&p.full, d)
	tax, err := chain.MulDiv(sold, &p.taxNum, &p.taxDenom)
	if err != nil {
		return nil, err
	}
	return sold.Sub(sold, tax), nil
}

// buyCost returns the price of taking amount units out of remaining supply s
func (p *pricing) buyCost(s, amount *uint256.Int) (*uint256.Int, error) {
	before, err := p.due(s)
	if err != nil {
		return nil, err
	}
	after, err := p.due(new(uint256.Int).Sub(s, amount))
	if err != nil {
		return nil, err
	}
	return before.Sub(before, after), nil
}

// sellProceeds returns the payout for returning amount units to remaining supply s
func (p *pricing) sellProceeds(s, amount *uint256.Int) (*uint256.Int, error) {
	after, err := chain.Add(s, amount)
	if err != nil {
		return nil, err
	}
	before, err := p.reserve(s)
	if err != nil {
		return nil, err
	}
	remaining, err := p.reserve(after)
	if err != nil {
		return nil, err
	}
	return before.Sub(before, remaining), nil
}
