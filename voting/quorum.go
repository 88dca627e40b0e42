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
	"math/big"

	"github.com/holiman/uint256"
)

var twoTo256 = new(big.Int).Lsh(big.NewInt(1), 256)

// RequiredWeight returns floor(total * quorum / 2^256), the weight a quorum
// fraction asks for out of total
func RequiredWeight(total, quorum *uint256.Int) *uint256.Int {
	product := new(big.Int).Mul(total.ToBig(), quorum.ToBig())
	product.Rsh(product, 256)
	ret, _ := uint256.FromBig(product)
	return ret
}

// EncodeQuorum returns the fixed-point fraction floor(required * 2^256 / total),
// capped at 2^256-1. RequiredWeight(total, EncodeQuorum(required, total)) is
// required or required-1 for any required <= total
func EncodeQuorum(required, total *uint256.Int) *uint256.Int {
	if total.IsZero() {
		if required.IsZero() {
			return new(uint256.Int)
		}
		return new(uint256.Int).SetAllOne()
	}
	q := new(big.Int).Mul(required.ToBig(), twoTo256)
	q.Quo(q, total.ToBig())
	if q.Cmp(twoTo256) >= 0 {
		return new(uint256.Int).SetAllOne()
	}
	ret, _ := uint256.FromBig(q)
	return ret
}
