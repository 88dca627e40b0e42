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

package chain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Principal identifies any actor: holders, delegates, beneficiaries and contracts
type Principal = common.Address

var (
	// NilPrincipal is the all-zero principal, meaning unset or anyone
	NilPrincipal = Principal{}
	// OnePrincipal has only the lowest bit set and means any member of a group
	OnePrincipal = common.BytesToAddress([]byte{0x01})
)

// IsNil reports whether p is the nil principal
func IsNil(p Principal) bool {
	return p == NilPrincipal
}

// PrincipalFromName derives a stable principal from a human readable name. It
// is used to give scenario and test accounts reproducible addresses
func PrincipalFromName(name string) Principal {
	return common.BytesToAddress(crypto.Keccak256([]byte(name)))
}

// AllOnes returns a new 256-bit value with every bit set
func AllOnes() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}

// IsAllOnes reports whether v has every bit set
func IsAllOnes(v *uint256.Int) bool {
	return v.Eq(AllOnes())
}
