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

package token_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/blinklabs-io/gavel/chain"
	"github.com/blinklabs-io/gavel/token"
)

type weightCheck struct {
	account          chain.Principal
	weight           uint64
	delegatedBalance uint64
}

// weightHistory verifies current values and remembers them for a historical replay
type weightHistory struct {
	tok    *token.Token
	checks map[uint64][]weightCheck
}

func newWeightHistory(tok *token.Token) *weightHistory {
	return &weightHistory{
		tok:    tok,
		checks: make(map[uint64][]weightCheck),
	}
}

func (h *weightHistory) check(t *testing.T, block uint64, checks ...weightCheck) {
	t.Helper()
	for _, check := range checks {
		assert.Equal(t, u(check.weight), h.tok.WeightOf(check.account), "weight at block %d", block)
		assert.Equal(t, u(check.delegatedBalance), h.tok.DelegatedBalanceOf(check.account), "delegated balance at block %d", block)
	}
	h.checks[block] = append(h.checks[block], checks...)
}

func (h *weightHistory) replay(t *testing.T) {
	t.Helper()
	for block, checks := range h.checks {
		for _, check := range checks {
			w, err := h.tok.WeightOfAt(check.account, block)
			require.NoError(t, err)
			assert.Equal(t, u(check.weight), w, "historical weight at block %d", block)
			b, err := h.tok.DelegatedBalanceOfAt(check.account, block)
			require.NoError(t, err)
			assert.Equal(t, u(check.delegatedBalance), b, "historical delegated balance at block %d", block)
		}
	}
}

func TestWeightBasic(t *testing.T) {
	c := chain.NewChain()
	tok := deployToken(t, c, []chain.Principal{accountA}, []uint64{1000})
	h := newWeightHistory(tok)
	for _, block := range []uint64{0, 2, 5} {
		require.NoError(t, c.AdvanceTo(block))
		h.check(t, block, weightCheck{accountA, 1000 * block, 1000})
	}
	c.Mine(10)
	h.replay(t)
}

func TestWeightTransfer(t *testing.T) {
	c := chain.NewChain()
	tok := deployToken(t, c, []chain.Principal{accountA, accountB}, []uint64{1000, 500})
	h := newWeightHistory(tok)
	require.NoError(t, c.AdvanceTo(1))
	h.check(t, 1,
		weightCheck{accountA, 1000, 1000},
		weightCheck{accountB, 500, 500},
	)
	require.NoError(t, c.AdvanceTo(3))
	execute(t, c, accountA, func(ctx *chain.Context) error {
		return tok.Transfer(ctx, accountB, u(300))
	})
	h.check(t, 3,
		weightCheck{accountA, 700 * 3, 700},
		weightCheck{accountB, 500 * 3, 800},
	)
	require.NoError(t, c.AdvanceTo(5))
	execute(t, c, accountB, func(ctx *chain.Context) error {
		return tok.Transfer(ctx, accountA, u(300))
	})
	h.check(t, 5,
		weightCheck{accountA, 700 * 5, 1000},
		weightCheck{accountB, 500 * 5, 500},
	)
	c.Mine(3)
	h.replay(t)
}

func TestWeightFlashTransfer(t *testing.T) {
	c := chain.NewChain()
	tok := deployToken(t, c, []chain.Principal{accountA, accountB}, []uint64{1000, 500})
	h := newWeightHistory(tok)
	require.NoError(t, c.AdvanceTo(1))
	execute(t, c, accountA, func(ctx *chain.Context) error {
		return tok.Transfer(ctx, accountB, u(300))
	})
	execute(t, c, accountB, func(ctx *chain.Context) error {
		return tok.Transfer(ctx, accountA, u(300))
	})
	// The tokens that moved within the block have no age yet
	h.check(t, 1,
		weightCheck{accountA, 700, 1000},
		weightCheck{accountB, 500, 500},
	)
	c.Mine(1)
	h.replay(t)
}

func TestWeightDelegation(t *testing.T) {
	c := chain.NewChain()
	tok := deployToken(t, c, []chain.Principal{accountA, accountB}, []uint64{1000, 500})
	h := newWeightHistory(tok)
	require.NoError(t, c.AdvanceTo(1))
	h.check(t, 1,
		weightCheck{accountA, 1000, 1000},
		weightCheck{accountB, 500, 500},
		weightCheck{accountC, 0, 0},
	)

	require.NoError(t, c.AdvanceTo(3))
	receipt := execute(t, c, accountA, func(ctx *chain.Context) error {
		return tok.Delegate(ctx, accountC)
	})
	require.Len(t, receipt.LogsNamed("Delegate"), 1)
	assert.Equal(t, u(1000), tok.BalanceOf(accountA))
	assert.Equal(t, u(0), tok.BalanceOf(accountC))
	h.check(t, 3,
		weightCheck{accountA, 1000 * 3, 1000},
		weightCheck{accountB, 500 * 3, 500},
		weightCheck{accountC, 1000 * 3, 1000},
	)

	require.NoError(t, c.AdvanceTo(5))
	_, err := c.Execute(accountC, func(ctx *chain.Context) error {
		return tok.Transfer(ctx, accountB, u(300))
	})
	require.ErrorIs(t, err, token.ErrInsufficientBalance)
	execute(t, c, accountA, func(ctx *chain.Context) error {
		return tok.Transfer(ctx, accountB, u(300))
	})
	h.check(t, 5,
		weightCheck{accountA, 700 * 5, 700},
		weightCheck{accountB, 500 * 5, 800},
		weightCheck{accountC, 700 * 5, 700},
	)

	require.NoError(t, c.AdvanceTo(7))
	execute(t, c, accountB, func(ctx *chain.Context) error {
		return tok.Delegate(ctx, accountC)
	})
	h.check(t, 7,
		weightCheck{accountA, 700 * 7, 700},
		weightCheck{accountB, 500*7 + 300*2, 800},
		weightCheck{accountC, 700*7 + 500*7 + 300*2, 1500},
	)

	require.NoError(t, c.AdvanceTo(9))
	execute(t, c, accountA, func(ctx *chain.Context) error {
		return tok.Delegate(ctx, chain.NilPrincipal)
	})
	h.check(t, 9,
		weightCheck{accountA, 700 * 9, 700},
		weightCheck{accountC, 500*9 + 300*4, 800},
	)
	assert.Equal(t, chain.NilPrincipal, tok.DelegateOf(accountA))
	assert.Equal(t, accountC, tok.DelegateOf(accountB))
	c.Mine(2)
	h.replay(t)

	delegate, err := tok.DelegateOfAt(accountA, 8)
	require.NoError(t, err)
	assert.Equal(t, accountC, delegate)
	delegate, err = tok.DelegateOfAt(accountA, 2)
	require.NoError(t, err)
	assert.Equal(t, chain.NilPrincipal, delegate)
}

func TestDelegationCycles(t *testing.T) {
	testDefs := []struct {
		name  string
		chain []chain.Principal
	}{
		{"self", nil},
		{"length 1", []chain.Principal{accountB}},
		{"length 2", []chain.Principal{accountB, accountC}},
		{"length 3", []chain.Principal{accountB, accountC, accountD}},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			c := chain.NewChain()
			tok := deployToken(t, c, []chain.Principal{accountA, accountB}, []uint64{1000, 500})
			// Build the chain A -> x1 -> x2 ... then let the last link delegate back to A
			prev := accountA
			for _, next := range testDef.chain {
				execute(t, c, prev, func(ctx *chain.Context) error {
					return tok.Delegate(ctx, next)
				})
				prev = next
			}
			_, err := c.Execute(prev, func(ctx *chain.Context) error {
				return tok.Delegate(ctx, accountA)
			})
			require.ErrorIs(t, err, token.ErrDelegationCycle)
			assert.ErrorIs(t, err, chain.ErrInvariantViolation)
		})
	}
}

func TestWeightFutureBlock(t *testing.T) {
	c := chain.NewChain()
	tok := deployToken(t, c, []chain.Principal{accountA}, []uint64{1000})
	_, err := tok.WeightOfAt(accountA, 1)
	require.ErrorIs(t, err, chain.ErrFuturePosition)
	assert.ErrorIs(t, err, chain.ErrTemporal)
	_, err = tok.TotalWeightAt(1)
	require.ErrorIs(t, err, chain.ErrFuturePosition)
}

func TestTotalWeight(t *testing.T) {
	c := chain.NewChain()
	tok := deployToken(t, c, []chain.Principal{accountA, accountB}, []uint64{1000, 500})
	require.NoError(t, c.AdvanceTo(4))
	execute(t, c, accountA, func(ctx *chain.Context) error {
		return tok.Delegate(ctx, accountB)
	})
	execute(t, c, accountA, func(ctx *chain.Context) error {
		return tok.Transfer(ctx, accountC, u(100))
	})
	c.Mine(2)
	total, err := tok.TotalWeightAt(6)
	require.NoError(t, err)
	// Delegation does not count twice
	assert.Equal(t, u(900*6+500*6+100*2), total)
}

// unitLedger tracks the acquisition block of every single token unit
type unitLedger struct {
	units     map[chain.Principal][]uint64
	delegates map[chain.Principal]chain.Principal
}

func (l *unitLedger) transfer(from, to chain.Principal, amount int, block uint64) {
	stack := l.units[from]
	l.units[from] = stack[:len(stack)-amount]
	for range amount {
		l.units[to] = append(l.units[to], block)
	}
}

func (l *unitLedger) ownWeight(account chain.Principal, block uint64) uint64 {
	var ret uint64
	for _, acquired := range l.units[account] {
		ret += block - acquired
	}
	return ret
}

func (l *unitLedger) weight(account chain.Principal, block uint64, accounts []chain.Principal) uint64 {
	var ret uint64
	for _, other := range accounts {
		// other is in the subtree of account if account is on its delegate chain
		for p := other; !chain.IsNil(p); p = l.delegates[p] {
			if p == account {
				ret += l.ownWeight(other, block)
				break
			}
		}
	}
	return ret
}

func (l *unitLedger) wouldCycle(from, target chain.Principal) bool {
	for p := target; !chain.IsNil(p); p = l.delegates[p] {
		if p == from {
			return true
		}
	}
	return false
}

func TestWeightMatchesUnitModel(t *testing.T) {
	accounts := []chain.Principal{accountA, accountB, accountC, accountD}
	rapid.Check(t, func(rt *rapid.T) {
		c := chain.NewChain()
		tok, err := chain.Deploy(c, accountA, func(ctx *chain.Context) (*token.Token, error) {
			return token.New(ctx, token.Config{
				Holders: []chain.Principal{accountA, accountB},
				Amounts: []*uint256.Int{u(20), u(10)},
			})
		})
		if err != nil {
			rt.Fatalf("deploy: %s", err)
		}
		model := &unitLedger{
			units:     make(map[chain.Principal][]uint64),
			delegates: make(map[chain.Principal]chain.Principal),
		}
		for range 20 {
			model.units[accountA] = append(model.units[accountA], 0)
		}
		for range 10 {
			model.units[accountB] = append(model.units[accountB], 0)
		}
		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for range steps {
			c.Mine(rapid.Uint64Range(0, 2).Draw(rt, "gap"))
			block := c.BlockNumber()
			from := rapid.SampledFrom(accounts).Draw(rt, "from")
			if rapid.Bool().Draw(rt, "delegate") {
				target := rapid.SampledFrom(append([]chain.Principal{chain.NilPrincipal}, accounts...)).Draw(rt, "target")
				_, err := c.Execute(from, func(ctx *chain.Context) error {
					return tok.Delegate(ctx, target)
				})
				if model.wouldCycle(from, target) {
					if err == nil {
						rt.Fatalf("expected cycle rejection")
					}
					continue
				}
				if err != nil {
					rt.Fatalf("delegate: %s", err)
				}
				if chain.IsNil(target) {
					delete(model.delegates, from)
				} else {
					model.delegates[from] = target
				}
			} else {
				to := rapid.SampledFrom(accounts).Draw(rt, "to")
				amount := rapid.IntRange(0, len(model.units[from])).Draw(rt, "amount")
				_, err := c.Execute(from, func(ctx *chain.Context) error {
					return tok.Transfer(ctx, to, u(uint64(amount)))
				})
				if err != nil {
					rt.Fatalf("transfer: %s", err)
				}
				model.transfer(from, to, amount, block)
			}
			for _, account := range accounts {
				expected := model.weight(account, block, accounts)
				if got := tok.WeightOf(account); !got.Eq(u(expected)) {
					rt.Fatalf("weight of %s at %d: got %s, expected %d", account.Hex(), block, got, expected)
				}
			}
		}
	})
}
