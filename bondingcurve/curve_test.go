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

package bondingcurve_test

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/blinklabs-io/gavel/bondingcurve"
	"github.com/blinklabs-io/gavel/chain"
	"github.com/blinklabs-io/gavel/token"
)

var (
	accountA           = chain.PrincipalFromName("a")
	accountB           = chain.PrincipalFromName("b")
	accountBeneficiary = chain.PrincipalFromName("beneficiary")
)

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

type market struct {
	chain  *chain.Chain
	tokenA *token.Token
	tokenB *token.Token
	curve  *bondingcurve.Curve
}

type curveParams struct {
	supply, priceStart, priceEnd, divisor uint64
	taxNum, taxDenom                      uint64
	threshold, deadline                   uint64
	balanceB                              uint64
}

func deployToken(t require.TestingT, c *chain.Chain, holder chain.Principal, amount uint64) *token.Token {
	tok, err := chain.Deploy(c, accountA, func(ctx *chain.Context) (*token.Token, error) {
		return token.New(ctx, token.Config{
			Holders: []chain.Principal{holder},
			Amounts: []*uint256.Int{u(amount)},
		})
	})
	require.NoError(t, err)
	return tok
}

// newMarket deploys and funds a curve. accountB holds balanceB of the quote
// token and has approved the curve for both tokens
func newMarket(t require.TestingT, p curveParams) *market {
	c := chain.NewChain()
	m := &market{
		chain:  c,
		tokenA: deployToken(t, c, accountA, p.supply),
		tokenB: deployToken(t, c, accountB, p.balanceB),
	}
	curve, err := chain.Deploy(c, accountA, func(ctx *chain.Context) (*bondingcurve.Curve, error) {
		return bondingcurve.New(ctx, bondingcurve.Config{
			TokenA:            m.tokenA.Address(),
			TokenB:            m.tokenB.Address(),
			Beneficiary:       accountBeneficiary,
			InitialSupply:     u(p.supply),
			PriceStart:        u(p.priceStart),
			PriceEnd:          u(p.priceEnd),
			PriceDivisor:      u(p.divisor),
			TaxNumerator:      u(p.taxNum),
			TaxDenominator:    u(p.taxDenom),
			ThresholdAmount:   u(p.threshold),
			ThresholdDeadline: p.deadline,
		})
	})
	require.NoError(t, err)
	m.curve = curve
	_, err = c.Execute(accountA, func(ctx *chain.Context) error {
		return m.tokenA.Transfer(ctx, curve.Address(), u(p.supply))
	})
	require.NoError(t, err)
	_, err = c.Execute(accountB, func(ctx *chain.Context) error {
		if err := m.tokenB.Approve(ctx, curve.Address(), chain.AllOnes()); err != nil {
			return err
		}
		return m.tokenA.Approve(ctx, curve.Address(), chain.AllOnes())
	})
	require.NoError(t, err)
	return m
}

func (m *market) buy(sender chain.Principal, amount, maxB uint64) (*chain.Receipt, error) {
	return m.chain.Execute(sender, func(ctx *chain.Context) error {
		return m.curve.Buy(ctx, u(amount), u(maxB), chain.NilPrincipal)
	})
}

func (m *market) sell(sender chain.Principal, amount, minB uint64) (*chain.Receipt, error) {
	return m.chain.Execute(sender, func(ctx *chain.Context) error {
		return m.curve.Sell(ctx, u(amount), u(minB), chain.NilPrincipal)
	})
}

func (m *market) enactTransition() (*chain.Receipt, error) {
	return m.chain.Execute(accountA, m.curve.EnactTransition)
}

func TestPriceIsLinear(t *testing.T) {
	testDefs := []struct {
		supply, start, end uint64
	}{
		{53, 3, 10},
		{103, 5, 23},
		{20, 0, 20},
		{40, 30, 2},
	}
	for _, testDef := range testDefs {
		m := newMarket(t, curveParams{
			supply:     testDef.supply,
			priceStart: testDef.start,
			priceEnd:   testDef.end,
			divisor:    1,
			taxDenom:   1,
			deadline:   30,
		})
		var last *uint256.Int
		for i := uint64(0); i <= testDef.supply; i++ {
			value, err := m.curve.CalculateDueBalanceB(u(testDef.supply - i))
			require.NoError(t, err)
			if last != nil {
				require.False(t, value.Gt(last), "due balance increased at step %d", i)
				price := float64(new(uint256.Int).Sub(last, value).Uint64())
				interpolated := float64(testDef.start) + float64(int64(testDef.end)-int64(testDef.start))*float64(i)/float64(testDef.supply)
				assert.InDelta(t, interpolated, price, 1, "supply %d step %d", testDef.supply, i)
			}
			last = value
		}
		assert.True(t, last.IsZero())
	}
}

func TestPriceDivisor(t *testing.T) {
	m := newMarket(t, curveParams{
		supply:     100,
		priceStart: 30,
		priceEnd:   30,
		divisor:    3,
		taxDenom:   1,
	})
	due, err := m.curve.CalculateDueBalanceB(u(100))
	require.NoError(t, err)
	assert.Equal(t, u(1000), due)
	_, err = m.curve.CalculateDueBalanceB(u(101))
	require.ErrorIs(t, err, bondingcurve.ErrInvalidConfig)
}

func TestBuySell(t *testing.T) {
	const supply = 20
	m := newMarket(t, curveParams{
		supply:     supply,
		priceStart: 0,
		priceEnd:   supply,
		divisor:    1,
		taxDenom:   1,
		deadline:   30,
		balanceB:   supply * (supply + 1) / 2,
	})
	balanceB := uint64(supply * (supply + 1) / 2)
	for i := uint64(1); i <= supply; i++ {
		price, err := m.curve.GetBuyPrice()
		require.NoError(t, err)
		assert.Equal(t, u(i), price)
		// One below the price fails the slippage guard
		_, err = m.buy(accountB, 1, i-1)
		require.ErrorIs(t, err, bondingcurve.ErrSlippage)

		receipt, err := m.buy(accountB, 1, i)
		require.NoError(t, err)
		logs := receipt.LogsNamed("Buy")
		require.Len(t, logs, 1)
		amountB, ok := logs[0].Arg("amountB")
		require.True(t, ok)
		assert.Equal(t, u(i), amountB)
		balanceB -= i
		assert.Equal(t, u(balanceB), m.tokenB.BalanceOf(accountB))
	}
	assert.True(t, m.tokenB.BalanceOf(accountB).IsZero())
	assert.True(t, m.curve.BalanceA().IsZero())
	price, err := m.curve.GetBuyPrice()
	require.NoError(t, err)
	assert.True(t, price.IsZero())

	for i := uint64(supply); i >= 1; i-- {
		price, err := m.curve.GetSellPrice()
		require.NoError(t, err)
		assert.Equal(t, u(i), price)
		_, err = m.sell(accountB, 1, i+1)
		require.ErrorIs(t, err, bondingcurve.ErrSlippage)

		receipt, err := m.sell(accountB, 1, i)
		require.NoError(t, err)
		require.Len(t, receipt.LogsNamed("Sell"), 1)
		balanceB += i
		assert.Equal(t, u(balanceB), m.tokenB.BalanceOf(accountB))
	}
	_, err = m.sell(accountB, 1, 0)
	require.ErrorIs(t, err, bondingcurve.ErrSellExceedsSold)
	assert.True(t, m.tokenB.BalanceOf(m.curve.Address()).IsZero())
}

func TestBuyClampsToSupply(t *testing.T) {
	m := newMarket(t, curveParams{
		supply: 10, priceStart: 1, priceEnd: 1, divisor: 1, taxDenom: 1, balanceB: 100,
	})
	_, err := m.buy(accountB, 1000, 1000)
	require.NoError(t, err)
	assert.Equal(t, u(10), m.tokenA.BalanceOf(accountB))
	assert.Equal(t, u(90), m.tokenB.BalanceOf(accountB))
	_, err = m.buy(accountB, 1, 1)
	require.ErrorIs(t, err, bondingcurve.ErrZeroAmount)
}

func TestTaxWithdraw(t *testing.T) {
	const initialBalanceB = 50000000
	m := newMarket(t, curveParams{
		supply:     2000000,
		priceStart: 300,
		priceEnd:   10000,
		divisor:    1,
		taxNum:     1,
		taxDenom:   100,
		deadline:   30,
		balanceB:   initialBalanceB,
	})
	_, err := m.buy(accountB, 100, initialBalanceB)
	require.NoError(t, err)
	paid := initialBalanceB - m.tokenB.BalanceOf(accountB).Uint64()
	tax, err := m.curve.WithdrawableAmount()
	require.NoError(t, err)
	assert.Equal(t, u(paid/100), tax)
	assert.Equal(t, u(paid), m.tokenB.BalanceOf(m.curve.Address()))

	_, err = m.chain.Execute(accountB, func(ctx *chain.Context) error {
		return m.curve.Withdraw(ctx, chain.NilPrincipal, tax)
	})
	require.ErrorIs(t, err, bondingcurve.ErrNotBeneficiary)
	_, err = m.chain.Execute(accountBeneficiary, func(ctx *chain.Context) error {
		return m.curve.Withdraw(ctx, chain.NilPrincipal, new(uint256.Int).AddUint64(tax, 1))
	})
	require.ErrorIs(t, err, bondingcurve.ErrInsufficientWithdrawable)
	_, err = m.chain.Execute(accountBeneficiary, func(ctx *chain.Context) error {
		return m.curve.Withdraw(ctx, chain.NilPrincipal, tax)
	})
	require.NoError(t, err)
	assert.Equal(t, tax, m.tokenB.BalanceOf(accountBeneficiary))

	_, err = m.sell(accountB, 100, 0)
	require.NoError(t, err)
	assert.True(t, m.tokenB.BalanceOf(m.curve.Address()).IsZero())
	assert.Equal(t, new(uint256.Int).Sub(u(initialBalanceB), tax), m.tokenB.BalanceOf(accountB))
	assert.Equal(t, tax, m.tokenB.BalanceOf(accountBeneficiary))
}

func TestTransition(t *testing.T) {
	const (
		initialSupply    = 200
		transitionAmount = 10
		transitionBlocks = 10
	)
	m := newMarket(t, curveParams{
		supply:     initialSupply,
		priceStart: 1,
		priceEnd:   1,
		divisor:    1,
		taxDenom:   1,
		threshold:  transitionAmount,
		deadline:   transitionBlocks,
		balanceB:   initialSupply,
	})
	_, err := m.enactTransition()
	require.ErrorIs(t, err, bondingcurve.ErrNoTransition)

	startBlock := m.chain.BlockNumber()
	receipt, err := m.buy(accountB, initialSupply-transitionAmount, initialSupply-transitionAmount)
	require.NoError(t, err)
	require.Len(t, receipt.LogsNamed("TransitionStart"), 1)
	assert.Equal(t, bondingcurve.TransitionPending, m.curve.TransitionState())
	assert.True(t, m.tokenB.BalanceOf(accountBeneficiary).IsZero())

	require.NoError(t, m.chain.AdvanceTo(startBlock+transitionBlocks/2))
	_, err = m.enactTransition()
	require.ErrorIs(t, err, bondingcurve.ErrTransitionTooEarly)

	require.NoError(t, m.chain.AdvanceTo(startBlock+transitionBlocks+1))
	// Ten units are still for sale
	_, err = m.enactTransition()
	require.ErrorIs(t, err, bondingcurve.ErrAboveThreshold)
	assert.ErrorIs(t, err, chain.ErrTemporal)

	receipt, err = m.sell(accountB, 1, 1)
	require.NoError(t, err)
	require.Len(t, receipt.LogsNamed("TransitionCancel"), 1)
	assert.Equal(t, bondingcurve.TransitionNone, m.curve.TransitionState())

	startBlock = m.chain.BlockNumber()
	receipt, err = m.buy(accountB, transitionAmount+1, transitionAmount+1)
	require.NoError(t, err)
	require.Len(t, receipt.LogsNamed("TransitionStart"), 1)
	assert.Equal(t, startBlock, m.curve.TransitionStartedAt())

	require.NoError(t, m.chain.AdvanceTo(startBlock+transitionBlocks+1))
	receipt, err = m.enactTransition()
	require.NoError(t, err)
	require.Len(t, receipt.LogsNamed("TransitionEnd"), 1)
	_, err = m.enactTransition()
	require.ErrorIs(t, err, bondingcurve.ErrTransitionCompleted)
	assert.ErrorIs(t, err, chain.ErrReentrancy)

	withdrawable, err := m.curve.WithdrawableAmount()
	require.NoError(t, err)
	assert.Equal(t, u(initialSupply), withdrawable)
	_, err = m.chain.Execute(accountBeneficiary, func(ctx *chain.Context) error {
		return m.curve.Withdraw(ctx, chain.NilPrincipal, chain.AllOnes())
	})
	require.NoError(t, err)
	assert.Equal(t, u(initialSupply), m.tokenB.BalanceOf(accountBeneficiary))
	withdrawable, err = m.curve.WithdrawableAmount()
	require.NoError(t, err)
	assert.True(t, withdrawable.IsZero())

	_, err = m.sell(accountB, 1, 0)
	require.ErrorIs(t, err, bondingcurve.ErrTradingClosed)
}

func TestUnfundedCurveReverts(t *testing.T) {
	c := chain.NewChain()
	tokenA := deployToken(t, c, accountA, 10)
	tokenB := deployToken(t, c, accountB, 10)
	curve, err := chain.Deploy(c, accountA, func(ctx *chain.Context) (*bondingcurve.Curve, error) {
		return bondingcurve.New(ctx, bondingcurve.Config{
			TokenA:         tokenA.Address(),
			TokenB:         tokenB.Address(),
			Beneficiary:    accountBeneficiary,
			InitialSupply:  u(10),
			PriceStart:     u(1),
			PriceEnd:       u(1),
			PriceDivisor:   u(1),
			TaxDenominator: u(1),
		})
	})
	require.NoError(t, err)
	_, err = c.Execute(accountB, func(ctx *chain.Context) error {
		if err := tokenB.Approve(ctx, curve.Address(), u(10)); err != nil {
			return err
		}
		return curve.Buy(ctx, u(5), u(5), chain.NilPrincipal)
	})
	require.ErrorIs(t, err, token.ErrInsufficientBalance)
	assert.Equal(t, chain.ErrExternalCall, chain.KindOf(err))
	assert.Equal(t, u(10), curve.BalanceA())
	assert.Equal(t, u(10), tokenB.BalanceOf(accountB))
	assert.True(t, tokenB.Allowance(accountB, curve.Address()).IsZero())
}

func TestInvalidConfig(t *testing.T) {
	c := chain.NewChain()
	testDefs := []bondingcurve.Config{
		{PriceDivisor: u(1), TaxDenominator: u(1)},
		{InitialSupply: u(1), TaxDenominator: u(1)},
		{InitialSupply: u(1), PriceDivisor: u(1)},
		{InitialSupply: u(1), PriceDivisor: u(1), TaxNumerator: u(2), TaxDenominator: u(1)},
	}
	for _, cfg := range testDefs {
		_, err := chain.Deploy(c, accountA, func(ctx *chain.Context) (*bondingcurve.Curve, error) {
			return bondingcurve.New(ctx, cfg)
		})
		require.ErrorIs(t, err, bondingcurve.ErrInvalidConfig)
	}
}

func TestDueBalanceMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		supply := rapid.Uint64Range(1, 1_000_000).Draw(t, "supply")
		m := newMarket(t, curveParams{
			supply:     supply,
			priceStart: rapid.Uint64Range(0, 1_000_000).Draw(t, "priceStart"),
			priceEnd:   rapid.Uint64Range(0, 1_000_000).Draw(t, "priceEnd"),
			divisor:    rapid.Uint64Range(1, 1000).Draw(t, "divisor"),
			taxDenom:   1,
		})
		a := rapid.Uint64Range(0, supply).Draw(t, "a")
		b := rapid.Uint64Range(a, supply).Draw(t, "b")
		dueA, err := m.curve.CalculateDueBalanceB(u(a))
		require.NoError(t, err)
		dueB, err := m.curve.CalculateDueBalanceB(u(b))
		require.NoError(t, err)
		if dueA.Gt(dueB) {
			t.Fatalf("due(%d)=%s > due(%d)=%s", a, dueA.Dec(), b, dueB.Dec())
		}
	})
}

func TestTradingConservesReserve(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		const supply = 1000
		taxNum := rapid.Uint64Range(0, 10).Draw(t, "taxNum")
		m := newMarket(t, curveParams{
			supply:     supply,
			priceStart: rapid.Uint64Range(0, 500).Draw(t, "priceStart"),
			priceEnd:   rapid.Uint64Range(0, 500).Draw(t, "priceEnd"),
			divisor:    rapid.Uint64Range(1, 7).Draw(t, "divisor"),
			taxNum:     taxNum,
			taxDenom:   100,
			balanceB:   1_000_000_000,
		})
		steps := rapid.IntRange(1, 20).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			sold := supply - m.curve.BalanceA().Uint64()
			if sold > 0 && rapid.Bool().Draw(t, "sell") {
				amount := rapid.Uint64Range(1, sold).Draw(t, "amount")
				_, err := m.sell(accountB, amount, 0)
				require.NoError(t, err)
			} else if sold < supply {
				amount := rapid.Uint64Range(1, supply-sold).Draw(t, "amount")
				_, err := m.buy(accountB, amount, 1_000_000_000)
				require.NoError(t, err)
			}
		}
		// Selling everything back leaves exactly the tax on the curve
		if sold := supply - m.curve.BalanceA().Uint64(); sold > 0 {
			_, err := m.sell(accountB, sold, 0)
			require.NoError(t, err)
		}
		withdrawable, err := m.curve.WithdrawableAmount()
		require.NoError(t, err)
		assert.Equal(t, withdrawable, m.tokenB.BalanceOf(m.curve.Address()))
		if taxNum == 0 {
			assert.True(t, withdrawable.IsZero())
		}
	})
}

func TestDispatch(t *testing.T) {
	m := newMarket(t, curveParams{
		supply: 10, priceStart: 2, priceEnd: 2, divisor: 1, taxDenom: 1, balanceB: 100,
	})
	var out []byte
	_, err := m.chain.Execute(accountB, func(ctx *chain.Context) error {
		if _, err := ctx.Call(m.curve.Address(), bondingcurve.MethodBuy.MustPack(big.NewInt(4), big.NewInt(8), accountA)); err != nil {
			return err
		}
		var err error
		out, err = ctx.Call(m.curve.Address(), bondingcurve.MethodBalanceA.MustPack())
		return err
	})
	require.NoError(t, err)
	values, err := bondingcurve.MethodBalanceA.UnpackOutputs(out)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, big.NewInt(6), values[0])
	assert.Equal(t, u(92), m.tokenB.BalanceOf(accountB))
}
