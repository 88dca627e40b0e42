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
	"github.com/blinklabs-io/gavel/token"
)

// TransitionState is the phase of the supply threshold transition
type TransitionState uint8

const (
	TransitionNone TransitionState = iota
	TransitionPending
	TransitionCompleted
)

func (s TransitionState) String() string {
	switch s {
	case TransitionPending:
		return "pending"
	case TransitionCompleted:
		return "completed"
	default:
		return "none"
	}
}

// Config holds the constructor parameters
type Config struct {
	// TokenA is the base token sold by the curve, TokenB the quote token paid for it
	TokenA      chain.Principal
	TokenB      chain.Principal
	Beneficiary chain.Principal
	// InitialSupply is the amount of TokenA the curve is funded with
	InitialSupply *uint256.Int
	// The unit price moves linearly from PriceStart/PriceDivisor for the first
	// unit sold to PriceEnd/PriceDivisor for the last
	PriceStart     *uint256.Int
	PriceEnd       *uint256.Int
	PriceDivisor   *uint256.Int
	TaxNumerator   *uint256.Int
	TaxDenominator *uint256.Int
	// A transition starts once the remaining supply falls to ThresholdAmount
	// and may be enacted ThresholdDeadline blocks later
	ThresholdAmount   *uint256.Int
	ThresholdDeadline uint64
	Metrics           *Metrics
}

type Curve struct {
	address           chain.Principal
	chain             *chain.Chain
	tokenA            chain.Principal
	tokenB            chain.Principal
	beneficiary       chain.Principal
	pricing           pricing
	threshold         uint256.Int
	thresholdDeadline uint64
	// balanceA is the remaining supply of TokenA held for sale
	balanceA uint256.Int
	// taxPool is the withdrawable tax not yet paid out
	taxPool uint256.Int
	// reserveWithdrawn is the part of the reserve paid out after the transition
	reserveWithdrawn  uint256.Int
	state             TransitionState
	transitionStarted uint64
	metrics           *Metrics
	dispatcher        *chain.Dispatcher
}

// New constructs a bonding curve in the deploying frame. The curve must be
// funded with InitialSupply of TokenA before trading
func New(ctx *chain.Context, cfg Config) (*Curve, error) {
	if cfg.InitialSupply == nil || cfg.InitialSupply.IsZero() {
		return nil, ErrInvalidConfig
	}
	if cfg.PriceDivisor == nil || cfg.PriceDivisor.IsZero() {
		return nil, ErrInvalidConfig
	}
	if cfg.TaxDenominator == nil || cfg.TaxDenominator.IsZero() {
		return nil, ErrInvalidConfig
	}
	taxNum := chain.CopyAmount(cfg.TaxNumerator)
	if taxNum.Gt(cfg.TaxDenominator) {
		return nil, ErrInvalidConfig
	}
	c := &Curve{
		address:           ctx.Self(),
		chain:             ctx.Chain(),
		tokenA:            cfg.TokenA,
		tokenB:            cfg.TokenB,
		beneficiary:       cfg.Beneficiary,
		thresholdDeadline: cfg.ThresholdDeadline,
		metrics:           cfg.Metrics,
	}
	c.pricing.n.Set(cfg.InitialSupply)
	c.pricing.start.Set(chain.CopyAmount(cfg.PriceStart))
	c.pricing.end.Set(chain.CopyAmount(cfg.PriceEnd))
	c.pricing.divisor.Set(cfg.PriceDivisor)
	c.pricing.taxNum.Set(taxNum)
	c.pricing.taxDenom.Set(cfg.TaxDenominator)
	full, err := c.pricing.due(cfg.InitialSupply)
	if err != nil {
		return nil, err
	}
	c.pricing.full.Set(full)
	c.threshold.Set(chain.CopyAmount(cfg.ThresholdAmount))
	c.balanceA.Set(cfg.InitialSupply)
	c.dispatcher = c.newDispatcher()
	return c, nil
}

func (c *Curve) Address() chain.Principal {
	return c.address
}

func (c *Curve) TokenA() chain.Principal {
	return c.tokenA
}

func (c *Curve) TokenB() chain.Principal {
	return c.tokenB
}

func (c *Curve) Beneficiary() chain.Principal {
	return c.beneficiary
}

// BalanceA returns the remaining supply held for sale
func (c *Curve) BalanceA() *uint256.Int {
	return new(uint256.Int).Set(&c.balanceA)
}

func (c *Curve) TransitionState() TransitionState {
	return c.state
}

// TransitionStartedAt returns the block the pending transition started at
func (c *Curve) TransitionStartedAt() uint64 {
	return c.transitionStarted
}

// CalculateDueBalanceB returns the cost of buying supply units down to zero
func (c *Curve) CalculateDueBalanceB(supply *uint256.Int) (*uint256.Int, error) {
	if supply.Gt(&c.pricing.n) {
		return nil, ErrInvalidConfig
	}
	return c.pricing.due(supply)
}

// GetBuyTotal returns the quote cost of buying amount, clamped to the remaining supply
func (c *Curve) GetBuyTotal(amount *uint256.Int) (*uint256.Int, error) {
	return c.pricing.buyCost(&c.balanceA, chain.MinAmount(amount, &c.balanceA))
}

// GetSellTotal returns the quote proceeds of selling amount back to the curve
func (c *Curve) GetSellTotal(amount *uint256.Int) (*uint256.Int, error) {
	if err := c.checkSellable(amount); err != nil {
		return nil, err
	}
	return c.pricing.sellProceeds(&c.balanceA, amount)
}

// GetBuyPrice returns the cost of the next unit, or zero when sold out
func (c *Curve) GetBuyPrice() (*uint256.Int, error) {
	return c.GetBuyTotal(uint256.NewInt(1))
}

// GetSellPrice returns the proceeds of selling one unit, or zero when nothing was sold
func (c *Curve) GetSellPrice() (*uint256.Int, error) {
	if c.balanceA.Eq(&c.pricing.n) {
		return new(uint256.Int), nil
	}
	return c.GetSellTotal(uint256.NewInt(1))
}

// WithdrawableAmount returns the quote balance the beneficiary can withdraw:
// the tax pool, or everything held once the transition completed
func (c *Curve) WithdrawableAmount() (*uint256.Int, error) {
	if c.state != TransitionCompleted {
		return new(uint256.Int).Set(&c.taxPool), nil
	}
	reserve, err := c.pricing.reserve(&c.balanceA)
	if err != nil {
		return nil, err
	}
	reserve = chain.SaturatingSub(reserve, &c.reserveWithdrawn)
	return chain.Add(reserve, &c.taxPool)
}

func (c *Curve) checkSellable(amount *uint256.Int) error {
	sold := new(uint256.Int).Sub(&c.pricing.n, &c.balanceA)
	if amount.Gt(sold) {
		return ErrSellExceedsSold
	}
	return nil
}

func (c *Curve) fungible(addr chain.Principal) (token.Fungible, error) {
	t, err := chain.ContractAs[token.Fungible](c.chain, addr)
	if err != nil {
		return nil, chain.NewExternalCallError(addr, err)
	}
	return t, nil
}

func (c *Curve) emitReferral(ctx *chain.Context, referrer, account chain.Principal, amountB *uint256.Int) {
	if chain.IsNil(referrer) {
		return
	}
	ctx.Emit(
		"Referral",
		chain.Indexed("referrer", referrer),
		chain.Indexed("account", account),
		chain.Data("amountB", chain.CopyAmount(amountB)),
	)
}

// Buy takes up to amountA of the base token from the curve for at most
// maxAmountB of the quote token. Amounts above the remaining supply are clamped
func (c *Curve) Buy(ctx *chain.Context, amountA, maxAmountB *uint256.Int, referrer chain.Principal) error {
	return ctx.Invoke(c.address, func(frame *chain.Context) error {
		if c.state == TransitionCompleted {
			return ErrTradingClosed
		}
		amount := new(uint256.Int).Set(chain.MinAmount(amountA, &c.balanceA))
		if amount.IsZero() {
			return ErrZeroAmount
		}
		cost, err := c.pricing.buyCost(&c.balanceA, amount)
		if err != nil {
			return err
		}
		if cost.Gt(maxAmountB) {
			return ErrSlippage
		}
		remaining := new(uint256.Int).Sub(&c.balanceA, amount)
		reserveBefore, err := c.pricing.reserve(&c.balanceA)
		if err != nil {
			return err
		}
		reserveAfter, err := c.pricing.reserve(remaining)
		if err != nil {
			return err
		}
		// Tax is the part of the cost not backing the supply sold
		tax := new(uint256.Int).Sub(cost, new(uint256.Int).Sub(reserveAfter, reserveBefore))
		j := frame.Journal()
		chain.Store(j, &c.balanceA, *remaining)
		chain.Store(j, &c.taxPool, *new(uint256.Int).Add(&c.taxPool, tax))

		buyer := frame.Caller()
		tokenB, err := c.fungible(c.tokenB)
		if err != nil {
			return err
		}
		if err := tokenB.TransferFrom(frame, buyer, c.address, cost); err != nil {
			return chain.NewExternalCallError(c.tokenB, err)
		}
		tokenA, err := c.fungible(c.tokenA)
		if err != nil {
			return err
		}
		if err := tokenA.Transfer(frame, buyer, amount); err != nil {
			return chain.NewExternalCallError(c.tokenA, err)
		}
		frame.Emit(
			"Buy",
			chain.Indexed("buyer", buyer),
			chain.Data("amountA", amount),
			chain.Data("amountB", cost),
		)
		c.emitReferral(frame, referrer, buyer, cost)
		if c.state == TransitionNone && !c.balanceA.Gt(&c.threshold) {
			chain.Store(j, &c.state, TransitionPending)
			chain.Store(j, &c.transitionStarted, frame.Block())
			frame.Emit("TransitionStart", chain.Data("block", frame.Block()))
		}
		if c.metrics != nil {
			state := c.state
			frame.OnCommit(func() {
				c.metrics.buys.Inc()
				c.metrics.transitionState.Set(float64(state))
			})
		}
		return nil
	})
}

// Sell returns amountA of the base token to the curve for at least minAmountB
// of the quote token. Raising the supply above the threshold cancels a pending transition
func (c *Curve) Sell(ctx *chain.Context, amountA, minAmountB *uint256.Int, referrer chain.Principal) error {
	return ctx.Invoke(c.address, func(frame *chain.Context) error {
		if c.state == TransitionCompleted {
			return ErrTradingClosed
		}
		if amountA.IsZero() {
			return ErrZeroAmount
		}
		if err := c.checkSellable(amountA); err != nil {
			return err
		}
		proceeds, err := c.pricing.sellProceeds(&c.balanceA, amountA)
		if err != nil {
			return err
		}
		if proceeds.Lt(minAmountB) {
			return ErrSlippage
		}
		j := frame.Journal()
		chain.Store(j, &c.balanceA, *new(uint256.Int).Add(&c.balanceA, amountA))

		seller := frame.Caller()
		tokenA, err := c.fungible(c.tokenA)
		if err != nil {
			return err
		}
		if err := tokenA.TransferFrom(frame, seller, c.address, amountA); err != nil {
			return chain.NewExternalCallError(c.tokenA, err)
		}
		tokenB, err := c.fungible(c.tokenB)
		if err != nil {
			return err
		}
		if err := tokenB.Transfer(frame, seller, proceeds); err != nil {
			return chain.NewExternalCallError(c.tokenB, err)
		}
		frame.Emit(
			"Sell",
			chain.Indexed("seller", seller),
			chain.Data("amountA", chain.CopyAmount(amountA)),
			chain.Data("amountB", proceeds),
		)
		c.emitReferral(frame, referrer, seller, proceeds)
		if c.state == TransitionPending && c.balanceA.Gt(&c.threshold) {
			chain.Store(j, &c.state, TransitionNone)
			chain.Store(j, &c.transitionStarted, 0)
			frame.Emit("TransitionCancel")
		}
		if c.metrics != nil {
			state := c.state
			frame.OnCommit(func() {
				c.metrics.sells.Inc()
				c.metrics.transitionState.Set(float64(state))
			})
		}
		return nil
	})
}

// EnactTransition completes a pending transition once its deadline passed and
// the remaining supply is below the threshold or exhausted
func (c *Curve) EnactTransition(ctx *chain.Context) error {
	return ctx.Invoke(c.address, func(frame *chain.Context) error {
		switch c.state {
		case TransitionCompleted:
			return ErrTransitionCompleted
		case TransitionNone:
			return ErrNoTransition
		}
		if frame.Block() < c.transitionStarted+c.thresholdDeadline {
			return ErrTransitionTooEarly
		}
		if !c.balanceA.IsZero() && !c.balanceA.Lt(&c.threshold) {
			return ErrAboveThreshold
		}
		chain.Store(frame.Journal(), &c.state, TransitionCompleted)
		frame.Emit("TransitionEnd")
		if c.metrics != nil {
			frame.OnCommit(func() {
				c.metrics.transitionState.Set(float64(TransitionCompleted))
			})
		}
		return nil
	})
}

// Withdraw pays amount of the withdrawable quote balance to recipient, or to
// the beneficiary when recipient is nil. An all-ones amount withdraws everything
func (c *Curve) Withdraw(ctx *chain.Context, recipient chain.Principal, amount *uint256.Int) error {
	return ctx.Invoke(c.address, func(frame *chain.Context) error {
		if frame.Caller() != c.beneficiary {
			return ErrNotBeneficiary
		}
		available, err := c.WithdrawableAmount()
		if err != nil {
			return err
		}
		if chain.IsAllOnes(amount) {
			amount = available
		}
		if amount.Gt(available) {
			return ErrInsufficientWithdrawable
		}
		j := frame.Journal()
		if amount.Gt(&c.taxPool) {
			// Only reachable after the transition, the rest comes out of the reserve
			fromReserve := new(uint256.Int).Sub(amount, &c.taxPool)
			chain.Store(j, &c.reserveWithdrawn, *new(uint256.Int).Add(&c.reserveWithdrawn, fromReserve))
			chain.Store(j, &c.taxPool, uint256.Int{})
		} else {
			chain.Store(j, &c.taxPool, *new(uint256.Int).Sub(&c.taxPool, amount))
		}
		if chain.IsNil(recipient) {
			recipient = c.beneficiary
		}
		tokenB, err := c.fungible(c.tokenB)
		if err != nil {
			return err
		}
		if err := tokenB.Transfer(frame, recipient, amount); err != nil {
			return chain.NewExternalCallError(c.tokenB, err)
		}
		frame.Emit(
			"Withdraw",
			chain.Indexed("recipient", recipient),
			chain.Data("amount", chain.CopyAmount(amount)),
		)
		return nil
	})
}
