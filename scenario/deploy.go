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


package scenario

import (
	"fmt"
	"strings"

	"github.com/blinklabs-io/gavel/allocation"
	"github.com/blinklabs-io/gavel/bondingcurve"
	"github.com/blinklabs-io/gavel/chain"
	"github.com/blinklabs-io/gavel/group"
	"github.com/blinklabs-io/gavel/locker"
	"github.com/blinklabs-io/gavel/token"
	"github.com/blinklabs-io/gavel/vesting"
	"github.com/blinklabs-io/gavel/voting"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"
)

type deployFunc func(r *Runner, deployer chain.Principal, params *yaml.Node) (chain.Contract, error)

// kinds maps each deployment kind to its constructor
var kinds = map[string]deployFunc{
	"token":         deployToken,
	"group":         deployGroup,
	"voting":        deployVoting,
	"bondingcurve":  deployBondingCurve,
	"allocation":    deployAllocation,
	"vesting":       deployVesting,
	"linearvesting": deployLinearVesting,
	"locker":        deployLocker,
}

func decodeParams(params *yaml.Node, out any) error {
	// Kinds with every parameter optional may omit params entirely
	if params.Kind == 0 {
		return nil
	}
	if err := params.Decode(out); err != nil {
		return fmt.Errorf("%w: line %d: %s", ErrInvalidValue, params.Line, err)
	}
	return nil
}

// amount parses an optional 256-bit amount. An empty string is nil
func (r *Runner) amount(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, nil
	}
	if name, ok := strings.CutPrefix(s, "$"); ok {
		val, ok := r.vars[name]
		if !ok {
			return nil, fmt.Errorf("%w: $%s", ErrUnknownVariable, name)
		}
		s = val
	}
	if s == "max" {
		return chain.AllOnes(), nil
	}
	ret, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %s", ErrInvalidValue, s, err)
	}
	return ret, nil
}

// principal resolves an optional name. An empty string is the nil principal
func (r *Runner) principal(name string) (chain.Principal, error) {
	if name == "" {
		return chain.NilPrincipal, nil
	}
	return r.resolve(name)
}

func (r *Runner) principals(names []string) ([]chain.Principal, error) {
	ret := make([]chain.Principal, 0, len(names))
	for _, name := range names {
		p, err := r.resolve(name)
		if err != nil {
			return nil, err
		}
		ret = append(ret, p)
	}
	return ret, nil
}

type tokenParams struct {
	Name     string `yaml:"name"`
	Symbol   string `yaml:"symbol"`
	Decimals uint8  `yaml:"decimals"`
	Balances []struct {
		Holder string `yaml:"holder"`
		Amount string `yaml:"amount"`
	} `yaml:"balances"`
	Minters []string `yaml:"minters"`
}

func deployToken(r *Runner, deployer chain.Principal, params *yaml.Node) (chain.Contract, error) {
	var p tokenParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	cfg := token.Config{
		Name:     p.Name,
		Symbol:   p.Symbol,
		Decimals: p.Decimals,
	}
	for _, balance := range p.Balances {
		holder, err := r.resolve(balance.Holder)
		if err != nil {
			return nil, err
		}
		amount, err := r.amount(balance.Amount)
		if err != nil {
			return nil, err
		}
		if amount == nil {
			amount = new(uint256.Int)
		}
		cfg.Holders = append(cfg.Holders, holder)
		cfg.Amounts = append(cfg.Amounts, amount)
	}
	minters, err := r.principals(p.Minters)
	if err != nil {
		return nil, err
	}
	cfg.Minters = minters
	return chain.Deploy(r.chain, deployer, func(ctx *chain.Context) (*token.Token, error) {
		return token.New(ctx, cfg)
	})
}

type groupParams struct {
	Members []struct {
		Member string `yaml:"member"`
		Weight *int64 `yaml:"weight"`
	} `yaml:"members"`
	Owner      string `yaml:"owner"`
	Delegation bool   `yaml:"delegation"`
}

func deployGroup(r *Runner, deployer chain.Principal, params *yaml.Node) (chain.Contract, error) {
	var p groupParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	owner, err := r.principal(p.Owner)
	if err != nil {
		return nil, err
	}
	cfg := group.Config{
		Owner:      owner,
		Delegation: p.Delegation,
	}
	for _, m := range p.Members {
		member, err := r.resolve(m.Member)
		if err != nil {
			return nil, err
		}
		weight := int64(1)
		if m.Weight != nil {
			weight = *m.Weight
		}
		cfg.Members = append(cfg.Members, member)
		cfg.Weights = append(cfg.Weights, weight)
	}
	return chain.Deploy(r.chain, deployer, func(ctx *chain.Context) (*group.Group, error) {
		return group.New(ctx, cfg)
	})
}

type votingParams struct {
	Owner        string `yaml:"owner"`
	Proposer     string `yaml:"proposer"`
	Enacter      string `yaml:"enacter"`
	Source       string `yaml:"source"`
	VoteDeadline uint64 `yaml:"voteDeadline"`
	EnactDelay   uint64 `yaml:"enactDelay"`
	// Quorum is a fraction written as "required/total"
	Quorum string `yaml:"quorum"`
}

func deployVoting(r *Runner, deployer chain.Principal, params *yaml.Node) (chain.Contract, error) {
	var p votingParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	cfg := voting.Config{
		VoteDeadline: p.VoteDeadline,
		EnactDelay:   p.EnactDelay,
		Metrics:      r.votingMetrics(),
	}
	var err error
	if cfg.Owner, err = r.principal(p.Owner); err != nil {
		return nil, err
	}
	if cfg.ProposerACL, err = r.principal(p.Proposer); err != nil {
		return nil, err
	}
	if cfg.EnacterACL, err = r.principal(p.Enacter); err != nil {
		return nil, err
	}
	if cfg.Source, err = r.resolve(p.Source); err != nil {
		return nil, err
	}
	if p.Quorum != "" {
		num, denom, ok := strings.Cut(p.Quorum, "/")
		if !ok {
			return nil, fmt.Errorf("%w: quorum %q is not a fraction", ErrInvalidValue, p.Quorum)
		}
		required, err := r.amount(num)
		if err != nil {
			return nil, err
		}
		total, err := r.amount(denom)
		if err != nil {
			return nil, err
		}
		if required == nil || total == nil || required.Gt(total) {
			return nil, fmt.Errorf("%w: quorum %q", ErrInvalidValue, p.Quorum)
		}
		cfg.Quorum = voting.EncodeQuorum(required, total)
	}
	return chain.Deploy(r.chain, deployer, func(ctx *chain.Context) (*voting.Engine, error) {
		return voting.New(ctx, cfg)
	})
}

type bondingCurveParams struct {
	TokenA            string `yaml:"tokenA"`
	TokenB            string `yaml:"tokenB"`
	Beneficiary       string `yaml:"beneficiary"`
	InitialSupply     string `yaml:"initialSupply"`
	PriceStart        string `yaml:"priceStart"`
	PriceEnd          string `yaml:"priceEnd"`
	PriceDivisor      string `yaml:"priceDivisor"`
	TaxNumerator      string `yaml:"taxNumerator"`
	TaxDenominator    string `yaml:"taxDenominator"`
	ThresholdAmount   string `yaml:"thresholdAmount"`
	ThresholdDeadline uint64 `yaml:"thresholdDeadline"`
}

func deployBondingCurve(r *Runner, deployer chain.Principal, params *yaml.Node) (chain.Contract, error) {
	var p bondingCurveParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	cfg := bondingcurve.Config{
		ThresholdDeadline: p.ThresholdDeadline,
		Metrics:           r.curveMetrics(),
	}
	var err error
	if cfg.TokenA, err = r.resolve(p.TokenA); err != nil {
		return nil, err
	}
	if cfg.TokenB, err = r.resolve(p.TokenB); err != nil {
		return nil, err
	}
	if cfg.Beneficiary, err = r.principal(p.Beneficiary); err != nil {
		return nil, err
	}
	for _, field := range []struct {
		dst **uint256.Int
		src string
	}{
		{&cfg.InitialSupply, p.InitialSupply},
		{&cfg.PriceStart, p.PriceStart},
		{&cfg.PriceEnd, p.PriceEnd},
		{&cfg.PriceDivisor, p.PriceDivisor},
		{&cfg.TaxNumerator, p.TaxNumerator},
		{&cfg.TaxDenominator, p.TaxDenominator},
		{&cfg.ThresholdAmount, p.ThresholdAmount},
	} {
		if *field.dst, err = r.amount(field.src); err != nil {
			return nil, err
		}
	}
	return chain.Deploy(r.chain, deployer, func(ctx *chain.Context) (*bondingcurve.Curve, error) {
		return bondingcurve.New(ctx, cfg)
	})
}

type allocationParams struct {
	Authority           string   `yaml:"authority"`
	DefaultLockDuration uint64   `yaml:"defaultLockDuration"`
	GlobalSupervisors   []string `yaml:"globalSupervisors"`
}

func deployAllocation(r *Runner, deployer chain.Principal, params *yaml.Node) (chain.Contract, error) {
	var p allocationParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	authority, err := r.principal(p.Authority)
	if err != nil {
		return nil, err
	}
	supervisors, err := r.principals(p.GlobalSupervisors)
	if err != nil {
		return nil, err
	}
	cfg := allocation.Config{
		Authority:           authority,
		DefaultLockDuration: p.DefaultLockDuration,
		GlobalSupervisors:   supervisors,
	}
	return chain.Deploy(r.chain, deployer, func(ctx *chain.Context) (*allocation.Ledger, error) {
		return allocation.New(ctx, cfg)
	})
}

type vestingParams struct {
	Token  string `yaml:"token"`
	Name   string `yaml:"name"`
	Symbol string `yaml:"symbol"`
}

func deployVesting(r *Runner, deployer chain.Principal, params *yaml.Node) (chain.Contract, error) {
	var p vestingParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	tokenAddr, err := r.resolve(p.Token)
	if err != nil {
		return nil, err
	}
	cfg := vesting.Config{
		Token:  tokenAddr,
		Name:   p.Name,
		Symbol: p.Symbol,
	}
	return chain.Deploy(r.chain, deployer, func(ctx *chain.Context) (*vesting.Engine, error) {
		return vesting.New(ctx, cfg)
	})
}

type linearVestingParams struct {
	Token        string `yaml:"token"`
	Owner        string `yaml:"owner"`
	Beneficiary  string `yaml:"beneficiary"`
	Start        uint64 `yaml:"start"`
	Duration     uint64 `yaml:"duration"`
	Installments uint64 `yaml:"installments"`
}

func deployLinearVesting(r *Runner, deployer chain.Principal, params *yaml.Node) (chain.Contract, error) {
	var p linearVestingParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	cfg := vesting.LinearConfig{
		Start:        p.Start,
		Duration:     p.Duration,
		Installments: p.Installments,
	}
	var err error
	if cfg.Token, err = r.resolve(p.Token); err != nil {
		return nil, err
	}
	if cfg.Owner, err = r.principal(p.Owner); err != nil {
		return nil, err
	}
	if cfg.Beneficiary, err = r.resolve(p.Beneficiary); err != nil {
		return nil, err
	}
	return chain.Deploy(r.chain, deployer, func(ctx *chain.Context) (*vesting.Linear, error) {
		return vesting.NewLinear(ctx, cfg)
	})
}

type lockerParams struct {
	Token       string `yaml:"token"`
	LockedToken string `yaml:"lockedToken"`
	Owner       string `yaml:"owner"`
	LockTime    uint64 `yaml:"lockTime"`
}

func deployLocker(r *Runner, deployer chain.Principal, params *yaml.Node) (chain.Contract, error) {
	var p lockerParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	cfg := locker.Config{
		LockTime: p.LockTime,
	}
	var err error
	if cfg.Token, err = r.resolve(p.Token); err != nil {
		return nil, err
	}
	if cfg.LockedToken, err = r.resolve(p.LockedToken); err != nil {
		return nil, err
	}
	if cfg.Owner, err = r.principal(p.Owner); err != nil {
		return nil, err
	}
	return chain.Deploy(r.chain, deployer, func(ctx *chain.Context) (*locker.Locker, error) {
		return locker.New(ctx, cfg)
	})
}
