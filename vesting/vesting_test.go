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

package vesting_test

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/blinklabs-io/gavel/chain"
	"github.com/blinklabs-io/gavel/token"
	"github.com/blinklabs-io/gavel/vesting"
)

var (
	accountA = chain.PrincipalFromName("a")
	accountB = chain.PrincipalFromName("b")
	accountC = chain.PrincipalFromName("c")

	errTransfersDisabled = errors.New("transfers disabled")
)

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// mockToken is a minimal fungible token whose outgoing transfers can be
// switched off
type mockToken struct {
	address  chain.Principal
	balances map[chain.Principal]uint256.Int
	fail     bool
}

func (m *mockToken) Address() chain.Principal {
	return m.address
}

func (m *mockToken) BalanceOf(account chain.Principal) *uint256.Int {
	v := m.balances[account]
	return new(uint256.Int).Set(&v)
}

func (m *mockToken) move(j *chain.Journal, from, to chain.Principal, amount *uint256.Int) error {
	if m.fail {
		return errTransfersDisabled
	}
	balance := m.balances[from]
	remaining, err := chain.Sub(&balance, amount)
	if err != nil {
		return token.ErrInsufficientBalance
	}
	chain.StoreMap(j, m.balances, from, *remaining)
	credited := m.balances[to]
	chain.StoreMap(j, m.balances, to, *new(uint256.Int).Add(&credited, amount))
	return nil
}

func (m *mockToken) Transfer(ctx *chain.Context, to chain.Principal, amount *uint256.Int) error {
	return ctx.Invoke(m.address, func(frame *chain.Context) error {
		return m.move(frame.Journal(), frame.Caller(), to, amount)
	})
}

func (m *mockToken) TransferFrom(ctx *chain.Context, from, to chain.Principal, amount *uint256.Int) error {
	return ctx.Invoke(m.address, func(frame *chain.Context) error {
		return m.move(frame.Journal(), from, to, amount)
	})
}

// deposit moves amount to a receiver and notifies it like TransferAndCall
func (m *mockToken) deposit(ctx *chain.Context, to chain.Principal, amount *uint256.Int, data []byte) error {
	return ctx.Invoke(m.address, func(frame *chain.Context) error {
		from := frame.Caller()
		if err := m.move(frame.Journal(), from, to, amount); err != nil {
			return err
		}
		receiver, err := chain.ContractAs[token.TransferReceiver](frame.Chain(), to)
		if err != nil {
			return err
		}
		_, err = receiver.OnTransferReceived(frame, from, from, amount, data)
		return err
	})
}

type fixture struct {
	chain   *chain.Chain
	token   *mockToken
	vesting *vesting.Engine
}

func newFixture(t require.TestingT) *fixture {
	c := chain.NewChain()
	tok, err := chain.Deploy(c, accountA, func(ctx *chain.Context) (*mockToken, error) {
		m := &mockToken{
			address:  ctx.Self(),
			balances: make(map[chain.Principal]uint256.Int),
		}
		m.balances[accountA] = *u(1_000_000)
		return m, nil
	})
	require.NoError(t, err)
	engine, err := chain.Deploy(c, accountA, func(ctx *chain.Context) (*vesting.Engine, error) {
		return vesting.New(ctx, vesting.Config{
			Token:  tok.Address(),
			Name:   "Vested TEST",
			Symbol: "VTEST",
		})
	})
	require.NoError(t, err)
	return &fixture{chain: c, token: tok, vesting: engine}
}

func (f *fixture) deposit(sender, target chain.Principal, amount uint64, schedule vesting.Schedule) (*chain.Receipt, error) {
	data, err := vesting.EncodeDeposit(target, schedule)
	if err != nil {
		return nil, err
	}
	return f.chain.Execute(sender, func(ctx *chain.Context) error {
		return f.token.deposit(ctx, f.vesting.Address(), u(amount), data)
	})
}

func (f *fixture) claim(sender chain.Principal, id uint64) (*chain.Receipt, error) {
	return f.chain.Execute(sender, func(ctx *chain.Context) error {
		return f.vesting.Claim(ctx, id, chain.NilPrincipal)
	})
}

func requireTransferLog(t *testing.T, receipt *chain.Receipt, from, to chain.Principal, id uint64) {
	t.Helper()
	logs := receipt.LogsNamed("Transfer")
	require.Len(t, logs, 1)
	for name, expected := range map[string]any{"from": from, "to": to, "id": id} {
		value, ok := logs[0].Arg(name)
		require.True(t, ok)
		assert.Equal(t, expected, value, name)
	}
}

func TestBasicDeployment(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "Vested TEST", f.vesting.Name())
	assert.Equal(t, "VTEST", f.vesting.Symbol())
	assert.Equal(t, f.token.Address(), f.vesting.Token())
}

func TestDepositCreatesPosition(t *testing.T) {
	f := newFixture(t)
	schedule := vesting.Schedule{Start: f.chain.BlockNumber() + 100, PeriodCount: 5, PeriodBlocks: 10}

	// Only the escrowed token may notify the engine
	_, err := f.chain.Execute(accountA, func(ctx *chain.Context) error {
		data, err := vesting.EncodeDeposit(accountB, schedule)
		if err != nil {
			return err
		}
		_, err = f.vesting.OnTransferReceived(ctx, accountA, accountA, u(100), data)
		return err
	})
	require.ErrorIs(t, err, vesting.ErrNotToken)

	receipt, err := f.deposit(accountA, accountB, 100, schedule)
	require.NoError(t, err)
	requireTransferLog(t, receipt, chain.NilPrincipal, accountB, 0)

	receipt, err = f.deposit(accountA, chain.NilPrincipal, 100, schedule)
	require.NoError(t, err)
	requireTransferLog(t, receipt, chain.NilPrincipal, accountA, 1)

	assert.Equal(t, u(200), f.token.BalanceOf(f.vesting.Address()))
	assert.Equal(t, uint64(1), f.vesting.BalanceOf(accountB))
	position, ok := f.vesting.Position(0)
	require.True(t, ok)
	assert.Equal(t, u(100), &position.Amount)
	assert.Equal(t, schedule, position.Schedule)
}

func TestDepositRejectsInvalidData(t *testing.T) {
	f := newFixture(t)
	testDefs := []struct {
		name     string
		data     func() []byte
		amount   uint64
		expected error
	}{
		{
			name: "zero period count",
			data: func() []byte {
				data, _ := vesting.EncodeDeposit(accountB, vesting.Schedule{PeriodBlocks: 10})
				return data
			},
			amount:   100,
			expected: vesting.ErrInvalidSchedule,
		},
		{
			name: "zero period length",
			data: func() []byte {
				data, _ := vesting.EncodeDeposit(accountB, vesting.Schedule{PeriodCount: 4})
				return data
			},
			amount:   100,
			expected: vesting.ErrInvalidSchedule,
		},
		{
			name: "zero amount",
			data: func() []byte {
				data, _ := vesting.EncodeDeposit(accountB, vesting.Schedule{PeriodCount: 4, PeriodBlocks: 10})
				return data
			},
			expected: vesting.ErrZeroAmount,
		},
		{
			name:     "truncated",
			data:     func() []byte { return []byte{0x01, 0x02} },
			amount:   100,
			expected: chain.ErrMalformedCall,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, err := f.chain.Execute(accountA, func(ctx *chain.Context) error {
				return f.token.deposit(ctx, f.vesting.Address(), u(testDef.amount), testDef.data())
			})
			require.ErrorIs(t, err, testDef.expected)
			assert.True(t, f.token.BalanceOf(f.vesting.Address()).IsZero())
		})
	}
}

func TestMint(t *testing.T) {
	f := newFixture(t)
	schedule := vesting.Schedule{Start: f.chain.BlockNumber() + 100, PeriodCount: 5, PeriodBlocks: 10}
	mint := func(beneficiary chain.Principal) (*chain.Receipt, uint64) {
		var id uint64
		receipt, err := f.chain.Execute(accountA, func(ctx *chain.Context) error {
			var err error
			id, err = f.vesting.Mint(ctx, beneficiary, u(100), schedule)
			return err
		})
		require.NoError(t, err)
		return receipt, id
	}
	receipt, id := mint(accountB)
	assert.Equal(t, uint64(0), id)
	requireTransferLog(t, receipt, chain.NilPrincipal, accountB, 0)
	receipt, id = mint(chain.NilPrincipal)
	assert.Equal(t, uint64(1), id)
	requireTransferLog(t, receipt, chain.NilPrincipal, accountA, 1)
	assert.Equal(t, u(200), f.token.BalanceOf(f.vesting.Address()))
	assert.Equal(t, u(1_000_000-200), f.token.BalanceOf(accountA))

	// The pull failing leaves nothing behind
	f.token.fail = true
	_, err := f.chain.Execute(accountA, func(ctx *chain.Context) error {
		_, err := f.vesting.Mint(ctx, accountB, u(100), schedule)
		return err
	})
	require.ErrorIs(t, err, errTransfersDisabled)
	assert.Equal(t, chain.ErrExternalCall, chain.KindOf(err))
	_, ok := f.vesting.OwnerOf(2)
	assert.False(t, ok)
}

func TestClaim(t *testing.T) {
	f := newFixture(t)
	const (
		amount       = 100
		periodCount  = 4
		periodBlocks = 10
	)
	start := f.chain.BlockNumber() + 7
	_, err := f.deposit(accountA, accountB, amount, vesting.Schedule{
		Start:        start,
		PeriodCount:  periodCount,
		PeriodBlocks: periodBlocks,
	})
	require.NoError(t, err)

	// Nothing is releasable yet, so the claim is a no-op
	receipt, err := f.claim(accountB, 0)
	require.NoError(t, err)
	assert.Empty(t, receipt.Logs)

	for i := uint64(0); i <= periodCount; i++ {
		require.NoError(t, f.chain.AdvanceTo(start+i*periodBlocks+3))
		step := uint64(amount / periodCount)
		expected := u(min(i, periodCount) * step)
		if i == 0 {
			assert.True(t, f.vesting.Releasable(0).IsZero())
			continue
		}
		assert.Equal(t, u(step), f.vesting.Releasable(0))

		// A failing transfer records nothing and can be retried
		f.token.fail = true
		_, err = f.claim(accountB, 0)
		require.ErrorIs(t, err, errTransfersDisabled)
		assert.Equal(t, u(step), f.vesting.Releasable(0))
		f.token.fail = false

		receipt, err = f.claim(accountB, 0)
		require.NoError(t, err)
		assert.Equal(t, expected, f.token.BalanceOf(accountB))
		if i < periodCount {
			assert.Empty(t, receipt.LogsNamed("Transfer"))
			receipt, err = f.claim(accountB, 0)
			require.NoError(t, err)
			assert.Empty(t, receipt.Logs)
			continue
		}
		requireTransferLog(t, receipt, accountB, chain.NilPrincipal, 0)
		_, err = f.claim(accountB, 0)
		require.ErrorIs(t, err, vesting.ErrUnknownPosition)
	}
	assert.Equal(t, u(amount), f.token.BalanceOf(accountB))
	assert.True(t, f.token.BalanceOf(f.vesting.Address()).IsZero())
	assert.Equal(t, uint64(0), f.vesting.BalanceOf(accountB))
}

func TestClaimRoundingRemainder(t *testing.T) {
	f := newFixture(t)
	start := f.chain.BlockNumber()
	_, err := f.deposit(accountA, accountB, 10, vesting.Schedule{Start: start, PeriodCount: 3, PeriodBlocks: 5})
	require.NoError(t, err)
	for _, testDef := range []struct {
		block    uint64
		expected uint64
	}{
		{start + 5, 3},
		{start + 10, 6},
		{start + 15, 10},
	} {
		require.NoError(t, f.chain.AdvanceTo(testDef.block))
		_, err := f.claim(accountB, 0)
		require.NoError(t, err)
		assert.Equal(t, u(testDef.expected), f.token.BalanceOf(accountB))
	}
}

func TestTransferPosition(t *testing.T) {
	f := newFixture(t)
	start := f.chain.BlockNumber()
	_, err := f.deposit(accountA, accountB, 100, vesting.Schedule{Start: start, PeriodCount: 2, PeriodBlocks: 10})
	require.NoError(t, err)

	_, err = f.chain.Execute(accountC, func(ctx *chain.Context) error {
		return f.vesting.TransferPosition(ctx, accountC, 0)
	})
	require.ErrorIs(t, err, vesting.ErrNotPositionOwner)
	_, err = f.chain.Execute(accountB, func(ctx *chain.Context) error {
		return f.vesting.TransferPosition(ctx, chain.NilPrincipal, 0)
	})
	require.ErrorIs(t, err, vesting.ErrNilRecipient)

	receipt, err := f.chain.Execute(accountB, func(ctx *chain.Context) error {
		return f.vesting.TransferPosition(ctx, accountC, 0)
	})
	require.NoError(t, err)
	requireTransferLog(t, receipt, accountB, accountC, 0)
	owner, ok := f.vesting.OwnerOf(0)
	require.True(t, ok)
	assert.Equal(t, accountC, owner)
	assert.Equal(t, uint64(0), f.vesting.BalanceOf(accountB))
	assert.Equal(t, uint64(1), f.vesting.BalanceOf(accountC))

	require.NoError(t, f.chain.AdvanceTo(start+10))
	_, err = f.claim(accountB, 0)
	require.ErrorIs(t, err, vesting.ErrNotPositionOwner)
	assert.ErrorIs(t, err, chain.ErrAuthorization)

	// The owner may direct a claim elsewhere
	_, err = f.chain.Execute(accountC, func(ctx *chain.Context) error {
		return f.vesting.Claim(ctx, 0, accountA)
	})
	require.NoError(t, err)
	assert.Equal(t, u(1_000_000-100+50), f.token.BalanceOf(accountA))
}

func TestDispatch(t *testing.T) {
	f := newFixture(t)
	start := f.chain.BlockNumber()
	var ret []byte
	_, err := f.chain.Execute(accountA, func(ctx *chain.Context) error {
		var err error
		ret, err = ctx.Call(
			f.vesting.Address(),
			vesting.MethodMint.MustPack(accountB, u(100).ToBig(), start, uint64(4), uint64(10)),
		)
		return err
	})
	require.NoError(t, err)
	outputs, err := vesting.MethodMint.UnpackOutputs(ret)
	require.NoError(t, err)
	assert.Equal(t, []any{uint64(0)}, outputs)

	require.NoError(t, f.chain.AdvanceTo(start+20))
	_, err = f.chain.Execute(accountB, func(ctx *chain.Context) error {
		_, err := ctx.Call(f.vesting.Address(), vesting.MethodClaim.MustPack(uint64(0), chain.NilPrincipal))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, u(50), f.token.BalanceOf(accountB))
}

// TestVestedProperties checks that vesting never decreases, never exceeds the
// amount and is complete after the last period
func TestVestedProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := vesting.Position{
			Schedule: vesting.Schedule{
				Start:        rapid.Uint64Range(0, 1000).Draw(t, "start"),
				PeriodCount:  rapid.Uint64Range(1, 50).Draw(t, "periodCount"),
				PeriodBlocks: rapid.Uint64Range(1, 100).Draw(t, "periodBlocks"),
			},
		}
		p.Amount.SetUint64(rapid.Uint64Range(1, 1<<40).Draw(t, "amount"))
		end := p.Schedule.Start + p.Schedule.PeriodCount*p.Schedule.PeriodBlocks
		prev := new(uint256.Int)
		for block := uint64(0); block <= end+1; block += rapid.Uint64Range(1, 20).Draw(t, "step") {
			vested := p.Vested(block)
			require.False(t, vested.Lt(prev), "vested decreased at %d", block)
			require.False(t, vested.Gt(&p.Amount))
			prev = vested
		}
		require.Equal(t, &p.Amount, p.Vested(end))
		require.True(t, p.Vested(end-1).Lt(&p.Amount))
	})
}
