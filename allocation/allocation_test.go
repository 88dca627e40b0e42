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

package allocation_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/blinklabs-io/gavel/allocation"
	"github.com/blinklabs-io/gavel/chain"
	"github.com/blinklabs-io/gavel/token"
)

var (
	accountA                = chain.PrincipalFromName("a")
	accountB                = chain.PrincipalFromName("b")
	accountC                = chain.PrincipalFromName("c")
	accountVoting           = chain.PrincipalFromName("voting")
	accountSupervisor       = chain.PrincipalFromName("supervisor")
	accountGlobalSupervisor = chain.PrincipalFromName("global-supervisor")
)

const defaultLock = 10

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

type fixture struct {
	chain  *chain.Chain
	token  *token.Token
	ledger *allocation.Ledger
}

func newFixture(t require.TestingT, supervisors ...chain.Principal) *fixture {
	c := chain.NewChain()
	tok, err := chain.Deploy(c, accountA, func(ctx *chain.Context) (*token.Token, error) {
		return token.New(ctx, token.Config{
			Holders: []chain.Principal{accountA},
			Amounts: []*uint256.Int{u(1_000_000)},
		})
	})
	require.NoError(t, err)
	ledger, err := chain.Deploy(c, accountA, func(ctx *chain.Context) (*allocation.Ledger, error) {
		return allocation.New(ctx, allocation.Config{
			Authority:           accountVoting,
			DefaultLockDuration: defaultLock,
			GlobalSupervisors:   supervisors,
		})
	})
	require.NoError(t, err)
	return &fixture{chain: c, token: tok, ledger: ledger}
}

func (f *fixture) fund(t require.TestingT, amount uint64) *chain.Receipt {
	receipt, err := f.chain.Execute(accountA, func(ctx *chain.Context) error {
		return f.token.TransferAndCall(ctx, f.ledger.Address(), u(amount), nil)
	})
	require.NoError(t, err)
	return receipt
}

func (f *fixture) exec(sender chain.Principal, fn func(ctx *chain.Context) error) (*chain.Receipt, error) {
	return f.chain.Execute(sender, fn)
}

func (f *fixture) increaseAllocation(sender, account chain.Principal, amount uint64) (*chain.Receipt, error) {
	return f.exec(sender, func(ctx *chain.Context) error {
		return f.ledger.IncreaseAllocation(ctx, account, f.token.Address(), u(amount))
	})
}

func (f *fixture) revokeAllocation(sender, account chain.Principal, amount uint64) (*chain.Receipt, error) {
	return f.exec(sender, func(ctx *chain.Context) error {
		return f.ledger.RevokeAllocation(ctx, account, f.token.Address(), u(amount))
	})
}

func (f *fixture) increaseClaim(account chain.Principal, amount uint64) (*chain.Receipt, error) {
	return f.exec(account, func(ctx *chain.Context) error {
		return f.ledger.IncreaseClaim(ctx, f.token.Address(), u(amount))
	})
}

func (f *fixture) revokeClaim(sender, account chain.Principal) (*chain.Receipt, error) {
	return f.exec(sender, func(ctx *chain.Context) error {
		return f.ledger.RevokeClaim(ctx, account, f.token.Address())
	})
}

func (f *fixture) enactClaim(account chain.Principal) (*chain.Receipt, error) {
	return f.exec(account, func(ctx *chain.Context) error {
		return f.ledger.EnactClaim(ctx, f.token.Address())
	})
}

func (f *fixture) allocation(account chain.Principal) *uint256.Int {
	return f.ledger.Allocation(account, f.token.Address())
}

func lastArg(t *testing.T, receipt *chain.Receipt, name, arg string) any {
	t.Helper()
	logs := receipt.LogsNamed(name)
	require.NotEmpty(t, logs, "no %s log", name)
	value, ok := logs[len(logs)-1].Arg(arg)
	require.True(t, ok)
	return value
}

func TestChangeParameters(t *testing.T) {
	f := newFixture(t)
	// Only the authority may change parameters
	authorityOnly := func(fn func(ctx *chain.Context) error) {
		t.Helper()
		for _, sender := range []chain.Principal{accountA, accountSupervisor} {
			_, err := f.exec(sender, fn)
			require.ErrorIs(t, err, allocation.ErrNotAuthority)
		}
		_, err := f.exec(accountVoting, fn)
		require.NoError(t, err)
	}
	setSupervisor := func(account chain.Principal, enabled bool) func(ctx *chain.Context) error {
		return func(ctx *chain.Context) error {
			return f.ledger.SetSupervisor(ctx, account, accountSupervisor, enabled)
		}
	}
	setLockDuration := func(account chain.Principal, duration uint64) func(ctx *chain.Context) error {
		return func(ctx *chain.Context) error {
			return f.ledger.SetLockDuration(ctx, account, chain.NilPrincipal, duration)
		}
	}
	tok := f.token.Address()

	assert.False(t, f.ledger.IsSupervisor(accountB, accountSupervisor))
	assert.False(t, f.ledger.IsSupervisorFor(accountB, accountSupervisor))
	authorityOnly(setSupervisor(chain.NilPrincipal, true))
	assert.False(t, f.ledger.IsSupervisor(accountB, accountSupervisor))
	assert.True(t, f.ledger.IsSupervisorFor(accountB, accountSupervisor))
	authorityOnly(setSupervisor(accountB, true))
	assert.True(t, f.ledger.IsSupervisor(accountB, accountSupervisor))
	assert.True(t, f.ledger.IsSupervisorFor(accountB, accountSupervisor))

	assert.Equal(t, uint64(0), f.ledger.LockDurationRaw(accountB, chain.NilPrincipal))
	assert.Equal(t, uint64(defaultLock), f.ledger.LockDuration(accountB, tok))
	authorityOnly(setLockDuration(accountB, allocation.LockInstant))
	assert.Equal(t, uint64(0), f.ledger.LockDuration(accountB, tok))
	assert.Equal(t, allocation.LockInstant, f.ledger.LockDurationRaw(accountB, chain.NilPrincipal))
	authorityOnly(setLockDuration(accountB, 11))
	assert.Equal(t, uint64(11), f.ledger.LockDuration(accountB, tok))

	authorityOnly(setSupervisor(accountB, false))
	assert.False(t, f.ledger.IsSupervisor(accountB, accountSupervisor))

	assert.Equal(t, uint64(defaultLock), f.ledger.LockDuration(accountC, tok))
	authorityOnly(setLockDuration(chain.NilPrincipal, 12))
	assert.Equal(t, uint64(11), f.ledger.LockDuration(accountB, tok))
	assert.Equal(t, uint64(12), f.ledger.LockDuration(accountC, tok))

	// Zero removes an override
	authorityOnly(setLockDuration(accountB, 0))
	assert.Equal(t, uint64(12), f.ledger.LockDuration(accountB, tok))

	authorityOnly(setSupervisor(chain.NilPrincipal, false))
	assert.False(t, f.ledger.IsSupervisorFor(accountB, accountSupervisor))
}

func TestLockDurationPrecedence(t *testing.T) {
	f := newFixture(t)
	tok := f.token.Address()
	other := chain.PrincipalFromName("other-token")
	testDefs := []struct {
		account, token chain.Principal
		duration       uint64
	}{
		{chain.NilPrincipal, chain.NilPrincipal, 20},
		{chain.NilPrincipal, tok, 30},
		{accountB, chain.NilPrincipal, 40},
		{accountB, tok, 50},
	}
	for _, testDef := range testDefs {
		_, err := f.exec(accountVoting, func(ctx *chain.Context) error {
			return f.ledger.SetLockDuration(ctx, testDef.account, testDef.token, testDef.duration)
		})
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(50), f.ledger.LockDuration(accountB, tok))
	assert.Equal(t, uint64(40), f.ledger.LockDuration(accountB, other))
	assert.Equal(t, uint64(30), f.ledger.LockDuration(accountC, tok))
	assert.Equal(t, uint64(20), f.ledger.LockDuration(accountC, other))
}

func TestCreateRevokeAllocation(t *testing.T) {
	f := newFixture(t)
	testDefs := []struct {
		increase, revoke uint64
		expected         uint64
	}{
		{increase: 100, expected: 100},
		{revoke: 10, expected: 90},
		{revoke: 90, expected: 0},
		{increase: 10, expected: 10},
		{revoke: 100, expected: 0},
	}
	for _, testDef := range testDefs {
		var (
			receipt *chain.Receipt
			err     error
		)
		if testDef.increase > 0 {
			receipt, err = f.increaseAllocation(accountVoting, accountB, testDef.increase)
		} else {
			receipt, err = f.revokeAllocation(accountVoting, accountB, testDef.revoke)
		}
		require.NoError(t, err)
		assert.Equal(t, u(testDef.expected), lastArg(t, receipt, "AllocationChanged", "allocation"))
		assert.Equal(t, u(testDef.expected), f.allocation(accountB))
	}
	_, err := f.increaseAllocation(accountB, accountB, 1)
	require.ErrorIs(t, err, allocation.ErrNotAuthority)
}

func TestCreateEnactClaim(t *testing.T) {
	f := newFixture(t)
	_, err := f.increaseAllocation(accountVoting, accountB, 100)
	require.NoError(t, err)

	startBlock := f.chain.BlockNumber()
	receipt, err := f.increaseClaim(accountB, 10)
	require.NoError(t, err)
	assert.Equal(t, u(10), lastArg(t, receipt, "ClaimProposed", "amount"))

	_, err = f.enactClaim(accountB)
	require.ErrorIs(t, err, allocation.ErrClaimLocked)
	assert.ErrorIs(t, err, chain.ErrTemporal)

	require.NoError(t, f.chain.AdvanceTo(startBlock+defaultLock+2))
	// The ledger holds no tokens yet so the transfer fails and the claim stays
	_, err = f.enactClaim(accountB)
	require.ErrorIs(t, err, token.ErrInsufficientBalance)
	assert.Equal(t, chain.ErrExternalCall, chain.KindOf(err))
	claim, ok := f.ledger.PendingClaim(accountB, f.token.Address())
	require.True(t, ok)
	assert.Equal(t, u(10), &claim.Amount)
	assert.Equal(t, u(100), f.allocation(accountB))

	receipt = f.fund(t, 1000)
	assert.Equal(t, f.token.Address(), lastArg(t, receipt, "Funded", "token"))

	for _, other := range []chain.Principal{accountA, accountVoting} {
		_, err = f.enactClaim(other)
		require.ErrorIs(t, err, allocation.ErrNoClaim)
	}
	receipt, err = f.enactClaim(accountB)
	require.NoError(t, err)
	assert.Equal(t, u(10), lastArg(t, receipt, "ClaimEnacted", "amount"))
	assert.Equal(t, u(10), f.token.BalanceOf(accountB))
	assert.Equal(t, u(90), f.allocation(accountB))
	_, ok = f.ledger.PendingClaim(accountB, f.token.Address())
	assert.False(t, ok)
	_, err = f.enactClaim(accountB)
	require.ErrorIs(t, err, allocation.ErrNoClaim)
}

func TestCreateRevokeClaim(t *testing.T) {
	f := newFixture(t, accountGlobalSupervisor)
	f.fund(t, 1000)
	_, err := f.increaseAllocation(accountVoting, accountB, 100)
	require.NoError(t, err)
	_, err = f.exec(accountVoting, func(ctx *chain.Context) error {
		return f.ledger.SetSupervisor(ctx, accountB, accountSupervisor, true)
	})
	require.NoError(t, err)

	for _, revoker := range []chain.Principal{accountGlobalSupervisor, accountSupervisor, accountVoting, accountB} {
		startBlock := f.chain.BlockNumber()
		_, err := f.increaseClaim(accountB, 10)
		require.NoError(t, err)
		require.NoError(t, f.chain.AdvanceTo(startBlock+5))
		receipt, err := f.revokeClaim(revoker, accountB)
		require.NoError(t, err)
		assert.Equal(t, u(10), lastArg(t, receipt, "ClaimRevoked", "amount"))
		require.NoError(t, f.chain.AdvanceTo(startBlock+defaultLock))
		_, err = f.enactClaim(accountB)
		require.ErrorIs(t, err, allocation.ErrNoClaim)
	}
	assert.Equal(t, u(100), f.allocation(accountB))

	_, err = f.increaseClaim(accountB, 10)
	require.NoError(t, err)
	_, err = f.revokeClaim(accountC, accountB)
	require.ErrorIs(t, err, allocation.ErrNotRevoker)
	assert.ErrorIs(t, err, chain.ErrAuthorization)
}

func TestInstantClaim(t *testing.T) {
	f := newFixture(t)
	f.fund(t, 1000)
	_, err := f.exec(accountVoting, func(ctx *chain.Context) error {
		return f.ledger.SetLockDuration(ctx, accountB, chain.NilPrincipal, allocation.LockInstant)
	})
	require.NoError(t, err)
	_, err = f.increaseAllocation(accountVoting, accountB, 100)
	require.NoError(t, err)
	_, err = f.exec(accountB, func(ctx *chain.Context) error {
		if err := f.ledger.IncreaseClaim(ctx, f.token.Address(), u(10)); err != nil {
			return err
		}
		return f.ledger.EnactClaim(ctx, f.token.Address())
	})
	require.NoError(t, err)
	assert.Equal(t, u(10), f.token.BalanceOf(accountB))
}

func TestInstantDefaultLockDuration(t *testing.T) {
	c := chain.NewChain()
	tok, err := chain.Deploy(c, accountA, func(ctx *chain.Context) (*token.Token, error) {
		return token.New(ctx, token.Config{
			Holders: []chain.Principal{accountA},
			Amounts: []*uint256.Int{u(1000)},
		})
	})
	require.NoError(t, err)
	ledger, err := chain.Deploy(c, accountA, func(ctx *chain.Context) (*allocation.Ledger, error) {
		return allocation.New(ctx, allocation.Config{
			Authority:           accountVoting,
			DefaultLockDuration: allocation.LockInstant,
		})
	})
	require.NoError(t, err)
	f := &fixture{chain: c, token: tok, ledger: ledger}
	f.fund(t, 1000)
	assert.Equal(t, allocation.LockInstant, ledger.DefaultLockDuration())
	assert.Equal(t, uint64(0), ledger.LockDuration(accountB, tok.Address()))

	_, err = f.increaseAllocation(accountVoting, accountB, 10)
	require.NoError(t, err)
	_, err = f.exec(accountB, func(ctx *chain.Context) error {
		if err := ledger.IncreaseClaim(ctx, tok.Address(), u(10)); err != nil {
			return err
		}
		return ledger.EnactClaim(ctx, tok.Address())
	})
	require.NoError(t, err)
	assert.Equal(t, u(10), tok.BalanceOf(accountB))
	assert.True(t, f.allocation(accountB).IsZero())
}

func TestLockBoundaries(t *testing.T) {
	testDefs := []struct {
		name     string
		duration uint64
		unlockAt uint64
		never    bool
	}{
		{name: "instant", duration: allocation.LockInstant, unlockAt: 0},
		{name: "finite", duration: 7, unlockAt: 7},
		{name: "forever", duration: allocation.LockForever, never: true},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			f := newFixture(t)
			f.fund(t, 1000)
			_, err := f.exec(accountVoting, func(ctx *chain.Context) error {
				return f.ledger.SetLockDuration(ctx, chain.NilPrincipal, chain.NilPrincipal, testDef.duration)
			})
			require.NoError(t, err)
			_, err = f.increaseAllocation(accountVoting, accountB, 100)
			require.NoError(t, err)
			start := f.chain.BlockNumber()
			_, err = f.increaseClaim(accountB, 10)
			require.NoError(t, err)
			if testDef.never {
				require.NoError(t, f.chain.AdvanceTo(start+1_000_000))
				_, err = f.enactClaim(accountB)
				require.ErrorIs(t, err, allocation.ErrClaimLocked)
				return
			}
			if testDef.unlockAt > 0 {
				require.NoError(t, f.chain.AdvanceTo(start+testDef.unlockAt-1))
				_, err = f.enactClaim(accountB)
				require.ErrorIs(t, err, allocation.ErrClaimLocked)
				require.NoError(t, f.chain.AdvanceTo(start+testDef.unlockAt))
			}
			_, err = f.enactClaim(accountB)
			require.NoError(t, err)
		})
	}
}

func TestIncreaseClaimRestartsLock(t *testing.T) {
	f := newFixture(t)
	f.fund(t, 1000)
	_, err := f.increaseAllocation(accountVoting, accountB, 100)
	require.NoError(t, err)
	start := f.chain.BlockNumber()
	_, err = f.increaseClaim(accountB, 10)
	require.NoError(t, err)
	require.NoError(t, f.chain.AdvanceTo(start+5))
	receipt, err := f.increaseClaim(accountB, 20)
	require.NoError(t, err)
	assert.Equal(t, u(30), lastArg(t, receipt, "ClaimProposed", "amount"))
	require.NoError(t, f.chain.AdvanceTo(start+defaultLock))
	_, err = f.enactClaim(accountB)
	require.ErrorIs(t, err, allocation.ErrClaimLocked)
	require.NoError(t, f.chain.AdvanceTo(start+5+defaultLock))
	_, err = f.enactClaim(accountB)
	require.NoError(t, err)
	assert.Equal(t, u(30), f.token.BalanceOf(accountB))

	_, err = f.increaseClaim(accountB, 71)
	require.ErrorIs(t, err, allocation.ErrClaimExceedsAllocation)
	_, err = f.increaseClaim(accountB, 0)
	require.ErrorIs(t, err, allocation.ErrZeroAmount)
}

func TestRevokeAllocationClampsClaim(t *testing.T) {
	f := newFixture(t)
	_, err := f.increaseAllocation(accountVoting, accountB, 100)
	require.NoError(t, err)
	_, err = f.increaseClaim(accountB, 80)
	require.NoError(t, err)
	receipt, err := f.revokeAllocation(accountVoting, accountB, 50)
	require.NoError(t, err)
	assert.Equal(t, u(50), lastArg(t, receipt, "ClaimClamped", "amount"))
	claim, ok := f.ledger.PendingClaim(accountB, f.token.Address())
	require.True(t, ok)
	assert.Equal(t, u(50), &claim.Amount)

	_, err = f.revokeAllocation(accountVoting, accountB, 50)
	require.NoError(t, err)
	_, ok = f.ledger.PendingClaim(accountB, f.token.Address())
	assert.False(t, ok)
}

// TestAllocationConservation checks that the allocation always equals the
// grants minus the revocations and enacted claims
func TestAllocationConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := newFixture(t)
		f.fund(t, 1_000_000)
		var (
			expected uint64
			enacted  uint64
		)
		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			f.chain.Mine(rapid.Uint64Range(0, 6).Draw(t, "blocks"))
			switch rapid.IntRange(0, 4).Draw(t, "op") {
			case 0:
				amount := rapid.Uint64Range(0, 1000).Draw(t, "increase")
				_, err := f.increaseAllocation(accountVoting, accountB, amount)
				require.NoError(t, err)
				expected += amount
			case 1:
				amount := rapid.Uint64Range(0, 1000).Draw(t, "revoke")
				_, err := f.revokeAllocation(accountVoting, accountB, amount)
				require.NoError(t, err)
				expected -= min(expected, amount)
			case 2:
				amount := rapid.Uint64Range(1, 500).Draw(t, "claim")
				_, _ = f.increaseClaim(accountB, amount)
			case 3:
				_, _ = f.revokeClaim(accountB, accountB)
			case 4:
				claim, ok := f.ledger.PendingClaim(accountB, f.token.Address())
				if _, err := f.enactClaim(accountB); err == nil {
					require.True(t, ok)
					expected -= claim.Amount.Uint64()
					enacted += claim.Amount.Uint64()
				}
			}
			assert.Equal(t, u(expected), f.allocation(accountB))
			if claim, ok := f.ledger.PendingClaim(accountB, f.token.Address()); ok {
				require.False(t, claim.Amount.Gt(f.allocation(accountB)))
			}
		}
		assert.Equal(t, u(enacted), f.token.BalanceOf(accountB))
	})
}
