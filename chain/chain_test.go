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

package chain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/gavel/chain"
	"github.com/blinklabs-io/gavel/event"
)

var (
	errCounterLimit = chain.NewError(chain.ErrInvariantViolation, "counter limit reached")

	methodIncrement = chain.NewMethod("increment", []string{"uint64"}, nil)
	methodValue     = chain.NewReadOnlyMethod("value", nil, []string{"uint64"})
	methodRecurse   = chain.NewMethod("recurse", nil, nil)
)

type counter struct {
	address    chain.Principal
	value      uint64
	limit      uint64
	dispatcher *chain.Dispatcher
}

func newCounter(ctx *chain.Context, limit uint64) (*counter, error) {
	c := &counter{
		address: ctx.Self(),
		limit:   limit,
	}
	c.dispatcher = chain.NewDispatcher().
		Register(methodIncrement, func(ctx *chain.Context, args []any) ([]any, error) {
			n, err := chain.ArgUint64(args, 0)
			if err != nil {
				return nil, err
			}
			return nil, c.Increment(ctx, n)
		}).
		Register(methodValue, func(ctx *chain.Context, args []any) ([]any, error) {
			return []any{c.value}, nil
		}).
		Register(methodRecurse, func(ctx *chain.Context, args []any) ([]any, error) {
			_, err := ctx.Call(c.address, methodRecurse.MustPack())
			return nil, err
		})
	return c, nil
}

func (c *counter) Address() chain.Principal {
	return c.address
}

func (c *counter) Dispatch(ctx *chain.Context, input []byte) ([]byte, error) {
	return c.dispatcher.Dispatch(ctx, input)
}

func (c *counter) Increment(ctx *chain.Context, n uint64) error {
	return ctx.Invoke(c.address, func(frame *chain.Context) error {
		chain.Store(frame.Journal(), &c.value, c.value+n)
		frame.Emit(
			"Incremented",
			chain.Indexed("by", frame.Caller()),
			chain.Data("value", c.value),
		)
		if c.value > c.limit {
			return errCounterLimit
		}
		return nil
	})
}

func deployCounter(t *testing.T, c *chain.Chain, deployer chain.Principal, limit uint64) *counter {
	t.Helper()
	ret, err := chain.Deploy(c, deployer, func(ctx *chain.Context) (*counter, error) {
		return newCounter(ctx, limit)
	})
	require.NoError(t, err)
	return ret
}

func TestDeployAddress(t *testing.T) {
	c := chain.NewChain()
	alice := chain.PrincipalFromName("alice")
	first := deployCounter(t, c, alice, 10)
	second := deployCounter(t, c, alice, 10)
	assert.Equal(t, crypto.CreateAddress(alice, 0), first.Address())
	assert.Equal(t, crypto.CreateAddress(alice, 1), second.Address())
	found, err := chain.ContractAs[*counter](c, first.Address())
	require.NoError(t, err)
	assert.Same(t, first, found)
}

func TestDeployFailureNotRegistered(t *testing.T) {
	c := chain.NewChain()
	alice := chain.PrincipalFromName("alice")
	errBoom := errors.New("boom")
	_, err := chain.Deploy(c, alice, func(ctx *chain.Context) (*counter, error) {
		return nil, errBoom
	})
	require.ErrorIs(t, err, errBoom)
	_, ok := c.Contract(crypto.CreateAddress(alice, 0))
	assert.False(t, ok)
	// The nonce is not consumed by a failed deployment
	ctr := deployCounter(t, c, alice, 10)
	assert.Equal(t, crypto.CreateAddress(alice, 0), ctr.Address())
}

func TestExecuteCommit(t *testing.T) {
	c := chain.NewChain(chain.WithStartBlock(5))
	alice := chain.PrincipalFromName("alice")
	ctr := deployCounter(t, c, alice, 10)
	receipt, err := c.Execute(alice, func(ctx *chain.Context) error {
		if err := ctr.Increment(ctx, 2); err != nil {
			return err
		}
		return ctr.Increment(ctx, 3)
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), ctr.value)
	require.Len(t, receipt.Logs, 2)
	assert.Equal(t, uint64(5), receipt.Block)
	assert.Equal(t, uint(1), receipt.Logs[1].Index)
	assert.Equal(t, ctr.Address(), receipt.Logs[0].Address)
	by, ok := receipt.Logs[0].Arg("by")
	require.True(t, ok)
	assert.Equal(t, alice, by)
	assert.Equal(t, "Incremented(by="+alice.Hex()+", value=5)", receipt.Logs[1].String())
}

func TestExecuteRevert(t *testing.T) {
	c := chain.NewChain()
	alice := chain.PrincipalFromName("alice")
	ctr := deployCounter(t, c, alice, 10)
	_, err := c.Execute(alice, func(ctx *chain.Context) error {
		if err := ctr.Increment(ctx, 6); err != nil {
			return err
		}
		return ctr.Increment(ctx, 6)
	})
	require.ErrorIs(t, err, errCounterLimit)
	assert.ErrorIs(t, err, chain.ErrInvariantViolation)
	assert.Equal(t, chain.ErrInvariantViolation, chain.KindOf(err))
	assert.Equal(t, uint64(0), ctr.value)
	// A subsequent operation sees no leftover logs
	receipt, err := c.Execute(alice, func(ctx *chain.Context) error {
		return ctr.Increment(ctx, 1)
	})
	require.NoError(t, err)
	assert.Len(t, receipt.Logs, 1)
}

func TestNestedRevertKeepsOuterChanges(t *testing.T) {
	c := chain.NewChain()
	alice := chain.PrincipalFromName("alice")
	ctr := deployCounter(t, c, alice, 10)
	receipt, err := c.Execute(alice, func(ctx *chain.Context) error {
		if err := ctr.Increment(ctx, 4); err != nil {
			return err
		}
		err := ctr.Increment(ctx, 20)
		require.ErrorIs(t, err, errCounterLimit)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), ctr.value)
	assert.Len(t, receipt.Logs, 1)
}

func TestCallDispatch(t *testing.T) {
	c := chain.NewChain()
	alice := chain.PrincipalFromName("alice")
	ctr := deployCounter(t, c, alice, 10)
	var out []byte
	_, err := c.Execute(alice, func(ctx *chain.Context) error {
		if _, err := ctx.Call(ctr.Address(), methodIncrement.MustPack(uint64(7))); err != nil {
			return err
		}
		var err error
		out, err = ctx.Call(ctr.Address(), methodValue.MustPack())
		return err
	})
	require.NoError(t, err)
	values, err := methodValue.UnpackOutputs(out)
	require.NoError(t, err)
	assert.Equal(t, []any{uint64(7)}, values)
}

func TestCallErrors(t *testing.T) {
	c := chain.NewChain()
	alice := chain.PrincipalFromName("alice")
	ctr := deployCounter(t, c, alice, 10)
	testDefs := []struct {
		name   string
		target chain.Principal
		input  []byte
		err    error
	}{
		{
			name:   "no contract",
			target: chain.PrincipalFromName("nobody"),
			input:  methodValue.MustPack(),
			err:    chain.ErrContractNotFound,
		},
		{
			name:   "unknown selector",
			target: ctr.Address(),
			input:  []byte{0xde, 0xad, 0xbe, 0xef},
			err:    chain.ErrUnknownSelector,
		},
		{
			name:   "short input",
			target: ctr.Address(),
			input:  []byte{0x01},
			err:    chain.ErrMalformedCall,
		},
		{
			name:   "unbounded recursion",
			target: ctr.Address(),
			input:  methodRecurse.MustPack(),
			err:    chain.ErrCallDepthExceeded,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, err := c.Execute(alice, func(ctx *chain.Context) error {
				_, err := ctx.Call(testDef.target, testDef.input)
				return err
			})
			require.ErrorIs(t, err, testDef.err)
			assert.Equal(t, chain.ErrExternalCall, chain.KindOf(err))
		})
	}
}

func TestExternalCallErrorKinds(t *testing.T) {
	target := chain.PrincipalFromName("target")
	inner := chain.NewError(chain.ErrAuthorization, "not allowed")
	err := chain.NewExternalCallError(target, inner)
	assert.ErrorIs(t, err, chain.ErrExternalCall)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, chain.ErrExternalCall, chain.KindOf(err))
	assert.Nil(t, chain.KindOf(nil))
	assert.Nil(t, chain.KindOf(errors.New("plain")))
}

func TestBlockControl(t *testing.T) {
	c := chain.NewChain()
	assert.Equal(t, uint64(0), c.BlockNumber())
	c.Mine(3)
	assert.Equal(t, uint64(3), c.BlockNumber())
	require.NoError(t, c.AdvanceTo(10))
	assert.Equal(t, uint64(10), c.BlockNumber())
	require.ErrorIs(t, c.AdvanceTo(9), chain.ErrBlockInPast)
	require.NoError(t, c.AdvanceTo(10))
}

func TestTxIndexResetsPerBlock(t *testing.T) {
	c := chain.NewChain()
	alice := chain.PrincipalFromName("alice")
	noop := func(ctx *chain.Context) error { return nil }
	r1, err := c.Execute(alice, noop)
	require.NoError(t, err)
	r2, err := c.Execute(alice, noop)
	require.NoError(t, err)
	c.Mine(1)
	r3, err := c.Execute(alice, noop)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), r1.TxIndex)
	assert.Equal(t, uint64(1), r2.TxIndex)
	assert.Equal(t, uint64(0), r3.TxIndex)
}

func TestLogsPublished(t *testing.T) {
	eb := event.NewEventBus()
	defer eb.Stop()
	_, logCh := eb.Subscribe(chain.LogEventType)
	_, txCh := eb.Subscribe(chain.TxCommittedEventType)
	c := chain.NewChain(chain.WithEventBus(eb))
	alice := chain.PrincipalFromName("alice")
	ctr := deployCounter(t, c, alice, 10)
	_, err := c.Execute(alice, func(ctx *chain.Context) error {
		return ctr.Increment(ctx, 1)
	})
	require.NoError(t, err)
	select {
	case evt := <-logCh:
		l, ok := evt.Data.(chain.Log)
		require.True(t, ok)
		assert.Equal(t, "Incremented", l.Name)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for log event")
	}
	// One tx event for the deployment and one for the increment
	for range 2 {
		select {
		case evt := <-txCh:
			_, ok := evt.Data.(chain.TxCommittedEvent)
			require.True(t, ok)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for tx event")
		}
	}
}

func TestRevertedLogsNotPublished(t *testing.T) {
	eb := event.NewEventBus()
	defer eb.Stop()
	c := chain.NewChain(chain.WithEventBus(eb))
	alice := chain.PrincipalFromName("alice")
	ctr := deployCounter(t, c, alice, 1)
	_, logCh := eb.Subscribe(chain.LogEventType)
	_, err := c.Execute(alice, func(ctx *chain.Context) error {
		return ctr.Increment(ctx, 5)
	})
	require.Error(t, err)
	select {
	case evt := <-logCh:
		t.Fatalf("unexpected log event: %v", evt.Data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOnCommit(t *testing.T) {
	c := chain.NewChain()
	alice := chain.PrincipalFromName("alice")
	ctr := deployCounter(t, c, alice, 10)
	var committed []uint64
	record := func(ctx *chain.Context, n uint64) error {
		ctx.OnCommit(func() { committed = append(committed, n) })
		return ctr.Increment(ctx, n)
	}
	_, err := c.Execute(alice, func(ctx *chain.Context) error {
		// The inner frame fails and drops its callback
		_ = ctx.Invoke(ctr.Address(), func(frame *chain.Context) error {
			return record(frame, 20)
		})
		return record(ctx, 1)
	})
	require.NoError(t, err)
	_, err = c.Execute(alice, func(ctx *chain.Context) error {
		return record(ctx, 50)
	})
	require.ErrorIs(t, err, errCounterLimit)
	assert.Equal(t, []uint64{1}, committed)
}
