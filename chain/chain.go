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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/blinklabs-io/gavel/event"
	"github.com/ethereum/go-ethereum/crypto"
)

// MaxCallDepth is the maximum number of nested call frames
const MaxCallDepth = 1024

var (
	ErrBlockInPast   = errors.New("target block is before the current block")
	ErrAddressInUse  = errors.New("contract address already in use")
	ErrAddressChange = errors.New("constructed contract reports a different address")
)

// Contract is a component deployed at an address
type Contract interface {
	Address() Principal
}

// Dispatchable is a contract that accepts encoded calls
type Dispatchable interface {
	Contract
	Dispatch(ctx *Context, input []byte) ([]byte, error)
}

// Receipt describes a committed operation
type Receipt struct {
	Sender  Principal
	Block   uint64
	TxIndex uint64
	Logs    []Log
}

// LogsNamed returns the logs with the given name
func (r *Receipt) LogsNamed(name string) []Log {
	var ret []Log
	for _, l := range r.Logs {
		if l.Name == name {
			ret = append(ret, l)
		}
	}
	return ret
}

// Chain is a single linearly ordered ledger of state transitions. Operations
// submitted with Execute run one at a time and either commit completely or
// leave no trace
type Chain struct {
	mutex      sync.Mutex
	registryMu sync.RWMutex
	logger     *slog.Logger
	eventBus   *event.EventBus
	metrics    *chainMetrics
	journal    *Journal
	contracts  map[Principal]Contract
	nonces     map[Principal]uint64
	pending    []Log
	onCommit   []func()
	block      atomic.Uint64
	txIndex    uint64
}

// NewChain creates a new chain positioned at block zero unless WithStartBlock is given
func NewChain(opts ...ChainOptionFunc) *Chain {
	c := &Chain{
		journal:   NewJournal(),
		contracts: make(map[Principal]Contract),
		nonces:    make(map[Principal]uint64),
	}
	cfg := chainConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	c.logger = cfg.logger
	if c.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		c.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	c.eventBus = cfg.eventBus
	if cfg.promRegistry != nil {
		c.metrics = &chainMetrics{}
		c.metrics.init(cfg.promRegistry)
	}
	c.block.Store(cfg.startBlock)
	c.updateBlockMetric()
	return c
}

// BlockNumber returns the current block
func (c *Chain) BlockNumber() uint64 {
	return c.block.Load()
}

// Mine advances the chain by n blocks
func (c *Chain) Mine(n uint64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if n == 0 {
		return
	}
	c.block.Add(n)
	c.txIndex = 0
	c.updateBlockMetric()
}

// AdvanceTo moves the chain forward to the given block
func (c *Chain) AdvanceTo(block uint64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	current := c.block.Load()
	if block < current {
		return fmt.Errorf("%w: %d < %d", ErrBlockInPast, block, current)
	}
	if block == current {
		return nil
	}
	c.block.Store(block)
	c.txIndex = 0
	c.updateBlockMetric()
	return nil
}

// Contract returns the contract deployed at addr
func (c *Chain) Contract(addr Principal) (Contract, bool) {
	c.registryMu.RLock()
	defer c.registryMu.RUnlock()
	ret, ok := c.contracts[addr]
	return ret, ok
}

// Nonce returns the number of contracts deployed by deployer. It must not be
// called from inside an operation
func (c *Chain) Nonce(deployer Principal) uint64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.nonces[deployer]
}

// NextAddress returns the address the next deployment by deployer will get.
// It must not be called from inside an operation
func (c *Chain) NextAddress(deployer Principal) Principal {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return crypto.CreateAddress(deployer, c.nonces[deployer])
}

// ContractAs returns the contract deployed at addr as the interface T
func ContractAs[T any](c *Chain, addr Principal) (T, error) {
	var zero T
	contract, ok := c.Contract(addr)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrContractNotFound, addr.Hex())
	}
	ret, ok := contract.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrContractInterface, addr.Hex())
	}
	return ret, nil
}

// View runs fn while no operation is executing, for consistent reads from
// other goroutines
func (c *Chain) View(fn func() error) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return fn()
}

// Execute runs one externally submitted operation on behalf of sender. All
// state changes and logs made by fn are discarded if it returns an error
func (c *Chain) Execute(
	sender Principal,
	fn func(ctx *Context) error,
) (*Receipt, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	ctx := &Context{
		chain:  c,
		caller: sender,
		self:   sender,
	}
	snapshot := c.journal.Snapshot()
	defer func() {
		if r := recover(); r != nil {
			c.rollback(snapshot)
			panic(r)
		}
	}()
	if err := fn(ctx); err != nil {
		c.rollback(snapshot)
		c.logger.Debug(
			"operation reverted",
			"component", "chain",
			"sender", sender.Hex(),
			"block", c.block.Load(),
			"error", err,
		)
		if c.metrics != nil {
			c.metrics.opsReverted.Inc()
		}
		return nil, err
	}
	return c.commit(sender), nil
}

func (c *Chain) rollback(snapshot int) {
	c.journal.RevertToSnapshot(snapshot)
	c.journal.Reset()
	c.pending = nil
	c.onCommit = nil
}

func (c *Chain) commit(sender Principal) *Receipt {
	block := c.block.Load()
	receipt := &Receipt{
		Sender:  sender,
		Block:   block,
		TxIndex: c.txIndex,
		Logs:    c.pending,
	}
	for i := range receipt.Logs {
		receipt.Logs[i].TxIndex = c.txIndex
		receipt.Logs[i].Index = uint(i)
	}
	callbacks := c.onCommit
	c.pending = nil
	c.onCommit = nil
	c.journal.Reset()
	c.txIndex++
	if c.metrics != nil {
		c.metrics.opsCommitted.Inc()
		c.metrics.logsEmitted.Add(float64(len(receipt.Logs)))
	}
	c.logger.Debug(
		"operation committed",
		"component", "chain",
		"sender", sender.Hex(),
		"block", block,
		"tx", receipt.TxIndex,
		"logs", len(receipt.Logs),
	)
	if c.eventBus != nil {
		for _, l := range receipt.Logs {
			c.eventBus.Publish(
				LogEventType,
				event.NewEvent(LogEventType, l),
			)
		}
		c.eventBus.Publish(
			TxCommittedEventType,
			event.NewEvent(
				TxCommittedEventType,
				TxCommittedEvent{
					Sender:  sender,
					Block:   block,
					TxIndex: receipt.TxIndex,
					Logs:    len(receipt.Logs),
				},
			),
		)
	}
	for _, fn := range callbacks {
		fn()
	}
	return receipt
}

func (c *Chain) updateBlockMetric() {
	if c.metrics != nil {
		c.metrics.blockNum.Set(float64(c.block.Load()))
	}
}

// Deploy creates a contract on behalf of deployer. The constructor runs in a
// frame whose Self is the new contract address, and the contract is
// registered only if the constructor succeeds
func Deploy[T Contract](
	c *Chain,
	deployer Principal,
	construct func(ctx *Context) (T, error),
) (T, error) {
	var ret T
	_, err := c.Execute(deployer, func(ctx *Context) error {
		nonce := c.nonces[deployer]
		StoreMap(c.journal, c.nonces, deployer, nonce+1)
		addr := crypto.CreateAddress(deployer, nonce)
		if _, ok := c.Contract(addr); ok {
			return fmt.Errorf("%w: %s", ErrAddressInUse, addr.Hex())
		}
		return ctx.Invoke(addr, func(frame *Context) error {
			contract, err := construct(frame)
			if err != nil {
				return err
			}
			if contract.Address() != addr {
				return fmt.Errorf(
					"%w: expected %s, got %s",
					ErrAddressChange,
					addr.Hex(),
					contract.Address().Hex(),
				)
			}
			c.register(addr, contract)
			ret = contract
			return nil
		})
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if c.metrics != nil {
		c.metrics.deployments.Inc()
	}
	c.logger.Info(
		fmt.Sprintf("deployed contract at %s", ret.Address().Hex()),
		"component", "chain",
		"deployer", deployer.Hex(),
	)
	return ret, nil
}

func (c *Chain) register(addr Principal, contract Contract) {
	c.registryMu.Lock()
	c.contracts[addr] = contract
	c.registryMu.Unlock()
	c.journal.Append(func() {
		c.registryMu.Lock()
		delete(c.contracts, addr)
		c.registryMu.Unlock()
	})
}

// Context is a call frame. Caller is the principal that entered the frame and
// Self is the principal whose code is running
type Context struct {
	chain  *Chain
	caller Principal
	self   Principal
	depth  int
}

func (ctx *Context) Caller() Principal {
	return ctx.caller
}

func (ctx *Context) Self() Principal {
	return ctx.self
}

func (ctx *Context) Block() uint64 {
	return ctx.chain.block.Load()
}

func (ctx *Context) Chain() *Chain {
	return ctx.chain
}

// Journal returns the journal recording the running operation's changes
func (ctx *Context) Journal() *Journal {
	return ctx.chain.journal
}

// Emit records a log for Self. Logs are discarded with the operation if it fails
func (ctx *Context) Emit(name string, args ...Arg) {
	AppendSlice(ctx.chain.journal, &ctx.chain.pending, Log{
		Address: ctx.self,
		Name:    name,
		Block:   ctx.Block(),
		Args:    args,
	})
}

// OnCommit registers fn to run after the operation commits. It is dropped
// together with the frame's other changes if the frame reverts
func (ctx *Context) OnCommit(fn func()) {
	AppendSlice(ctx.chain.journal, &ctx.chain.onCommit, fn)
}

// Invoke runs fn in a nested frame for target, with the current Self as the
// caller. Changes made by fn are reverted if it fails
func (ctx *Context) Invoke(target Principal, fn func(frame *Context) error) error {
	if ctx.depth+1 > MaxCallDepth {
		return ErrCallDepthExceeded
	}
	frame := &Context{
		chain:  ctx.chain,
		caller: ctx.self,
		self:   target,
		depth:  ctx.depth + 1,
	}
	snapshot := ctx.chain.journal.Snapshot()
	if err := fn(frame); err != nil {
		ctx.chain.journal.RevertToSnapshot(snapshot)
		return err
	}
	return nil
}

// Call sends an encoded call to the contract at target
func (ctx *Context) Call(target Principal, input []byte) ([]byte, error) {
	if ctx.depth+1 > MaxCallDepth {
		return nil, ErrCallDepthExceeded
	}
	dispatchable, err := ContractAs[Dispatchable](ctx.chain, target)
	if err != nil {
		return nil, err
	}
	// The handler enters the target frame itself, so only the depth changes here
	frame := &Context{
		chain:  ctx.chain,
		caller: ctx.caller,
		self:   ctx.self,
		depth:  ctx.depth + 1,
	}
	snapshot := ctx.chain.journal.Snapshot()
	ret, err := dispatchable.Dispatch(frame, input)
	if err != nil {
		ctx.chain.journal.RevertToSnapshot(snapshot)
		return nil, err
	}
	return ret, nil
}

// Require returns err when cond is false
func Require(cond bool, err error) error {
	if !cond {
		return err
	}
	return nil
}
