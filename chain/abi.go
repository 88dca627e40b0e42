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
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// SelectorLength is the length of the method selector prefixing encoded calls
const SelectorLength = 4

var ErrMalformedCall = NewError(ErrExternalCall, "malformed call data")

// Selector identifies a method by the first four bytes of the keccak hash of its signature
type Selector [SelectorLength]byte

func (s Selector) String() string {
	return fmt.Sprintf("0x%x", s[:])
}

// SelectorOf returns the selector for a canonical method signature such as
// "transfer(address,uint256)"
func SelectorOf(signature string) Selector {
	var s Selector
	copy(s[:], crypto.Keccak256([]byte(signature)))
	return s
}

// Method describes an externally callable contract method
type Method struct {
	Name     string
	Sig      string
	ID       Selector
	Inputs   abi.Arguments
	Outputs  abi.Arguments
	ReadOnly bool
}

// NewMethod builds a method from its name and ABI type strings. It panics on
// an invalid type, so it is meant for package-level method tables
func NewMethod(name string, inputs []string, outputs []string) Method {
	in := mustArguments(inputs)
	out := mustArguments(outputs)
	sig := fmt.Sprintf("%s(%s)", name, strings.Join(inputs, ","))
	return Method{
		Name:    name,
		Sig:     sig,
		ID:      SelectorOf(sig),
		Inputs:  in,
		Outputs: out,
	}
}

// NewReadOnlyMethod is NewMethod for methods that do not change state
func NewReadOnlyMethod(name string, inputs []string, outputs []string) Method {
	m := NewMethod(name, inputs, outputs)
	m.ReadOnly = true
	return m
}

func mustArguments(types []string) abi.Arguments {
	args := make(abi.Arguments, 0, len(types))
	for i, t := range types {
		var (
			typ abi.Type
			err error
		)
		if t == ActionTupleType {
			typ, err = abi.NewType("tuple[]", "", actionTupleComponents)
		} else {
			typ, err = abi.NewType(t, "", nil)
		}
		if err != nil {
			panic(fmt.Sprintf("invalid ABI type %q: %s", t, err))
		}
		args = append(args, abi.Argument{
			Name: fmt.Sprintf("arg%d", i),
			Type: typ,
		})
	}
	return args
}

// Pack encodes a call to the method
func (m Method) Pack(args ...any) ([]byte, error) {
	data, err := m.Inputs.Pack(args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", m.Sig, err)
	}
	return append(m.ID[:], data...), nil
}

// MustPack is Pack for statically known arguments
func (m Method) MustPack(args ...any) []byte {
	data, err := m.Pack(args...)
	if err != nil {
		panic(err)
	}
	return data
}

// Unpack decodes call arguments, excluding the selector
func (m Method) Unpack(data []byte) ([]any, error) {
	args, err := m.Inputs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrMalformedCall, m.Sig, err)
	}
	return args, nil
}

// PackOutputs encodes return values
func (m Method) PackOutputs(values ...any) ([]byte, error) {
	if len(m.Outputs) == 0 {
		return nil, nil
	}
	return m.Outputs.Pack(values...)
}

// UnpackOutputs decodes return values
func (m Method) UnpackOutputs(data []byte) ([]any, error) {
	if len(m.Outputs) == 0 {
		return nil, nil
	}
	return m.Outputs.Unpack(data)
}

// Handler executes a decoded call. It returns the method outputs
type Handler func(ctx *Context, args []any) ([]any, error)

type dispatchEntry struct {
	method  Method
	handler Handler
}

// Dispatcher routes encoded calls to typed handlers by selector
type Dispatcher struct {
	entries map[Selector]dispatchEntry
	byName  map[string]Method
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		entries: make(map[Selector]dispatchEntry),
		byName:  make(map[string]Method),
	}
}

// Register adds a method and its handler
func (d *Dispatcher) Register(m Method, h Handler) *Dispatcher {
	if _, ok := d.entries[m.ID]; ok {
		panic("duplicate selector for " + m.Sig)
	}
	d.entries[m.ID] = dispatchEntry{method: m, handler: h}
	d.byName[m.Name] = m
	return d
}

// Method returns the method registered under name
func (d *Dispatcher) Method(name string) (Method, bool) {
	m, ok := d.byName[name]
	return m, ok
}

// Methods returns every registered method
func (d *Dispatcher) Methods() []Method {
	ret := make([]Method, 0, len(d.entries))
	for _, entry := range d.entries {
		ret = append(ret, entry.method)
	}
	return ret
}

// Dispatch decodes an encoded call and runs the matching handler
func (d *Dispatcher) Dispatch(ctx *Context, input []byte) ([]byte, error) {
	if len(input) < SelectorLength {
		return nil, ErrMalformedCall
	}
	var sel Selector
	copy(sel[:], input[:SelectorLength])
	entry, ok := d.entries[sel]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSelector, sel)
	}
	args, err := entry.method.Unpack(input[SelectorLength:])
	if err != nil {
		return nil, err
	}
	outputs, err := entry.handler(ctx, args)
	if err != nil {
		return nil, err
	}
	return entry.method.PackOutputs(outputs...)
}

// ActionTupleType is the ABI type of an ordered batch of encoded calls
const ActionTupleType = "(address,bytes)[]"

var actionTupleComponents = []abi.ArgumentMarshaling{
	{Name: "target", Type: "address"},
	{Name: "data", Type: "bytes"},
}

// ActionTuple is the ABI representation of one encoded call
type ActionTuple struct {
	Target common.Address
	Data   []byte
}

// Argument conversion helpers used by dispatch handlers

func ArgPrincipal(args []any, i int) (Principal, error) {
	if i >= len(args) {
		return NilPrincipal, ErrMalformedCall
	}
	v, ok := args[i].(common.Address)
	if !ok {
		return NilPrincipal, fmt.Errorf("%w: argument %d is %T, not address", ErrMalformedCall, i, args[i])
	}
	return v, nil
}

func ArgAmount(args []any, i int) (*uint256.Int, error) {
	if i >= len(args) {
		return nil, ErrMalformedCall
	}
	v, ok := args[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: argument %d is %T, not uint256", ErrMalformedCall, i, args[i])
	}
	return AmountFromBig(v)
}

func ArgUint64(args []any, i int) (uint64, error) {
	if i >= len(args) {
		return 0, ErrMalformedCall
	}
	switch v := args[i].(type) {
	case uint64:
		return v, nil
	case *big.Int:
		if !v.IsUint64() {
			return 0, ErrArithmeticOverflow
		}
		return v.Uint64(), nil
	default:
		return 0, fmt.Errorf("%w: argument %d is %T, not uint64", ErrMalformedCall, i, args[i])
	}
}

func ArgInt64(args []any, i int) (int64, error) {
	if i >= len(args) {
		return 0, ErrMalformedCall
	}
	v, ok := args[i].(int64)
	if !ok {
		return 0, fmt.Errorf("%w: argument %d is %T, not int64", ErrMalformedCall, i, args[i])
	}
	return v, nil
}

func ArgHash(args []any, i int) (common.Hash, error) {
	if i >= len(args) {
		return common.Hash{}, ErrMalformedCall
	}
	v, ok := args[i].([32]byte)
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: argument %d is %T, not bytes32", ErrMalformedCall, i, args[i])
	}
	return common.Hash(v), nil
}

func ArgBool(args []any, i int) (bool, error) {
	if i >= len(args) {
		return false, ErrMalformedCall
	}
	v, ok := args[i].(bool)
	if !ok {
		return false, fmt.Errorf("%w: argument %d is %T, not bool", ErrMalformedCall, i, args[i])
	}
	return v, nil
}

func ArgBytes(args []any, i int) ([]byte, error) {
	if i >= len(args) {
		return nil, ErrMalformedCall
	}
	v, ok := args[i].([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: argument %d is %T, not bytes", ErrMalformedCall, i, args[i])
	}
	return v, nil
}

func ArgPrincipals(args []any, i int) ([]Principal, error) {
	if i >= len(args) {
		return nil, ErrMalformedCall
	}
	v, ok := args[i].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("%w: argument %d is %T, not address[]", ErrMalformedCall, i, args[i])
	}
	return v, nil
}

func ArgActions(args []any, i int) ([]ActionTuple, error) {
	if i >= len(args) {
		return nil, ErrMalformedCall
	}
	var (
		ret []ActionTuple
		err error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: argument %d: %v", ErrMalformedCall, i, r)
			}
		}()
		ret = *abi.ConvertType(args[i], new([]ActionTuple)).(*[]ActionTuple)
	}()
	return ret, err
}

// AmountFromBig converts a non-negative big integer into a 256-bit amount
func AmountFromBig(v *big.Int) (*uint256.Int, error) {
	if v == nil || v.Sign() < 0 {
		return nil, ErrMalformedCall
	}
	ret, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return ret, nil
}

// PackActions returns the canonical ABI encoding of an action batch
func PackActions(actions []ActionTuple) ([]byte, error) {
	if actions == nil {
		actions = []ActionTuple{}
	}
	return actionArguments.Pack(actions)
}

var actionArguments = mustArguments([]string{ActionTupleType})

// HasSelector reports whether input starts with the selector of m
func (m Method) HasSelector(input []byte) bool {
	return len(input) >= SelectorLength && bytes.Equal(input[:SelectorLength], m.ID[:])
}
