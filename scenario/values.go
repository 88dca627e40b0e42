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
	"encoding/hex"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/blinklabs-io/gavel/chain"
	"github.com/blinklabs-io/gavel/voting"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"gopkg.in/yaml.v3"
)

// callSpec is an encoded call written out as a target, a method and its arguments
type callSpec struct {
	Target string      `yaml:"target"`
	Method string      `yaml:"method"`
	Args   []yaml.Node `yaml:"args"`
	// Data is raw call data, used instead of Method and Args
	Data string `yaml:"data"`
}

type abiSpec struct {
	Types  []string    `yaml:"types"`
	Values []yaml.Node `yaml:"values"`
}

type voteIDSpec struct {
	Rationale yaml.Node  `yaml:"rationale"`
	Actions   []callSpec `yaml:"actions"`
}

// hashSpec holds the supported ways of writing a bytes32 value besides hex
type hashSpec struct {
	Text        *string     `yaml:"text"`
	ActionsHash *[]callSpec `yaml:"actionsHash"`
	VoteID      *voteIDSpec `yaml:"voteId"`
}

// bytesSpec holds the supported ways of writing a bytes value besides hex
type bytesSpec struct {
	Call *callSpec `yaml:"call"`
	ABI  *abiSpec  `yaml:"abi"`
}

var bytes32Type = mustType("bytes32")

func mustType(t string) abi.Type {
	ret, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return ret
}

func invalid(node *yaml.Node, format string, args ...any) error {
	return fmt.Errorf(
		"%w: line %d: %s",
		ErrInvalidValue,
		node.Line,
		fmt.Sprintf(format, args...),
	)
}

// scalar returns the text of a scalar node with $variables substituted
func (r *Runner) scalar(node *yaml.Node) (string, error) {
	if node.Kind != yaml.ScalarNode {
		return "", invalid(node, "expected a scalar")
	}
	if name, ok := strings.CutPrefix(node.Value, "$"); ok {
		val, ok := r.vars[name]
		if !ok {
			return "", fmt.Errorf("%w: $%s", ErrUnknownVariable, name)
		}
		return val, nil
	}
	return node.Value, nil
}

// value converts a YAML node into the Go value the ABI codec expects for typ
func (r *Runner) value(typ abi.Type, node *yaml.Node) (any, error) {
	switch typ.T {
	case abi.AddressTy:
		s, err := r.scalar(node)
		if err != nil {
			return nil, err
		}
		return r.resolve(s)
	case abi.UintTy, abi.IntTy:
		s, err := r.scalar(node)
		if err != nil {
			return nil, err
		}
		return integer(typ, s, node)
	case abi.BoolTy:
		s, err := r.scalar(node)
		if err != nil {
			return nil, err
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, invalid(node, "%q is not a bool", s)
		}
		return b, nil
	case abi.StringTy:
		return r.scalar(node)
	case abi.FixedBytesTy:
		return r.fixedBytes(typ, node)
	case abi.BytesTy:
		return r.bytes(node)
	case abi.SliceTy:
		if typ.Elem.T == abi.TupleTy {
			return r.actions(node)
		}
		if node.Kind != yaml.SequenceNode {
			return nil, invalid(node, "expected a list")
		}
		ret := reflect.MakeSlice(typ.GetType(), 0, len(node.Content))
		for _, item := range node.Content {
			v, err := r.value(*typ.Elem, item)
			if err != nil {
				return nil, err
			}
			ret = reflect.Append(ret, reflect.ValueOf(v))
		}
		return ret.Interface(), nil
	case abi.ArrayTy:
		if node.Kind != yaml.SequenceNode || len(node.Content) != typ.Size {
			return nil, invalid(node, "expected a list of %d items", typ.Size)
		}
		ret := reflect.New(typ.GetType()).Elem()
		for i, item := range node.Content {
			v, err := r.value(*typ.Elem, item)
			if err != nil {
				return nil, err
			}
			ret.Index(i).Set(reflect.ValueOf(v))
		}
		return ret.Interface(), nil
	default:
		return nil, invalid(node, "unsupported type %s", typ.String())
	}
}

// integer parses decimal or 0x prefixed hex. "max" is the largest value of the type
func integer(typ abi.Type, s string, node *yaml.Node) (any, error) {
	v := new(big.Int)
	if s == "max" {
		bits := typ.Size
		if typ.T == abi.IntTy {
			bits--
		}
		v.Lsh(big.NewInt(1), uint(bits)).Sub(v, big.NewInt(1))
	} else if _, ok := v.SetString(s, 0); !ok {
		return nil, invalid(node, "%q is not an integer", s)
	}
	if typ.T == abi.UintTy {
		if v.Sign() < 0 || v.BitLen() > typ.Size {
			return nil, invalid(node, "%s out of range for %s", s, typ.String())
		}
		switch typ.Size {
		case 8:
			return uint8(v.Uint64()), nil
		case 16:
			return uint16(v.Uint64()), nil
		case 32:
			return uint32(v.Uint64()), nil
		case 64:
			return v.Uint64(), nil
		}
		return v, nil
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(typ.Size-1))
	if v.Cmp(limit) >= 0 || v.Cmp(new(big.Int).Neg(limit)) < 0 {
		return nil, invalid(node, "%s out of range for %s", s, typ.String())
	}
	switch typ.Size {
	case 8:
		return int8(v.Int64()), nil
	case 16:
		return int16(v.Int64()), nil
	case 32:
		return int32(v.Int64()), nil
	case 64:
		return v.Int64(), nil
	}
	return v, nil
}

func decodeHex(s string, node *yaml.Node) ([]byte, error) {
	trimmed, ok := strings.CutPrefix(s, "0x")
	if !ok {
		return nil, invalid(node, "%q is not 0x prefixed hex", s)
	}
	ret, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, invalid(node, "%q: %s", s, err)
	}
	return ret, nil
}

func (r *Runner) fixedBytes(typ abi.Type, node *yaml.Node) (any, error) {
	var data []byte
	if node.Kind == yaml.MappingNode {
		if typ.Size != common.HashLength {
			return nil, invalid(node, "only bytes32 accepts a derived value")
		}
		hash, err := r.hash(node)
		if err != nil {
			return nil, err
		}
		data = hash[:]
	} else {
		s, err := r.scalar(node)
		if err != nil {
			return nil, err
		}
		if data, err = decodeHex(s, node); err != nil {
			return nil, err
		}
	}
	if len(data) != typ.Size {
		return nil, invalid(node, "expected %d bytes, got %d", typ.Size, len(data))
	}
	ret := reflect.New(typ.GetType()).Elem()
	reflect.Copy(ret, reflect.ValueOf(data))
	return ret.Interface(), nil
}

// hash derives a bytes32 value from text, an action batch or a proposal
func (r *Runner) hash(node *yaml.Node) (common.Hash, error) {
	var spec hashSpec
	if err := node.Decode(&spec); err != nil {
		return common.Hash{}, invalid(node, "%s", err)
	}
	switch {
	case spec.Text != nil:
		return crypto.Keccak256Hash([]byte(*spec.Text)), nil
	case spec.ActionsHash != nil:
		actions, err := r.callSpecs(*spec.ActionsHash)
		if err != nil {
			return common.Hash{}, err
		}
		return voting.ActionsHash(actions)
	case spec.VoteID != nil:
		rationale, err := r.fixedBytes(bytes32Type, &spec.VoteID.Rationale)
		if err != nil {
			return common.Hash{}, err
		}
		actions, err := r.callSpecs(spec.VoteID.Actions)
		if err != nil {
			return common.Hash{}, err
		}
		actionsHash, err := voting.ActionsHash(actions)
		if err != nil {
			return common.Hash{}, err
		}
		return voting.VoteID(rationale.([32]byte), actionsHash), nil
	}
	return common.Hash{}, invalid(node, "expected text, actionsHash or voteId")
}

func (r *Runner) bytes(node *yaml.Node) ([]byte, error) {
	if node.Kind != yaml.MappingNode {
		s, err := r.scalar(node)
		if err != nil {
			return nil, err
		}
		return decodeHex(s, node)
	}
	var spec bytesSpec
	if err := node.Decode(&spec); err != nil {
		return nil, invalid(node, "%s", err)
	}
	switch {
	case spec.Call != nil:
		action, err := r.callSpec(*spec.Call)
		if err != nil {
			return nil, err
		}
		return action.Data, nil
	case spec.ABI != nil:
		if len(spec.ABI.Types) != len(spec.ABI.Values) {
			return nil, invalid(node, "abi types and values differ in length")
		}
		var (
			args   abi.Arguments
			values []any
		)
		for i, t := range spec.ABI.Types {
			typ, err := abi.NewType(t, "", nil)
			if err != nil {
				return nil, invalid(node, "%s", err)
			}
			v, err := r.value(typ, &spec.ABI.Values[i])
			if err != nil {
				return nil, err
			}
			args = append(args, abi.Argument{Type: typ})
			values = append(values, v)
		}
		return args.Pack(values...)
	}
	return nil, invalid(node, "expected call or abi")
}

func (r *Runner) actions(node *yaml.Node) ([]chain.ActionTuple, error) {
	var specs []callSpec
	if err := node.Decode(&specs); err != nil {
		return nil, invalid(node, "%s", err)
	}
	return r.callSpecs(specs)
}

func (r *Runner) callSpecs(specs []callSpec) ([]chain.ActionTuple, error) {
	ret := make([]chain.ActionTuple, 0, len(specs))
	for _, spec := range specs {
		action, err := r.callSpec(spec)
		if err != nil {
			return nil, err
		}
		ret = append(ret, action)
	}
	return ret, nil
}

func (r *Runner) callSpec(spec callSpec) (chain.ActionTuple, error) {
	target, err := r.resolve(spec.Target)
	if err != nil {
		return chain.ActionTuple{}, err
	}
	if spec.Method == "" {
		data, err := decodeHex(spec.Data, &yaml.Node{})
		if err != nil {
			return chain.ActionTuple{}, err
		}
		return chain.ActionTuple{Target: target, Data: data}, nil
	}
	method, err := r.method(target, spec.Method)
	if err != nil {
		return chain.ActionTuple{}, err
	}
	values, err := r.values(method.Inputs, spec.Args)
	if err != nil {
		return chain.ActionTuple{}, err
	}
	data, err := method.Pack(values...)
	if err != nil {
		return chain.ActionTuple{}, err
	}
	return chain.ActionTuple{Target: target, Data: data}, nil
}

func (r *Runner) values(args abi.Arguments, nodes []yaml.Node) ([]any, error) {
	if len(nodes) != len(args) {
		return nil, fmt.Errorf(
			"%w: expected %d values, got %d",
			ErrInvalidValue,
			len(args),
			len(nodes),
		)
	}
	ret := make([]any, 0, len(args))
	for i, arg := range args {
		v, err := r.value(arg.Type, &nodes[i])
		if err != nil {
			return nil, err
		}
		ret = append(ret, v)
	}
	return ret, nil
}

// formatOutput renders a decoded ABI value the same way for expected and
// actual outputs
func formatOutput(v any) string {
	switch val := v.(type) {
	case *big.Int:
		return val.String()
	case common.Address:
		return val.Hex()
	case []byte:
		return fmt.Sprintf("0x%x", val)
	case string:
		return val
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			buf := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(buf), rv)
			return fmt.Sprintf("0x%x", buf)
		}
		fallthrough
	case reflect.Slice:
		items := make([]string, rv.Len())
		for i := range items {
			items[i] = formatOutput(rv.Index(i).Interface())
		}
		return "[" + strings.Join(items, ",") + "]"
	}
	return fmt.Sprint(v)
}
