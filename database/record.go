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

package database

import (
	"strings"

	"github.com/blinklabs-io/gavel/chain"
	"github.com/blinklabs-io/gavel/database/models"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
)

// LogRecord is the stored form of a contract log. Argument values are kept
// in their canonical text form
type LogRecord struct {
	_        struct{} `cbor:",toarray"`
	Contract []byte
	Name     string
	Block    uint64
	TxIndex  uint64
	Index    uint64
	Args     []ArgRecord
}

// ArgRecord is a stored log argument
type ArgRecord struct {
	_       struct{} `cbor:",toarray"`
	Name    string
	Value   string
	Indexed bool
}

// NewLogRecord converts a committed log into its stored form
func NewLogRecord(l chain.Log) LogRecord {
	ret := LogRecord{
		Contract: l.Address.Bytes(),
		Name:     l.Name,
		Block:    l.Block,
		TxIndex:  l.TxIndex,
		Index:    uint64(l.Index),
		Args:     make([]ArgRecord, 0, len(l.Args)),
	}
	for _, arg := range l.Args {
		ret.Args = append(
			ret.Args,
			ArgRecord{
				Name:    arg.Name,
				Value:   chain.FormatValue(arg.Value),
				Indexed: arg.Indexed,
			},
		)
	}
	return ret
}

// ContractAddress returns the emitting contract
func (r LogRecord) ContractAddress() chain.Principal {
	return common.BytesToAddress(r.Contract)
}

// Arg returns the text value of the named argument
func (r LogRecord) Arg(name string) (string, bool) {
	for _, arg := range r.Args {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	return "", false
}

func (r LogRecord) String() string {
	var sb strings.Builder
	sb.WriteString(r.Name)
	sb.WriteString("(")
	for i, arg := range r.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(arg.Name)
		sb.WriteString("=")
		sb.WriteString(arg.Value)
	}
	sb.WriteString(")")
	return sb.String()
}

func (r LogRecord) key() []byte {
	return logKey(r.Block, r.TxIndex, r.Index)
}

func (r LogRecord) model() models.Event {
	ret := models.Event{
		Block:    r.Block,
		TxIndex:  r.TxIndex,
		LogIndex: r.Index,
		Contract: r.Contract,
		Name:     r.Name,
		Args:     make([]models.EventArg, 0, len(r.Args)),
	}
	for i, arg := range r.Args {
		ret.Args = append(
			ret.Args,
			models.EventArg{
				Position: uint(i),
				Name:     arg.Name,
				Value:    arg.Value,
				Indexed:  arg.Indexed,
			},
		)
	}
	return ret
}

func encodeLogRecord(r LogRecord) ([]byte, error) {
	return cbor.Marshal(r)
}

func decodeLogRecord(data []byte) (LogRecord, error) {
	var ret LogRecord
	if err := cbor.Unmarshal(data, &ret); err != nil {
		return LogRecord{}, err
	}
	return ret, nil
}
