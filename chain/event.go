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
	"fmt"
	"strings"

	"github.com/blinklabs-io/gavel/event"
	"github.com/holiman/uint256"
)

const (
	LogEventType         event.EventType = "chain.log"
	TxCommittedEventType event.EventType = "chain.tx-committed"
)

// Arg is a named log argument. Indexed arguments are searchable by indexers
type Arg struct {
	Name    string
	Value   any
	Indexed bool
}

// Indexed returns an indexed log argument
func Indexed(name string, value any) Arg {
	return Arg{Name: name, Value: value, Indexed: true}
}

// Data returns a non-indexed log argument
func Data(name string, value any) Arg {
	return Arg{Name: name, Value: value}
}

// Log is a structured record of a state change emitted by a contract
type Log struct {
	Address Principal
	Name    string
	Block   uint64
	TxIndex uint64
	Index   uint
	Args    []Arg
}

// Arg returns the value of the named argument
func (l Log) Arg(name string) (any, bool) {
	for _, arg := range l.Args {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	return nil, false
}

func (l Log) String() string {
	var sb strings.Builder
	sb.WriteString(l.Name)
	sb.WriteString("(")
	for i, arg := range l.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(arg.Name)
		sb.WriteString("=")
		sb.WriteString(FormatValue(arg.Value))
	}
	sb.WriteString(")")
	return sb.String()
}

// TxCommittedEvent is published after an operation commits, following its logs
type TxCommittedEvent struct {
	Sender  Principal
	Block   uint64
	TxIndex uint64
	Logs    int
}

// FormatValue renders a log argument value in its canonical text form:
// principals and hashes as hex, amounts as decimal
func FormatValue(v any) string {
	switch val := v.(type) {
	case Principal:
		return val.Hex()
	case *uint256.Int:
		if val == nil {
			return "0"
		}
		return val.ToBig().String()
	case uint256.Int:
		return val.ToBig().String()
	case [32]byte:
		return fmt.Sprintf("0x%x", val[:])
	case []byte:
		return fmt.Sprintf("0x%x", val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
