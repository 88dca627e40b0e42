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

package models

// Event is the searchable index entry for a stored contract log. The full
// log lives in the blob store under the same (block, tx, index) position
type Event struct {
	ID       uint       `gorm:"primarykey"`
	Block    uint64     `gorm:"uniqueIndex:idx_event_position,priority:1;not null"`
	TxIndex  uint64     `gorm:"uniqueIndex:idx_event_position,priority:2;not null"`
	LogIndex uint64     `gorm:"uniqueIndex:idx_event_position,priority:3;not null"`
	Contract []byte     `gorm:"index;size:20;not null"`
	Name     string     `gorm:"index;size:64;not null"`
	Args     []EventArg `gorm:"foreignKey:EventID"`
}

// TableName returns the table name
func (Event) TableName() string {
	return "event"
}

// EventArg is a formatted log argument. Only indexed arguments can be used
// as query filters
type EventArg struct {
	ID       uint   `gorm:"primarykey"`
	EventID  uint   `gorm:"index;not null"`
	Position uint   `gorm:"not null"`
	Name     string `gorm:"index:idx_event_arg_value,priority:1;size:64;not null"`
	Value    string `gorm:"index:idx_event_arg_value,priority:2;not null"`
	Indexed  bool   `gorm:"column:is_indexed;not null"`
}

// TableName returns the table name
func (EventArg) TableName() string {
	return "event_arg"
}

// EventFilter selects events. Zero fields match everything
type EventFilter struct {
	Contract  []byte
	Name      string
	FromBlock uint64
	// ToBlock is inclusive when non-zero
	ToBlock  uint64
	ArgName  string
	ArgValue string
	Limit    int
}
