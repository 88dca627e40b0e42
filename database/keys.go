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
	"encoding/binary"
)

const (
	logKeyPrefix = "log"
	logKeyLength = len(logKeyPrefix) + 24
)

// logKey orders stored logs by block, operation and emission index
func logKey(block uint64, txIndex uint64, index uint64) []byte {
	key := make([]byte, 0, logKeyLength)
	key = append(key, logKeyPrefix...)
	key = binary.BigEndian.AppendUint64(key, block)
	key = binary.BigEndian.AppendUint64(key, txIndex)
	key = binary.BigEndian.AppendUint64(key, index)
	return key
}

func blockLogPrefix(block uint64) []byte {
	key := make([]byte, 0, len(logKeyPrefix)+8)
	key = append(key, logKeyPrefix...)
	return binary.BigEndian.AppendUint64(key, block)
}
