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

// Journal records undo actions for every state change made while an
// operation executes. Snapshots are positions in the journal; reverting to a
// snapshot runs the recorded undo actions newest first
type Journal struct {
	entries []func()
}

// NewJournal returns an empty journal
func NewJournal() *Journal {
	return &Journal{}
}

// Append records an undo action
func (j *Journal) Append(undo func()) {
	j.entries = append(j.entries, undo)
}

// Snapshot returns an identifier for the current journal position
func (j *Journal) Snapshot() int {
	return len(j.entries)
}

// RevertToSnapshot undoes every change recorded after the snapshot was taken
func (j *Journal) RevertToSnapshot(id int) {
	if id < 0 {
		id = 0
	}
	for i := len(j.entries) - 1; i >= id; i-- {
		j.entries[i]()
		j.entries[i] = nil
	}
	if id < len(j.entries) {
		j.entries = j.entries[:id]
	}
}

// Len returns the number of recorded undo actions
func (j *Journal) Len() int {
	return len(j.entries)
}

// Reset forgets all recorded undo actions, making the changes permanent
func (j *Journal) Reset() {
	clear(j.entries)
	j.entries = j.entries[:0]
}

// Store sets *ptr to value and records the previous value in the journal
func Store[T any](j *Journal, ptr *T, value T) {
	old := *ptr
	j.Append(func() { *ptr = old })
	*ptr = value
}

// StoreMap sets m[key] to value and records the previous entry in the journal
func StoreMap[K comparable, V any](j *Journal, m map[K]V, key K, value V) {
	old, ok := m[key]
	j.Append(func() {
		if ok {
			m[key] = old
		} else {
			delete(m, key)
		}
	})
	m[key] = value
}

// DeleteMap removes m[key] and records the previous entry in the journal
func DeleteMap[K comparable, V any](j *Journal, m map[K]V, key K) {
	old, ok := m[key]
	if !ok {
		return
	}
	j.Append(func() { m[key] = old })
	delete(m, key)
}

// AppendSlice appends value to *s and records the previous length in the journal
func AppendSlice[T any](j *Journal, s *[]T, value T) {
	oldLen := len(*s)
	j.Append(func() {
		var zero T
		(*s)[oldLen] = zero
		*s = (*s)[:oldLen]
	})
	*s = append(*s, value)
}
