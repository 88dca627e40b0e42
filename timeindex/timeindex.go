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

// Package timeindex keeps append-only checkpoint histories that answer
// "value as of position P" queries with a binary search
package timeindex

import (
	"sort"

	"github.com/blinklabs-io/gavel/chain"
)

var ErrOutOfOrder = chain.NewError(
	chain.ErrInvariantViolation,
	"checkpoint position precedes the latest checkpoint",
)

// Checkpoint is a value recorded at a position
type Checkpoint[T any] struct {
	Position uint64
	Value    T
}

// History is the ordered checkpoint sequence of one subject. Positions are
// strictly increasing and a write at the latest position replaces its value.
// T should be a value type, since stored values are returned by copy
type History[T any] struct {
	checkpoints []Checkpoint[T]
}

// Record appends a checkpoint, or replaces the value of the latest checkpoint
// when it has the same position. A nil journal makes the write permanent
func (h *History[T]) Record(j *chain.Journal, position uint64, value T) error {
	n := len(h.checkpoints)
	if n > 0 {
		last := &h.checkpoints[n-1]
		if position < last.Position {
			return ErrOutOfOrder
		}
		if position == last.Position {
			if j != nil {
				chain.Store(j, &last.Value, value)
			} else {
				last.Value = value
			}
			return nil
		}
	}
	if j != nil {
		chain.AppendSlice(j, &h.checkpoints, Checkpoint[T]{Position: position, Value: value})
	} else {
		h.checkpoints = append(h.checkpoints, Checkpoint[T]{Position: position, Value: value})
	}
	return nil
}

// ValueAt returns the value of the latest checkpoint at or before position,
// or the zero value when there is none
func (h *History[T]) ValueAt(position uint64) T {
	// First checkpoint strictly after position
	idx := sort.Search(len(h.checkpoints), func(i int) bool {
		return h.checkpoints[i].Position > position
	})
	if idx == 0 {
		var zero T
		return zero
	}
	return h.checkpoints[idx-1].Value
}

// Latest returns the most recent value, or the zero value when empty
func (h *History[T]) Latest() T {
	if len(h.checkpoints) == 0 {
		var zero T
		return zero
	}
	return h.checkpoints[len(h.checkpoints)-1].Value
}

// Len returns the number of checkpoints
func (h *History[T]) Len() int {
	return len(h.checkpoints)
}

// Checkpoints returns a copy of the checkpoint sequence
func (h *History[T]) Checkpoints() []Checkpoint[T] {
	ret := make([]Checkpoint[T], len(h.checkpoints))
	copy(ret, h.checkpoints)
	return ret
}

// Index holds one history per subject
type Index[K comparable, T any] struct {
	subjects map[K]*History[T]
}

func NewIndex[K comparable, T any]() *Index[K, T] {
	return &Index[K, T]{
		subjects: make(map[K]*History[T]),
	}
}

// Record writes a checkpoint for subject
func (x *Index[K, T]) Record(j *chain.Journal, subject K, position uint64, value T) error {
	h, ok := x.subjects[subject]
	if !ok {
		h = &History[T]{}
		if j != nil {
			chain.StoreMap(j, x.subjects, subject, h)
		} else {
			x.subjects[subject] = h
		}
	}
	return h.Record(j, position, value)
}

// ValueAt returns the value for subject as of position
func (x *Index[K, T]) ValueAt(subject K, position uint64) T {
	h, ok := x.subjects[subject]
	if !ok {
		var zero T
		return zero
	}
	return h.ValueAt(position)
}

// Latest returns the most recent value for subject
func (x *Index[K, T]) Latest(subject K) T {
	h, ok := x.subjects[subject]
	if !ok {
		var zero T
		return zero
	}
	return h.Latest()
}

// History returns the history of subject, if any
func (x *Index[K, T]) History(subject K) (*History[T], bool) {
	h, ok := x.subjects[subject]
	return h, ok
}

// Len returns the number of subjects with at least one checkpoint
func (x *Index[K, T]) Len() int {
	return len(x.subjects)
}

// Guard fails with a temporal error when position is after current. Historical
// reads call it before looking anything up
func Guard(position, current uint64) error {
	if position > current {
		return chain.ErrFuturePosition
	}
	return nil
}
