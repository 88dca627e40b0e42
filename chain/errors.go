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
)

// Error kinds. Every failed operation matches exactly one of these with errors.Is
var (
	ErrAuthorization      = errors.New("authorization error")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrTemporal           = errors.New("temporal error")
	ErrReentrancy         = errors.New("reentrancy error")
	ErrExternalCall       = errors.New("external call failure")
)

var (
	ErrContractNotFound = NewError(
		ErrExternalCall,
		"no contract at target address",
	)
	ErrContractInterface = NewError(
		ErrExternalCall,
		"contract does not implement the required interface",
	)
	ErrUnknownSelector = NewError(
		ErrExternalCall,
		"unknown method selector",
	)
	ErrCallDepthExceeded = NewError(
		ErrExternalCall,
		"maximum call depth exceeded",
	)
	ErrArithmeticOverflow = NewError(
		ErrInvariantViolation,
		"arithmetic overflow",
	)
	ErrFuturePosition = NewError(
		ErrTemporal,
		"position is in the future",
	)
	ErrNotExecuting = errors.New("chain is not executing an operation")
)

// Error is a failed-operation condition tagged with one of the error kinds
type Error struct {
	kind error
	msg  string
}

// NewError returns a new condition of the given kind
func NewError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string {
	return e.msg
}

// Kind returns the error kind sentinel
func (e *Error) Kind() error {
	return e.kind
}

func (e *Error) Unwrap() error {
	return e.kind
}

// ExternalCallError wraps the failure of a nested call made against another contract
type ExternalCallError struct {
	target Principal
	err    error
}

func NewExternalCallError(target Principal, err error) ExternalCallError {
	return ExternalCallError{
		target: target,
		err:    err,
	}
}

func (e ExternalCallError) Target() Principal {
	return e.target
}

func (e ExternalCallError) Error() string {
	return fmt.Sprintf(
		"call to %s failed: %s",
		e.target.Hex(),
		e.err,
	)
}

func (e ExternalCallError) Unwrap() []error {
	return []error{ErrExternalCall, e.err}
}

// KindOf returns the error kind sentinel matched by err, or nil
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	// Nested call failures also match the kind of the inner error
	for _, kind := range []error{
		ErrExternalCall,
		ErrAuthorization,
		ErrInvariantViolation,
		ErrTemporal,
		ErrReentrancy,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
