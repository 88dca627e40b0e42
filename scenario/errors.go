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
	"errors"
	"fmt"

	"github.com/blinklabs-io/gavel/chain"
)

var (
	ErrUnknownKind       = errors.New("unknown deployment kind")
	ErrUnknownName       = errors.New("unknown account or deployment")
	ErrDuplicateName     = errors.New("duplicate account or deployment name")
	ErrUnknownMethod     = errors.New("unknown method")
	ErrUnknownVariable   = errors.New("unknown variable")
	ErrUnknownErrorKind  = errors.New("unknown error kind")
	ErrInvalidValue      = errors.New("invalid value")
	ErrBlockInPast       = errors.New("step block is in the past")
	ErrExpectationFailed = errors.New("expectation failed")
)

// errorKinds maps the names accepted by expectError to error kinds
var errorKinds = map[string]error{
	"authorization": chain.ErrAuthorization,
	"invariant":     chain.ErrInvariantViolation,
	"temporal":      chain.ErrTemporal,
	"reentrancy":    chain.ErrReentrancy,
	"external":      chain.ErrExternalCall,
}

func errorKind(name string) (error, error) {
	kind, ok := errorKinds[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownErrorKind, name)
	}
	return kind, nil
}

// DeploymentError is returned when a deployment fails
type DeploymentError struct {
	Name string
	Err  error
}

func (e DeploymentError) Error() string {
	return fmt.Sprintf("deployment %q: %s", e.Name, e.Err)
}

func (e DeploymentError) Unwrap() error {
	return e.Err
}

// StepError is returned when a step fails or does not meet its expectations
type StepError struct {
	Index int
	Name  string
	Err   error
}

func (e StepError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("step %d: %s", e.Index, e.Err)
	}
	return fmt.Sprintf("step %d (%s): %s", e.Index, e.Name, e.Err)
}

func (e StepError) Unwrap() error {
	return e.Err
}
