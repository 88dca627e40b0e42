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

// Package scenario runs scripted sequences of deployments and calls against a
// chain. Scenarios are YAML documents: named accounts, deployments of the
// governance components, and steps that each advance the block number and
// submit one ABI encoded call.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a parsed scenario document
type Scenario struct {
	Name        string       `yaml:"name"`
	StartBlock  uint64       `yaml:"startBlock"`
	Accounts    []string     `yaml:"accounts"`
	Deployments []Deployment `yaml:"deployments"`
	Steps       []Step       `yaml:"steps"`
}

// Deployment creates one component. Params are decoded according to Kind
type Deployment struct {
	Name     string    `yaml:"name"`
	Kind     string    `yaml:"kind"`
	Deployer string    `yaml:"deployer"`
	Params   yaml.Node `yaml:"params"`
}

// Step optionally advances the chain and then submits one call. A step
// without a method only advances the chain
type Step struct {
	Name string `yaml:"name"`
	// Block advances the chain to an absolute block
	Block uint64 `yaml:"block"`
	// Mine advances the chain by a number of blocks
	Mine   uint64      `yaml:"mine"`
	Sender string      `yaml:"sender"`
	Target string      `yaml:"target"`
	Method string      `yaml:"method"`
	Args   []yaml.Node `yaml:"args"`
	// Expect lists the expected outputs of the call
	Expect []yaml.Node `yaml:"expect"`
	// ExpectError is the kind of error the call must fail with
	ExpectError string `yaml:"expectError"`
	// Save names the outputs so later steps can refer to them as $name
	Save []string `yaml:"save"`
}

// Load reads a scenario file
func Load(path string) (*Scenario, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading scenario file: %w", err)
	}
	return Parse(buf)
}

// Parse decodes a scenario document
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("error parsing scenario: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	names := make(map[string]bool)
	for _, account := range s.Accounts {
		if names[account] {
			return fmt.Errorf("%w: %s", ErrDuplicateName, account)
		}
		names[account] = true
	}
	for _, d := range s.Deployments {
		if d.Name == "" {
			return fmt.Errorf("deployment of kind %q has no name", d.Kind)
		}
		if names[d.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateName, d.Name)
		}
		names[d.Name] = true
		if _, ok := kinds[d.Kind]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownKind, d.Kind)
		}
	}
	for i, step := range s.Steps {
		if step.Block > 0 && step.Mine > 0 {
			return fmt.Errorf("step %d: block and mine are exclusive", i)
		}
		if step.Method == "" {
			if step.Target != "" || len(step.Args) > 0 || step.ExpectError != "" {
				return fmt.Errorf("step %d: call fields without a method", i)
			}
			continue
		}
		if step.Target == "" || step.Sender == "" {
			return fmt.Errorf("step %d: a call needs a sender and a target", i)
		}
		if step.ExpectError != "" {
			if _, err := errorKind(step.ExpectError); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
		}
	}
	return nil
}
