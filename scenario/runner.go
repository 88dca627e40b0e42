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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/blinklabs-io/gavel/bondingcurve"
	"github.com/blinklabs-io/gavel/chain"
	"github.com/blinklabs-io/gavel/voting"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"
)

const tracerName = "github.com/blinklabs-io/gavel/scenario"

// Result records what each step of a scenario did
type Result struct {
	Name  string
	Steps []StepResult
}

type StepResult struct {
	Name   string
	Block  uint64
	Method string
	// Outputs are the decoded return values in their canonical text form
	Outputs []string
	Logs    []chain.Log
	// Err is the error of a call that was expected to fail
	Err error
}

// Runner executes scenarios against a chain. A runner keeps the names and
// saved variables of the scenarios it ran, so several scenarios can be run in
// sequence against the same deployments
type Runner struct {
	chain          *chain.Chain
	logger         *slog.Logger
	promRegistry   prometheus.Registerer
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
	addresses      map[string]chain.Principal
	vars           map[string]string
	voting         *voting.Metrics
	curve          *bondingcurve.Metrics
}

// NewRunner returns a runner for c
func NewRunner(c *chain.Chain, opts ...RunnerOptionFunc) *Runner {
	r := &Runner{
		chain:     c,
		addresses: make(map[string]chain.Principal),
		vars:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if r.tracerProvider == nil {
		r.tracerProvider = otel.GetTracerProvider()
	}
	r.tracer = r.tracerProvider.Tracer(tracerName)
	return r
}

// Address returns the principal bound to an account or deployment name
func (r *Runner) Address(name string) (chain.Principal, bool) {
	p, ok := r.addresses[name]
	return p, ok
}

// Var returns a saved output
func (r *Runner) Var(name string) (string, bool) {
	v, ok := r.vars[name]
	return v, ok
}

func (r *Runner) votingMetrics() *voting.Metrics {
	if r.voting == nil && r.promRegistry != nil {
		r.voting = voting.NewMetrics(r.promRegistry)
	}
	return r.voting
}

func (r *Runner) curveMetrics() *bondingcurve.Metrics {
	if r.curve == nil && r.promRegistry != nil {
		r.curve = bondingcurve.NewMetrics(r.promRegistry)
	}
	return r.curve
}

// resolve maps a name to a principal. Besides account and deployment names it
// accepts hex addresses and the reserved names nil and one
func (r *Runner) resolve(name string) (chain.Principal, error) {
	switch name {
	case "nil":
		return chain.NilPrincipal, nil
	case "one":
		return chain.OnePrincipal, nil
	}
	if p, ok := r.addresses[name]; ok {
		return p, nil
	}
	if strings.HasPrefix(name, "0x") && common.IsHexAddress(name) {
		return common.HexToAddress(name), nil
	}
	return chain.NilPrincipal, fmt.Errorf("%w: %q", ErrUnknownName, name)
}

func (r *Runner) bind(name string, p chain.Principal) error {
	if _, ok := r.addresses[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	r.addresses[name] = p
	return nil
}

func (r *Runner) method(target chain.Principal, name string) (chain.Method, error) {
	contract, err := chain.ContractAs[interface {
		Methods() *chain.Dispatcher
	}](r.chain, target)
	if err != nil {
		return chain.Method{}, err
	}
	m, ok := contract.Methods().Method(name)
	if !ok {
		return chain.Method{}, fmt.Errorf("%w: %s on %s", ErrUnknownMethod, name, target.Hex())
	}
	return m, nil
}

// Run deploys the scenario's components and runs its steps in order. It stops
// at the first failing step and returns the results of the steps run so far
func (r *Runner) Run(ctx context.Context, s *Scenario) (*Result, error) {
	ctx, span := r.tracer.Start(
		ctx,
		"scenario",
		trace.WithAttributes(attribute.String("scenario.name", s.Name)),
	)
	defer span.End()
	result := &Result{Name: s.Name}
	err := r.run(ctx, s, result)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (r *Runner) run(ctx context.Context, s *Scenario, result *Result) error {
	if s.StartBlock > r.chain.BlockNumber() {
		if err := r.chain.AdvanceTo(s.StartBlock); err != nil {
			return err
		}
	}
	for _, account := range s.Accounts {
		if err := r.bind(account, chain.PrincipalFromName(account)); err != nil {
			return err
		}
	}
	if err := r.deploy(s.Deployments); err != nil {
		return err
	}
	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		stepResult, err := r.runStep(ctx, step)
		if err != nil {
			return StepError{Index: i, Name: step.Name, Err: err}
		}
		result.Steps = append(result.Steps, stepResult)
	}
	return nil
}

// deploy binds every deployment name to its future address before deploying
// anything, so components can refer to ones deployed after them
func (r *Runner) deploy(deployments []Deployment) error {
	deployers := make([]chain.Principal, len(deployments))
	expected := make([]chain.Principal, len(deployments))
	nonces := make(map[chain.Principal]uint64)
	for i, d := range deployments {
		deployer, err := r.resolve(d.Deployer)
		if err != nil {
			return DeploymentError{Name: d.Name, Err: err}
		}
		nonce, ok := nonces[deployer]
		if !ok {
			nonce = r.chain.Nonce(deployer)
		}
		nonces[deployer] = nonce + 1
		deployers[i] = deployer
		expected[i] = crypto.CreateAddress(deployer, nonce)
		if err := r.bind(d.Name, expected[i]); err != nil {
			return DeploymentError{Name: d.Name, Err: err}
		}
	}
	for i, d := range deployments {
		construct, ok := kinds[d.Kind]
		if !ok {
			return DeploymentError{Name: d.Name, Err: fmt.Errorf("%w: %q", ErrUnknownKind, d.Kind)}
		}
		contract, err := construct(r, deployers[i], &d.Params)
		if err != nil {
			return DeploymentError{Name: d.Name, Err: err}
		}
		if contract.Address() != expected[i] {
			return DeploymentError{
				Name: d.Name,
				Err:  fmt.Errorf("deployed at %s, expected %s", contract.Address().Hex(), expected[i].Hex()),
			}
		}
		r.logger.Info(
			fmt.Sprintf("deployed %s %q at %s", d.Kind, d.Name, contract.Address().Hex()),
			"component", "scenario",
		)
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, step Step) (StepResult, error) {
	_, span := r.tracer.Start(
		ctx,
		"scenario.step",
		trace.WithAttributes(
			attribute.String("step.name", step.Name),
			attribute.String("step.method", step.Method),
		),
	)
	defer span.End()
	ret, err := r.step(step)
	span.SetAttributes(attribute.Int64("step.block", int64(ret.Block))) // #nosec G115
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return ret, err
}

func (r *Runner) step(step Step) (StepResult, error) {
	ret := StepResult{
		Name:   step.Name,
		Method: step.Method,
	}
	switch {
	case step.Block > 0:
		if step.Block < r.chain.BlockNumber() {
			return ret, fmt.Errorf(
				"%w: %d < %d",
				ErrBlockInPast,
				step.Block,
				r.chain.BlockNumber(),
			)
		}
		if err := r.chain.AdvanceTo(step.Block); err != nil {
			return ret, err
		}
	case step.Mine > 0:
		r.chain.Mine(step.Mine)
	}
	ret.Block = r.chain.BlockNumber()
	if step.Method == "" {
		return ret, nil
	}
	sender, err := r.resolve(step.Sender)
	if err != nil {
		return ret, err
	}
	target, err := r.resolve(step.Target)
	if err != nil {
		return ret, err
	}
	method, err := r.method(target, step.Method)
	if err != nil {
		return ret, err
	}
	args, err := r.values(method.Inputs, step.Args)
	if err != nil {
		return ret, err
	}
	input, err := method.Pack(args...)
	if err != nil {
		return ret, err
	}
	var output []byte
	receipt, err := r.chain.Execute(sender, func(ctx *chain.Context) error {
		var err error
		output, err = ctx.Call(target, input)
		return err
	})
	if step.ExpectError != "" {
		kind, kindErr := errorKind(step.ExpectError)
		if kindErr != nil {
			return ret, kindErr
		}
		if err == nil {
			return ret, fmt.Errorf("%w: %s succeeded, expected %s error", ErrExpectationFailed, method.Sig, step.ExpectError)
		}
		if !errors.Is(err, kind) {
			return ret, fmt.Errorf("%w: %s failed with %q, expected %s error", ErrExpectationFailed, method.Sig, err, step.ExpectError)
		}
		ret.Err = err
		r.logger.Debug(
			fmt.Sprintf("%s failed as expected: %s", method.Sig, err),
			"component", "scenario",
		)
		return ret, nil
	}
	if err != nil {
		return ret, err
	}
	ret.Logs = receipt.Logs
	outputs, err := method.UnpackOutputs(output)
	if err != nil {
		return ret, err
	}
	for _, v := range outputs {
		ret.Outputs = append(ret.Outputs, formatOutput(v))
	}
	if err := r.check(method, step.Expect, ret.Outputs); err != nil {
		return ret, err
	}
	if len(step.Save) > len(ret.Outputs) {
		return ret, fmt.Errorf("%w: cannot save %d outputs of %s", ErrInvalidValue, len(step.Save), method.Sig)
	}
	for i, name := range step.Save {
		if name != "" && name != "_" {
			r.vars[name] = ret.Outputs[i]
		}
	}
	r.logger.Debug(
		fmt.Sprintf("%s returned %v", method.Sig, ret.Outputs),
		"component", "scenario",
		"block", ret.Block,
		"logs", len(ret.Logs),
	)
	return ret, nil
}

// check compares outputs with the expected values converted through the
// method's output types
func (r *Runner) check(method chain.Method, expect []yaml.Node, outputs []string) error {
	if len(expect) == 0 {
		return nil
	}
	if len(expect) != len(outputs) {
		return fmt.Errorf("%w: %s returned %d values, expected %d", ErrExpectationFailed, method.Sig, len(outputs), len(expect))
	}
	for i := range expect {
		v, err := r.value(method.Outputs[i].Type, &expect[i])
		if err != nil {
			return err
		}
		if want := formatOutput(v); want != outputs[i] {
			return fmt.Errorf("%w: %s output %d is %s, expected %s", ErrExpectationFailed, method.Sig, i, outputs[i], want)
		}
	}
	return nil
}
