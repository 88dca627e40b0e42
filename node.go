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


// Package gavel wires the governance chain to its event bus, the event
// database and the indexer that fills it, and runs scenarios against it.
package gavel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/gavel/chain"
	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/event"
	"github.com/blinklabs-io/gavel/indexer"
	"github.com/blinklabs-io/gavel/scenario"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var ErrNotStarted = errors.New("node is not started")

type Node struct {
	eventBus       *event.EventBus
	db             *database.Database
	chain          *chain.Chain
	indexer        *indexer.Indexer
	runner         *scenario.Runner
	tracerProvider trace.TracerProvider
	shutdownFuncs  []func(context.Context) error
	config         Config
	mutex          sync.Mutex
	shutdownOnce   sync.Once
}

func New(cfg Config) (*Node, error) {
	n := &Node{
		config: cfg,
	}
	if err := n.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return n, nil
}

// Start opens the database, recovering it if needed, and starts a chain that
// resumes after the last indexed operation
func (n *Node) Start() error {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if n.chain != nil {
		return errors.New("node is already started")
	}
	// Configure tracing
	n.tracerProvider = otel.GetTracerProvider()
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(
		database.WithLogger(n.config.logger),
		database.WithPromRegistry(n.config.promRegistry),
		database.WithDataDir(n.config.dataDir),
		database.WithTracerProvider(n.tracerProvider),
	)
	if db == nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.db = db
	if err != nil {
		var posErr database.CommitPositionError
		if !errors.As(err, &posErr) {
			return fmt.Errorf("failed to open database: %w", err)
		}
		n.config.logger.Warn(
			"database initialization error, needs recovery",
			"error",
			err,
		)
		if err := n.db.RecoverCommitPosition(); err != nil {
			return fmt.Errorf("failed to recover database: %w", err)
		}
	}
	var startBlock uint64
	pos, ok, err := n.db.CommitPosition()
	if err != nil {
		return fmt.Errorf("failed to load commit position: %w", err)
	}
	if ok {
		startBlock = pos.Block + 1
	}
	n.eventBus = event.NewEventBus(
		event.WithLogger(n.config.logger),
		event.WithPrometheusRegistry(n.config.promRegistry),
		event.WithQueueSize(n.config.eventQueueSize),
	)
	n.chain = chain.NewChain(
		chain.WithLogger(n.config.logger),
		chain.WithEventBus(n.eventBus),
		chain.WithPromRegistry(n.config.promRegistry),
		chain.WithStartBlock(startBlock),
	)
	n.indexer, err = indexer.New(
		indexer.WithLogger(n.config.logger),
		indexer.WithEventBus(n.eventBus),
		indexer.WithDatabase(n.db),
		indexer.WithPromRegistry(n.config.promRegistry),
	)
	if err != nil {
		return fmt.Errorf("failed to create indexer: %w", err)
	}
	if err := n.indexer.Start(); err != nil {
		return fmt.Errorf("failed to start indexer: %w", err)
	}
	n.runner = scenario.NewRunner(
		n.chain,
		scenario.WithLogger(n.config.logger),
		scenario.WithPromRegistry(n.config.promRegistry),
		scenario.WithTracerProvider(n.tracerProvider),
	)
	n.config.logger.Info(
		fmt.Sprintf("started at block %d", startBlock),
		"component", "node",
	)
	return nil
}

// RunScenario runs s against the node's chain. A scenario that ran while the
// indexer failed to store its logs is reported as failed
func (n *Node) RunScenario(ctx context.Context, s *scenario.Scenario) (*scenario.Result, error) {
	n.mutex.Lock()
	runner, idx := n.runner, n.indexer
	n.mutex.Unlock()
	if runner == nil {
		return nil, ErrNotStarted
	}
	result, err := runner.Run(ctx, s)
	if idxErr := idx.Err(); idxErr != nil {
		err = errors.Join(err, fmt.Errorf("indexer: %w", idxErr))
	}
	return result, err
}

// Chain returns the node's chain, or nil before Start
func (n *Node) Chain() *chain.Chain {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return n.chain
}

// Database returns the node's event database, or nil before Start
func (n *Node) Database() *database.Database {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return n.db
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), n.ShutdownTimeout())
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Stop indexing before the bus and the database go away
	if n.indexer != nil {
		n.indexer.Stop()
		if idxErr := n.indexer.Err(); idxErr != nil {
			err = errors.Join(err, fmt.Errorf("indexer: %w", idxErr))
		}
	}
	if n.eventBus != nil {
		n.eventBus.Stop()
	}
	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil
	n.runner = nil

	n.config.logger.Debug("graceful shutdown complete")
	return err
}

// ShutdownTimeout returns the graceful shutdown timeout
func (n *Node) ShutdownTimeout() time.Duration {
	if n.config.shutdownTimeout > 0 {
		return n.config.shutdownTimeout
	}
	return DefaultShutdownTimeout
}
