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

// Package indexer persists committed contract logs. It receives logs from
// the event bus as the chain commits them and writes the logs of each
// operation to the database in a single transaction
package indexer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/gavel/chain"
	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/blinklabs-io/gavel/event"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ErrNoEventBus    = errors.New("indexer: no event bus configured")
	ErrNoDatabase    = errors.New("indexer: no database configured")
	ErrAlreadyActive = errors.New("indexer: already started")
)

type Indexer struct {
	logger       *slog.Logger
	eventBus     *event.EventBus
	db           *database.Database
	promRegistry prometheus.Registerer
	metrics      *indexerMetrics
	pending      []chain.Log
	err          error
	logSubId     event.EventSubscriberId
	txSubId      event.EventSubscriberId
	mutex        sync.Mutex
	active       bool
}

func New(opts ...IndexerOptionFunc) (*Indexer, error) {
	i := &Indexer{}
	for _, opt := range opts {
		opt(i)
	}
	if i.eventBus == nil {
		return nil, ErrNoEventBus
	}
	if i.db == nil {
		return nil, ErrNoDatabase
	}
	if i.logger == nil {
		i.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if i.promRegistry != nil {
		i.metrics = newIndexerMetrics(i.promRegistry)
	}
	return i, nil
}

// Start subscribes to committed logs
func (i *Indexer) Start() error {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	if i.active {
		return ErrAlreadyActive
	}
	i.active = true
	i.err = nil
	i.pending = nil
	i.logSubId = i.eventBus.RegisterSubscriber(
		chain.LogEventType,
		&subscriber{deliver: i.handleLog},
	)
	i.txSubId = i.eventBus.RegisterSubscriber(
		chain.TxCommittedEventType,
		&subscriber{deliver: i.handleTxCommitted},
	)
	return nil
}

// Stop unsubscribes from the event bus. Logs of an operation that has not
// finished committing are discarded
func (i *Indexer) Stop() {
	i.mutex.Lock()
	if !i.active {
		i.mutex.Unlock()
		return
	}
	i.active = false
	i.pending = nil
	logSubId, txSubId := i.logSubId, i.txSubId
	i.mutex.Unlock()
	i.eventBus.Unsubscribe(chain.LogEventType, logSubId)
	i.eventBus.Unsubscribe(chain.TxCommittedEventType, txSubId)
}

// Err returns the write failure that stopped indexing, if any
func (i *Indexer) Err() error {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	return i.err
}

func (i *Indexer) handleLog(evt event.Event) error {
	l, ok := evt.Data.(chain.Log)
	if !ok {
		return fmt.Errorf("unexpected log event data: %T", evt.Data)
	}
	i.mutex.Lock()
	defer i.mutex.Unlock()
	if i.err != nil {
		return i.err
	}
	i.pending = append(i.pending, l)
	return nil
}

func (i *Indexer) handleTxCommitted(evt event.Event) error {
	committed, ok := evt.Data.(chain.TxCommittedEvent)
	if !ok {
		return fmt.Errorf("unexpected commit event data: %T", evt.Data)
	}
	i.mutex.Lock()
	defer i.mutex.Unlock()
	logs := i.pending
	i.pending = nil
	if len(logs) != committed.Logs {
		i.logger.Warn(
			fmt.Sprintf(
				"indexer: expected %d logs for operation, received %d",
				committed.Logs,
				len(logs),
			),
			"component", "indexer",
			"block", committed.Block,
			"tx", committed.TxIndex,
		)
	}
	pos := types.CommitPosition{
		Block:   committed.Block,
		TxIndex: committed.TxIndex,
	}
	if err := i.db.StoreLogs(pos, logs); err != nil {
		i.err = fmt.Errorf("store logs at %d/%d: %w", pos.Block, pos.TxIndex, err)
		i.logger.Error(
			i.err.Error(),
			"component", "indexer",
		)
		if i.metrics != nil {
			i.metrics.failures.Inc()
		}
		// Returning the error removes this subscriber from the bus
		return i.err
	}
	i.logger.Debug(
		"indexed operation",
		"component", "indexer",
		"block", pos.Block,
		"tx", pos.TxIndex,
		"logs", len(logs),
	)
	if i.metrics != nil {
		i.metrics.logsIndexed.Add(float64(len(logs)))
		i.metrics.lastBlock.Set(float64(pos.Block))
	}
	return nil
}

// subscriber delivers events synchronously on the publishing goroutine so
// that no committed log is dropped
type subscriber struct {
	deliver func(event.Event) error
}

func (s *subscriber) Deliver(evt event.Event) error {
	return s.deliver(evt)
}

func (s *subscriber) Close() {}
