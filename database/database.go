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
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/gavel/chain"
	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/plugin/blob/badger"
	"github.com/blinklabs-io/gavel/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// Database stores committed contract logs. Encoded logs live in the blob
// store and the searchable index lives in the metadata store
type Database struct {
	logger       *slog.Logger
	promRegistry   prometheus.Registerer
	tracerProvider trace.TracerProvider
	blob           BlobStore
	metadata       MetadataStore
	dataDir        string
}

// EventQuery selects stored logs. Zero fields match everything
type EventQuery struct {
	Contract  chain.Principal
	Name      string
	FromBlock uint64
	// ToBlock is inclusive when non-zero
	ToBlock uint64
	// ArgName and ArgValue match an indexed argument. ArgValue is compared in
	// its canonical text form
	ArgName  string
	ArgValue any
	Limit    int
}

// New creates a new database instance with optional persistence using the
// configured data directory
func New(opts ...DatabaseOptionFunc) (*Database, error) {
	db := &Database{}
	for _, opt := range opts {
		opt(db)
	}
	if db.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		db.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	metadataDb, err := sqlite.New(
		sqlite.WithLogger(db.logger),
		sqlite.WithPromRegistry(db.promRegistry),
		sqlite.WithDataDir(db.dataDir),
		sqlite.WithTracerProvider(db.tracerProvider),
	)
	if err != nil {
		if metadataDb != nil {
			_ = metadataDb.Close()
		}
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	blobDb, err := badger.New(
		badger.WithLogger(db.logger),
		badger.WithPromRegistry(db.promRegistry),
		badger.WithDataDir(db.dataDir),
		// The index must never be ahead of the blob store
		badger.WithSyncWrites(true),
	)
	if err != nil {
		_ = metadataDb.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	db.metadata = metadataDb
	db.blob = blobDb
	if err := db.checkCommitPosition(); err != nil {
		// Database is available for recovery, so return it with error
		return db, err
	}
	return db, nil
}

// Blob returns the underlying blob store instance
func (d *Database) Blob() BlobStore {
	return d.blob
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() MetadataStore {
	return d.metadata
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	err = errors.Join(err, d.Metadata().Close())
	err = errors.Join(err, d.Blob().Close())
	return err
}

// StoreLogs writes the logs of one committed operation and advances the
// commit position to it
func (d *Database) StoreLogs(pos types.CommitPosition, logs []chain.Log) error {
	txn := d.Transaction(true)
	return txn.Do(func(txn *Txn) error {
		events := make([]models.Event, 0, len(logs))
		for _, l := range logs {
			rec := NewLogRecord(l)
			data, err := encodeLogRecord(rec)
			if err != nil {
				return fmt.Errorf("encode log: %w", err)
			}
			if err := d.Blob().Set(txn.Blob(), rec.key(), data); err != nil {
				return err
			}
			events = append(events, rec.model())
		}
		if err := d.Metadata().SetEvents(txn.Metadata(), events); err != nil {
			return err
		}
		txn.SetPosition(pos)
		return nil
	})
}

// Events returns the stored logs matching query, in emission order
func (d *Database) Events(query EventQuery) ([]LogRecord, error) {
	filter := models.EventFilter{
		Name:      query.Name,
		FromBlock: query.FromBlock,
		ToBlock:   query.ToBlock,
		ArgName:   query.ArgName,
		Limit:     query.Limit,
	}
	if !chain.IsNil(query.Contract) {
		filter.Contract = query.Contract.Bytes()
	}
	if query.ArgName != "" {
		filter.ArgValue = chain.FormatValue(query.ArgValue)
	}
	events, err := d.Metadata().GetEvents(filter)
	if err != nil {
		return nil, err
	}
	txn := d.Transaction(false)
	defer txn.Rollback() //nolint:errcheck
	ret := make([]LogRecord, 0, len(events))
	for _, evt := range events {
		data, err := d.Blob().Get(
			txn.Blob(),
			logKey(evt.Block, evt.TxIndex, evt.LogIndex),
		)
		if err != nil {
			return nil, fmt.Errorf(
				"load log %d/%d/%d: %w",
				evt.Block,
				evt.TxIndex,
				evt.LogIndex,
				err,
			)
		}
		rec, err := decodeLogRecord(data)
		if err != nil {
			return nil, fmt.Errorf("decode log: %w", err)
		}
		ret = append(ret, rec)
	}
	return ret, nil
}

// LogsAt returns every stored log emitted at block
func (d *Database) LogsAt(block uint64) ([]LogRecord, error) {
	txn := d.Transaction(false)
	defer txn.Rollback() //nolint:errcheck
	prefix := blockLogPrefix(block)
	iter := d.Blob().NewIterator(
		txn.Blob(),
		types.BlobIteratorOptions{Prefix: prefix},
	)
	defer iter.Close()
	var ret []LogRecord
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		data, err := iter.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		rec, err := decodeLogRecord(data)
		if err != nil {
			return nil, fmt.Errorf("decode log: %w", err)
		}
		ret = append(ret, rec)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
