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
	"sync"

	"github.com/blinklabs-io/gavel/database/types"
)

// Txn coordinates a blob transaction and a metadata transaction
type Txn struct {
	db          *Database
	blobTxn     types.Txn
	metadataTxn types.Txn
	position    *types.CommitPosition
	lock        sync.Mutex
	finished    bool
	readWrite   bool
}

func NewTxn(db *Database, readWrite bool) *Txn {
	t := &Txn{db: db, readWrite: readWrite}
	t.blobTxn = db.Blob().NewTransaction(readWrite)
	if readWrite {
		t.metadataTxn = db.Metadata().Transaction()
	}
	return t
}

func (t *Txn) DB() *Database {
	return t.db
}

// Metadata returns the metadata transaction handle, which is nil for
// read-only transactions
func (t *Txn) Metadata() types.Txn {
	return t.metadataTxn
}

// Blob returns the blob transaction handle
func (t *Txn) Blob() types.Txn {
	return t.blobTxn
}

// SetPosition records pos as the commit position of both stores when the
// transaction commits
func (t *Txn) SetPosition(pos types.CommitPosition) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.position = &pos
}

// Do executes the specified function in the context of the transaction. Any errors returned will result
// in the transaction being rolled back
func (t *Txn) Do(fn func(*Txn) error) error {
	if err := fn(t); err != nil {
		if err2 := t.Rollback(); err2 != nil {
			return fmt.Errorf(
				"rollback failed: %w: original error: %w",
				err2,
				err,
			)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

func (t *Txn) Commit() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.finished {
		return nil
	}
	// No need to commit for read-only, but we do want to free up resources
	if !t.readWrite {
		return t.rollback()
	}
	if t.position != nil {
		if err := t.db.updateCommitPosition(t, *t.position); err != nil {
			_ = t.rollback()
			return fmt.Errorf("failed to update commit position: %w", err)
		}
	}
	// Commit blob first so that a failure leaves metadata untouched
	if err := t.blobTxn.Commit(); err != nil {
		_ = t.metadataTxn.Rollback()
		t.finished = true
		return fmt.Errorf("blob commit failed: %w", err)
	}
	if err := t.metadataTxn.Commit(); err != nil {
		t.db.logger.Error(
			"partial commit: blob committed, metadata failed",
			"component", "database",
			"error", err,
		)
		t.finished = true
		return fmt.Errorf(
			"partial commit: metadata commit failed after blob commit: %w",
			err,
		)
	}
	t.finished = true
	return nil
}

func (t *Txn) Rollback() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.finished {
		return nil
	}
	return t.rollback()
}

func (t *Txn) rollback() error {
	var err error
	if t.blobTxn != nil {
		err = errors.Join(err, t.blobTxn.Rollback())
	}
	if t.metadataTxn != nil {
		err = errors.Join(err, t.metadataTxn.Rollback())
	}
	t.finished = true
	return err
}
