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

	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/types"
)

var ErrUnrecoverable = errors.New(
	"metadata store is ahead of the blob store",
)

// RecoverCommitPosition repairs an interrupted write. The blob store commits
// first, so it can only be ahead of the metadata store: the logs it holds
// past the metadata commit position are indexed again and the metadata
// position is moved up to the blob position
func (d *Database) RecoverCommitPosition() error {
	metadataPos, metadataOk, err := d.Metadata().GetCommitPosition()
	if err != nil {
		return fmt.Errorf("failed to get metadata commit position: %w", err)
	}
	blobPos, blobOk, err := d.Blob().GetCommitPosition()
	if err != nil {
		return fmt.Errorf("failed to get blob commit position: %w", err)
	}
	if metadataOk == blobOk && metadataPos == blobPos {
		return nil
	}
	if !blobOk || (metadataOk && blobPos.Less(metadataPos)) {
		return fmt.Errorf(
			"%w: %w",
			ErrUnrecoverable,
			CommitPositionError{
				MetadataPosition: metadataPos,
				BlobPosition:     blobPos,
			},
		)
	}
	events, err := d.logsAfter(metadataPos, metadataOk)
	if err != nil {
		return err
	}
	txn := d.Metadata().Transaction()
	if err := d.Metadata().SetEvents(txn, events); err != nil {
		_ = txn.Rollback()
		return err
	}
	if err := d.Metadata().SetCommitPosition(txn, blobPos); err != nil {
		_ = txn.Rollback()
		return err
	}
	if err := txn.Commit(); err != nil {
		return err
	}
	d.logger.Info(
		fmt.Sprintf(
			"recovered %d logs up to %d/%d",
			len(events),
			blobPos.Block,
			blobPos.TxIndex,
		),
		"component", "database",
	)
	return nil
}

// logsAfter returns the stored logs of operations after pos, or every stored
// log when there is no position
func (d *Database) logsAfter(pos types.CommitPosition, ok bool) ([]models.Event, error) {
	txn := d.Transaction(false)
	defer txn.Rollback() //nolint:errcheck
	prefix := []byte(logKeyPrefix)
	iter := d.Blob().NewIterator(
		txn.Blob(),
		types.BlobIteratorOptions{Prefix: prefix},
	)
	defer iter.Close()
	start := prefix
	if ok {
		start = logKey(pos.Block, pos.TxIndex+1, 0)
	}
	var ret []models.Event
	for iter.Seek(start); iter.ValidForPrefix(prefix); iter.Next() {
		data, err := iter.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		rec, err := decodeLogRecord(data)
		if err != nil {
			return nil, fmt.Errorf("decode log: %w", err)
		}
		ret = append(ret, rec.model())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
