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
	"fmt"

	"github.com/blinklabs-io/gavel/database/types"
)

// CommitPositionError reports stores that disagree on the last indexed
// operation, which happens when a write was interrupted between the blob
// and metadata commits
type CommitPositionError struct {
	MetadataPosition types.CommitPosition
	BlobPosition     types.CommitPosition
}

func (e CommitPositionError) Error() string {
	return fmt.Sprintf(
		"commit position mismatch: %d/%d (metadata) != %d/%d (blob)",
		e.MetadataPosition.Block,
		e.MetadataPosition.TxIndex,
		e.BlobPosition.Block,
		e.BlobPosition.TxIndex,
	)
}

func (d *Database) checkCommitPosition() error {
	metadataPos, metadataOk, err := d.Metadata().GetCommitPosition()
	if err != nil {
		return fmt.Errorf(
			"failed to get metadata commit position: %w",
			err,
		)
	}
	blobPos, blobOk, err := d.Blob().GetCommitPosition()
	if err != nil {
		return fmt.Errorf(
			"failed to get blob commit position: %w",
			err,
		)
	}
	if metadataOk != blobOk || metadataPos != blobPos {
		return CommitPositionError{
			MetadataPosition: metadataPos,
			BlobPosition:     blobPos,
		}
	}
	return nil
}

// CommitPosition returns the last indexed operation
func (d *Database) CommitPosition() (types.CommitPosition, bool, error) {
	return d.Metadata().GetCommitPosition()
}

func (d *Database) updateCommitPosition(txn *Txn, pos types.CommitPosition) error {
	if err := d.Metadata().SetCommitPosition(txn.Metadata(), pos); err != nil {
		return err
	}
	return d.Blob().SetCommitPosition(txn.Blob(), pos)
}
