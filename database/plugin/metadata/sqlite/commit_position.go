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

package sqlite

import (
	"errors"

	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	commitPositionRowId = 1
)

// GetCommitPosition returns the stored commit position. The boolean is false
// when nothing has been committed yet
func (d *MetadataStoreSqlite) GetCommitPosition() (types.CommitPosition, bool, error) {
	var tmpPosition models.CommitPosition
	result := d.db.First(&tmpPosition)
	if result.Error != nil {
		// It's not an error if there's no records found
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return types.CommitPosition{}, false, nil
		}
		return types.CommitPosition{}, false, result.Error
	}
	return types.CommitPosition{
		Block:   tmpPosition.Block,
		TxIndex: tmpPosition.TxIndex,
	}, true, nil
}

// SetCommitPosition records pos within txn
func (d *MetadataStoreSqlite) SetCommitPosition(
	txn types.Txn,
	pos types.CommitPosition,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	tmpPosition := models.CommitPosition{
		ID:      commitPositionRowId,
		Block:   pos.Block,
		TxIndex: pos.TxIndex,
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"block", "tx_index"}),
	}).Create(&tmpPosition)
	return result.Error
}
