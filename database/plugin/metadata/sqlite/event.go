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
	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/types"
	"gorm.io/gorm"
)

// SetEvents inserts index entries, with their arguments, within txn
func (d *MetadataStoreSqlite) SetEvents(
	txn types.Txn,
	events []models.Event,
) error {
	if len(events) == 0 {
		return nil
	}
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(&events); result.Error != nil {
		return result.Error
	}
	if d.metrics != nil {
		d.metrics.eventsStored.Add(float64(len(events)))
	}
	return nil
}

// GetEvents returns the events matching filter ordered by position
func (d *MetadataStoreSqlite) GetEvents(
	filter models.EventFilter,
) ([]models.Event, error) {
	query := d.db.Model(&models.Event{}).Preload("Args", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	})
	if len(filter.Contract) > 0 {
		query = query.Where("contract = ?", filter.Contract)
	}
	if filter.Name != "" {
		query = query.Where("name = ?", filter.Name)
	}
	if filter.FromBlock > 0 {
		query = query.Where("block >= ?", filter.FromBlock)
	}
	if filter.ToBlock > 0 {
		query = query.Where("block <= ?", filter.ToBlock)
	}
	if filter.ArgName != "" {
		query = query.Where(
			"EXISTS (SELECT 1 FROM event_arg WHERE event_arg.event_id = event.id AND event_arg.is_indexed = ? AND event_arg.name = ? AND event_arg.value = ?)",
			true,
			filter.ArgName,
			filter.ArgValue,
		)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var ret []models.Event
	result := query.Order("block, tx_index, log_index").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
