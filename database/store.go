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
	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/types"
)

// BlobStore holds the encoded logs
type BlobStore interface {
	Close() error
	NewTransaction(update bool) types.Txn
	Get(txn types.Txn, key []byte) ([]byte, error)
	Set(txn types.Txn, key, val []byte) error
	Delete(txn types.Txn, key []byte) error
	NewIterator(txn types.Txn, opts types.BlobIteratorOptions) types.BlobIterator
	GetCommitPosition() (types.CommitPosition, bool, error)
	SetCommitPosition(txn types.Txn, pos types.CommitPosition) error
}

// MetadataStore holds the searchable event index
type MetadataStore interface {
	Close() error
	Transaction() types.Txn
	SetEvents(txn types.Txn, events []models.Event) error
	GetEvents(filter models.EventFilter) ([]models.Event, error)
	GetCommitPosition() (types.CommitPosition, bool, error)
	SetCommitPosition(txn types.Txn, pos types.CommitPosition) error
}
