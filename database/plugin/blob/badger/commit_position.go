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

package badger

import (
	"encoding/binary"
	"errors"

	"github.com/blinklabs-io/gavel/database/types"
)

const (
	commitPositionBlobKey = "metadata_commit_position"
)

// GetCommitPosition returns the stored commit position. The boolean is false
// when nothing has been committed yet
func (b *BlobStoreBadger) GetCommitPosition() (types.CommitPosition, bool, error) {
	txn := b.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck

	val, err := b.Get(txn, []byte(commitPositionBlobKey))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return types.CommitPosition{}, false, nil
		}
		return types.CommitPosition{}, false, err
	}
	if len(val) != 16 {
		return types.CommitPosition{}, false, errors.New("malformed commit position")
	}
	return types.CommitPosition{
		Block:   binary.BigEndian.Uint64(val[0:8]),
		TxIndex: binary.BigEndian.Uint64(val[8:16]),
	}, true, nil
}

// SetCommitPosition records pos within txn
func (b *BlobStoreBadger) SetCommitPosition(
	txn types.Txn,
	pos types.CommitPosition,
) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	val := make([]byte, 16)
	binary.BigEndian.PutUint64(val[0:8], pos.Block)
	binary.BigEndian.PutUint64(val[8:16], pos.TxIndex)
	return b.Set(txn, []byte(commitPositionBlobKey), val)
}
