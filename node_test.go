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


package gavel_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blinklabs-io/gavel"
	"github.com/blinklabs-io/gavel/chain"
	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/scenario"
)

const transferScenario = `
name: transfers
accounts: [alice, bob]
deployments:
  - name: gov
    kind: token
    deployer: alice
    params:
      symbol: GOV
      balances:
        - holder: alice
          amount: "100"
steps:
  - block: 4
    sender: alice
    target: gov
    method: transfer
    args: [bob, 30]
  - mine: 2
    sender: bob
    target: gov
    method: transfer
    args: [alice, 5]
`

func parse(t *testing.T, doc string) *scenario.Scenario {
	t.Helper()
	s, err := scenario.Parse([]byte(doc))
	require.NoError(t, err)
	return s
}

func TestNodeIndexesScenario(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	reg := prometheus.NewRegistry()
	n, err := gavel.New(gavel.NewConfig(gavel.WithPrometheusRegistry(reg)))
	require.NoError(t, err)
	require.NoError(t, n.Start())
	result, err := n.RunScenario(context.Background(), parse(t, transferScenario))
	require.NoError(t, err)
	require.Len(t, result.Steps, 2)

	bob := chain.PrincipalFromName("bob")
	records, err := n.Database().Events(database.EventQuery{
		Name:     "Transfer",
		ArgName:  "to",
		ArgValue: bob,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(4), records[0].Block)
	value, ok := records[0].Arg("value")
	require.True(t, ok)
	assert.Equal(t, "30", value)

	pos, ok, err := n.Database().CommitPosition()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(6), pos.Block)

	count, err := testutil.GatherAndCount(reg, "gavel_indexer_logs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.NoError(t, n.Stop())
	// Stopping twice is harmless
	require.NoError(t, n.Stop())
	_, err = n.RunScenario(context.Background(), parse(t, transferScenario))
	assert.ErrorIs(t, err, gavel.ErrNotStarted)
}

func TestNodeResumesAfterIndexedBlock(t *testing.T) {
	dataDir := t.TempDir()
	n, err := gavel.New(gavel.NewConfig(gavel.WithDatabasePath(dataDir)))
	require.NoError(t, err)
	require.NoError(t, n.Start())
	_, err = n.RunScenario(context.Background(), parse(t, transferScenario))
	require.NoError(t, err)
	require.NoError(t, n.Stop())

	n, err = gavel.New(gavel.NewConfig(gavel.WithDatabasePath(dataDir)))
	require.NoError(t, err)
	require.NoError(t, n.Start())
	defer n.Stop()
	assert.Equal(t, uint64(7), n.Chain().BlockNumber())
	// Block numbers in a second run continue after the stored ones
	_, err = n.RunScenario(context.Background(), parse(t, `
accounts: [carol]
deployments:
  - name: other
    kind: token
    deployer: carol
    params:
      balances:
        - holder: carol
          amount: "1"
`))
	require.NoError(t, err)
	records, err := n.Database().Events(database.EventQuery{Name: "Transfer"})
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, uint64(7), records[3].Block)
}

func TestRunScenarioBeforeStart(t *testing.T) {
	n, err := gavel.New(gavel.NewConfig())
	require.NoError(t, err)
	_, err = n.RunScenario(context.Background(), parse(t, transferScenario))
	assert.ErrorIs(t, err, gavel.ErrNotStarted)
	assert.Nil(t, n.Chain())
	require.NoError(t, n.Stop())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := gavel.New(gavel.NewConfig(gavel.WithTracingStdout(true)))
	assert.Error(t, err)
}
