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


package node

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/blinklabs-io/gavel/chain"
	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/internal/config"
	"github.com/blinklabs-io/gavel/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mintScenario = `
name: mint
accounts: [alice]
deployments:
  - name: gov
    kind: token
    deployer: alice
    params:
      name: Governance
      symbol: GOV
      minters: [alice]
steps:
  - block: 3
  - sender: alice
    target: gov
    method: mint
    args: [alice, "500"]
`

func TestRunIndexesScenarios(t *testing.T) {
	s, err := scenario.Parse([]byte(mintScenario))
	require.NoError(t, err)
	dataDir := t.TempDir()
	cfg := &config.Config{
		DatabasePath:    dataDir,
		BindAddr:        "127.0.0.1",
		LogLevel:        "info",
		ShutdownTimeout: "5s",
		EventQueueSize:  10,
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	require.NoError(t, Run(cfg, logger, []*scenario.Scenario{s}, false))

	db, err := database.New(
		database.WithDataDir(dataDir),
		database.WithLogger(logger),
	)
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck
	records, err := db.Events(database.EventQuery{Name: "Transfer"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(3), records[0].Block)
	to, ok := records[0].Arg("to")
	require.True(t, ok)
	assert.Equal(t, chain.PrincipalFromName("alice").Hex(), to)
}

func TestRunRejectsShutdownTimeout(t *testing.T) {
	cfg := &config.Config{ShutdownTimeout: "soon"}
	err := Run(cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)), nil, false)
	assert.Error(t, err)
}

func TestMetricsServer(t *testing.T) {
	srv := httptest.NewServer(newMetricsServer("127.0.0.1:0").Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close() //nolint:errcheck
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")

	resp, err = http.Post(
		srv.URL+"/grpc.health.v1.Health/Check",
		"application/json",
		strings.NewReader("{}"),
	)
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close() //nolint:errcheck
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "SERVING")
}
