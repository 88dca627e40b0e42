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


package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/internal/config"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var eventsFlags = struct {
	contract string
	name     string
	arg      string
	from     uint64
	to       uint64
	limit    int
	json     bool
}{}

// eventOutput is the JSON form of a stored log
type eventOutput struct {
	Contract string            `json:"contract"`
	Name     string            `json:"name"`
	Block    uint64            `json:"block"`
	TxIndex  uint64            `json:"txIndex"`
	Index    uint64            `json:"index"`
	Args     map[string]string `json:"args"`
}

// normalizeValue turns hex addresses into principals so they match the
// checksummed form logs are stored with
func normalizeValue(v string) any {
	if strings.HasPrefix(v, "0x") && common.IsHexAddress(v) {
		return common.HexToAddress(v)
	}
	return v
}

func buildQuery() (database.EventQuery, error) {
	query := database.EventQuery{
		Name:      eventsFlags.name,
		FromBlock: eventsFlags.from,
		ToBlock:   eventsFlags.to,
		Limit:     eventsFlags.limit,
	}
	if eventsFlags.contract != "" {
		if !common.IsHexAddress(eventsFlags.contract) {
			return query, fmt.Errorf("invalid contract address %q", eventsFlags.contract)
		}
		query.Contract = common.HexToAddress(eventsFlags.contract)
	}
	if eventsFlags.arg != "" {
		name, value, ok := strings.Cut(eventsFlags.arg, "=")
		if !ok || name == "" {
			return query, fmt.Errorf("invalid argument filter %q, expected name=value", eventsFlags.arg)
		}
		query.ArgName = name
		query.ArgValue = normalizeValue(value)
	}
	if query.ToBlock > 0 && query.ToBlock < query.FromBlock {
		return query, errors.New("--to must not be before --from")
	}
	return query, nil
}

func writeEvents(w io.Writer, records []database.LogRecord, asJSON bool) error {
	if !asJSON {
		for _, rec := range records {
			if _, err := fmt.Fprintf(
				w,
				"%d/%d/%d %s %s\n",
				rec.Block,
				rec.TxIndex,
				rec.Index,
				rec.ContractAddress().Hex(),
				rec.String(),
			); err != nil {
				return err
			}
		}
		return nil
	}
	enc := json.NewEncoder(w)
	for _, rec := range records {
		out := eventOutput{
			Contract: rec.ContractAddress().Hex(),
			Name:     rec.Name,
			Block:    rec.Block,
			TxIndex:  rec.TxIndex,
			Index:    rec.Index,
			Args:     make(map[string]string, len(rec.Args)),
		}
		for _, arg := range rec.Args {
			out.Args[arg.Name] = arg.Value
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return nil
}

func eventsRun(cmd *cobra.Command, cfg *config.Config) error {
	query, err := buildQuery()
	if err != nil {
		return err
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	if globalFlags.debug {
		level = slog.LevelDebug
	}
	// Logs go to stderr so the output stays parseable
	logger := slog.New(
		slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	)
	db, err := database.New(
		database.WithLogger(logger),
		database.WithDataDir(cfg.DatabasePath),
	)
	if db == nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close() //nolint:errcheck
	if err != nil {
		var posErr database.CommitPositionError
		if !errors.As(err, &posErr) {
			return fmt.Errorf("failed to open database: %w", err)
		}
		logger.Warn(
			"database needs recovery, results may be incomplete",
			"error",
			err,
		)
	}
	records, err := db.Events(query)
	if err != nil {
		return err
	}
	return writeEvents(cmd.OutOrStdout(), records, eventsFlags.json)
}

func eventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Query indexed events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			return eventsRun(cmd, cfg)
		},
	}
	cmd.Flags().
		StringVar(&eventsFlags.contract, "contract", "", "only events emitted by this contract address")
	cmd.Flags().
		StringVar(&eventsFlags.name, "name", "", "only events with this name")
	cmd.Flags().
		StringVar(&eventsFlags.arg, "arg", "", "only events with an indexed argument, as name=value")
	cmd.Flags().
		Uint64Var(&eventsFlags.from, "from", 0, "first block")
	cmd.Flags().
		Uint64Var(&eventsFlags.to, "to", 0, "last block, 0 for no limit")
	cmd.Flags().
		IntVar(&eventsFlags.limit, "limit", 0, "maximum number of events, 0 for no limit")
	cmd.Flags().
		BoolVar(&eventsFlags.json, "json", false, "write events as JSON lines")
	return cmd
}
