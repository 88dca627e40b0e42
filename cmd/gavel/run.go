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
	"log/slog"
	"os"

	"github.com/blinklabs-io/gavel/internal/config"
	"github.com/blinklabs-io/gavel/internal/node"
	"github.com/blinklabs-io/gavel/scenario"
	"github.com/spf13/cobra"
)

var runFlags = struct {
	hold bool
}{}

func runRun(args []string, cfg *config.Config) {
	logger := commonRun(cfg)
	scenarios := make([]*scenario.Scenario, 0, len(args))
	for _, path := range args {
		s, err := scenario.Load(path)
		if err != nil {
			slog.Error(err.Error(), "path", path)
			os.Exit(1)
		}
		if s.Name == "" {
			s.Name = path
		}
		scenarios = append(scenarios, s)
	}
	if err := node.Run(cfg, logger, scenarios, runFlags.hold); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Run scenarios against a fresh chain, indexing their events",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			runRun(args, cfg)
		},
	}
	cmd.Flags().
		BoolVar(&runFlags.hold, "hold", false, "keep serving metrics after the scenarios until interrupted")
	return cmd
}
