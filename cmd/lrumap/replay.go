// Copyright 2024 The Solaris Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"

	"github.com/solarisdb/lrumap/pkg/replay"
	"github.com/spf13/cobra"
)

func newReplayCmd() *cobra.Command {
	var (
		cfgFile  string
		trace    string
		capacity int
		backend  string
		filter   string
		noSeed   bool
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "replay the trace file and print the cache report",
		Long: `The replay command reads the keys from the trace file (one key per line) and reads
every key through the LRU cache of the given capacity in front of the backend storage.
The configuration is built from the defaults, the config file, the LRUMAP_ environment
variables and the command flags, in this order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := replay.BuildConfig(cfgFile)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("trace") {
				cfg.TraceFile = trace
			}
			if flags.Changed("capacity") {
				cfg.Capacity = capacity
			}
			if flags.Changed("backend") {
				cfg.Backend = backend
			}
			if flags.Changed("filter") {
				cfg.Filter = filter
			}
			if noSeed {
				cfg.Seed = false
			}
			r, err := replay.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), r.String())
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "the config file (.yaml or .json)")
	flags.StringVar(&trace, "trace", "", "the trace file, one key per line")
	flags.IntVar(&capacity, "capacity", 0, "the cache capacity")
	flags.StringVar(&backend, "backend", "", "the backend storage: inmem, buntdb or redis")
	flags.StringVar(&filter, "filter", "", "the glob pattern to select the keys to be replayed")
	flags.BoolVar(&noSeed, "no-seed", false, "don't create the missing keys in the backend")
	return cmd
}
