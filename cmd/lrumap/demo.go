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
	"io"

	"github.com/solarisdb/lrumap/golibs/container/lru"
	"github.com/spf13/cobra"
)

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "run the LRU map examples",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.OutOrStdout())
		},
	}
}

func runDemo(w io.Writer) error {
	// get or init
	m, err := lru.NewMap[string, int](2, nil)
	if err != nil {
		return err
	}
	calls := 0
	v1 := m.GetOrInit("a", func() int { calls++; return 10 })
	v2 := m.GetOrInit("a", func() int { calls++; return 12 })
	fmt.Fprintf(w, "get_or_init: a=%d, a=%d, initializer calls=%d, len=%d\n", v1, v2, calls, m.Len())

	// eviction
	var evicted []string
	m, err = lru.NewMap[string, int](2, func(k string, _ int) { evicted = append(evicted, k) })
	if err != nil {
		return err
	}
	m.Insert("a", 1)
	m.Insert("b", 2)
	m.Get("a")
	m.Insert("c", 3)
	fmt.Fprintf(w, "eviction: evicted=%v, keys=%v, len=%d\n", evicted, m.Keys(), m.Len())

	// removal
	m, err = lru.NewMap[string, int](2, nil)
	if err != nil {
		return err
	}
	m.Insert("a", 1)
	rv, ok := m.Remove("a")
	_, found := m.Get("a")
	fmt.Fprintf(w, "removal: removed=%d(%t), found after remove=%t, len=%d\n", rv, ok, found, m.Len())
	return nil
}
