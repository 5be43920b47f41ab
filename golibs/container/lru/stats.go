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

package lru

import "fmt"

// Stats contains the Cache counters. The value is a snapshot, it is not updated after
// it is returned by Cache.Stats()
type Stats struct {
	// Hits is the number of lookups which found the key
	Hits uint64 `json:"hits"`
	// Misses is the number of lookups which didn't find the key
	Misses uint64 `json:"misses"`
	// Evictions is the number of entries removed due to the capacity limit
	Evictions uint64 `json:"evictions"`
	// Inits is the number of successful initializer calls
	Inits uint64 `json:"inits"`
	// InitErrors is the number of initializer calls that returned an error
	InitErrors uint64 `json:"initErrors"`
}

// HitRatio returns Hits/(Hits+Misses) or 0 if there were no lookups
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (s Stats) String() string {
	return fmt.Sprintf("{hits=%d, misses=%d, evictions=%d, inits=%d, initErrors=%d, hitRatio=%.3f}",
		s.Hits, s.Misses, s.Evictions, s.Inits, s.InitErrors, s.HitRatio())
}
