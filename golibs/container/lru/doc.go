// Copyright 2023 The acquirecloud Authors
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
/*
Package lru contains the containers with fixed capacity and LRU (Least Recently
Used) eviction discipline. The containers use golang generics, so they can be
instantiated for different key and value types.

Map is the eviction-ordered map itself. It is not go-routine safe, and it is
intended to be embedded into other structures, which take care of the locking.
Every operation is O(1): the entries are kept in an arena of slots, the index
maps a key to its slot, and the slots are linked into the recency list by their
indices.

	m, _ := lru.NewMap[string, int](2, nil)
	a := m.GetOrInit("a", func() int { return 10 }) // a == 10
	b := m.GetOrInit("a", func() int { return 12 }) // b == 10, m.Len() == 1

Cache wraps Map with a lock, and allows calling the value initializers out of
the lock, so an expensive initializer doesn't block other keys, and it is called
once for a missing key, even if many go-routines ask for the key at the same time.
*/
package lru
