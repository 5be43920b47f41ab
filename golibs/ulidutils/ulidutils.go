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
package ulidutils

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// New returns the new monotonic ULID
func New() ulid.ULID {
	return ulid.Make()
}

// NewUUID returns the new ULID as UUID, so the ids are sorted by the creation time
func NewUUID() uuid.UUID {
	return uuid.UUID(New())
}

// NewID returns the new ULID string
func NewID() string {
	return New().String()
}
