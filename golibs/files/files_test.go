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

package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureDirExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	assert.Nil(t, EnsureDirExists(dir))
	fi, err := os.Stat(dir)
	assert.Nil(t, err)
	assert.True(t, fi.IsDir())
	assert.Nil(t, EnsureDirExists(dir))

	fn := filepath.Join(dir, "file")
	assert.Nil(t, os.WriteFile(fn, []byte("x"), 0640))
	assert.NotNil(t, EnsureDirExists(fn))
}

func TestEnsureFileDirExists(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "db", "kvs.db")
	assert.Nil(t, EnsureFileDirExists(fn))
	_, err := os.Stat(filepath.Dir(fn))
	assert.Nil(t, err)
}
