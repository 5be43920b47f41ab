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
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDirExists checks whether the dir exists and creates it with the parents if it doesn't.
// It returns an error if the path exists, but it is not a directory.
func EnsureDirExists(dir string) error {
	fi, err := os.Stat(dir)
	if err == nil {
		if !fi.IsDir() {
			return fmt.Errorf("ensure dir %s: the path exists, but it is not a directory", dir)
		}
		return nil
	}
	if os.IsNotExist(err) {
		err = os.MkdirAll(dir, 0740)
	}
	if err != nil {
		return fmt.Errorf("ensure dir %s returns error: %w", dir, err)
	}
	return nil
}

// EnsureFileDirExists makes sure the directory of the file fname exists
func EnsureFileDirExists(fname string) error {
	return EnsureDirExists(filepath.Dir(fname))
}
