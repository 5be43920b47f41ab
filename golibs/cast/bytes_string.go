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
package cast

import "unsafe"

// StringToByteArray returns the string bytes without copying. The result must not be modified.
func StringToByteArray(v string) []byte {
	return unsafe.Slice(unsafe.StringData(v), len(v))
}

// ByteArrayToString returns the string which points to the buf bytes without copying. The buf
// must not be modified while the string is in use.
func ByteArrayToString(buf []byte) string {
	return unsafe.String(unsafe.SliceData(buf), len(buf))
}
