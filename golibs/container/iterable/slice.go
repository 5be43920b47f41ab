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
package iterable

type sliceIterator[T any] struct {
	s   []T
	idx int
}

var _ Iterator[int] = (*sliceIterator[int])(nil)

// WrapSlice returns the Iterator over the slice elements. The slice must not be changed
// while the iterator is in use.
func WrapSlice[T any](s []T) Iterator[T] {
	return &sliceIterator[T]{s: s}
}

// ToSlice reads all the elements from the iterator it. The iterator is not closed.
func ToSlice[T any](it Iterator[T]) []T {
	res := []T{}
	for it.HasNext() {
		if v, ok := it.Next(); ok {
			res = append(res, v)
		}
	}
	return res
}

func (si *sliceIterator[T]) HasNext() bool {
	return si.idx < len(si.s)
}

func (si *sliceIterator[T]) Next() (T, bool) {
	if si.idx < len(si.s) {
		i := si.idx
		si.idx++
		return si.s[i], true
	}
	return *new(T), false
}

// Reset moves the iterator to the first element
func (si *sliceIterator[T]) Reset() error {
	si.idx = 0
	return nil
}

func (si *sliceIterator[T]) Close() error {
	si.s = nil
	si.idx = 0
	return nil
}
