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
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrExist         = errors.New("already exists")
	ErrNotExist      = errors.New("not found")
	ErrInvalid       = errors.New("invalid argument")
	ErrConflict      = errors.New("conflict")
	ErrInternal      = errors.New("internal error")
	ErrClosed        = errors.New("closed")
	ErrDataLoss      = errors.New("data loss")
	ErrCommunication = errors.New("communication error")
)

// Is is the errors.Is() wrapper, so the package can be used instead of the standard one
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is the errors.As() wrapper
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New is the errors.New() wrapper
func New(text string) error {
	return errors.New(text)
}

// Wrapf formats the message and wraps the err into it. It returns nil if err is nil.
//
// Example:
//
//	return errors.Wrapf(errors.ErrNotExist, "the key=%s is not found", key)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
