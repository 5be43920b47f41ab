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

// Package trace reads access traces: text files with one key per line. The blank
// lines and the lines starting with '#' are skipped.
package trace

import (
	"bytes"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/gobwas/glob"
	"github.com/solarisdb/lrumap/golibs"
	"github.com/solarisdb/lrumap/golibs/container/iterable"
	"github.com/solarisdb/lrumap/golibs/errors"
)

type (
	// Reader is the iterator over the trace file keys. The file is mapped into the memory
	// read-only. Reader is not go-routine safe.
	Reader struct {
		fn     string
		f      *os.File
		mf     mmap.MMap
		pos    int
		filter glob.Glob
		next   string
		ok     bool
	}
)

var (
	_ iterable.Iterator[string] = (*Reader)(nil)
	_ golibs.Reseter            = (*Reader)(nil)
)

// Open opens the trace file fname. If the pattern is not empty, only the keys
// matching the glob pattern are returned.
func Open(fname, pattern string) (*Reader, error) {
	var g glob.Glob
	if pattern != "" {
		var err error
		if g, err = glob.Compile(pattern); err != nil {
			return nil, fmt.Errorf("could not compile the filter %q: %s: %w", pattern, err, errors.ErrInvalid)
		}
	}

	f, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("could not open the trace file %s: %w", fname, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("could not stat the trace file %s: %w", fname, err)
	}

	r := &Reader{fn: fname, f: f, filter: g}
	if fi.Size() > 0 {
		// empty files cannot be mapped
		r.mf, err = mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("could not map the trace file %s to the memory: %w", fname, err)
		}
	}
	return r, nil
}

// HasNext implements iterable.Iterator
func (r *Reader) HasNext() bool {
	if r.ok {
		return true
	}
	for r.pos < len(r.mf) {
		line := r.mf[r.pos:]
		if idx := bytes.IndexByte(line, '\n'); idx >= 0 {
			line = line[:idx]
			r.pos += idx + 1
		} else {
			r.pos = len(r.mf)
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		// the string is copied, so it stays valid after the file is unmapped
		k := string(line)
		if r.filter != nil && !r.filter.Match(k) {
			continue
		}
		r.next, r.ok = k, true
		return true
	}
	return false
}

// Next implements iterable.Iterator
func (r *Reader) Next() (string, bool) {
	if !r.HasNext() {
		return "", false
	}
	r.ok = false
	return r.next, true
}

// Reset moves the reader to the beginning of the file
func (r *Reader) Reset() error {
	if r.f == nil {
		return fmt.Errorf("the trace reader %s is closed: %w", r.fn, errors.ErrClosed)
	}
	r.pos, r.next, r.ok = 0, "", false
	return nil
}

// Close unmaps and closes the file
func (r *Reader) Close() error {
	if r.f == nil {
		return nil
	}
	var err error
	if r.mf != nil {
		err = r.mf.Unmap()
		r.mf = nil
	}
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	r.f = nil
	r.pos, r.ok = 0, false
	return err
}

func (r *Reader) String() string {
	if r.f != nil {
		return fmt.Sprintf("trace.Reader{fn=%s, f=\"opened\", size=%d, pos=%d}", r.fn, len(r.mf), r.pos)
	}
	return fmt.Sprintf("trace.Reader{fn=%s, f=\"closed\"}", r.fn)
}
