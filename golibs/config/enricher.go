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
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/solarisdb/lrumap/golibs/errors"
	"github.com/solarisdb/lrumap/golibs/logging"
)

type (
	// Enricher interface provides some helper functions to work with the configuration structures.
	// It keeps a structure value by the type T and allows to load its value from a file,
	// apply other values from other enricher, created for the same type T, and apply environment
	// variables to the structure.
	//
	// The following contract is applied to the type T:
	//   - only the exported fields (started from the capital letter) will be updated
	//   - the fields, may have JSON annotation, where the JSON field name value can be used as an alias,
	//     for example, FieldA int `json:"abc"` <- the field may be addressed either as "fieldA" or "abc"
	//   - all the fields' names are case-insensitive
	//   - the reading from YAML files is defined by the same (JSON name) annotations
	Enricher[T any] interface {
		// LoadFromFile allows to load the structure's fields from the YAML or JSON file.
		// Which format is used, is defined by the file extension (.json, .yaml or .yml).
		// Empty fileName is ignored.
		LoadFromFile(fileName string) error

		// ApplyOther applies the non-zero fields of the other enricher value over the
		// current value (deep apply)
		ApplyOther(e Enricher[T]) error

		// ApplyEnvVariables scans the environment variables and applies the ones which names
		// start from prefix. The variable name is the path to the field separated by sep, for
		// example, for prefix "LRUMAP", sep "_" the variable LRUMAP_REDIS_ADDR addresses the
		// T.Redis.Addr field. The values are JSON values, strings may be not quoted.
		ApplyEnvVariables(prefix, sep string) error

		// ApplyKeyValues applies the key-value pairs to the structure. The keys are interpreted
		// the same way as the environment variables names in ApplyEnvVariables
		ApplyKeyValues(prefix, sep string, keyValues map[string]string)

		// Value returns the enricher current value
		Value() T
	}

	enricher[T any] struct {
		log logging.Logger
		val T
	}
)

// NewEnricher constructs new Enricher for the type T, which must be a struct
func NewEnricher[T any](val T) Enricher[T] {
	tp := reflect.TypeOf(val)
	if tp.Kind() != reflect.Struct {
		panic(fmt.Sprintf("only structs are acceptable in the Enricher, but got the type %s", tp.Kind()))
	}
	e := new(enricher[T])
	e.val = val
	e.log = logging.NewLogger("config.enricher." + tp.Name())
	return e
}

func (e *enricher[T]) LoadFromFile(fileName string) error {
	if fileName == "" {
		e.log.Infof("don't load data from a file name, the file name is not provided")
		return nil
	}
	buf, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("could not read file %s: %w", fileName, err)
	}

	fn := strings.ToLower(strings.TrimSpace(fileName))
	switch {
	case strings.HasSuffix(fn, ".yaml"), strings.HasSuffix(fn, ".yml"):
		err = yaml.Unmarshal(buf, &e.val)
	case strings.HasSuffix(fn, ".json"):
		err = json.Unmarshal(buf, &e.val)
	default:
		return fmt.Errorf("cannot recognize file format %s, expecting .json or .yaml: %w", fileName, errors.ErrInvalid)
	}
	if err != nil {
		return fmt.Errorf("could not unmarshal file %s: %w", fileName, err)
	}
	e.log.Infof("the value is loaded from %s", fileName)
	return nil
}

func (e *enricher[T]) ApplyOther(other Enricher[T]) error {
	oe, ok := other.(*enricher[T])
	if !ok {
		return fmt.Errorf("unexpected enricher implementation %T: %w", other, errors.ErrInvalid)
	}
	applyValues(reflect.ValueOf(&oe.val).Elem(), reflect.ValueOf(&e.val).Elem())
	return nil
}

func (e *enricher[T]) ApplyEnvVariables(prefix, sep string) error {
	e.log.Infof("apply environment variables with the prefix %s", prefix)
	env := make(map[string]string)
	for _, v := range os.Environ() {
		k, val, ok := strings.Cut(v, "=")
		if !ok {
			e.log.Warnf("the environment variable %s is not valid, skip it", v)
			continue
		}
		env[k] = val
	}
	e.ApplyKeyValues(prefix, sep, env)
	return nil
}

func (e *enricher[T]) ApplyKeyValues(prefix, sep string, keyValues map[string]string) {
	sep = strings.ToUpper(sep)
	pfx := ""
	if prefix != "" {
		pfx = strings.ToUpper(prefix) + sep
	}
	for key, value := range keyValues {
		key = strings.ToUpper(key)
		if !strings.HasPrefix(key, pfx) {
			continue
		}
		path := strings.Split(key[len(pfx):], sep)
		ok, err := assign(reflect.ValueOf(&e.val).Elem(), path, value)
		if err != nil {
			e.log.Warnf("could not apply %s=%s: %s", key, value, err)
			continue
		}
		e.log.Infof("applying variable %s: %t", key, ok)
	}
}

func (e *enricher[T]) Value() T {
	return e.val
}

// applyValues copies the non-zero values from other to target recursively
func applyValues(other, target reflect.Value) {
	if other.IsZero() {
		return
	}
	switch other.Kind() {
	case reflect.Ptr:
		if target.IsNil() {
			target.Set(reflect.New(target.Type().Elem()))
		}
		applyValues(other.Elem(), target.Elem())
	case reflect.Struct:
		for fi := 0; fi < other.NumField(); fi++ {
			if !target.Field(fi).CanSet() {
				continue
			}
			applyValues(other.Field(fi), target.Field(fi))
		}
	default:
		target.Set(other)
	}
}

// assign sets the field addressed by path (upper-cased field names or json aliases) in the
// struct value s. The nil pointers on the path are created. It returns false if the path
// doesn't address any field.
func assign(s reflect.Value, path []string, v string) (bool, error) {
	if len(path) == 0 || path[0] == "" {
		return false, nil
	}
	if s.Kind() == reflect.Ptr {
		if s.IsNil() {
			nv := reflect.New(s.Type().Elem())
			ok, err := assign(nv.Elem(), path, v)
			if ok && err == nil {
				s.Set(nv)
			}
			return ok, err
		}
		s = s.Elem()
	}
	if s.Kind() != reflect.Struct {
		return false, nil
	}
	tp := s.Type()
	for fi := 0; fi < s.NumField(); fi++ {
		sf := tp.Field(fi)
		if !sf.IsExported() {
			continue
		}
		if path[0] != strings.ToUpper(sf.Name) && path[0] != getAlias(sf.Tag) {
			continue
		}
		f := s.Field(fi)
		if len(path) > 1 {
			return assign(f, path[1:], v)
		}
		return true, setFieldValueByString(f, v)
	}
	return false, nil
}

// setFieldValueByString receives a field value and a string which should be assigned to
// it. Numerical and string values are supported as is, all other types should be provided
// in the json formats.
// Examples:
// int: 1234
// string: la la la
// []string: ["aaa", "bbbb"]
func setFieldValueByString(field reflect.Value, s string) error {
	if len(s) == 0 {
		return nil
	}
	obj := reflect.New(field.Type())
	if isStringUnderlying(field.Type()) && !isQuoted(s) {
		s = strconv.Quote(s)
	}
	if err := json.Unmarshal([]byte(s), obj.Interface()); err != nil {
		return err
	}
	field.Set(obj.Elem())
	return nil
}

func isQuoted(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}

func isStringUnderlying(tp reflect.Type) bool {
	if tp.Kind() == reflect.Ptr {
		return isStringUnderlying(tp.Elem())
	}
	return tp.Kind() == reflect.String
}

func getAlias(tag reflect.StructTag) string {
	name, _, _ := strings.Cut(tag.Get("json"), ",")
	return strings.ToUpper(name)
}
