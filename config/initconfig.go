// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"

	yaml "gopkg.in/yaml.v2"

	"safeapp.io/errors"
	"safeapp.io/log"
)

// Known keys. All others are treated as errors.
const (
	loglevel = "loglevel"
	teardown = "teardown"
	inflight = "inflight"
)

// FromFile initializes a config using the given file. If the file cannot
// be opened but the name can be found in $HOME/.safeapp, that file is used.
func FromFile(name string) (Config, error) {
	const op errors.Op = "config.FromFile"
	f, err := os.Open(name)
	if err != nil && !filepath.IsAbs(name) && os.IsNotExist(err) {
		// It's a local name, so, try adding $HOME/.safeapp
		if home, errHome := os.UserHomeDir(); errHome == nil {
			f, err = os.Open(filepath.Join(home, ".safeapp", name))
		}
	}
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.E(op, errors.IO, err)
		}
		return nil, errors.E(op, err)
	}
	defer f.Close()
	return InitConfig(f)
}

// InitConfig returns a config generated from a YAML configuration file.
//
// A configuration file should be of the format
//   # lines that begin with a hash are ignored
//   key: value
// where key may be one of loglevel, teardown, or inflight.
//
// The default value for loglevel is "info"; it may be
// debug, info, error or disabled.
//
// The default value for teardown is "reject", in which case closing a
// session fails every queued operation with a Disconnected error.
// The value "drain" runs queued operations before the session closes.
//
// The default value for inflight is 1024.
//
// If r is nil, the default configuration is returned.
func InitConfig(r io.Reader) (Config, error) {
	const op errors.Op = "config.InitConfig"
	vals := map[string]string{
		loglevel: defaultLogLevel,
		teardown: defaultTeardown.String(),
		inflight: strconv.Itoa(defaultInFlight),
	}

	if r != nil {
		// Read the YAML definition.
		data, err := ioutil.ReadAll(r)
		if err != nil {
			return nil, errors.E(op, errors.IO, err)
		}
		if err := valsFromYAML(vals, data); err != nil {
			return nil, errors.E(op, err)
		}
	}

	// Construct a config from vals.
	cfg := New()

	if _, err := log.ParseLevel(vals[loglevel]); err != nil {
		return nil, errors.E(op, errors.Invalid, err)
	}
	cfg = SetLogLevel(cfg, vals[loglevel])

	t, err := ParseTeardown(vals[teardown])
	if err != nil {
		return nil, errors.E(op, err)
	}
	cfg = SetTeardown(cfg, t)

	n, err := strconv.Atoi(vals[inflight])
	if err != nil || n <= 0 {
		return nil, errors.E(op, errors.Invalid, errors.Errorf("inflight must be a positive integer, got %q", vals[inflight]))
	}
	cfg = SetInFlight(cfg, n)

	return cfg, nil
}

// valsFromYAML parses YAML from the given map and puts the values
// into the provided map. Unrecognized keys generate an error.
func valsFromYAML(vals map[string]string, data []byte) error {
	newVals := map[string]interface{}{}
	if err := yaml.Unmarshal(data, newVals); err != nil {
		return errors.E(errors.Invalid, errors.Errorf("parsing YAML file: %v", err))
	}
	for k, v := range newVals {
		if _, ok := vals[k]; !ok {
			return errors.E(errors.Invalid, errors.Errorf("unrecognized key %q", k))
		}
		s, err := asString(v)
		if err != nil {
			return errors.E(errors.Invalid, errors.Errorf("%q: %v", k, err))
		}
		vals[k] = s
	}
	return nil
}

// asString tries to convert a value back into its original string. This will not
// always be possible but should be for all our expected use cases.
func asString(v interface{}) (string, error) {
	switch vc := v.(type) {
	case int, int32, int64, uint, uint32, uint64, float32, float64, bool:
		return fmt.Sprintf("%v", vc), nil
	case string:
		return vc, nil
	}
	return "", errors.Errorf("unrecognized value %T", v)
}
