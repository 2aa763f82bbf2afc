// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package conf

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Create a new configuration from the default config json file.
//
// This will read two files:
//   - /etc/config/conf.json
//   - /etc/secrets/secrets.json
//
// The values read from secrets.json will override the values in conf.json
func GetConfigOrDie[C any]() C {
	c, err := LoadFiles[C]("/etc/config/conf.json", "/etc/secrets/secrets.json")
	if err != nil {
		panic(err)
	}
	return c
}

// Load the configuration from the given files, in order. Values from later
// files override values from earlier files. Files ending in .yaml or .yml
// are decoded as yaml, all others as json.
func LoadFiles[C any](paths ...string) (C, error) {
	// Note: We need to read the config as a raw map first, to avoid golang
	// unmarshalling default values for the fields.
	merged := map[string]any{}
	for _, path := range paths {
		raw, err := readRawConfig(path)
		if err != nil {
			var c C
			return c, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		merged = mergeMaps(merged, raw)
	}
	return newConfigFromMaps[C](merged, nil)
}

func newConfigFromMaps[C any](base, override map[string]any) (C, error) {
	var c C
	// Merge the base config with the override config.
	mergedConf := mergeMaps(base, override)
	// Marshal again, and then unmarshal into the config struct.
	mergedBytes, err := json.Marshal(mergedConf)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(mergedBytes, &c); err != nil {
		return c, err
	}
	return c, nil
}

// Read the config as a map from the given file path.
func readRawConfig(path string) (map[string]any, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	bytes, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return readRawConfigFromYAML(bytes)
	default:
		return readRawConfigFromBytes(bytes)
	}
}

func readRawConfigFromBytes(data []byte) (map[string]any, error) {
	var conf map[string]any
	if err := json.Unmarshal(data, &conf); err != nil {
		return nil, err
	}
	return conf, nil
}

func readRawConfigFromYAML(data []byte) (map[string]any, error) {
	var conf map[string]any
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, err
	}
	return conf, nil
}

// mergeMaps recursively overrides dst with src (in-place)
func mergeMaps(dst, src map[string]any) map[string]any {
	result := dst
	for k, v := range src {
		if v == nil {
			// If src value is nil, skip override
			continue
		}
		if dstVal, ok := dst[k]; ok {
			// If both are maps, merge recursively
			dstMap, dstIsMap := dstVal.(map[string]any)
			srcMap, srcIsMap := v.(map[string]any)
			if dstIsMap && srcIsMap {
				result[k] = mergeMaps(dstMap, srcMap)
				continue
			}
		}
		// Otherwise, override
		result[k] = v
	}
	return result
}
