// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package conf

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
)

// Check if the configuration is consistent.
func (c *Config) Validate() error {
	// Check the keystone URL.
	if c.KeystoneConfig.URL != "" && !strings.Contains(c.KeystoneConfig.URL, "/v3") {
		return fmt.Errorf(
			"expected v3 Keystone URL, but got %s",
			c.KeystoneConfig.URL,
		)
	}
	// OpenStack urls should end without a slash.
	if strings.HasSuffix(c.KeystoneConfig.URL, "/") {
		return fmt.Errorf("openstack url %s should not end with a slash", c.KeystoneConfig.URL)
	}
	return c.VolumeConfig.Validate()
}

// Check if the volume service configuration is usable.
func (c VolumeConfig) Validate() error {
	knownBackends := []string{VolumeBackendCinder, VolumeBackendFake}
	if !slices.Contains(knownBackends, c.BackendOrDefault()) {
		return fmt.Errorf("unknown volume backend %q, expected one of %v", c.Backend, knownBackends)
	}
	knownStrategies := []string{AuthStrategyKeystone, AuthStrategyNoAuth, AuthStrategyDeprecated}
	if !slices.Contains(knownStrategies, c.AuthStrategyOrDefault()) {
		return fmt.Errorf("unknown auth strategy %q, expected one of %v", c.AuthStrategy, knownStrategies)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Retries)
	}
	if c.RetryIntervalSeconds != nil && *c.RetryIntervalSeconds < 0 {
		return fmt.Errorf("retry interval must not be negative, got %d", *c.RetryIntervalSeconds)
	}
	for _, endpoint := range c.Endpoints {
		if err := validateHostPort(endpoint); err != nil {
			return err
		}
	}
	return nil
}

func validateHostPort(endpoint string) error {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return fmt.Errorf("invalid volume endpoint %q: %w", endpoint, err)
	}
	if host == "" {
		return fmt.Errorf("invalid volume endpoint %q: missing host", endpoint)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid volume endpoint %q: %w", endpoint, err)
	}
	if port <= 0 || port > 65535 {
		return errors.New("invalid volume endpoint " + endpoint + ": port out of range")
	}
	return nil
}
