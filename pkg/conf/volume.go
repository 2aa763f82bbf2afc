// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package conf

import "time"

// Wait time between two attempts of the same call, one second if unset.
func (c VolumeConfig) RetryInterval() time.Duration {
	if c.RetryIntervalSeconds == nil {
		return time.Second
	}
	return time.Duration(*c.RetryIntervalSeconds) * time.Second
}

// The url scheme of the volume api servers.
func (c VolumeConfig) SchemeOrDefault() string {
	if c.Scheme == "" {
		return "http"
	}
	return c.Scheme
}

// The api path prefix on the volume api servers.
func (c VolumeConfig) APIPathOrDefault() string {
	if c.APIPath == "" {
		return "v3"
	}
	return c.APIPath
}

// The block storage microversion to request.
func (c VolumeConfig) MicroversionOrDefault() string {
	if c.Microversion == "" {
		return "3.70"
	}
	return c.Microversion
}

// The auth strategy, keystone if unset.
func (c VolumeConfig) AuthStrategyOrDefault() string {
	if c.AuthStrategy == "" {
		return AuthStrategyKeystone
	}
	return c.AuthStrategy
}

// The volume backend, cinder if unset.
func (c VolumeConfig) BackendOrDefault() string {
	if c.Backend == "" {
		return VolumeBackendCinder
	}
	return c.Backend
}
