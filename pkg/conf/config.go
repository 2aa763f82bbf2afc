// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package conf

// Configuration for single-sign-on (SSO).
type SSOConfig struct {
	Cert    string `json:"cert,omitempty"`
	CertKey string `json:"certKey,omitempty"`

	// If the certificate is self-signed, we need to skip verification.
	SelfSigned bool `json:"selfSigned,omitempty"`
}

// Configuration for structured logging.
type LoggingConfig struct {
	// The log level to use (debug, info, warn, error).
	LevelStr string `json:"level"`
	// The log format to use (json, text).
	Format string `json:"format"`
}

// Configuration for the monitoring module.
type MonitoringConfig struct {
	// The labels to add to all metrics.
	Labels map[string]string `json:"labels"`

	// The port to expose the metrics on. Zero disables the metrics server.
	Port int `json:"port"`
}

// Configuration for the keystone authentication.
type KeystoneConfig struct {
	// The URL of the keystone service.
	URL string `json:"url"`
	// Availability of the keystone service, such as "public", "internal", or "admin".
	Availability string `json:"availability"`
	// The OpenStack username (OS_USERNAME in openstack cli).
	OSUsername string `json:"username"`
	// The OpenStack password (OS_PASSWORD in openstack cli).
	OSPassword string `json:"password"`
	// The OpenStack project name (OS_PROJECT_NAME in openstack cli).
	OSProjectName string `json:"projectName"`
	// The OpenStack user domain name (OS_USER_DOMAIN_NAME in openstack cli).
	OSUserDomainName string `json:"userDomainName"`
	// The OpenStack project domain name (OS_PROJECT_DOMAIN_NAME in openstack cli).
	OSProjectDomainName string `json:"projectDomainName"`
}

// Known volume service backends.
const (
	VolumeBackendCinder = "cinder"
	VolumeBackendFake   = "fake"
)

// Known auth strategies towards the volume service.
const (
	// Embed the caller's keystone token in every request.
	AuthStrategyKeystone = "keystone"
	// Anonymous requests.
	AuthStrategyNoAuth = "noauth"
	// Anonymous requests, with ownership checks done on our side before deletes.
	AuthStrategyDeprecated = "deprecated"
)

// Configuration of the client towards the remote volume service.
type VolumeConfig struct {
	// The volume service implementation to talk to (cinder or fake).
	Backend string `json:"backend"`
	// The volume api servers to spread requests over, as host:port.
	Endpoints []string `json:"endpoints"`
	// How often idempotent calls are retried on connection errors.
	Retries int `json:"retries"`
	// Wait time between two attempts of the same call.
	RetryIntervalSeconds *int `json:"retryIntervalSeconds,omitempty"`
	// How requests are authenticated (keystone, noauth, deprecated).
	AuthStrategy string `json:"authStrategy"`
	// The url scheme of the volume api servers. Defaults to http.
	Scheme string `json:"scheme,omitempty"`
	// The api path prefix on the volume api servers. Defaults to v3.
	APIPath string `json:"apiPath,omitempty"`
	// The block storage microversion to request. Defaults to 3.70.
	Microversion string `json:"microversion,omitempty"`
}

// Configuration for the cinderbridge.
type Config struct {
	LoggingConfig    `json:"logging"`
	MonitoringConfig `json:"monitoring"`
	SSOConfig        `json:"sso"`
	KeystoneConfig   `json:"keystone"`
	VolumeConfig     `json:"volume"`
}
