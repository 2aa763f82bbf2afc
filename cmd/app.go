// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"

	"github.com/cobaltcore-dev/cinderbridge/internal/volume"
	"github.com/cobaltcore-dev/cinderbridge/internal/volume/backend"
	"github.com/cobaltcore-dev/cinderbridge/pkg/conf"
	"github.com/cobaltcore-dev/cinderbridge/pkg/keystone"
	"github.com/cobaltcore-dev/cinderbridge/pkg/monitoring"
	"github.com/cobaltcore-dev/cinderbridge/pkg/sso"
)

// Default config files, later files override earlier ones.
var defaultConfigPaths = []string{"/etc/config/conf.json", "/etc/secrets/secrets.json"}

// Options shared by all commands.
type globalOptions struct {
	configPaths []string
	token       string
	tenant      string
	user        string
	admin       bool
}

// Everything a command needs to talk to the volume service.
type app struct {
	service *volume.Service
	caller  volume.RequestContext
}

func loadConfig(paths []string) (conf.Config, error) {
	if len(paths) == 0 {
		paths = defaultConfigPaths
	}
	config, err := conf.LoadFiles[conf.Config](paths...)
	if err != nil {
		return conf.Config{}, err
	}
	if err := config.Validate(); err != nil {
		return conf.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func newApp(ctx context.Context, opts globalOptions) (*app, error) {
	config, err := loadConfig(opts.configPaths)
	if err != nil {
		return nil, err
	}
	config.LoggingConfig.SetDefaultLogger()

	registry := monitoring.NewRegistry(config.MonitoringConfig)
	if config.MonitoringConfig.Port > 0 {
		go runMonitoringServer(ctx, registry, config.MonitoringConfig)
	}

	httpClient, err := sso.NewHTTPClient(config.SSOConfig)
	if err != nil {
		return nil, err
	}

	caller := volume.RequestContext{
		UserID:    opts.user,
		TenantID:  opts.tenant,
		AuthToken: opts.token,
		IsAdmin:   opts.admin,
	}
	volumeConfig := config.VolumeConfig
	needsToken := volumeConfig.AuthStrategyOrDefault() == conf.AuthStrategyKeystone && caller.AuthToken == ""
	needsEndpoints := len(volumeConfig.Endpoints) == 0 && volumeConfig.BackendOrDefault() == conf.VolumeBackendCinder
	if config.KeystoneConfig.URL != "" && (needsToken || needsEndpoints) {
		keystoneClient := keystone.NewKeystoneClientWithHTTPClient(config.KeystoneConfig, httpClient)
		if err := keystoneClient.Authenticate(ctx); err != nil {
			return nil, fmt.Errorf("failed to authenticate against keystone: %w", err)
		}
		if needsToken {
			if caller, err = callerFromKeystone(keystoneClient, caller); err != nil {
				return nil, err
			}
		}
		if needsEndpoints {
			if volumeConfig, err = discoverEndpoint(keystoneClient, volumeConfig); err != nil {
				return nil, err
			}
		}
	}
	if len(volumeConfig.Endpoints) == 0 && volumeConfig.BackendOrDefault() == conf.VolumeBackendFake {
		volumeConfig.Endpoints = []string{"localhost:8776"}
	}

	factory, err := backend.NewClientFactory(volumeConfig, httpClient)
	if err != nil {
		return nil, err
	}
	service, err := volume.NewService(volumeConfig, factory, volume.NewMonitor(registry))
	if err != nil {
		return nil, err
	}
	return &app{service: service, caller: caller}, nil
}

// Act as the service user configured for keystone.
func callerFromKeystone(client keystone.KeystoneClient, caller volume.RequestContext) (volume.RequestContext, error) {
	caller.AuthToken = client.Client().Token()
	if caller.TenantID == "" {
		projectID, err := client.ProjectID()
		if err != nil {
			return caller, err
		}
		caller.TenantID = projectID
	}
	if caller.UserID == "" {
		caller.UserID = client.Username()
	}
	slog.Info("using keystone token of the service user", "user", caller.UserID, "project", caller.TenantID)
	return caller, nil
}

// Use the block storage endpoint from the keystone service catalog.
func discoverEndpoint(client keystone.KeystoneClient, config conf.VolumeConfig) (conf.VolumeConfig, error) {
	endpointURL, err := client.FindEndpoint(client.Availability(), "volumev3")
	if err != nil {
		return config, fmt.Errorf("failed to find block storage endpoint: %w", err)
	}
	u, err := url.Parse(endpointURL)
	if err != nil {
		return config, fmt.Errorf("invalid block storage endpoint %s: %w", endpointURL, err)
	}
	hostPort := u.Host
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		hostPort = net.JoinHostPort(u.Hostname(), port)
	}
	config.Endpoints = []string{hostPort}
	if config.Scheme == "" {
		config.Scheme = u.Scheme
	}
	if config.APIPath == "" {
		config.APIPath = strings.Trim(u.Path, "/")
	}
	slog.Info("using block storage endpoint from service catalog", "url", endpointURL)
	return config, nil
}
