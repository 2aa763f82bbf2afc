// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

// Package backend selects the volume api implementation from the config.
package backend

import (
	"log/slog"
	"net/http"

	"github.com/cobaltcore-dev/cinderbridge/internal/volume"
	"github.com/cobaltcore-dev/cinderbridge/internal/volume/cinder"
	"github.com/cobaltcore-dev/cinderbridge/internal/volume/fake"
	"github.com/cobaltcore-dev/cinderbridge/pkg/conf"
)

// Create the client factory of the configured volume backend.
func NewClientFactory(config conf.VolumeConfig, httpClient *http.Client) (volume.ClientFactory, error) {
	switch backend := config.BackendOrDefault(); backend {
	case conf.VolumeBackendCinder:
		slog.Info("backend: using block storage api", "scheme", config.SchemeOrDefault(), "microversion", config.MicroversionOrDefault())
		return cinder.NewFactory(config, httpClient), nil
	case conf.VolumeBackendFake:
		slog.Warn("backend: using in-memory fake volume api")
		return fake.NewFactory(fake.NewSeeded(), config.AuthStrategyOrDefault()), nil
	default:
		return nil, &volume.Error{Kind: volume.ErrConfiguration, Detail: "unknown volume backend " + backend}
	}
}
