// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

// Package cinder talks to the OpenStack block storage v3 api.
package cinder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cobaltcore-dev/cinderbridge/internal/volume"
	"github.com/cobaltcore-dev/cinderbridge/pkg/conf"
	"github.com/gophercloud/gophercloud/v2"
)

// Builds block storage clients for single api servers.
type Factory struct {
	config     conf.VolumeConfig
	httpClient *http.Client
}

// Create a factory. The http client is shared by all built clients.
func NewFactory(config conf.VolumeConfig, httpClient *http.Client) *Factory {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Factory{config: config, httpClient: httpClient}
}

func (f *Factory) NewClient(rc volume.RequestContext, endpoint volume.Endpoint) (volume.Client, error) {
	creds, err := volume.CredentialsFor(f.config.AuthStrategyOrDefault(), rc)
	if err != nil {
		return nil, err
	}
	provider := &gophercloud.ProviderClient{HTTPClient: *f.httpClient}
	provider.UseTokenLock()
	microversion := f.config.MicroversionOrDefault()
	sc := &gophercloud.ServiceClient{
		ProviderClient: provider,
		Endpoint:       f.endpointURL(endpoint),
		Type:           "volume",
		Microversion:   microversion,
		MoreHeaders:    map[string]string{"OpenStack-API-Version": "volume " + microversion},
	}
	if !creds.Anonymous() {
		provider.SetToken(creds.Token)
		if creds.Username != "" {
			sc.MoreHeaders["X-User-Id"] = creds.Username
		}
		if creds.Tenant != "" {
			sc.MoreHeaders["X-Project-Id"] = creds.Tenant
		}
	}
	return &client{sc: sc}, nil
}

// Service url of a single api server, such as http://cinder:8776/v3/
func (f *Factory) endpointURL(endpoint volume.Endpoint) string {
	path := strings.Trim(f.config.APIPathOrDefault(), "/")
	return fmt.Sprintf("%s://%s/%s/", f.config.SchemeOrDefault(), endpoint.String(), path)
}

// Client of a single block storage api server.
type client struct {
	sc *gophercloud.ServiceClient
}

// Local attribute names that are named differently by the block storage api.
var remoteAttributeNames = map[string]string{
	"display_name": "name",
}

func remoteAttributeName(key string) string {
	if name, ok := remoteAttributeNames[key]; ok {
		return name
	}
	return key
}

func (c *client) ListDetailed(ctx context.Context, params volume.ListParams) ([]volume.RemoteVolume, error) {
	query := url.Values{}
	for key, value := range params.Filters {
		query.Set(remoteAttributeName(key), value)
	}
	if marker, ok := params.Marker.Unpack(); ok {
		query.Set("marker", marker)
	}
	if limit, ok := params.Limit.Unpack(); ok {
		query.Set("limit", strconv.Itoa(limit))
	}
	if params.SortKey != "" {
		query.Set("sort_key", remoteAttributeName(params.SortKey))
	}
	if params.SortDir != "" {
		query.Set("sort_dir", params.SortDir)
	}
	u := c.sc.ServiceURL("volumes", "detail")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var list struct {
		Volumes []cinderVolume `json:"volumes"`
	}
	if _, err := c.sc.Get(ctx, u, &list, nil); err != nil {
		return nil, mapError(err)
	}
	slog.Debug("cinder: listed volumes", "count", len(list.Volumes), "url", u)
	result := make([]volume.RemoteVolume, 0, len(list.Volumes))
	for _, v := range list.Volumes {
		result = append(result, v.remote())
	}
	return result, nil
}

func (c *client) GetMeta(ctx context.Context, id string) (volume.RemoteVolume, error) {
	var resp struct {
		Volume cinderVolume `json:"volume"`
	}
	if _, err := c.sc.Get(ctx, c.sc.ServiceURL("volumes", id), &resp, nil); err != nil {
		return nil, mapError(err)
	}
	return resp.Volume.remote(), nil
}

// The block storage api has no inline volume data, so the data is always
// empty.
func (c *client) GetWithData(ctx context.Context, id string) (volume.RemoteVolume, io.ReadCloser, error) {
	meta, err := c.GetMeta(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return meta, io.NopCloser(strings.NewReader("")), nil
}

var errInlineData = &volume.RemoteError{
	Code:   volume.RemoteInvalid,
	Detail: "inline volume data is not supported by the block storage api",
}

func (c *client) Create(ctx context.Context, meta volume.RemoteVolume, data io.Reader) (volume.RemoteVolume, error) {
	if data != nil {
		return nil, errInlineData
	}
	req, err := newVolumeRequest(meta)
	if err != nil {
		return nil, &volume.RemoteError{Code: volume.RemoteInvalid, Detail: err.Error(), Err: err}
	}
	body := map[string]any{"volume": req}
	var resp struct {
		Volume cinderVolume `json:"volume"`
	}
	_, err = c.sc.Post(ctx, c.sc.ServiceURL("volumes"), body, &resp, &gophercloud.RequestOpts{
		OkCodes: []int{http.StatusAccepted},
	})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Volume.remote(), nil
}

func (c *client) Update(ctx context.Context, id string, meta volume.RemoteVolume, data io.Reader) (volume.RemoteVolume, error) {
	if data != nil {
		return nil, errInlineData
	}
	req, err := newVolumeRequest(meta)
	if err != nil {
		return nil, &volume.RemoteError{Code: volume.RemoteInvalid, Detail: err.Error(), Err: err}
	}
	// The size cannot be changed through an update, only through extend.
	req.Size = 0
	body := map[string]any{"volume": req}
	var resp struct {
		Volume cinderVolume `json:"volume"`
	}
	_, err = c.sc.Put(ctx, c.sc.ServiceURL("volumes", id), body, &resp, &gophercloud.RequestOpts{
		OkCodes: []int{http.StatusOK},
	})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Volume.remote(), nil
}

func (c *client) Delete(ctx context.Context, id string) error {
	_, err := c.sc.Delete(ctx, c.sc.ServiceURL("volumes", id), &gophercloud.RequestOpts{
		OkCodes: []int{http.StatusAccepted, http.StatusNoContent},
	})
	return mapError(err)
}

// Map gophercloud errors onto remote error codes.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	remote := func(code volume.RemoteCode) error {
		return &volume.RemoteError{Code: code, Detail: err.Error(), Err: err}
	}
	switch {
	case gophercloud.ResponseCodeIs(err, http.StatusUnauthorized):
		return remote(volume.RemoteNotAuthenticated)
	case gophercloud.ResponseCodeIs(err, http.StatusForbidden):
		return remote(volume.RemoteForbidden)
	case gophercloud.ResponseCodeIs(err, http.StatusNotFound):
		return remote(volume.RemoteNotFound)
	case gophercloud.ResponseCodeIs(err, http.StatusBadRequest),
		gophercloud.ResponseCodeIs(err, http.StatusConflict),
		gophercloud.ResponseCodeIs(err, http.StatusRequestEntityTooLarge):
		return remote(volume.RemoteInvalid)
	case gophercloud.ResponseCodeIs(err, http.StatusBadGateway),
		gophercloud.ResponseCodeIs(err, http.StatusServiceUnavailable),
		gophercloud.ResponseCodeIs(err, http.StatusGatewayTimeout):
		return remote(volume.RemoteConnectivity)
	}
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return remote(volume.RemoteConnectivity)
	}
	return err
}
