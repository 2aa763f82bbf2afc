// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package volume

import (
	"context"
	"errors"
	"io"
)

var errNotStubbed = errors.New("not stubbed")

type stubClient struct {
	listDetailed func(ctx context.Context, params ListParams) ([]RemoteVolume, error)
	getMeta      func(ctx context.Context, id string) (RemoteVolume, error)
	getWithData  func(ctx context.Context, id string) (RemoteVolume, io.ReadCloser, error)
}

func (c *stubClient) ListDetailed(ctx context.Context, params ListParams) ([]RemoteVolume, error) {
	if c.listDetailed == nil {
		return nil, errNotStubbed
	}
	return c.listDetailed(ctx, params)
}

func (c *stubClient) GetMeta(ctx context.Context, id string) (RemoteVolume, error) {
	if c.getMeta == nil {
		return nil, errNotStubbed
	}
	return c.getMeta(ctx, id)
}

func (c *stubClient) GetWithData(ctx context.Context, id string) (RemoteVolume, io.ReadCloser, error) {
	if c.getWithData == nil {
		return nil, nil, errNotStubbed
	}
	return c.getWithData(ctx, id)
}

func (c *stubClient) Create(ctx context.Context, meta RemoteVolume, data io.Reader) (RemoteVolume, error) {
	return nil, errNotStubbed
}

func (c *stubClient) Update(ctx context.Context, id string, meta RemoteVolume, data io.Reader) (RemoteVolume, error) {
	return nil, errNotStubbed
}

func (c *stubClient) Delete(ctx context.Context, id string) error {
	return errNotStubbed
}

var errConnRefused = &RemoteError{Code: RemoteConnectivity, Detail: "connection refused"}
