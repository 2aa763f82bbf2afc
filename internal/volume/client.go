// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package volume

import (
	"context"
	"io"
	"maps"

	"github.com/majewsky/gg/option"
)

// Parameters of a single listing call.
type ListParams struct {
	// Attribute filters, for example "name".
	Filters map[string]string
	// Id of the last volume of the previous page.
	Marker option.Option[string]
	// Maximum number of volumes to return.
	Limit option.Option[int]
	SortKey string
	SortDir string
}

func (p ListParams) clone() ListParams {
	p.Filters = maps.Clone(p.Filters)
	return p
}

// Client of a single remote volume api server. Failures of the remote side
// are reported as *RemoteError.
type Client interface {
	// Return one page of volumes with full details.
	ListDetailed(ctx context.Context, params ListParams) ([]RemoteVolume, error)
	// Return the metadata of a single volume.
	GetMeta(ctx context.Context, id string) (RemoteVolume, error)
	// Return the metadata of a single volume and a reader for its data.
	// The caller must close the reader.
	GetWithData(ctx context.Context, id string) (RemoteVolume, io.ReadCloser, error)
	// Create a volume, optionally with inline data.
	Create(ctx context.Context, meta RemoteVolume, data io.Reader) (RemoteVolume, error)
	// Update a volume, optionally replacing its data.
	Update(ctx context.Context, id string, meta RemoteVolume, data io.Reader) (RemoteVolume, error)
	// Delete a volume.
	Delete(ctx context.Context, id string) error
}

// Implemented by clients that can delete all volumes at once.
type Purger interface {
	Purge(ctx context.Context) error
}

// Builds clients bound to one endpoint and carrying the caller's
// credentials.
type ClientFactory interface {
	NewClient(rc RequestContext, endpoint Endpoint) (Client, error)
}

// Adapter to use a plain function as a ClientFactory.
type ClientFactoryFunc func(rc RequestContext, endpoint Endpoint) (Client, error)

func (f ClientFactoryFunc) NewClient(rc RequestContext, endpoint Endpoint) (Client, error) {
	return f(rc, endpoint)
}

// Resolves the client for the next request. A pinned client is always
// used as is, otherwise a fresh client is built for a random endpoint.
type handleCache struct {
	pinned  Client
	pool    EndpointPool
	factory ClientFactory
}

func (h *handleCache) resolve(rc RequestContext) (Client, error) {
	if h.pinned != nil {
		return h.pinned, nil
	}
	endpoint, err := h.pool.Pick()
	if err != nil {
		return nil, err
	}
	return h.factory.NewClient(rc, endpoint)
}
