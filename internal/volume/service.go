// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package volume

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"

	"github.com/cobaltcore-dev/cinderbridge/pkg/conf"
)

// Entry point for all volume operations. A Service is immutable and safe
// for concurrent use.
type Service struct {
	config  conf.VolumeConfig
	factory ClientFactory
	handles *handleCache
	invoker *retryingInvoker
	monitor Monitor
}

// Create a service that spreads requests over the configured endpoints.
func NewService(config conf.VolumeConfig, factory ClientFactory, monitor Monitor) (*Service, error) {
	pool, err := NewEndpointPool(config.Endpoints)
	if err != nil {
		return nil, err
	}
	if pool.Len() == 0 {
		return nil, &Error{Kind: ErrConfiguration, Detail: "no volume api servers configured"}
	}
	if config.Retries < 0 {
		return nil, &Error{Kind: ErrConfiguration, Detail: "retries must not be negative"}
	}
	slog.Info("volume: using volume api servers", "endpoints", pool.String(), "retries", config.Retries)
	return newService(config, factory, monitor, &handleCache{pool: pool, factory: factory}), nil
}

func newService(config conf.VolumeConfig, factory ClientFactory, monitor Monitor, handles *handleCache) *Service {
	return &Service{
		config:  config,
		factory: factory,
		handles: handles,
		monitor: monitor,
		invoker: &retryingInvoker{
			handles:  handles,
			retries:  config.Retries,
			interval: config.RetryInterval(),
			monitor:  monitor,
			sleep:    sleepContext,
		},
	}
}

// Derive a service that sends all requests through the given client.
func (s *Service) WithClient(client Client) *Service {
	svc := newService(s.config, s.factory, s.monitor, &handleCache{pinned: client})
	svc.invoker.sleep = s.invoker.sleep
	return svc
}

// Resolve a volume reference. Bare ids are served by this service,
// locators by a service pinned to the api server they name.
func (s *Service) Resolve(rc RequestContext, ref string) (*Service, string, error) {
	parsed, err := ParseReference(ref)
	if err != nil {
		return nil, "", err
	}
	if !parsed.Located {
		return s, parsed.ID, nil
	}
	client, err := s.factory.NewClient(rc, parsed.Endpoint)
	if err != nil {
		return nil, "", err
	}
	return s.WithClient(client), parsed.ID, nil
}

// Iterate over all volumes visible to the caller.
func (s *Service) Volumes(ctx context.Context, rc RequestContext, params ListParams) iter.Seq2[Volume, error] {
	fetch := func(ctx context.Context, params ListParams) ([]RemoteVolume, error) {
		page, err := s.invoker.listDetailed(ctx, rc, params)
		return page, translateError("", err)
	}
	remote := paginate(ctx, fetch, params)
	return func(yield func(Volume, error) bool) {
		for r, err := range remote {
			if err != nil {
				yield(Volume{}, err)
				return
			}
			v, err := FromRemote(r)
			if err != nil {
				yield(Volume{}, err)
				return
			}
			if !IsVisible(rc, v) {
				continue
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// List id and name of all volumes visible to the caller.
func (s *Service) Index(ctx context.Context, rc RequestContext, params ListParams) (summaries []Summary, err error) {
	done := s.monitor.track("index")
	defer func() { done(err) }()
	summaries = []Summary{}
	for v, err := range s.Volumes(ctx, rc, params) {
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, Summary{ID: v.ID, DisplayName: v.DisplayName})
	}
	return summaries, nil
}

// List all volumes visible to the caller with full details.
func (s *Service) Detail(ctx context.Context, rc RequestContext, params ListParams) (volumes []Volume, err error) {
	done := s.monitor.track("detail")
	defer func() { done(err) }()
	return s.detail(ctx, rc, params)
}

func (s *Service) detail(ctx context.Context, rc RequestContext, params ListParams) ([]Volume, error) {
	volumes := []Volume{}
	for v, err := range s.Volumes(ctx, rc, params) {
		if err != nil {
			return nil, err
		}
		volumes = append(volumes, v)
	}
	return volumes, nil
}

// Return the metadata of a single volume.
func (s *Service) Show(ctx context.Context, rc RequestContext, id string) (v Volume, err error) {
	done := s.monitor.track("show")
	defer func() { done(err) }()
	return s.show(ctx, rc, id)
}

func (s *Service) show(ctx context.Context, rc RequestContext, id string) (Volume, error) {
	remote, err := s.invoker.getMeta(ctx, rc, id)
	if err != nil {
		return Volume{}, translateError(id, err)
	}
	v, err := FromRemote(remote)
	if err != nil {
		return Volume{}, err
	}
	if !IsVisible(rc, v) {
		return Volume{}, &Error{Kind: ErrNotFound, VolumeID: id}
	}
	return v, nil
}

// Return the first volume with the given display name.
func (s *Service) ShowByName(ctx context.Context, rc RequestContext, name string) (v Volume, err error) {
	done := s.monitor.track("show_by_name")
	defer func() { done(err) }()
	params := ListParams{Filters: map[string]string{"name": name}}
	for v, err := range s.Volumes(ctx, rc, params) {
		if err != nil {
			return Volume{}, err
		}
		if v.DisplayName == name {
			return v, nil
		}
	}
	return Volume{}, &Error{Kind: ErrNotFound, Detail: "no volume named " + name}
}

// Return the metadata of a volume and copy its data into w.
func (s *Service) Get(ctx context.Context, rc RequestContext, id string, w io.Writer) (v Volume, err error) {
	done := s.monitor.track("get")
	defer func() { done(err) }()
	remote, data, err := s.invoker.getWithData(ctx, rc, id)
	if err != nil {
		return Volume{}, translateError(id, err)
	}
	defer data.Close()
	v, err = FromRemote(remote)
	if err != nil {
		return Volume{}, err
	}
	if !IsVisible(rc, v) {
		return Volume{}, &Error{Kind: ErrNotFound, VolumeID: id}
	}
	if _, err := io.Copy(w, data); err != nil {
		return Volume{}, &Error{Kind: ErrConnectivity, VolumeID: id, Detail: "reading volume data", Err: err}
	}
	return v, nil
}

// Create a volume, optionally with inline data.
func (s *Service) Create(ctx context.Context, rc RequestContext, v Volume, data io.Reader) (created Volume, err error) {
	done := s.monitor.track("create")
	defer func() { done(err) }()
	if v, err = Normalize(v); err != nil {
		return Volume{}, err
	}
	remote, err := ToRemote(v)
	if err != nil {
		return Volume{}, err
	}
	client, err := s.handles.resolve(rc)
	if err != nil {
		return Volume{}, err
	}
	result, err := client.Create(ctx, remote, data)
	if err != nil {
		return Volume{}, translateError(v.ID, err)
	}
	created, err = FromRemote(result)
	if err != nil {
		return Volume{}, err
	}
	slog.Info("volume: created volume", "id", created.ID, "name", created.DisplayName)
	return created, nil
}

// Update the metadata of a volume, and its data if given.
func (s *Service) Update(ctx context.Context, rc RequestContext, id string, v Volume, data io.Reader) (updated Volume, err error) {
	done := s.monitor.track("update")
	defer func() { done(err) }()
	if _, err := s.show(ctx, rc, id); err != nil {
		return Volume{}, err
	}
	v.ID = id
	if v, err = Normalize(v); err != nil {
		return Volume{}, err
	}
	remote, err := ToRemote(v)
	if err != nil {
		return Volume{}, err
	}
	client, err := s.handles.resolve(rc)
	if err != nil {
		return Volume{}, err
	}
	result, err := client.Update(ctx, id, remote, data)
	if err != nil {
		return Volume{}, translateError(id, err)
	}
	return FromRemote(result)
}

// Delete a volume.
func (s *Service) Delete(ctx context.Context, rc RequestContext, id string) (err error) {
	done := s.monitor.track("delete")
	defer func() { done(err) }()
	existing, err := s.show(ctx, rc, id)
	if err != nil {
		return err
	}
	if err := checkOwnership(s.config.AuthStrategyOrDefault(), rc, existing); err != nil {
		return err
	}
	client, err := s.handles.resolve(rc)
	if err != nil {
		return err
	}
	if err := client.Delete(ctx, id); err != nil {
		return translateError(id, err)
	}
	slog.Info("volume: deleted volume", "id", id)
	return nil
}

// Delete all volumes, if the volume api supports it.
func (s *Service) DeleteAll(ctx context.Context, rc RequestContext) (err error) {
	done := s.monitor.track("delete_all")
	defer func() { done(err) }()
	client, err := s.handles.resolve(rc)
	if err != nil {
		return err
	}
	purger, ok := client.(Purger)
	if !ok {
		slog.Info("volume: volume api does not support deleting all volumes, skipping")
		return nil
	}
	return translateError("", purger.Purge(ctx))
}

// Check if the error means the volume does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
