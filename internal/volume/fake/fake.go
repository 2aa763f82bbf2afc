// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

// Package fake provides an in-memory volume api for tests and local runs.
package fake

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/cobaltcore-dev/cinderbridge/internal/volume"
	"github.com/google/uuid"
	"github.com/mitchellh/copystructure"
)

const timeLayout = "2006-01-02T15:04:05.000000"

type storedVolume struct {
	meta volume.RemoteVolume
	data []byte
	seq  int
}

// In-memory volume api. All clients built from the same Service share its
// volumes, regardless of the endpoint they were built for.
type Service struct {
	mu       sync.Mutex
	volumes  map[string]*storedVolume
	nextSeq  int
	failures int
	calls    map[string]int
	now      func() time.Time
}

// Create an empty volume api.
func New() *Service {
	return &Service{
		volumes: map[string]*storedVolume{},
		calls:   map[string]int{},
		now:     time.Now,
	}
}

// Create a volume api seeded with three volumes of fakeuser in fakeproject.
func NewSeeded() *Service {
	s := New()
	timestamp := time.Date(2012, 1, 1, 1, 2, 3, 0, time.UTC).Format(timeLayout)
	for _, id := range []string{
		"11111111-aaaa-bbbb-cccc-1111aaaa3333",
		"22222222-aaaa-bbbb-cccc-2222aaaa3333",
		"22222222-aaaa-bbbb-cccc-3333aaaa3333",
	} {
		s.store(volume.RemoteVolume{
			"id":           id,
			"created_at":   timestamp,
			"updated_at":   timestamp,
			"deleted":      false,
			"size":         1,
			"status":       "active",
			"attached":     false,
			"display_name": "fakevol-1",
			"properties": map[string]any{
				"user_id":    "fakeuser",
				"project_id": "fakeproject",
			},
		}, nil)
	}
	return s
}

// Let the next n calls fail with a connection error.
func (s *Service) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = n
}

// Number of calls of the given operation so far, such as "list_detailed".
func (s *Service) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Number of stored volumes.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.volumes)
}

// Record the call and return an injected failure, if any. Must be called
// with the lock held.
func (s *Service) enter(op string) error {
	s.calls[op]++
	if s.failures > 0 {
		s.failures--
		return &volume.RemoteError{Code: volume.RemoteConnectivity, Detail: "injected failure in " + op}
	}
	return nil
}

func (s *Service) store(meta volume.RemoteVolume, data []byte) *storedVolume {
	stored := &storedVolume{meta: meta, data: data, seq: s.nextSeq}
	s.nextSeq++
	s.volumes[meta.ID()] = stored
	return stored
}

func (s *Service) notFound(id string) error {
	return &volume.RemoteError{Code: volume.RemoteNotFound, Detail: "no volume with id " + id}
}

func copyMeta(meta volume.RemoteVolume) (volume.RemoteVolume, error) {
	copied, err := copystructure.Copy(map[string]any(meta))
	if err != nil {
		return nil, err
	}
	return volume.RemoteVolume(copied.(map[string]any)), nil
}

func (s *Service) ListDetailed(ctx context.Context, params volume.ListParams) ([]volume.RemoteVolume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("list_detailed"); err != nil {
		return nil, err
	}
	matching := slices.Collect(maps.Values(s.volumes))
	matching = slices.DeleteFunc(matching, func(v *storedVolume) bool {
		return !matches(v.meta, params.Filters)
	})
	sortVolumes(matching, params.SortKey, params.SortDir)
	if marker, ok := params.Marker.Unpack(); ok {
		idx := slices.IndexFunc(matching, func(v *storedVolume) bool { return v.meta.ID() == marker })
		if idx < 0 {
			return nil, &volume.RemoteError{Code: volume.RemoteInvalid, Detail: "marker " + marker + " not found"}
		}
		matching = matching[idx+1:]
	}
	if limit, ok := params.Limit.Unpack(); ok && limit < len(matching) {
		matching = matching[:max(limit, 0)]
	}
	result := make([]volume.RemoteVolume, 0, len(matching))
	for _, v := range matching {
		meta, err := copyMeta(v.meta)
		if err != nil {
			return nil, err
		}
		result = append(result, meta)
	}
	return result, nil
}

func matches(meta volume.RemoteVolume, filters map[string]string) bool {
	for key, want := range filters {
		if key == "name" {
			key = "display_name"
		}
		value, ok := meta[key]
		if !ok {
			props, _ := meta["properties"].(map[string]any)
			value, ok = props[key]
		}
		if !ok || fmt.Sprint(value) != want {
			return false
		}
	}
	return true
}

func sortVolumes(volumes []*storedVolume, key, dir string) {
	slices.SortStableFunc(volumes, func(a, b *storedVolume) int {
		var c int
		if key == "" {
			c = cmp.Compare(a.seq, b.seq)
		} else {
			c = compareValues(a.meta[key], b.meta[key])
			if c == 0 {
				c = cmp.Compare(a.seq, b.seq)
			}
		}
		if dir == "desc" {
			return -c
		}
		return c
	})
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case int:
		if bv, ok := b.(int); ok {
			return cmp.Compare(av, bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return cmp.Compare(av, bv)
		}
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func (s *Service) GetMeta(ctx context.Context, id string) (volume.RemoteVolume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("get_meta"); err != nil {
		return nil, err
	}
	stored, ok := s.volumes[id]
	if !ok {
		return nil, s.notFound(id)
	}
	return copyMeta(stored.meta)
}

func (s *Service) GetWithData(ctx context.Context, id string) (volume.RemoteVolume, io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("get_with_data"); err != nil {
		return nil, nil, err
	}
	stored, ok := s.volumes[id]
	if !ok {
		return nil, nil, s.notFound(id)
	}
	meta, err := copyMeta(stored.meta)
	if err != nil {
		return nil, nil, err
	}
	return meta, io.NopCloser(bytes.NewReader(bytes.Clone(stored.data))), nil
}

func (s *Service) Create(ctx context.Context, meta volume.RemoteVolume, data io.Reader) (volume.RemoteVolume, error) {
	var payload []byte
	if data != nil {
		var err error
		if payload, err = io.ReadAll(data); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("create"); err != nil {
		return nil, err
	}
	stored, err := copyMeta(meta)
	if err != nil {
		return nil, err
	}
	if stored.ID() == "" {
		stored["id"] = uuid.NewString()
	}
	if _, exists := s.volumes[stored.ID()]; exists {
		return nil, &volume.RemoteError{Code: volume.RemoteInvalid, Detail: "volume " + stored.ID() + " already exists"}
	}
	now := s.now().UTC().Format(timeLayout)
	if _, ok := stored["created_at"]; !ok {
		stored["created_at"] = now
	}
	stored["updated_at"] = now
	if _, ok := stored["status"]; !ok {
		stored["status"] = "available"
	}
	s.store(stored, payload)
	slog.Debug("fake: created volume", "id", stored.ID())
	return copyMeta(stored)
}

func (s *Service) Update(ctx context.Context, id string, meta volume.RemoteVolume, data io.Reader) (volume.RemoteVolume, error) {
	var payload []byte
	if data != nil {
		var err error
		if payload, err = io.ReadAll(data); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("update"); err != nil {
		return nil, err
	}
	stored, ok := s.volumes[id]
	if !ok {
		return nil, s.notFound(id)
	}
	updated, err := copyMeta(meta)
	if err != nil {
		return nil, err
	}
	updated["id"] = id
	if _, ok := updated["created_at"]; !ok {
		updated["created_at"] = stored.meta["created_at"]
	}
	updated["updated_at"] = s.now().UTC().Format(timeLayout)
	stored.meta = updated
	if data != nil {
		stored.data = payload
	}
	return copyMeta(updated)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("delete"); err != nil {
		return err
	}
	if _, ok := s.volumes[id]; !ok {
		return s.notFound(id)
	}
	delete(s.volumes, id)
	return nil
}

// Delete all volumes.
func (s *Service) Purge(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("purge"); err != nil {
		return err
	}
	clear(s.volumes)
	return nil
}

// Builds clients of a shared in-memory volume api. Credentials are checked
// the same way as for the real volume api.
type Factory struct {
	service  *Service
	strategy string
}

func NewFactory(service *Service, strategy string) *Factory {
	return &Factory{service: service, strategy: strategy}
}

func (f *Factory) NewClient(rc volume.RequestContext, endpoint volume.Endpoint) (volume.Client, error) {
	if _, err := volume.CredentialsFor(f.strategy, rc); err != nil {
		return nil, err
	}
	return f.service, nil
}
