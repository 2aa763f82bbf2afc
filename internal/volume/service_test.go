// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package volume_test

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/cobaltcore-dev/cinderbridge/internal/volume"
	"github.com/cobaltcore-dev/cinderbridge/internal/volume/fake"
	"github.com/cobaltcore-dev/cinderbridge/pkg/conf"
	"github.com/cobaltcore-dev/cinderbridge/pkg/monitoring"
	testlib "github.com/cobaltcore-dev/cinderbridge/pkg/testing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var (
	tenant   = volume.RequestContext{UserID: "user-1", TenantID: "project-1"}
	stranger = volume.RequestContext{UserID: "user-2", TenantID: "project-2"}
	admin    = volume.RequestContext{UserID: "admin", TenantID: "admin-project", IsAdmin: true}
)

func newTestService(t *testing.T, store *fake.Service, strategy string) *volume.Service {
	t.Helper()
	config := conf.VolumeConfig{
		Backend:              conf.VolumeBackendFake,
		Endpoints:            []string{"cinder-1:8776", "cinder-2:8776"},
		Retries:              2,
		RetryIntervalSeconds: testlib.Ptr(0),
		AuthStrategy:         strategy,
	}
	svc, err := volume.NewService(config, fake.NewFactory(store, strategy), volume.Monitor{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return svc
}

func TestNewService_NoEndpoints(t *testing.T) {
	_, err := volume.NewService(conf.VolumeConfig{}, fake.NewFactory(fake.New(), conf.AuthStrategyNoAuth), volume.Monitor{})
	if !errors.Is(err, volume.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestService_CreateAndShowByName(t *testing.T) {
	svc := newTestService(t, fake.New(), conf.AuthStrategyNoAuth)
	created, err := svc.Create(t.Context(), tenant, volume.Volume{
		DisplayName: "fakevol-1",
		Size:        1,
		Properties:  map[string]any{"project_id": "project-1"},
	}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if created.ID == "" || created.CreatedAt == nil {
		t.Fatalf("expected id and created_at to be set, got %+v", created)
	}
	found, err := svc.ShowByName(t.Context(), tenant, "fakevol-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if found.ID != created.ID || found.DisplayName != "fakevol-1" || found.Size != 1 {
		t.Errorf("expected %+v, got %+v", created, found)
	}
	if _, err := svc.ShowByName(t.Context(), stranger, "fakevol-1"); !volume.IsNotFound(err) {
		t.Errorf("expected not found for foreign tenant, got %v", err)
	}
	if _, err := svc.ShowByName(t.Context(), tenant, "fakevol-2"); !volume.IsNotFound(err) {
		t.Errorf("expected not found for unknown name, got %v", err)
	}
}

func TestService_Delete(t *testing.T) {
	svc := newTestService(t, fake.New(), conf.AuthStrategyNoAuth)
	if err := svc.Delete(t.Context(), tenant, "missing"); !volume.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	created, err := svc.Create(t.Context(), tenant, volume.Volume{
		DisplayName: "doomed",
		Properties:  map[string]any{"project_id": "project-1"},
	}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := svc.Delete(t.Context(), stranger, created.ID); !volume.IsNotFound(err) {
		t.Errorf("expected invisible volume to be not found, got %v", err)
	}
	if err := svc.Delete(t.Context(), tenant, created.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := svc.Delete(t.Context(), tenant, created.ID); !volume.IsNotFound(err) {
		t.Errorf("expected second delete to be not found, got %v", err)
	}
}

func TestService_DeleteOwnershipCheck(t *testing.T) {
	store := fake.NewSeeded()
	svc := newTestService(t, store, conf.AuthStrategyDeprecated)
	id := "11111111-aaaa-bbbb-cccc-1111aaaa3333"
	err := svc.Delete(t.Context(), admin, id)
	if !errors.Is(err, volume.ErrNotAuthorized) {
		t.Fatalf("expected not authorized, got %v", err)
	}
	owner := volume.RequestContext{UserID: "fakeuser", TenantID: "fakeproject"}
	if err := svc.Delete(t.Context(), owner, id); err != nil {
		t.Fatalf("expected owner to delete, got %v", err)
	}
	if store.Len() != 2 {
		t.Errorf("expected 2 volumes left, got %d", store.Len())
	}
}

func TestService_IndexAndDetail(t *testing.T) {
	svc := newTestService(t, fake.NewSeeded(), conf.AuthStrategyNoAuth)
	owner := volume.RequestContext{UserID: "fakeuser", TenantID: "fakeproject"}

	summaries, err := svc.Index(t.Context(), owner, volume.ListParams{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(summaries) != 3 || summaries[0].DisplayName != "fakevol-1" {
		t.Errorf("unexpected summaries %v", summaries)
	}
	volumes, err := svc.Detail(t.Context(), stranger, volume.ListParams{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(volumes) != 0 {
		t.Errorf("expected no visible volumes for foreign tenant, got %d", len(volumes))
	}
	volumes, err = svc.Detail(t.Context(), admin, volume.ListParams{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(volumes) != 3 {
		t.Errorf("expected admin to see all volumes, got %d", len(volumes))
	}
}

func TestService_GetAndUpdate(t *testing.T) {
	svc := newTestService(t, fake.New(), conf.AuthStrategyNoAuth)
	created, err := svc.Create(t.Context(), tenant, volume.Volume{
		DisplayName: "with-data",
		Properties: map[string]any{
			"project_id": "project-1",
			"mappings":   map[string]any{"root": "/dev/vda"},
		},
	}, strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	var buf bytes.Buffer
	got, err := svc.Get(t.Context(), tenant, created.ID, &buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if buf.String() != "payload" {
		t.Errorf("expected payload, got %q", buf.String())
	}
	mappings, ok := got.Properties["mappings"].(map[string]any)
	if !ok || mappings["root"] != "/dev/vda" {
		t.Errorf("expected structured mappings, got %v", got.Properties["mappings"])
	}

	got.DisplayName = "renamed"
	updated, err := svc.Update(t.Context(), tenant, created.ID, got, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.DisplayName != "renamed" || updated.ID != created.ID {
		t.Errorf("unexpected update result %+v", updated)
	}
	if _, err := svc.Update(t.Context(), tenant, "missing", got, nil); !volume.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestService_CreateNormalizesStructuredProperties(t *testing.T) {
	svc := newTestService(t, fake.New(), conf.AuthStrategyNoAuth)
	input := volume.Volume{
		DisplayName: "typed",
		Properties: map[string]any{
			"project_id":           "project-1",
			"block_device_mapping": []map[string]any{{"device_name": "/dev/vdb", "volume_size": 10}},
		},
	}
	want, err := volume.Normalize(input)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	created, err := svc.Create(t.Context(), tenant, input, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	shown, err := svc.Show(t.Context(), tenant, created.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, got := range []volume.Volume{created, shown} {
		if !reflect.DeepEqual(got.Properties["block_device_mapping"], want.Properties["block_device_mapping"]) {
			t.Errorf("expected %#v, got %#v", want.Properties["block_device_mapping"], got.Properties["block_device_mapping"])
		}
	}
}

func TestService_Retries(t *testing.T) {
	store := fake.NewSeeded()
	svc := newTestService(t, store, conf.AuthStrategyNoAuth)
	id := "11111111-aaaa-bbbb-cccc-1111aaaa3333"

	store.FailNext(2)
	if _, err := svc.Show(t.Context(), admin, id); err != nil {
		t.Fatalf("expected show to succeed after retries, got %v", err)
	}
	if store.Calls("get_meta") != 3 {
		t.Errorf("expected 3 attempts, got %d", store.Calls("get_meta"))
	}

	store.FailNext(3)
	if _, err := svc.Show(t.Context(), admin, id); !errors.Is(err, volume.ErrServiceUnavailable) {
		t.Errorf("expected service unavailable, got %v", err)
	}

	store.FailNext(1)
	if err := svc.Delete(t.Context(), admin, id); err != nil {
		t.Fatalf("expected delete to succeed, got %v", err)
	}
	// Creates are never retried.
	store.FailNext(1)
	if _, err := svc.Create(t.Context(), admin, volume.Volume{DisplayName: "x"}, nil); !errors.Is(err, volume.ErrConnectivity) {
		t.Errorf("expected connectivity error, got %v", err)
	}
	if store.Calls("create") != 1 {
		t.Errorf("expected a single create attempt, got %d", store.Calls("create"))
	}
}

func TestService_KeystoneRequiresToken(t *testing.T) {
	svc := newTestService(t, fake.NewSeeded(), conf.AuthStrategyKeystone)
	if _, err := svc.Index(t.Context(), tenant, volume.ListParams{}); !errors.Is(err, volume.ErrNotAuthorized) {
		t.Errorf("expected not authorized, got %v", err)
	}
	withToken := tenant
	withToken.AuthToken = "token-1"
	summaries, err := svc.Index(t.Context(), withToken, volume.ListParams{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(summaries) != 3 {
		t.Errorf("expected token holder to see all volumes, got %d", len(summaries))
	}
}

func TestService_DeleteAll(t *testing.T) {
	store := fake.NewSeeded()
	svc := newTestService(t, store, conf.AuthStrategyNoAuth)
	if err := svc.DeleteAll(t.Context(), admin); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected all volumes to be deleted, got %d", store.Len())
	}
}

func TestService_Resolve(t *testing.T) {
	store := fake.NewSeeded()
	var endpoints []volume.Endpoint
	inner := fake.NewFactory(store, conf.AuthStrategyNoAuth)
	factory := volume.ClientFactoryFunc(func(rc volume.RequestContext, endpoint volume.Endpoint) (volume.Client, error) {
		endpoints = append(endpoints, endpoint)
		return inner.NewClient(rc, endpoint)
	})
	svc, err := volume.NewService(conf.VolumeConfig{
		Endpoints:            []string{"cinder-1:8776"},
		RetryIntervalSeconds: testlib.Ptr(0),
	}, factory, volume.Monitor{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	pinned, id, err := svc.Resolve(admin, "http://cinder-9:1234/volumes/11111111-aaaa-bbbb-cccc-1111aaaa3333")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if id != "11111111-aaaa-bbbb-cccc-1111aaaa3333" {
		t.Errorf("unexpected id %s", id)
	}
	if len(endpoints) != 1 || endpoints[0] != (volume.Endpoint{Host: "cinder-9", Port: 1234}) {
		t.Fatalf("expected client for the located endpoint, got %v", endpoints)
	}
	if _, err := pinned.Show(t.Context(), admin, id); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(endpoints) != 1 {
		t.Errorf("expected pinned service to reuse its client, got %v", endpoints)
	}

	same, id, err := svc.Resolve(admin, "22222222-aaaa-bbbb-cccc-2222aaaa3333")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if same != svc || id != "22222222-aaaa-bbbb-cccc-2222aaaa3333" {
		t.Errorf("expected bare id to be served by the default service")
	}
	if _, _, err := svc.Resolve(admin, "http://cinder-9:port/volumes/x"); !errors.Is(err, volume.ErrInvalidRequest) {
		t.Errorf("expected invalid request, got %v", err)
	}
}

func TestService_Monitor(t *testing.T) {
	registry := &monitoring.Registry{Registry: prometheus.NewRegistry()}
	monitor := volume.NewMonitor(registry)
	store := fake.NewSeeded()
	svc, err := volume.NewService(conf.VolumeConfig{
		Endpoints:            []string{"cinder-1:8776"},
		Retries:              1,
		RetryIntervalSeconds: testlib.Ptr(0),
	}, fake.NewFactory(store, conf.AuthStrategyNoAuth), monitor)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	store.FailNext(1)
	if _, err := svc.Show(t.Context(), admin, "11111111-aaaa-bbbb-cccc-1111aaaa3333"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := svc.Show(t.Context(), admin, "missing"); !volume.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := testutil.ToFloat64(monitor.RequestCounter.WithLabelValues("show", "success")); got != 1 {
		t.Errorf("expected 1 successful show, got %v", got)
	}
	if got := testutil.ToFloat64(monitor.RequestCounter.WithLabelValues("show", "not_found")); got != 1 {
		t.Errorf("expected 1 failed show, got %v", got)
	}
	if got := testutil.ToFloat64(monitor.RetryCounter.WithLabelValues("get_meta")); got != 1 {
		t.Errorf("expected 1 retry, got %v", got)
	}
}
