// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package volume

import (
	"errors"
	"slices"
	"testing"
)

func TestEndpointPool_Pick(t *testing.T) {
	pool, err := NewEndpointPool([]string{"cinder-1:8776", "cinder-2:8776", "10.0.0.3:9000"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if pool.Len() != 3 {
		t.Fatalf("expected 3 endpoints, got %d", pool.Len())
	}
	seen := map[Endpoint]bool{}
	for range 200 {
		endpoint, err := pool.Pick()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !slices.Contains(pool.Endpoints(), endpoint) {
			t.Fatalf("picked endpoint %v is not in the pool", endpoint)
		}
		seen[endpoint] = true
	}
	if len(seen) < 2 {
		t.Errorf("expected picks to spread over the pool, only saw %v", seen)
	}
}

func TestEndpointPool_PickEmpty(t *testing.T) {
	pool, err := NewEndpointPool(nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := pool.Pick(); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		input   string
		want    Endpoint
		wantErr bool
	}{
		{input: "cinder:8776", want: Endpoint{Host: "cinder", Port: 8776}},
		{input: "[::1]:8776", want: Endpoint{Host: "::1", Port: 8776}},
		{input: "cinder", wantErr: true},
		{input: ":8776", wantErr: true},
		{input: "cinder:http", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseEndpoint(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrConfiguration) {
					t.Errorf("expected configuration error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
	if s := (Endpoint{Host: "::1", Port: 8776}).String(); s != "[::1]:8776" {
		t.Errorf("expected [::1]:8776, got %s", s)
	}
}
