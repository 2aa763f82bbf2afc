// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package cinder

import (
	"encoding/json"
	"fmt"

	"github.com/cobaltcore-dev/cinderbridge/internal/volume"
)

// Volume as returned by the block storage v3 api.
// See: https://docs.openstack.org/api-ref/block-storage/v3/#list-accessible-volumes-with-details
type cinderVolume struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Size        int               `json:"size"`
	Status      string            `json:"status"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   *string           `json:"updated_at"`
	Metadata    map[string]string `json:"metadata"`
	UserID      string            `json:"user_id"`
	TenantID    string            `json:"os-vol-tenant-attr:tenant_id"`
	Attachments []json.RawMessage `json:"attachments"`
}

// Convert into the remote schema shared by all volume apis. Metadata
// becomes the volume properties. The owning project and user are added as
// properties unless the metadata already names them.
func (v cinderVolume) remote() volume.RemoteVolume {
	props := make(map[string]any, len(v.Metadata)+2)
	for key, value := range v.Metadata {
		props[key] = value
	}
	if _, ok := props["project_id"]; !ok && v.TenantID != "" {
		props["project_id"] = v.TenantID
	}
	if _, ok := props["user_id"]; !ok && v.UserID != "" {
		props["user_id"] = v.UserID
	}
	r := volume.RemoteVolume{
		"id":           v.ID,
		"display_name": v.Name,
		"size":         v.Size,
		"status":       v.Status,
		"created_at":   v.CreatedAt,
		"deleted":      v.Status == "deleted",
		"attached":     len(v.Attachments) > 0,
		"properties":   props,
	}
	if v.UpdatedAt != nil {
		r["updated_at"] = *v.UpdatedAt
	}
	return r
}

// Request body for creating or updating a volume.
type volumeRequest struct {
	Size     int               `json:"size,omitempty"`
	Name     string            `json:"name,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Build a create or update request from the remote schema. The block
// storage api only stores flat string metadata.
func newVolumeRequest(r volume.RemoteVolume) (volumeRequest, error) {
	req := volumeRequest{}
	if name, ok := r["display_name"].(string); ok {
		req.Name = name
	}
	switch size := r["size"].(type) {
	case int:
		req.Size = size
	case float64:
		req.Size = int(size)
	}
	props, _ := r["properties"].(map[string]any)
	if len(props) > 0 {
		req.Metadata = make(map[string]string, len(props))
	}
	for key, value := range props {
		switch v := value.(type) {
		case string:
			req.Metadata[key] = v
		case nil:
			req.Metadata[key] = ""
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return volumeRequest{}, fmt.Errorf("failed to encode metadata %s: %w", key, err)
			}
			req.Metadata[key] = string(encoded)
		}
	}
	return req, nil
}
