// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package volume

import "time"

// Volume record as seen by local callers.
type Volume struct {
	ID          string     `json:"id"`
	Size        int        `json:"size"`
	DisplayName string     `json:"display_name"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	Deleted     bool       `json:"deleted"`
	Status      string     `json:"status"`
	Attached    bool       `json:"attached"`
	// Free-form properties. Ownership is tracked by the owner_id,
	// project_id and user_id keys.
	Properties map[string]any `json:"properties"`
}

// Short form of a volume returned by index listings.
type Summary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Volume metadata in the schema of the remote volume api. Timestamps are
// strings and the structured properties are json encoded strings.
type RemoteVolume map[string]any

// Id of the remote volume, or an empty string if it has none.
func (r RemoteVolume) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Property keys that hold nested structures. The remote side can only
// store flat strings, so these are json encoded on the way out.
var structuredProperties = []string{"block_device_mapping", "mappings"}
