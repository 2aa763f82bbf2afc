// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package volume

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mitchellh/copystructure"
)

// Timestamp layout used by the remote volume api.
const remoteTimeLayout = "2006-01-02T15:04:05.000000"

// Layouts accepted when parsing remote timestamps.
var remoteTimeLayouts = []string{
	remoteTimeLayout,
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// Convert a local volume into the remote schema. The given volume is not
// modified.
func ToRemote(v Volume) (RemoteVolume, error) {
	props, err := copyProperties(v.Properties)
	if err != nil {
		return nil, err
	}
	for _, key := range structuredProperties {
		value, ok := props[key]
		if !ok {
			continue
		}
		if _, isString := value.(string); isString {
			continue
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, &Error{Kind: ErrInvalidRequest, VolumeID: v.ID, Detail: "cannot encode property " + key, Err: err}
		}
		props[key] = string(encoded)
	}
	remote := RemoteVolume{
		"size":       v.Size,
		"deleted":    v.Deleted,
		"attached":   v.Attached,
		"properties": props,
	}
	if v.ID != "" {
		remote["id"] = v.ID
	}
	if v.DisplayName != "" {
		remote["display_name"] = v.DisplayName
	}
	if v.Status != "" {
		remote["status"] = v.Status
	}
	for key, ts := range map[string]*time.Time{
		"created_at": v.CreatedAt,
		"updated_at": v.UpdatedAt,
		"deleted_at": v.DeletedAt,
	} {
		if ts != nil {
			remote[key] = ts.UTC().Format(remoteTimeLayout)
		}
	}
	return remote, nil
}

// Bring the structured properties of a volume into the form they take after
// a trip through the remote side, e.g. typed slices become []any and
// numbers become float64. Values read back from the volume api then compare
// equal to the normalized volume. The given volume is not modified.
func Normalize(v Volume) (Volume, error) {
	props, err := copyProperties(v.Properties)
	if err != nil {
		return Volume{}, &Error{Kind: ErrInvalidRequest, VolumeID: v.ID, Detail: "cannot copy properties", Err: err}
	}
	for _, key := range structuredProperties {
		value, ok := props[key]
		if !ok {
			continue
		}
		if _, isString := value.(string); isString {
			continue
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return Volume{}, &Error{Kind: ErrInvalidRequest, VolumeID: v.ID, Detail: "cannot encode property " + key, Err: err}
		}
		var decoded any
		if err := json.Unmarshal(encoded, &decoded); err != nil {
			return Volume{}, &Error{Kind: ErrInvalidRequest, VolumeID: v.ID, Detail: "cannot decode property " + key, Err: err}
		}
		props[key] = decoded
	}
	v.Properties = props
	return v, nil
}

// Convert a remote volume into the local schema. The given record is not
// modified.
func FromRemote(r RemoteVolume) (Volume, error) {
	id := stringField(r["id"])
	malformed := func(detail string, err error) error {
		return &Error{Kind: ErrTranslation, VolumeID: id, Detail: detail, Err: err}
	}
	v := Volume{
		ID:          id,
		DisplayName: stringField(r["display_name"]),
		Status:      stringField(r["status"]),
		Deleted:     boolField(r["deleted"]),
		Attached:    boolField(r["attached"]),
	}
	size, err := intField(r["size"])
	if err != nil {
		return Volume{}, malformed("invalid size", err)
	}
	v.Size = size
	for key, dst := range map[string]**time.Time{
		"created_at": &v.CreatedAt,
		"updated_at": &v.UpdatedAt,
		"deleted_at": &v.DeletedAt,
	} {
		ts, err := timeField(r[key])
		if err != nil {
			return Volume{}, malformed("invalid "+key, err)
		}
		*dst = ts
	}
	var rawProps map[string]any
	switch p := r["properties"].(type) {
	case nil:
	case map[string]any:
		rawProps = p
	case map[string]string:
		rawProps = make(map[string]any, len(p))
		for k, val := range p {
			rawProps[k] = val
		}
	default:
		return Volume{}, malformed(fmt.Sprintf("properties have unexpected type %T", p), nil)
	}
	props, err := copyProperties(rawProps)
	if err != nil {
		return Volume{}, malformed("cannot copy properties", err)
	}
	for _, key := range structuredProperties {
		encoded, ok := props[key].(string)
		if !ok {
			continue
		}
		var decoded any
		if err := json.Unmarshal([]byte(encoded), &decoded); err != nil {
			return Volume{}, malformed("invalid property "+key, err)
		}
		props[key] = decoded
	}
	v.Properties = props
	return v, nil
}

func copyProperties(props map[string]any) (map[string]any, error) {
	if props == nil {
		return map[string]any{}, nil
	}
	copied, err := copystructure.Copy(props)
	if err != nil {
		return nil, err
	}
	return copied.(map[string]any), nil
}

func stringField(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func boolField(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		return err == nil && b
	default:
		return false
	}
}

func intField(value any) (int, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		return int(n), err
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("unexpected type %T", value)
	}
}

func timeField(value any) (*time.Time, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &v, nil
	case *time.Time:
		return v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		var firstErr error
		for _, layout := range remoteTimeLayouts {
			ts, err := time.Parse(layout, v)
			if err == nil {
				return &ts, nil
			}
			if firstErr == nil {
				firstErr = err
			}
		}
		return nil, firstErr
	default:
		return nil, fmt.Errorf("unexpected type %T", value)
	}
}
