// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package volume

import (
	"net/url"
	"strconv"
	"strings"
)

// Port assumed for locators without an explicit port.
const defaultLocatorPort = 80

// A reference to a volume, either a bare id or a locator of the form
// http://cinder-host:8776/volumes/<id>.
type Reference struct {
	// The volume id.
	ID string
	// The api server encoded in the locator. Only set if Located is true.
	Endpoint Endpoint
	// Whether the reference names its own api server.
	Located bool
}

// Parse a volume reference. Strings without a slash are bare ids that are
// served by the default endpoint pool.
func ParseReference(ref string) (Reference, error) {
	if !strings.Contains(ref, "/") {
		return Reference{ID: ref}, nil
	}
	invalid := func(err error) error {
		return &Error{Kind: ErrInvalidRequest, Detail: "invalid volume reference " + ref, Err: err}
	}
	u, err := url.Parse(ref)
	if err != nil {
		return Reference{}, invalid(err)
	}
	host := u.Hostname()
	if host == "" {
		return Reference{}, invalid(nil)
	}
	port := defaultLocatorPort
	if portStr := u.Port(); portStr != "" {
		port, err = strconv.Atoi(portStr)
		if err != nil {
			return Reference{}, invalid(err)
		}
	}
	segments := strings.Split(u.Path, "/")
	id := segments[len(segments)-1]
	if id == "" {
		return Reference{}, invalid(nil)
	}
	return Reference{
		ID:       id,
		Endpoint: Endpoint{Host: host, Port: port},
		Located:  true,
	}, nil
}
