// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package volume

import "github.com/cobaltcore-dev/cinderbridge/pkg/conf"

// Check if the caller may see the volume.
//
// Callers with a token are trusted, the volume api enforces access itself.
// Admins see everything. Otherwise the volume must belong to the caller's
// tenant, or, if it carries no tenant at all, to the calling user.
func IsVisible(rc RequestContext, v Volume) bool {
	if rc.AuthToken != "" || rc.IsAdmin {
		return true
	}
	owner, hasOwner := v.Properties["owner_id"]
	project, hasProject := v.Properties["project_id"]
	if rc.TenantID != "" {
		if hasOwner && stringField(owner) == rc.TenantID {
			return true
		}
		if hasProject && stringField(project) == rc.TenantID {
			return true
		}
	}
	if hasOwner || hasProject {
		return false
	}
	user, hasUser := v.Properties["user_id"]
	return hasUser && rc.UserID != "" && stringField(user) == rc.UserID
}

// Check if the caller's project owns the volume before deleting it. Only
// enforced under the deprecated auth strategy, where the volume api does
// not check ownership itself. Callers without a project are let through.
func checkOwnership(strategy string, rc RequestContext, v Volume) error {
	if strategy != conf.AuthStrategyDeprecated || rc.TenantID == "" {
		return nil
	}
	for _, key := range []string{"project_id", "owner_id"} {
		owner, ok := v.Properties[key]
		if ok && stringField(owner) != rc.TenantID {
			return &Error{Kind: ErrNotAuthorized, VolumeID: v.ID, Detail: "volume belongs to another project"}
		}
	}
	return nil
}

// Credentials sent along with each request to the volume api. The zero
// value means anonymous requests.
type Credentials struct {
	Strategy string
	Token    string
	Username string
	Tenant   string
}

// Whether requests are sent without credentials.
func (c Credentials) Anonymous() bool { return c.Strategy == "" }

// Build the credentials for the given auth strategy. Under the keystone
// strategy a token is mandatory.
func CredentialsFor(strategy string, rc RequestContext) (Credentials, error) {
	if strategy != conf.AuthStrategyKeystone {
		return Credentials{}, nil
	}
	if rc.AuthToken == "" {
		return Credentials{}, &Error{Kind: ErrNotAuthorized, Detail: "keystone auth strategy requires a token"}
	}
	return Credentials{
		Strategy: strategy,
		Token:    rc.AuthToken,
		Username: rc.UserID,
		Tenant:   rc.TenantID,
	}, nil
}
