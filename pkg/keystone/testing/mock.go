// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package keystone

import (
	"context"

	"github.com/gophercloud/gophercloud/v2"
)

type MockKeystoneClient struct {
	Url             string
	Token           string
	Project         string
	User            string
	EndpointLocator gophercloud.EndpointLocator
}

func (m *MockKeystoneClient) Authenticate(ctx context.Context) error {
	return nil
}

func (m *MockKeystoneClient) Client() *gophercloud.ProviderClient {
	pc := &gophercloud.ProviderClient{
		EndpointLocator: m.EndpointLocator,
	}
	pc.SetToken(m.Token)
	return pc
}

func (m *MockKeystoneClient) FindEndpoint(availability, serviceType string) (string, error) {
	return m.Url, nil
}

func (m *MockKeystoneClient) Availability() string {
	return "" // Mock does not have a specific availability
}

func (m *MockKeystoneClient) ProjectID() (string, error) {
	return m.Project, nil
}

func (m *MockKeystoneClient) Username() string {
	return m.User
}
