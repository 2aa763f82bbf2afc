// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package volume

import (
	"fmt"
	"math/rand/v2"
	"net"
	"strconv"
)

// Address of a single volume api server.
type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Parse a host:port string into an endpoint.
func ParseEndpoint(hostPort string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(hostPort)
	if err != nil {
		return Endpoint{}, &Error{Kind: ErrConfiguration, Detail: "invalid endpoint " + hostPort, Err: err}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || host == "" {
		return Endpoint{}, &Error{Kind: ErrConfiguration, Detail: "invalid endpoint " + hostPort, Err: err}
	}
	return Endpoint{Host: host, Port: port}, nil
}

// Immutable set of volume api servers requests are spread over.
type EndpointPool struct {
	endpoints []Endpoint
}

// Create a pool from host:port strings. The order is kept.
func NewEndpointPool(hostPorts []string) (EndpointPool, error) {
	endpoints := make([]Endpoint, 0, len(hostPorts))
	for _, hostPort := range hostPorts {
		endpoint, err := ParseEndpoint(hostPort)
		if err != nil {
			return EndpointPool{}, err
		}
		endpoints = append(endpoints, endpoint)
	}
	return EndpointPool{endpoints: endpoints}, nil
}

// Number of endpoints in the pool.
func (p EndpointPool) Len() int { return len(p.endpoints) }

// Copy of the endpoints in the pool.
func (p EndpointPool) Endpoints() []Endpoint {
	return append([]Endpoint(nil), p.endpoints...)
}

// Pick one endpoint uniformly at random.
//
// This is a very primitive form of load-balancing. In production, it is
// better to configure a single address that is routed to a real
// load-balancer.
func (p EndpointPool) Pick() (Endpoint, error) {
	if len(p.endpoints) == 0 {
		return Endpoint{}, &Error{Kind: ErrConfiguration, Detail: "no volume api servers configured"}
	}
	return p.endpoints[rand.IntN(len(p.endpoints))], nil //nolint:gosec // not security relevant
}

func (p EndpointPool) String() string {
	return fmt.Sprint(p.endpoints)
}
