// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package volume

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// Remote calls that are safe to repeat. Creates, updates and deletes are
// never retried.
type Operation string

const (
	OpListDetailed Operation = "list_detailed"
	OpGetMeta      Operation = "get_meta"
	OpGetWithData  Operation = "get_with_data"
)

// Calls idempotent remote operations, retrying on connection errors.
type retryingInvoker struct {
	handles  *handleCache
	retries  int
	interval time.Duration
	monitor  Monitor
	// Overridable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func (inv *retryingInvoker) listDetailed(ctx context.Context, rc RequestContext, params ListParams) ([]RemoteVolume, error) {
	return invoke(ctx, inv, rc, OpListDetailed, func(ctx context.Context, c Client) ([]RemoteVolume, error) {
		return c.ListDetailed(ctx, params)
	})
}

func (inv *retryingInvoker) getMeta(ctx context.Context, rc RequestContext, id string) (RemoteVolume, error) {
	return invoke(ctx, inv, rc, OpGetMeta, func(ctx context.Context, c Client) (RemoteVolume, error) {
		return c.GetMeta(ctx, id)
	})
}

type volumeWithData struct {
	meta RemoteVolume
	data io.ReadCloser
}

func (inv *retryingInvoker) getWithData(ctx context.Context, rc RequestContext, id string) (RemoteVolume, io.ReadCloser, error) {
	result, err := invoke(ctx, inv, rc, OpGetWithData, func(ctx context.Context, c Client) (volumeWithData, error) {
		meta, data, err := c.GetWithData(ctx, id)
		return volumeWithData{meta: meta, data: data}, err
	})
	return result.meta, result.data, err
}

// Run the call up to retries+1 times. The client is resolved anew for
// every attempt, so an unreachable endpoint can be replaced by another one
// from the pool. Errors other than connection errors end the loop at once.
func invoke[T any](ctx context.Context, inv *retryingInvoker, rc RequestContext, op Operation, call func(context.Context, Client) (T, error)) (T, error) {
	var zero T
	var lastErr error
	attempts := inv.retries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		client, err := inv.handles.resolve(rc)
		if err != nil {
			return zero, err
		}
		result, err := call(ctx, client)
		if err == nil {
			return result, nil
		}
		if !IsConnectivity(err) {
			return zero, err
		}
		lastErr = err
		slog.Warn("volume: connection to volume api failed",
			"operation", op, "attempt", attempt, "of", attempts, "error", err)
		if attempt == attempts {
			break
		}
		if inv.monitor.RetryCounter != nil {
			inv.monitor.RetryCounter.WithLabelValues(string(op)).Inc()
		}
		if err := inv.sleep(ctx, inv.interval); err != nil {
			return zero, err
		}
	}
	return zero, &Error{
		Kind:   ErrServiceUnavailable,
		Detail: "maximum attempts reached for " + string(op),
		Err:    lastErr,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
