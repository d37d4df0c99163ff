package restclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// ErrChaosInjected is the cause of network errors injected by ChaosConfig.
// Its message makes DefaultRetryClassifier treat it as a refused
// connection.
var ErrChaosInjected = errors.New("chaos: simulated connection refused")

// chaosTransport wraps a Transport and injects the failures of a
// ChaosConfig.
type chaosTransport struct {
	next   Transport
	config ChaosConfig
}

// NewChaosTransport wraps next with failure injection.
func NewChaosTransport(next Transport, cfg ChaosConfig) Transport {
	return &chaosTransport{
		next:   next,
		config: cfg,
	}
}

// Do implements Transport.
func (t *chaosTransport) Do(ctx context.Context, req *TransportRequest) (*TransportResponse, error) {
	if t.config.ShouldInjectTimeout() {
		if req.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, req.Timeout)
			defer cancel()
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if t.config.ShouldInjectError() {
		return nil, &net.OpError{
			Op:  "dial",
			Net: "tcp",
			Err: ErrChaosInjected,
		}
	}

	if delay := t.config.Delay(); delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	if t.config.ShouldInjectStatus() {
		status := t.config.Status
		if status == 0 {
			status = http.StatusServiceUnavailable
		}
		resp := stubResponse(status, http.StatusText(status))
		resp.ResponseURI = req.URL
		return resp, nil
	}

	return t.next.Do(ctx, req)
}
