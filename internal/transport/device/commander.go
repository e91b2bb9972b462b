// Package device delivers on/off commands to smart-home devices over HTTP.
package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain/device"
	"github.com/kailas-cloud/voxhome/internal/metrics"
)

var (
	// ErrNoEndpoint signals a device without a connection URL.
	ErrNoEndpoint = errors.New("device has no endpoint")
	// ErrNoCommand signals a device without a command for the requested action.
	ErrNoCommand = errors.New("device has no command for action")
)

// HTTPCommander sends commands as GET or POST requests.
//
// GET: a command starting with "http" is used as the full URL, otherwise it
// is appended to the endpoint as a path. POST: a command that looks like JSON
// is sent as the body to the endpoint itself, otherwise it is a path posted
// with an empty body.
type HTTPCommander struct {
	client *http.Client
	logger *zap.Logger
}

// NewHTTPCommander creates a commander. timeout bounds each request.
func NewHTTPCommander(timeout time.Duration, logger *zap.Logger) *HTTPCommander {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPCommander{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Send delivers the on or off command to d. Only a 2xx response counts as success.
func (c *HTTPCommander) Send(ctx context.Context, d device.Device, turnOn bool) error {
	method := d.Method
	if method == "" {
		method = device.MethodPOST
	}

	err := c.send(ctx, d, method, turnOn)
	result := "success"
	if err != nil {
		result = "failure"
		c.logger.Warn("Device command failed",
			zap.String("device_id", d.DeviceID),
			zap.String("action", device.Action(turnOn)),
			zap.Error(err),
		)
	} else {
		c.logger.Info("Device command delivered",
			zap.String("device_id", d.DeviceID),
			zap.String("method", string(method)),
			zap.String("action", device.Action(turnOn)),
		)
	}
	metrics.DispatchCommandsTotal.WithLabelValues(string(method), result).Inc()
	return err
}

func (c *HTTPCommander) send(ctx context.Context, d device.Device, method device.Method, turnOn bool) error {
	raw := d.Command(turnOn)
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%s %s: %w", d.DeviceID, device.Action(turnOn), ErrNoCommand)
	}
	if strings.TrimSpace(d.Endpoint) == "" {
		return fmt.Errorf("%s: %w", d.DeviceID, ErrNoEndpoint)
	}
	base := strings.TrimSuffix(d.Endpoint, "/")

	var req *http.Request
	var err error
	if method == device.MethodGET {
		url := raw
		if !strings.HasPrefix(raw, "http") {
			url = base + ensureSlash(raw)
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	} else {
		trimmed := strings.TrimSpace(raw)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			req, err = http.NewRequestWithContext(ctx, http.MethodPost, base, strings.NewReader(raw))
		} else {
			req, err = http.NewRequestWithContext(ctx, http.MethodPost, base+ensureSlash(raw), http.NoBody)
		}
		if req != nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return fmt.Errorf("build command request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: status %d", req.Method, req.URL.Redacted(), resp.StatusCode)
	}
	return nil
}

func ensureSlash(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}
