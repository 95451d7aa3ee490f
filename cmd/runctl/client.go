package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/chr1sbest/runctl/internal/launcher"
	"github.com/chr1sbest/runctl/internal/logger"
	"github.com/chr1sbest/runctl/internal/resilience"
	"github.com/chr1sbest/runctl/internal/tracker"
)

// client talks to a runctl server.
type client struct {
	base    string
	http    *http.Client
	backoff resilience.Backoff
	log     logger.Logger
}

func newClient(base string, log logger.Logger) *client {
	return &client{
		base:    strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		backoff: resilience.DefaultBackoff(),
		log:     log,
	}
}

// Status fetches GET /api/status.
func (c *client) Status(ctx context.Context) (tracker.Record, error) {
	var rec tracker.Record
	err := c.do(ctx, http.MethodGet, "/api/status", &rec)
	return rec, err
}

// Run sends POST /api/run. A refused start is not an error.
func (c *client) Run(ctx context.Context) (launcher.StartResult, error) {
	var res launcher.StartResult
	err := c.do(ctx, http.MethodPost, "/api/run", &res)
	return res, err
}

func (c *client) do(ctx context.Context, method, path string, out any) error {
	url := c.base + path
	return resilience.Do(ctx, c.backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return errors.Wrap(err, "build request")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return errors.Wrapf(err, "%s %s", method, url)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return errors.Wrap(err, "read response")
		}
		if resp.StatusCode != http.StatusOK {
			err := errors.Newf("%s %s: %s", method, url, serverError(resp.StatusCode, body))
			if method == http.MethodGet && gatewayStatus(resp.StatusCode) {
				return resilience.Transient(err)
			}
			return err
		}
		if err := json.Unmarshal(body, out); err != nil {
			return errors.Wrap(err, "decode response")
		}
		return nil
	}, func(retry int, err error, delay time.Duration) {
		c.log.Debug("request failed, retrying",
			logger.F("retry", retry),
			logger.F("delay", delay.String()),
			logger.F(logger.FieldError, err))
	})
}

// gatewayStatus reports codes a proxy or a restarting server answers with.
func gatewayStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func serverError(code int, body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return fmt.Sprintf("%s (HTTP %d)", e.Error, code)
	}
	return fmt.Sprintf("HTTP %d", code)
}
