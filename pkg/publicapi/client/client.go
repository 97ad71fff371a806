// Package client talks to the API of a running `tiercache serve`.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/bacalhau-project/tiercache/pkg/publicapi/apimodels"
)

const defaultTimeout = 30 * time.Second

// APIClient is a utility for interacting with a server's cache API.
type APIClient struct {
	BaseURI *url.URL
	Client  *http.Client
}

// NewAPIClient returns a client for the server listening on host and port. A
// wildcard host such as 0.0.0.0 is reached on the loopback address.
func NewAPIClient(host string, port int) *APIClient {
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return &APIClient{
		BaseURI: &url.URL{Scheme: "http", Host: net.JoinHostPort(host, strconv.Itoa(port))},
		Client:  &http.Client{Timeout: defaultTimeout},
	}
}

// Stats returns the counters of the server's in-memory tier.
func (c *APIClient) Stats(ctx context.Context) (*apimodels.GetStatsResponse, error) {
	var res apimodels.GetStatsResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/cache/stats", &res)
	return &res, err
}

// Cleanup sweeps expired entries out of the server's in-memory tier.
func (c *APIClient) Cleanup(ctx context.Context) (*apimodels.CleanupResponse, error) {
	var res apimodels.CleanupResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/cache/cleanup", &res)
	return &res, err
}

func (c *APIClient) do(ctx context.Context, method, api string, resData any) error {
	addr := c.BaseURI.JoinPath(api).String()
	req, err := http.NewRequestWithContext(ctx, method, addr, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s request", method)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.Client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to reach the server at %s, is `tiercache serve` running?", c.BaseURI)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, err := io.ReadAll(res.Body)
		if err != nil {
			return errors.Wrap(err, "failed to read error response")
		}
		apiErr := new(apimodels.APIError)
		if err = json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
			return fmt.Errorf("unexpected response %d from %s: %s", res.StatusCode, addr, string(body))
		}
		return apiErr
	}

	if err = json.NewDecoder(res.Body).Decode(resData); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}
