package collector

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const requestTimeout = 15 * time.Second

func newRESTClient(baseURL, proxyURL string) *resty.Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetHeader("Accept", "application/json")
	if proxyURL != "" {
		c.SetProxy(proxyURL)
	}
	return c
}

// getJSON issues a GET and returns the raw body of a 2xx response.
func getJSON(ctx context.Context, c *resty.Client, path string, query map[string]string) ([]byte, error) {
	resp, err := c.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", path)
	}
	if resp.IsError() {
		return nil, errors.Errorf("GET %s: status %d: %s", path, resp.StatusCode(), truncate(resp.String(), 200))
	}
	return resp.Body(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
