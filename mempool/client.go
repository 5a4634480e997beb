/*
Package mempool implements a client for the mempool.space REST API.

The client holds a prioritized list of mirror base URLs. Each request walks
the list in order: transient HTTP statuses (502/503/504/429) are retried with
backoff against the same mirror first, then the request fails over to the
next mirror. Transport-level failures and non-success responses are kept
distinct (see NetworkError / ResponseError) so that callers can tell "nobody
was reachable" apart from "the service said no".
*/
package mempool

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"math"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rcrowley/go-metrics"
)

// DefaultEndpoints are the public mempool.space mirrors, in priority order.
var DefaultEndpoints = []string{
	"https://mempool.space/api/",
	"https://mempool.emzy.de/api/",
	"https://mempool.bitcoin-21.org/api/",
}

// Statuses that are retried within one endpoint before failing over.
var transientStatus = map[int]bool{
	http.StatusBadGateway:         true,
	http.StatusServiceUnavailable: true,
	http.StatusGatewayTimeout:     true,
	http.StatusTooManyRequests:    true,
}

type Config struct {
	// Mirror base URLs in priority order. Defaults to DefaultEndpoints.
	Endpoints []string `yaml:"endpoints" json:"endpoints"`

	// Timeouts in seconds.
	ConnectTimeout int `yaml:"connecttimeout" json:"connecttimeout"`
	ReadTimeout    int `yaml:"readtimeout" json:"readtimeout"`

	// Max transient-status retries per endpoint for idempotent requests.
	RetryMax int `yaml:"retrymax" json:"retrymax"`

	Logger *log.Logger `yaml:"-" json:"-"`
}

type Client struct {
	httpclient *http.Client
	cfg        Config

	reqTimer metrics.Timer
	failover metrics.Meter
}

// NewClient returns a Client over cfg.Endpoints. Zero-value config fields
// get the defaults used by the public mempool.space mirrors (1s connect,
// 120s read, 3 retries).
func NewClient(cfg Config) *Client {
	if len(cfg.Endpoints) == 0 {
		cfg.Endpoints = DefaultEndpoints
	}
	for i, e := range cfg.Endpoints {
		if !strings.HasSuffix(e, "/") {
			cfg.Endpoints[i] = e + "/"
		}
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 1
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 120
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 3
	}

	connect := time.Duration(cfg.ConnectTimeout) * time.Second
	transport := &http.Transport{
		DialContext:         (&net.Dialer{Timeout: connect}).DialContext,
		TLSHandshakeTimeout: connect,
	}
	httpclient := &http.Client{
		Transport: transport,
		Timeout:   time.Duration(cfg.ReadTimeout) * time.Second,
	}

	return &Client{
		httpclient: httpclient,
		cfg:        cfg,
		reqTimer:   metrics.GetOrRegisterTimer("mempool.request", nil),
		failover:   metrics.GetOrRegisterMeter("mempool.failover", nil),
	}
}

// Endpoints returns the mirror list in priority order.
func (c *Client) Endpoints() []string {
	return append([]string(nil), c.cfg.Endpoints...)
}

// Request issues a GET against the relative path and decodes the response:
// a JSON body is returned parsed, a non-JSON text body is returned as a
// string (hex endpoints), and a non-UTF-8 body is returned as raw bytes
// (binary endpoints).
func (c *Client) Request(path string) (interface{}, error) {
	raw, err := c.get(path)
	if err != nil {
		return nil, err
	}
	return decodeBody(raw), nil
}

// Send POSTs body to the relative path and returns the response as text.
func (c *Client) Send(path, body string) (string, error) {
	raw, err := c.do(http.MethodPost, path, body)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeBody(raw []byte) interface{} {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err == nil {
		return v
	}
	if utf8.Valid(raw) {
		return string(raw)
	}
	return raw
}

func (c *Client) get(path string) ([]byte, error) {
	return c.do(http.MethodGet, path, "")
}

func (c *Client) getJSON(path string, v interface{}) error {
	raw, err := c.get(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (c *Client) getText(path string) (string, error) {
	raw, err := c.get(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

// do walks the endpoint list in priority order. The first recorded response
// error wins over later ones when all endpoints fail; a pure transport
// failure surfaces the last cause seen.
func (c *Client) do(method, path, body string) ([]byte, error) {
	start := time.Now()
	defer c.reqTimer.UpdateSince(start)

	var (
		firstResp *ResponseError
		lastErr   error
		lastURL   string
	)
	for i, base := range c.cfg.Endpoints {
		if i > 0 {
			c.failover.Mark(1)
		}
		url := base + path
		raw, err := c.attempt(method, url, body)
		if err == nil {
			return raw, nil
		}
		c.logf("[DEBUG] %s %s: %v", method, url, err)

		var rerr *ResponseError
		if errors.As(err, &rerr) {
			if firstResp == nil {
				firstResp = rerr
			}
			continue
		}
		lastErr, lastURL = err, url
	}
	if firstResp != nil {
		return nil, firstResp
	}
	return nil, &NetworkError{URL: lastURL, Err: lastErr}
}

// attempt performs the bounded transient-status retry loop against a single
// endpoint. Transport errors are returned as-is for the caller to classify;
// non-success statuses become a ResponseError once the retry budget for this
// endpoint is spent. Only GETs are retried; POSTs are not idempotent.
func (c *Client) attempt(method, url, body string) ([]byte, error) {
	for try := 0; ; try++ {
		var reqBody io.Reader
		if body != "" {
			reqBody = strings.NewReader(body)
		}
		req, err := http.NewRequest(method, url, reqBody)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpclient.Do(req)
		if err != nil {
			return nil, err
		}
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return raw, nil
		}
		if transientStatus[resp.StatusCode] && method == http.MethodGet && try < c.cfg.RetryMax {
			time.Sleep(retryBackoff(try))
			continue
		}

		rerr := &ResponseError{URL: url, StatusCode: resp.StatusCode, Body: raw}
		var decoded interface{}
		if json.Unmarshal(raw, &decoded) == nil {
			rerr.Decoded = decoded
		}
		return nil, rerr
	}
}

// retryBackoff is the sleep before retry attempt try+1 on the same endpoint:
// 100ms, 200ms, 400ms, ...
func retryBackoff(try int) time.Duration {
	return time.Duration(float64(100*time.Millisecond) * math.Pow(2, float64(try)))
}

func (c *Client) logf(format string, args ...interface{}) {
	logger := c.cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	logger.Printf(format, args...)
}
