// Package api provides a client for accessing the mempoolctl daemon through
// its JSON-RPC API.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	jsonrpc "github.com/gorilla/rpc/json"

	"github.com/mempooltools/mempoolctl/estimate"
	"github.com/mempooltools/mempoolctl/fees"
)

type Config struct {
	Host    string
	Port    string
	Timeout int
}

type Client struct {
	httpclient *http.Client
	cfg        Config
}

func NewClient(cfg Config) *Client {
	httpclient := &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}
	return &Client{httpclient: httpclient, cfg: cfg}
}

func (c *Client) Stop() error {
	_, err := c.doRPC("stop", nil)
	return err
}

func (c *Client) Status() (map[string]string, error) {
	r, err := c.doRPC("status", nil)
	if err != nil {
		return nil, err
	}

	var result map[string]string
	if err := json.Unmarshal(r, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) Fees() (*fees.RecommendedFees, error) {
	r, err := c.doRPC("fees", nil)
	if err != nil {
		return nil, err
	}

	result := new(fees.RecommendedFees)
	if err := json.Unmarshal(r, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) FeeArray() (map[string][]float64, error) {
	r, err := c.doRPC("feearray", nil)
	if err != nil {
		return nil, err
	}

	var result map[string][]float64
	if err := json.Unmarshal(r, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) Halving() (*estimate.Halving, error) {
	r, err := c.doRPC("halving", nil)
	if err != nil {
		return nil, err
	}

	result := new(estimate.Halving)
	if err := json.Unmarshal(r, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) Difficulty() (*estimate.DifficultyAdjustment, error) {
	r, err := c.doRPC("difficulty", nil)
	if err != nil {
		return nil, err
	}

	result := new(estimate.DifficultyAdjustment)
	if err := json.Unmarshal(r, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) History(since int64) ([]fees.Record, error) {
	r, err := c.doRPC("history", since)
	if err != nil {
		return nil, err
	}

	var result []fees.Record
	if err := json.Unmarshal(r, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) SetDebug(d bool) error {
	_, err := c.doRPC("setdebug", d)
	return err
}

func (c *Client) Config() (map[string]interface{}, error) {
	r, err := c.doRPC("config", nil)
	if err != nil {
		return nil, err
	}

	v := make(map[string]interface{})
	if err := json.Unmarshal(r, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (c *Client) Metrics() (map[string]interface{}, error) {
	r, err := c.doRPC("metrics", nil)
	if err != nil {
		return nil, err
	}

	v := make(map[string]interface{})
	if err := json.Unmarshal(r, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (c *Client) doRPC(method string, args interface{}) (json.RawMessage, error) {
	b, err := jsonrpc.EncodeClientRequest(method, args)
	if err != nil {
		return nil, fmt.Errorf("jsonrpc.EncodeClientRequest: %v", err)
	}

	url := "http://" + net.JoinHostPort(c.cfg.Host, c.cfg.Port)
	req, err := http.NewRequest("POST", url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var m json.RawMessage
	if err := jsonrpc.DecodeClientResponse(resp.Body, &m); err != nil {
		return nil, fmt.Errorf("jsonrpc.DecodeClientResponse: %v", err)
	}
	return m, nil
}
