package network

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/luca-patrignani/proof-of-play/dispatch"
	"github.com/luca-patrignani/proof-of-play/domain/pop"
	"github.com/luca-patrignani/proof-of-play/ledger"
	"github.com/luca-patrignani/proof-of-play/transaction"
)

// APIError is returned when the node answers with a non-2xx status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("node returned %d: %s", e.Status, e.Message)
}

// Client talks to a node's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

type ClientOption func(Client) (Client, error)

// WithRootCA trusts the PEM encoded certificate, typically the one written by
// a node running with a self-signed certificate.
func WithRootCA(certPEM []byte) ClientOption {
	return func(c Client) (Client, error) {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(certPEM) {
			return c, errors.New("no certificate found in PEM data")
		}
		c.http = &http.Client{
			Timeout:   c.http.Timeout,
			Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool}},
		}
		return c, nil
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c Client) (Client, error) {
		c.http.Timeout = d
		return c, nil
	}
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	c := Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	var err error
	for _, opt := range opts {
		if c, err = opt(c); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

// Submit posts tx and returns the node's receipt. Rejected transactions
// return both the receipt and an *APIError.
func (c *Client) Submit(ctx context.Context, tx *transaction.Transaction) (dispatch.Receipt, error) {
	var receipt dispatch.Receipt
	err := c.do(ctx, http.MethodPost, "/tx", tx, &receipt)
	return receipt, err
}

func (c *Client) Balance(ctx context.Context, account pop.AccountID) (pop.Balance, error) {
	var resp BalanceResponse
	if err := c.do(ctx, http.MethodGet, "/accounts/"+url.PathEscape(string(account))+"/balance", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

func (c *Client) Events(ctx context.Context, from, limit int) ([]ledger.Block, error) {
	q := url.Values{}
	q.Set("from", strconv.Itoa(from))
	q.Set("limit", strconv.Itoa(limit))
	var blocks []ledger.Block
	if err := c.do(ctx, http.MethodGet, "/events?"+q.Encode(), nil, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	if resp.StatusCode >= 300 {
		var msg struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &msg)
		return &APIError{Status: resp.StatusCode, Message: msg.Error}
	}
	return nil
}
