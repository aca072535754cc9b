// Package apiclient is a typed HTTP client for the mailflow API: campaign
// dispatch plus the contact, segment and template resources it references.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Mutter0815/mailflow/internal/campaign"
	"github.com/Mutter0815/mailflow/pkg/config"
	"github.com/Mutter0815/mailflow/pkg/logx"
	"github.com/Mutter0815/mailflow/pkg/model"
)

var (
	ErrUnauthorized = errors.New("unauthorized: please check your login credentials")
	ErrInvalidID    = errors.New("invalid id format")
)

// APIError is a non-success response other than 401.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func NewFromConfig(cfg config.ClientConfig) *Client {
	c := New(cfg.BaseURL, cfg.Token)
	if cfg.Timeout > 0 {
		c.HTTP.Timeout = cfg.Timeout
	}
	return c
}

// SendCampaign validates req again and submits it. The API replies without a
// body on success.
func (c *Client) SendCampaign(ctx context.Context, req campaign.SendRequest) error {
	valid, err := campaign.Validate(req.Draft())
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/api/v1/campaigns/send", nil, valid, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	logx.L().Debugw("api_request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start).Seconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func responseError(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload)

	msg := payload.Message
	if msg == "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = fmt.Sprintf("API Error: %d - %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

func listQuery(filter string, page, size int) url.Values {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 10
	}
	return url.Values{
		"filter": {filter},
		"page":   {strconv.Itoa(page)},
		"size":   {strconv.Itoa(size)},
	}
}

func checkID(id string) error {
	if !campaign.IsUUID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func validated[T any](v T, err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}
	if err := model.Validate(v); err != nil {
		var zero T
		return zero, fmt.Errorf("unexpected response shape: %w", err)
	}
	return v, nil
}
