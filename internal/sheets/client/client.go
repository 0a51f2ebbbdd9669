// Package client implements the HTTP client for the spreadsheet-sync service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/obralog/fleetmeter/internal/config"
	obstracing "github.com/obralog/fleetmeter/internal/observability/tracing"
	sheetsdomain "github.com/obralog/fleetmeter/internal/sheets/domain"

	"golang.org/x/time/rate"
)

const defaultTimeout = 10 * time.Second

type httpClient struct {
	baseURL   string
	authToken string
	client    *http.Client
	limiter   *rate.Limiter
}

// NewFromConfig builds the sync-service client. The limiter keeps request
// volume inside the sync service's quota.
func NewFromConfig(cfg config.Config) sheetsdomain.Client {
	timeout := cfg.Sheets.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rps := cfg.Sheets.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.Sheets.Burst
	if burst <= 0 {
		burst = 1
	}

	return &httpClient{
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.Sheets.BaseURL), "/"),
		authToken: strings.TrimSpace(cfg.Sheets.APIToken),
		client: obstracing.WrapHTTPClient(&http.Client{
			Timeout: timeout,
		}),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (c *httpClient) GetRows(ctx context.Context, sheet string) (*sheetsdomain.SheetData, error) {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		return nil, sheetsdomain.ErrInvalidSheet
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.rowsURL(sheet), nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sheetsdomain.ErrSheetUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: sheet %q returned %s", sheetsdomain.ErrSheetUnavailable, sheet, resp.Status)
	}

	var body struct {
		Data sheetsdomain.SheetData `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode sheet %q: %v", sheetsdomain.ErrSheetUnavailable, sheet, err)
	}
	return &body.Data, nil
}

func (c *httpClient) AppendOrUpsertRow(ctx context.Context, sheet string, values map[string]any) error {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		return sheetsdomain.ErrInvalidSheet
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{"values": values})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rowsURL(sheet), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", sheetsdomain.ErrSheetUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: sheet %q returned %s", sheetsdomain.ErrSheetUnavailable, sheet, resp.Status)
	}
	return nil
}

func (c *httpClient) rowsURL(sheet string) string {
	return c.baseURL + "/v1/sheets/" + url.PathEscape(sheet) + "/rows"
}

func (c *httpClient) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}
