// Package riskcheck screens freshly discovered tokens against the
// rugcheck report API before any money moves.
package riskcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ErrReportUnavailable means the report could not be fetched or parsed.
var ErrReportUnavailable = errors.New("riskcheck: report unavailable")

// freezeAuthorityRisk is rejected at any level; a freezable token can
// trap the position permanently.
const freezeAuthorityRisk = "Freeze Authority still enabled"

// lowLiquidityRisk is expected on brand-new pools and tolerated when it
// is the only danger.
const lowLiquidityRisk = "Low Liquidity"

const levelDanger = "danger"

// Risk is one finding in a token report.
type Risk struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description"`
	Score       int    `json:"score"`
	Level       string `json:"level"`
}

// TokenMeta identifies the token the report describes.
type TokenMeta struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// Report is the token risk report.
type Report struct {
	Score     int       `json:"score"`
	Risks     []Risk    `json:"risks"`
	TokenMeta TokenMeta `json:"tokenMeta"`
}

// Result is the screening verdict for one token.
type Result struct {
	OK      bool
	Reasons []string
	Token   TokenMeta
}

// Evaluate applies the screening policy to a report. Any danger-level
// risk rejects the token, except a sole "Low Liquidity" danger, which
// every new pool reports. The freeze-authority risk rejects regardless
// of level.
func Evaluate(r *Report) Result {
	res := Result{Token: r.TokenMeta}

	var dangers []Risk
	for _, risk := range r.Risks {
		if risk.Name == freezeAuthorityRisk {
			res.Reasons = append(res.Reasons, risk.Name)
		}
		if risk.Level == levelDanger {
			dangers = append(dangers, risk)
		}
	}

	if len(dangers) == 1 && dangers[0].Name == lowLiquidityRisk {
		dangers = nil
	}
	for _, d := range dangers {
		if d.Name != freezeAuthorityRisk {
			res.Reasons = append(res.Reasons, d.Name)
		}
	}

	res.OK = len(res.Reasons) == 0
	return res
}

// Client fetches token reports.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithLogger overrides the logger.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient builds a report client against baseURL, e.g.
// "https://api.rugcheck.xyz/v1".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Report fetches the risk report for mint.
func (c *Client) Report(ctx context.Context, mint string) (*Report, error) {
	url := fmt.Sprintf("%s/tokens/%s/report", c.baseURL, mint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportUnavailable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrReportUnavailable, resp.StatusCode, body)
	}

	var report Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrReportUnavailable, err)
	}
	return &report, nil
}

// Check fetches and evaluates the report for mint in one call.
func (c *Client) Check(ctx context.Context, mint string) (Result, error) {
	report, err := c.Report(ctx, mint)
	if err != nil {
		return Result{}, err
	}
	res := Evaluate(report)
	if !res.OK {
		c.logger.Printf("[risk] %s (%s) rejected: %v", res.Token.Symbol, mint, res.Reasons)
	}
	return res, nil
}
