// Package aggregation is the HTTP client of the remote statistics service.
package aggregation

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"biometric/domain/result"
	"biometric/domain/selection"
	"biometric/internal/config"
	"biometric/internal/errors"
	"biometric/internal/logging"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// maxErrorBody bounds how much of a failed response is read for its message
const maxErrorBody = 64 << 10

// Client implements ports.AggregationPort over JSON POST requests
type Client struct {
	cfg        config.AggregationConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customises a Client
type Option func(*Client)

// WithHTTPClient replaces the default transport, e.g. for httptest servers
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client; a zero timeout means the 60s default
func NewClient(cfg config.AggregationConfig, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultAggregationTimeout
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger).Named("aggregation")
	return c
}

// Correlations requests one matrix per (segment, method)
func (c *Client) Correlations(ctx context.Context, sel selection.State) (*result.MatrixSet, error) {
	var resp correlationResponse
	if err := c.post(ctx, c.cfg.CorrelationPath, newCorrelationRequest(sel), &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, errors.AggregationError("correlation service reported failure", nil)
	}
	set, err := resp.toMatrixSet(sel.Methods)
	if err != nil {
		return nil, errors.AggregationError("malformed correlation response", err)
	}
	for _, seg := range set.Segments() {
		for _, m := range set.Methods() {
			if matrix, ok := set.Table(seg, m); ok {
				if err := matrix.CheckSymmetry(); err != nil {
					c.logger.Warn("asymmetric matrix", zap.String("segment", seg), zap.String("method", string(m)), zap.Error(err))
				}
			}
		}
	}
	return set, nil
}

// SmartTable requests descriptive statistics per (segment, column)
func (c *Client) SmartTable(ctx context.Context, sel selection.State) (*result.DescriptiveSet, error) {
	var resp smartTableResponse
	if err := c.post(ctx, c.cfg.SmartTablePath, newSmartTableRequest(sel), &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, errors.AggregationError("smart table service reported failure", nil)
	}
	analyzed := resp.AnalyzedColumns
	if len(analyzed) == 0 {
		analyzed = sel.Variables
	}
	set, err := result.NewDescriptiveSet(resp.Segments, resp.Statistics, analyzed, deref(resp.GroupBy))
	if err != nil {
		return nil, errors.AggregationError("malformed smart table response", err)
	}
	return set, nil
}

// Frequencies requests category counts per (segment, column)
func (c *Client) Frequencies(ctx context.Context, sel selection.State) (*result.FrequencySet, error) {
	var resp frequencyResponse
	if err := c.post(ctx, c.cfg.FrequencyPath, newFrequencyRequest(sel), &resp); err != nil {
		return nil, err
	}
	set, err := result.NewFrequencySet(resp.Segments, resp.Tables, deref(resp.SegmentBy))
	if err != nil {
		return nil, errors.AggregationError("malformed frequency response", err)
	}
	return set, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return errors.InternalError(fmt.Sprintf("encode request: %v", err))
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return errors.InternalError(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(ctx, callCtx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respRaw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := errorMessage(respRaw, resp.StatusCode)
		c.logger.Warn("aggregation request rejected",
			zap.String("url", url), zap.Int("status", resp.StatusCode), zap.String("detail", msg))
		return errors.AggregationError(msg, nil)
	}

	respRaw, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportError(ctx, callCtx, err)
	}
	if err := json.Unmarshal(respRaw, out); err != nil {
		return errors.AggregationError("malformed response from statistics service", err)
	}

	c.logger.Debug("aggregation request done",
		zap.String("url", url), zap.Duration("elapsed", time.Since(start)), zap.Int("bytes", len(respRaw)))
	return nil
}

// transportError tells caller cancellation apart from the per-call timeout
func (c *Client) transportError(parent, call context.Context, err error) error {
	switch {
	case stderrors.Is(parent.Err(), context.Canceled):
		return errors.Cancelled(err)
	case stderrors.Is(call.Err(), context.DeadlineExceeded):
		return errors.Timeout(fmt.Sprintf("statistics service did not answer within %s", c.cfg.Timeout), err)
	}
	return errors.AggregationError("statistics service unreachable", err)
}

// errorMessage extracts {detail|message} from an error body
func errorMessage(body []byte, status int) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"detail", "message", "detail.0.msg", "error"} {
			if v := gjson.GetBytes(body, path); v.Exists() && v.Type == gjson.String && v.String() != "" {
				return v.String()
			}
		}
	}
	return fmt.Sprintf("statistics service returned HTTP %d", status)
}
