package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"social-activity-recommender/internal/logging"
)

// ErrNotFound is returned when a lookup matched no record
var ErrNotFound = errors.New("record not found")

// IsNotFound reports a missing record, whether from a lookup or a 404
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || StatusCode(err) == http.StatusNotFound
}

// AirtableRecord is one row of a record store table
type AirtableRecord struct {
	ID          string                 `json:"id"`
	CreatedTime time.Time              `json:"createdTime"`
	Fields      map[string]interface{} `json:"fields"`
}

// SelectOptions filters a table listing
type SelectOptions struct {
	FilterByFormula string
	MaxRecords      int
}

// AirtableConfig configures the record store client
type AirtableConfig struct {
	APIKey        string
	BaseID        string
	BaseURL       string
	HTTPClient    *http.Client
	Retry         RetryConfig
	RatePerSecond float64
}

// AirtableClient talks to the record store REST API. Requests are throttled
// below the store's per-base limit and retried on 429/5xx.
type AirtableClient struct {
	httpClient  *http.Client
	baseURL     string
	baseID      string
	apiKey      string
	retryConfig RetryConfig
	limiter     *rate.Limiter
	logger      *logging.Logger
}

// NewAirtableClient creates a client against the public API
func NewAirtableClient(apiKey, baseID string, logger *logging.Logger) *AirtableClient {
	return NewAirtableClientWithConfig(AirtableConfig{APIKey: apiKey, BaseID: baseID}, logger)
}

// NewAirtableClientWithConfig creates a client with custom transport settings
func NewAirtableClientWithConfig(cfg AirtableConfig, logger *logging.Logger) *AirtableClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.airtable.com/v0"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialDelay == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 5
	}

	return &AirtableClient{
		httpClient:  cfg.HTTPClient,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		baseID:      cfg.BaseID,
		apiKey:      cfg.APIKey,
		retryConfig: cfg.Retry,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		logger:      logging.OrNop(logger),
	}
}

func (a *AirtableClient) tableURL(table string) string {
	return fmt.Sprintf("%s/%s/%s", a.baseURL, a.baseID, url.PathEscape(table))
}

// Create inserts a record and returns it as stored
func (a *AirtableClient) Create(ctx context.Context, table string, fields map[string]interface{}) (*AirtableRecord, error) {
	var record AirtableRecord
	body := map[string]interface{}{"fields": fields}
	if err := a.doJSON(ctx, http.MethodPost, a.tableURL(table), body, &record); err != nil {
		return nil, fmt.Errorf("failed to create %s record: %w", table, err)
	}
	return &record, nil
}

// Find fetches a record by id
func (a *AirtableClient) Find(ctx context.Context, table, id string) (*AirtableRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("failed to find %s record: %w", table, ErrNotFound)
	}
	var record AirtableRecord
	if err := a.doJSON(ctx, http.MethodGet, a.tableURL(table)+"/"+url.PathEscape(id), nil, &record); err != nil {
		return nil, fmt.Errorf("failed to find %s record %s: %w", table, id, err)
	}
	return &record, nil
}

// Update patches the given fields of a record
func (a *AirtableClient) Update(ctx context.Context, table, id string, fields map[string]interface{}) (*AirtableRecord, error) {
	var record AirtableRecord
	body := map[string]interface{}{"fields": fields}
	if err := a.doJSON(ctx, http.MethodPatch, a.tableURL(table)+"/"+url.PathEscape(id), body, &record); err != nil {
		return nil, fmt.Errorf("failed to update %s record %s: %w", table, id, err)
	}
	return &record, nil
}

// Select lists records, following pagination until MaxRecords is reached
func (a *AirtableClient) Select(ctx context.Context, table string, opts SelectOptions) ([]AirtableRecord, error) {
	var records []AirtableRecord
	offset := ""

	for {
		params := url.Values{}
		if opts.FilterByFormula != "" {
			params.Set("filterByFormula", opts.FilterByFormula)
		}
		if opts.MaxRecords > 0 {
			params.Set("maxRecords", strconv.Itoa(opts.MaxRecords))
		}
		if offset != "" {
			params.Set("offset", offset)
		}

		var page struct {
			Records []AirtableRecord `json:"records"`
			Offset  string           `json:"offset"`
		}
		endpoint := a.tableURL(table)
		if encoded := params.Encode(); encoded != "" {
			endpoint += "?" + encoded
		}
		if err := a.doJSON(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, fmt.Errorf("failed to select from %s: %w", table, err)
		}

		records = append(records, page.Records...)
		if page.Offset == "" || (opts.MaxRecords > 0 && len(records) >= opts.MaxRecords) {
			break
		}
		offset = page.Offset
	}

	if opts.MaxRecords > 0 && len(records) > opts.MaxRecords {
		records = records[:opts.MaxRecords]
	}
	return records, nil
}

// linkedQuery is one strategy for finding records whose link field holds an id
type linkedQuery struct {
	name    string
	formula func(field, id string) string
}

var linkedQueries = []linkedQuery{
	{"equality", func(field, id string) string { return fmt.Sprintf("{%s} = '%s'", field, id) }},
	{"find", func(field, id string) string { return fmt.Sprintf("FIND('%s', ARRAYJOIN({%s}))", id, field) }},
	{"search", func(field, id string) string { return fmt.Sprintf("SEARCH('%s', ARRAYJOIN({%s}))", id, field) }},
}

// FindLinkedRecords returns the records of table whose linkField contains
// targetID, newest first. The store evaluates link fields inconsistently, so
// it tries a direct equality filter, then array-contains filters, then scans
// the most recent records and filters them locally.
func (a *AirtableClient) FindLinkedRecords(ctx context.Context, table, linkField, targetID string) ([]AirtableRecord, error) {
	id := escapeFormulaValue(targetID)

	for _, query := range linkedQueries {
		// No cap: rows come back in view order, so every match is needed
		// before the newest can be picked.
		records, err := a.Select(ctx, table, SelectOptions{
			FilterByFormula: query.formula(linkField, id),
		})
		if err != nil {
			a.logger.Warn("[AIRTABLE] linked query failed", "table", table, "strategy", query.name, "error", err)
			continue
		}
		if len(records) > 0 {
			a.logger.Debug("[AIRTABLE] linked query matched", "table", table, "strategy", query.name, "count", len(records))
			sortNewestFirst(records)
			return records, nil
		}
	}

	recent, err := a.Select(ctx, table, SelectOptions{MaxRecords: 100})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s for linked records: %w", table, err)
	}

	var matched []AirtableRecord
	for _, record := range recent {
		for _, link := range fieldStrings(record.Fields, linkField) {
			if link == targetID {
				matched = append(matched, record)
				break
			}
		}
	}
	a.logger.Debug("[AIRTABLE] linked scan finished", "table", table, "scanned", len(recent), "matched", len(matched))
	sortNewestFirst(matched)
	return matched, nil
}

func sortNewestFirst(records []AirtableRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedTime.After(records[j].CreatedTime)
	})
}

func (a *AirtableClient) doJSON(ctx context.Context, method, endpoint string, body interface{}, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	return a.retryConfig.do(ctx, func(attempt int) error {
		if err := a.limiter.Wait(ctx); err != nil {
			return err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("airtable request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read airtable response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &HTTPStatusError{Service: "airtable", StatusCode: resp.StatusCode, Body: airtableErrorMessage(data)}
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse airtable response: %w", err)
		}
		return nil
	})
}

// airtableErrorMessage flattens {"error":"TYPE"} and {"error":{"type","message"}}
func airtableErrorMessage(data []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || len(envelope.Error) == 0 {
		return strings.TrimSpace(string(data))
	}

	var detail struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &detail); err == nil && detail.Type != "" {
		if detail.Message == "" {
			return detail.Type
		}
		return detail.Type + ": " + detail.Message
	}

	var plain string
	if err := json.Unmarshal(envelope.Error, &plain); err == nil {
		return plain
	}
	return string(envelope.Error)
}

func escapeFormulaValue(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `'`, `\'`)
	return strings.ReplaceAll(value, `"`, `\"`)
}
