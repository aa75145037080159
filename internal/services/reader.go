package services

import (
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PageReader fetches raw HTML directly from a site, rotating browser user
// agents between attempts. Used when no scraping service is configured.
type PageReader struct {
	httpClient  *http.Client
	userAgents  []string
	retryConfig RetryConfig
}

// NewPageReader creates a reader with a TLS 1.2+ transport
func NewPageReader() *PageReader {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS13,
		},
		IdleConnTimeout: 90 * time.Second,
	}

	return &PageReader{
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		retryConfig: RetryConfig{
			MaxRetries:    1,
			InitialDelay:  500 * time.Millisecond,
			MaxDelay:      2 * time.Second,
			BackoffFactor: 2.0,
		},
	}
}

// NewPageReaderWithClient is used by tests to point at a fake server
func NewPageReaderWithClient(client *http.Client, retry RetryConfig) *PageReader {
	reader := NewPageReader()
	reader.httpClient = client
	reader.retryConfig = retry
	return reader
}

// FetchHTML returns the body of url. 4xx responses are not retried.
func (p *PageReader) FetchHTML(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("URL cannot be empty")
	}

	var content string
	err := p.retryConfig.do(ctx, func(attempt int) error {
		body, err := p.attemptFetch(ctx, url, attempt)
		if err != nil {
			return err
		}
		content = body
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

func (p *PageReader) attemptFetch(ctx context.Context, url string, attempt int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	p.setHeaders(req, attempt)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("page request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &HTTPStatusError{Service: "page", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	content, err := io.ReadAll(io.LimitReader(reader, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}
	return string(content), nil
}

func (p *PageReader) setHeaders(req *http.Request, attempt int) {
	req.Header.Set("User-Agent", p.userAgents[attempt%len(p.userAgents)])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "identity")

	if attempt > 0 {
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Pragma", "no-cache")
	}
}

// SetUserAgents allows customizing the user agent strings for rotation
func (p *PageReader) SetUserAgents(userAgents []string) {
	if len(userAgents) > 0 {
		p.userAgents = userAgents
	}
}
