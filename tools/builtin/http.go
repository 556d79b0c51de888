package builtin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/richinex/lingo/tools"
)

// maxBodyBytes caps the response text handed back to the model.
const maxBodyBytes = 64 * 1024

// HTTPOptions restricts the http_request tool.
type HTTPOptions struct {
	// AllowedDomains lists hosts (and their subdomains) that may be
	// requested. Empty allows all.
	AllowedDomains []string

	// Client overrides the HTTP client. Its timeout is left untouched.
	Client *http.Client

	// TimeoutSecs bounds each request when Client is nil.
	TimeoutSecs uint64
}

type httpInput struct {
	URL    string `json:"url" jsonschema:"The URL to request"`
	Method string `json:"method,omitempty" jsonschema:"HTTP method (GET or POST)"`
	Body   string `json:"body,omitempty" jsonschema:"Request body for POST requests"`
}

// HTTPRequest returns the http_request tool.
func HTTPRequest(opts HTTPOptions) tools.Tool {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: time.Duration(opts.TimeoutSecs) * time.Second}
	}

	return tools.MustFunc("http_request", "Make HTTP GET or POST requests to fetch data from URLs",
		func(ctx context.Context, in httpInput) (string, error) {
			if in.URL == "" {
				return "", errors.New("URL cannot be empty")
			}
			if !domainAllowed(in.URL, opts.AllowedDomains) {
				return "", fmt.Errorf("access to domain in '%s' is not allowed", in.URL)
			}

			method := strings.ToUpper(in.Method)
			if method == "" {
				method = http.MethodGet
			}
			if method != http.MethodGet && method != http.MethodPost {
				return "", errors.New("only GET and POST methods are supported")
			}

			var body io.Reader
			if method == http.MethodPost {
				body = strings.NewReader(in.Body)
			}
			req, err := http.NewRequestWithContext(ctx, method, in.URL, body)
			if err != nil {
				return "", fmt.Errorf("failed to create request: %w", err)
			}

			resp, err := client.Do(req)
			if err != nil {
				return "", fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			if err != nil {
				return "", fmt.Errorf("failed to read response body: %w", err)
			}

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return "", fmt.Errorf("HTTP error: %s\n\n%s", resp.Status, data)
			}
			return fmt.Sprintf("Status: %s\n\n%s", resp.Status, data), nil
		})
}

// domainAllowed checks if the URL's host is in the allowlist.
// Uses proper URL parsing to prevent bypass attacks.
func domainAllowed(raw string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}

	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	host := u.Hostname()
	for _, domain := range allowed {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
