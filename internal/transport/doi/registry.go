// Package doi looks up DOI registration in a Handle System compatible resolver.
package doi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Handle System response codes.
const (
	responseSuccess        = 1
	responseHandleNotFound = 100
)

// Registry checks whether DOIs are registered. A Registry with an empty
// base URL reports every DOI as unregistered.
type Registry struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a registry client for baseURL (e.g. https://doi.org).
func New(baseURL string, timeout time.Duration) *Registry {
	return &Registry{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type handleResponse struct {
	ResponseCode int `json:"responseCode"`
}

// IsRegistered reports whether the DOI resolves.
func (r *Registry) IsRegistered(ctx context.Context, doi string) (bool, error) {
	if r.baseURL == "" {
		return false, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		r.baseURL+"/api/handles/"+escapeDOI(doi), nil)
	if err != nil {
		return false, fmt.Errorf("build doi request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("lookup doi %s: %w", doi, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("lookup doi %s: status %d: %s", doi, resp.StatusCode, body)
	}

	var hr handleResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return false, fmt.Errorf("decode doi response: %w", err)
	}
	switch hr.ResponseCode {
	case responseSuccess:
		return true, nil
	case responseHandleNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("lookup doi %s: unexpected response code %d", doi, hr.ResponseCode)
	}
}

// escapeDOI escapes each path segment and keeps the prefix/suffix slash.
func escapeDOI(doi string) string {
	parts := strings.Split(doi, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
