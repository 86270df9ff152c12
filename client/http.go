package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"meetup-chat/internal/models"
)

// HTTPPageFetcher fetches message pages from the service's REST endpoint.
type HTTPPageFetcher struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPPageFetcher constructs a fetcher. httpClient may be nil to use the
// default client.
func NewHTTPPageFetcher(baseURL, token string, httpClient *http.Client) *HTTPPageFetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPPageFetcher{baseURL: baseURL, token: token, client: httpClient}
}

// FetchPage retrieves one page of history. skip counts from the newest
// message; the response body is the wire-format {mensajes, hayMas} object.
func (f *HTTPPageFetcher) FetchPage(ctx context.Context, groupID, skip, take int) (models.MessagePage, error) {
	url := fmt.Sprintf("%s/groups/%d/messages?skip=%d&take=%d", f.baseURL, groupID, skip, take)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.MessagePage{}, err
	}
	req.Header.Set("Authorization", "Bearer "+f.token)

	resp, err := f.client.Do(req)
	if err != nil {
		return models.MessagePage{}, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.MessagePage{}, fmt.Errorf("fetch page: unexpected status %d", resp.StatusCode)
	}

	var page models.MessagePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return models.MessagePage{}, fmt.Errorf("decode page: %w", err)
	}
	return page, nil
}

var _ PageFetcher = (*HTTPPageFetcher)(nil)
