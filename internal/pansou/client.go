package pansou

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"pansobot/internal/domain"
)

const searchTimeout = 30 * time.Second

// Client executes keyword searches against the pansou service using a
// token obtained from the CredentialManager.
type Client struct {
	http      *resty.Client
	searchURL string
	creds     *CredentialManager
	log       logrus.FieldLogger
}

// NewClient creates a search client for the configured endpoint.
func NewClient(searchURL string, creds *CredentialManager, logger logrus.FieldLogger) *Client {
	cli := resty.New().SetTimeout(searchTimeout)

	return &Client{
		http:      cli,
		searchURL: searchURL,
		creds:     creds,
		log:       logger.WithField("component", "search_client"),
	}
}

type searchRequest struct {
	Keyword string `json:"kw"`
}

type searchResponse struct {
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	Data    domain.SearchResult `json:"data"`
}

// Search runs one keyword search. It makes a single token-acquisition pass
// (GetValidToken already refreshes an expired token) and a single HTTP
// attempt; it does not loop on auth failures.
func (c *Client) Search(ctx context.Context, keyword string) (domain.SearchResult, error) {
	log := c.log.WithField("keyword", keyword)

	token, err := c.creds.GetValidToken(ctx)
	if err != nil {
		log.WithError(err).Error("Search aborted, no valid token")
		return domain.SearchResult{}, fmt.Errorf("%w: %v", ErrNoToken, err)
	}

	var body searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		SetHeader("Content-Type", "application/json").
		SetBody(searchRequest{Keyword: keyword}).
		SetResult(&body).
		Post(c.searchURL)
	if err != nil {
		log.WithError(err).Error("Search request failed")
		return domain.SearchResult{}, fmt.Errorf("search request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		log.WithField("status", resp.StatusCode()).Error("Search returned unexpected status")
		return domain.SearchResult{}, &StatusError{StatusCode: resp.StatusCode()}
	}
	if body.Code != 0 {
		log.WithFields(logrus.Fields{"code": body.Code, "message": body.Message}).Error("Search api error")
		return domain.SearchResult{}, &APIError{Code: body.Code, Message: body.Message}
	}
	if body.Data.Total > 0 && len(body.Data.MergedByType) == 0 {
		log.Error("Search result missing merged_by_type")
		return domain.SearchResult{}, ErrMalformedResult
	}

	log.WithField("total", body.Data.Total).Info("Search completed")
	return body.Data, nil
}
