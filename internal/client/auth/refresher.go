package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/carpool/internal/apperr"
	"github.com/dmitrijs2005/carpool/internal/client/classify"
	"github.com/dmitrijs2005/carpool/internal/client/models"
)

// DefaultRefreshPath is the refresh endpoint relative to the API base URL.
const DefaultRefreshPath = "/auth/refresh"

// HTTPRefresher calls the backend refresh endpoint.
type HTTPRefresher struct {
	url    string
	client *http.Client
}

// NewHTTPRefresher returns a Refresher posting to baseURL+path. A nil hc
// means http.DefaultClient.
func NewHTTPRefresher(baseURL, path string, hc *http.Client) *HTTPRefresher {
	if hc == nil {
		hc = http.DefaultClient
	}
	if path == "" {
		path = DefaultRefreshPath
	}
	return &HTTPRefresher{
		url:    strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/"),
		client: hc,
	}
}

// refreshResponse accepts both the success envelope and a bare token body.
type refreshResponse struct {
	Success *bool          `json:"success"`
	Data    *models.Tokens `json:"data"`
	Message string         `json:"message"`
	models.Tokens
}

func (r *HTTPRefresher) Refresh(ctx context.Context, refreshToken string) (models.Tokens, error) {
	body, err := json.Marshal(models.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return models.Tokens{}, fmt.Errorf("encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return models.Tokens{}, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return models.Tokens{}, classify.Transport(err, r.url, 0)
	}

	nr, err := classify.FromHTTP(resp, r.url)
	if err != nil {
		return models.Tokens{}, classify.Transport(err, r.url, 0)
	}
	if !nr.Success() {
		return models.Tokens{}, classify.Classify(nr)
	}

	var out refreshResponse
	if err := json.Unmarshal(nr.Body, &out); err != nil {
		return models.Tokens{}, apperr.New(apperr.CodeAPI, "malformed refresh response", err)
	}
	if out.Success != nil && !*out.Success {
		return models.Tokens{}, apperr.NewAuthenticationError(out.Message, nil)
	}
	if out.Data != nil && out.Data.AccessToken != "" {
		return *out.Data, nil
	}
	if out.AccessToken == "" {
		return models.Tokens{}, ErrEmptyAccessToken
	}
	return out.Tokens, nil
}
