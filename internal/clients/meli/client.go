package meli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/logger"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/utils"
)

const siteID = "MLB"

// Client talks to the marketplace item/search/seller endpoints. Every call
// carries a timeout and a bounded retry with exponential backoff; a 401
// refreshes the access token and retries once; a 403 on an authenticated call
// falls back to the unauthenticated variant of the same endpoint.
type Client struct {
	http    *resty.Client
	log     *logger.Logger
	baseURL string

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	clientID     string
	clientSecret string
}

func NewClient(log *logger.Logger) *Client {
	baseURL := utils.GetEnv("MELI_BASE_URL", "https://api.mercadolibre.com", log)

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(utils.GetEnvAsDuration("MELI_HTTP_TIMEOUT", 15*time.Second, log)).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})

	return &Client{
		http:         httpClient,
		log:          log.With("service", "MeliClient"),
		baseURL:      baseURL,
		accessToken:  utils.GetEnv("MELI_ACCESS_TOKEN", "", log),
		refreshToken: utils.GetEnv("MELI_REFRESH_TOKEN", "", log),
		clientID:     utils.GetEnv("MELI_CLIENT_ID", "", log),
		clientSecret: utils.GetEnv("MELI_CLIENT_SECRET", "", log),
	}
}

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// refreshAccessToken exchanges the refresh token. Returns false when no
// credentials are configured, so callers can drop to public access.
func (c *Client) refreshAccessToken(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshToken == "" || c.clientID == "" || c.clientSecret == "" {
		return false, nil
	}
	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"client_id":     c.clientID,
			"client_secret": c.clientSecret,
			"refresh_token": c.refreshToken,
		}).
		SetResult(&out).
		Post("/oauth/token")
	if err != nil {
		return false, fmt.Errorf("token refresh: %w", err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("token refresh: status %d", resp.StatusCode())
	}
	c.accessToken = out.AccessToken
	if out.RefreshToken != "" {
		c.refreshToken = out.RefreshToken
	}
	c.log.Info("Marketplace access token refreshed")
	return true, nil
}

// get runs an authenticated GET with the 401/403 fallback ladder.
func (c *Client) get(ctx context.Context, path string, query map[string]string, out interface{}) error {
	doReq := func(withAuth bool) (*resty.Response, error) {
		req := c.http.R().SetContext(ctx).SetQueryParams(query)
		if withAuth && c.token() != "" {
			req.SetHeader("Authorization", "Bearer "+c.token())
		}
		return req.Get(path)
	}

	authed := c.token() != ""
	resp, err := doReq(authed)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}

	if resp.StatusCode() == http.StatusUnauthorized && authed {
		refreshed, refreshErr := c.refreshAccessToken(ctx)
		if refreshErr != nil {
			c.log.Warn("Token refresh failed", "error", refreshErr)
		}
		if refreshed {
			resp, err = doReq(true)
			if err != nil {
				return fmt.Errorf("GET %s after refresh: %w", path, err)
			}
		}
	}

	if resp.StatusCode() == http.StatusForbidden && authed {
		c.log.Warn("Authenticated call forbidden, retrying public", "path", path)
		resp, err = doReq(false)
		if err != nil {
			return fmt.Errorf("GET %s public fallback: %w", path, err)
		}
	}

	if resp.IsError() {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode())
	}
	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("GET %s: decode: %w", path, err)
		}
	}
	return nil
}

// SearchCandidates pages through site search results for one category query.
func (c *Client) SearchCandidates(ctx context.Context, categoryID, query string, sellerID int64, limit int) ([]types.Candidate, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const pageSize = 50
	out := make([]types.Candidate, 0, limit)
	for offset := 0; offset < limit; offset += pageSize {
		params := map[string]string{
			"limit":  fmt.Sprintf("%d", pageSize),
			"offset": fmt.Sprintf("%d", offset),
		}
		if query != "" {
			params["q"] = query
		}
		if categoryID != "" {
			params["category"] = categoryID
		}
		if sellerID > 0 {
			params["seller_id"] = fmt.Sprintf("%d", sellerID)
		}
		var page searchResponse
		if err := c.get(ctx, "/sites/"+siteID+"/search", params, &page); err != nil {
			return out, err
		}
		for _, item := range page.Results {
			out = append(out, item.toCandidate())
			if len(out) >= limit {
				return out, nil
			}
		}
		if page.Paging.Offset+pageSize >= page.Paging.Total {
			break
		}
	}
	return out, nil
}

func (c *Client) GetItemDetail(ctx context.Context, externalID string) (*types.Candidate, error) {
	var payload itemPayload
	if err := c.get(ctx, "/items/"+externalID, nil, &payload); err != nil {
		return nil, err
	}
	cand := payload.toCandidate()
	return &cand, nil
}

func (c *Client) GetSellerReputation(ctx context.Context, sellerID int64) (*SellerReputation, error) {
	var payload sellerPayload
	if err := c.get(ctx, fmt.Sprintf("/users/%d", sellerID), nil, &payload); err != nil {
		return nil, err
	}
	return &SellerReputation{
		LevelID:     payload.SellerReputation.LevelID,
		PowerStatus: payload.SellerReputation.PowerSellerStatus,
	}, nil
}
