package trakt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/sahara101/trakt2plexstatus/models"
)

const (
	traktAPIBaseURL   = "https://api.trakt.tv"
	traktAuthorizeURL = "https://trakt.tv/oauth/authorize"
	traktAPIVersion   = "2"

	// DefaultRate stays under Trakt's limit of 1000 GET requests per 5 minutes.
	DefaultRate = 3
)

// Client handles Trakt API interactions for OAuth, show lookups and user lists
type Client struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	limiter      *rate.Limiter
}

// APIError is returned for any non-success Trakt response
type APIError struct {
	Op         string
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("trakt %s failed: %s - %s", e.Op, e.Status, e.Body)
}

// IsStatus reports whether err is an APIError with the given status code
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// UserProfile represents basic Trakt user information
type UserProfile struct {
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Private  bool   `json:"private"`
	IDs      struct {
		Slug string `json:"slug"`
	} `json:"ids"`
}

// IDs holds external identifiers for a media item
type IDs struct {
	Trakt int    `json:"trakt,omitempty"`
	Slug  string `json:"slug,omitempty"`
	IMDB  string `json:"imdb,omitempty"`
	TMDB  int    `json:"tmdb,omitempty"`
	TVDB  int    `json:"tvdb,omitempty"`
}

// Show represents a Trakt TV show
type Show struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
	IDs   IDs    `json:"ids"`
}

// ShowDetails is a show fetched with extended=full
type ShowDetails struct {
	Show
	Status        string `json:"status"` // "returning series", "ended", "canceled", "in production", ...
	Network       string `json:"network,omitempty"`
	AiredEpisodes int    `json:"aired_episodes,omitempty"`
}

// Episode represents a Trakt episode fetched with extended=full
type Episode struct {
	Season      int    `json:"season"`
	Number      int    `json:"number"`
	Title       string `json:"title"`
	IDs         IDs    `json:"ids"`
	FirstAired  string `json:"first_aired,omitempty"` // ISO 8601, UTC
	EpisodeType string `json:"episode_type,omitempty"`
}

// SearchResult is one hit from an id lookup
type SearchResult struct {
	Type  string  `json:"type"`
	Score float64 `json:"score"`
	Show  *Show   `json:"show,omitempty"`
}

// UserList represents a custom Trakt list
type UserList struct {
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Privacy        string    `json:"privacy"`
	DisplayNumbers bool      `json:"display_numbers"`
	AllowComments  bool      `json:"allow_comments"`
	SortBy         string    `json:"sort_by,omitempty"`
	SortHow        string    `json:"sort_how,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
	ItemCount      int       `json:"item_count,omitempty"`
	IDs            struct {
		Trakt int    `json:"trakt,omitempty"`
		Slug  string `json:"slug,omitempty"`
	} `json:"ids,omitempty"`
}

// ListItem represents an item from a Trakt custom list
type ListItem struct {
	Rank     int       `json:"rank"`
	ID       int64     `json:"id"`
	ListedAt time.Time `json:"listed_at"`
	Type     string    `json:"type"` // "movie", "show", "season", "episode", "person"
	Show     *Show     `json:"show,omitempty"`
}

// SyncIDs holds IDs for list mutations
type SyncIDs struct {
	Trakt int `json:"trakt"`
}

// SyncShow is one show reference in a list mutation payload
type SyncShow struct {
	IDs SyncIDs `json:"ids"`
}

// ListItemsRequest is the body for adding to or removing from a list
type ListItemsRequest struct {
	Shows []SyncShow `json:"shows"`
}

// NewClient creates a new Trakt API client
func NewClient(clientID, clientSecret string) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      traktAPIBaseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		limiter:      rate.NewLimiter(rate.Limit(DefaultRate), DefaultRate),
	}
}

// SetBaseURL points the client at another API host (tests, proxies)
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// SetLimiter replaces the request pacer; nil disables pacing
func (c *Client) SetLimiter(l *rate.Limiter) {
	if l == nil {
		l = rate.NewLimiter(rate.Inf, 1)
	}
	c.limiter = l
}

// NewLimiter returns a limiter allowing perSecond requests, or nil for no
// limit when perSecond is not positive.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// setTraktHeaders adds required Trakt API headers to a request
func (c *Client) setTraktHeaders(req *http.Request, accessToken string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("trakt-api-version", traktAPIVersion)
	req.Header.Set("trakt-api-key", c.clientID)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
}

// do sends a request and decodes the body into out when the status is one of ok.
// The response is returned with its body closed.
func (c *Client) do(ctx context.Context, op, method, path, accessToken string, in, out any, ok ...int) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setTraktHeaders(req, accessToken)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("trakt rate limiter: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trakt api request: %w", err)
	}
	defer resp.Body.Close()

	if !statusIn(resp.StatusCode, ok) {
		respBody, _ := io.ReadAll(resp.Body)
		return resp, &APIError{Op: op, StatusCode: resp.StatusCode, Status: resp.Status, Body: string(respBody)}
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

func statusIn(code int, ok []int) bool {
	if len(ok) == 0 {
		return code == http.StatusOK
	}
	for _, c := range ok {
		if c == code {
			return true
		}
	}
	return false
}

// AuthorizeURL returns the page the user visits to obtain an authorization code
func (c *Client) AuthorizeURL(redirectURI string) string {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", c.clientID)
	params.Set("redirect_uri", redirectURI)
	return traktAuthorizeURL + "?" + params.Encode()
}

// ExchangeCode trades an authorization code for a token
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*models.Credential, error) {
	payload := map[string]string{
		"code":          code,
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"redirect_uri":  redirectURI,
		"grant_type":    "authorization_code",
	}

	var token models.Credential
	if _, err := c.do(ctx, "code exchange", http.MethodPost, "/oauth/token", "", payload, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// RefreshAccessToken refreshes an expired access token
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken, redirectURI string) (*models.Credential, error) {
	payload := map[string]string{
		"refresh_token": refreshToken,
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"redirect_uri":  redirectURI,
		"grant_type":    "refresh_token",
	}

	var token models.Credential
	if _, err := c.do(ctx, "token refresh", http.MethodPost, "/oauth/token", "", payload, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// GetUserProfile retrieves information about the authenticated user
func (c *Client) GetUserProfile(ctx context.Context, accessToken string) (*UserProfile, error) {
	var profile UserProfile
	if _, err := c.do(ctx, "user profile", http.MethodGet, "/users/me", accessToken, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetUserLists retrieves all custom lists owned by user
func (c *Client) GetUserLists(ctx context.Context, accessToken, user string) ([]UserList, error) {
	var lists []UserList
	path := fmt.Sprintf("/users/%s/lists", url.PathEscape(user))
	if _, err := c.do(ctx, "user lists", http.MethodGet, path, accessToken, nil, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// CreateList creates a custom list for user and returns it as stored by Trakt
func (c *Client) CreateList(ctx context.Context, accessToken, user string, list UserList) (*UserList, error) {
	payload := map[string]any{
		"name":            list.Name,
		"description":     list.Description,
		"privacy":         list.Privacy,
		"display_numbers": list.DisplayNumbers,
		"allow_comments":  list.AllowComments,
	}

	var created UserList
	path := fmt.Sprintf("/users/%s/lists", url.PathEscape(user))
	if _, err := c.do(ctx, "create list", http.MethodPost, path, accessToken, payload, &created, http.StatusOK, http.StatusCreated); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetListItems retrieves one page of items from a user list
// Returns items, total item count, and error
func (c *Client) GetListItems(ctx context.Context, accessToken, user, list string, page, limit int) ([]ListItem, int, error) {
	path := fmt.Sprintf("/users/%s/lists/%s/items?page=%d&limit=%d", url.PathEscape(user), url.PathEscape(list), page, limit)

	var items []ListItem
	resp, err := c.do(ctx, "list items", http.MethodGet, path, accessToken, nil, &items)
	if err != nil {
		return nil, 0, err
	}

	totalCount := len(items)
	if totalHeader := resp.Header.Get("X-Pagination-Item-Count"); totalHeader != "" {
		totalCount, _ = strconv.Atoi(totalHeader)
	}
	return items, totalCount, nil
}

// GetAllListItems retrieves all items from a user list, in rank order
func (c *Client) GetAllListItems(ctx context.Context, accessToken, user, list string) ([]ListItem, error) {
	var allItems []ListItem
	page := 1
	limit := 100

	for {
		items, totalCount, err := c.GetListItems(ctx, accessToken, user, list, page, limit)
		if err != nil {
			return nil, err
		}

		allItems = append(allItems, items...)

		if len(allItems) >= totalCount || len(items) == 0 {
			break
		}

		page++
	}

	return allItems, nil
}

// AddListShows appends shows to a user list, in the given order
func (c *Client) AddListShows(ctx context.Context, accessToken, user, list string, traktIDs []int) error {
	path := fmt.Sprintf("/users/%s/lists/%s/items", url.PathEscape(user), url.PathEscape(list))
	_, err := c.do(ctx, "add list items", http.MethodPost, path, accessToken, showsPayload(traktIDs), nil,
		http.StatusOK, http.StatusCreated, http.StatusNoContent)
	return err
}

// RemoveListShows removes shows from a user list
func (c *Client) RemoveListShows(ctx context.Context, accessToken, user, list string, traktIDs []int) error {
	path := fmt.Sprintf("/users/%s/lists/%s/items/remove", url.PathEscape(user), url.PathEscape(list))
	_, err := c.do(ctx, "remove list items", http.MethodPost, path, accessToken, showsPayload(traktIDs), nil,
		http.StatusOK, http.StatusCreated, http.StatusNoContent)
	return err
}

func showsPayload(traktIDs []int) ListItemsRequest {
	req := ListItemsRequest{Shows: make([]SyncShow, 0, len(traktIDs))}
	for _, id := range traktIDs {
		req.Shows = append(req.Shows, SyncShow{IDs: SyncIDs{Trakt: id}})
	}
	return req
}

// SearchTMDB looks up shows by TMDB id
func (c *Client) SearchTMDB(ctx context.Context, accessToken, tmdbID string) ([]SearchResult, error) {
	path := fmt.Sprintf("/search/tmdb/%s?type=show", url.PathEscape(tmdbID))

	var results []SearchResult
	if _, err := c.do(ctx, "tmdb search", http.MethodGet, path, accessToken, nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// GetShow retrieves a show with extended=full, which carries its status
func (c *Client) GetShow(ctx context.Context, accessToken string, traktID int) (*ShowDetails, error) {
	path := fmt.Sprintf("/shows/%d?extended=full", traktID)

	var show ShowDetails
	if _, err := c.do(ctx, "show", http.MethodGet, path, accessToken, nil, &show); err != nil {
		return nil, err
	}
	return &show, nil
}

// GetNextEpisode retrieves the next scheduled episode of a show
// Returns nil, nil when Trakt has none scheduled
func (c *Client) GetNextEpisode(ctx context.Context, accessToken string, traktID int) (*Episode, error) {
	path := fmt.Sprintf("/shows/%d/next_episode?extended=full", traktID)

	var episode *Episode
	resp, err := c.do(ctx, "next episode", http.MethodGet, path, accessToken, nil, &episode, http.StatusOK, http.StatusNoContent)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	return episode, nil
}
