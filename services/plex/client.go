package plex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sahara101/trakt2plexstatus/models"
)

const pageSize = 100

// Client reads library contents from a Plex Media Server
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// LibrarySection is one library on the server
type LibrarySection struct {
	Key   string `json:"key"`
	Type  string `json:"type"` // "movie", "show", "artist", "photo"
	Title string `json:"title"`
}

type sectionsResponse struct {
	MediaContainer struct {
		Directory []LibrarySection `json:"Directory"`
	} `json:"MediaContainer"`
}

type metadataItem struct {
	RatingKey string `json:"ratingKey"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	GUID      string `json:"guid"`
	Guids     []struct {
		ID string `json:"id"`
	} `json:"Guid"`
}

type itemsResponse struct {
	MediaContainer struct {
		Size      int            `json:"size"`
		TotalSize int            `json:"totalSize"`
		Offset    int            `json:"offset"`
		Metadata  []metadataItem `json:"Metadata"`
	} `json:"MediaContainer"`
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL, token string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL != "" && !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    baseURL,
		token:      token,
	}
}

// setPlexHeaders adds required Plex headers to a request
func (c *Client) setPlexHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Product", "trakt2plexstatus")
	if c.token != "" {
		req.Header.Set("X-Plex-Token", c.token)
	}
}

func (c *Client) get(ctx context.Context, op, path string, q url.Values, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("plex base url required")
	}
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setPlexHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("plex api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("plex %s failed: %s - %s", op, resp.Status, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ListLibrarySections returns every library on the server
func (c *Client) ListLibrarySections(ctx context.Context) ([]LibrarySection, error) {
	var resp sectionsResponse
	if err := c.get(ctx, "library sections", "/library/sections", nil, &resp); err != nil {
		return nil, err
	}
	return resp.MediaContainer.Directory, nil
}

// FindSection returns the section whose title matches, ignoring case
func (c *Client) FindSection(ctx context.Context, title string) (*LibrarySection, error) {
	sections, err := c.ListLibrarySections(ctx)
	if err != nil {
		return nil, err
	}
	for i := range sections {
		if strings.EqualFold(sections[i].Title, title) {
			return &sections[i], nil
		}
	}
	return nil, fmt.Errorf("plex library %q not found", title)
}

// LibraryShows returns every show in the named library with its external ids
func (c *Client) LibraryShows(ctx context.Context, library string) ([]models.Show, error) {
	section, err := c.FindSection(ctx, library)
	if err != nil {
		return nil, err
	}
	if section.Type != "show" {
		return nil, fmt.Errorf("plex library %q is a %s library, not show", library, section.Type)
	}

	var shows []models.Show
	offset := 0
	for {
		q := url.Values{}
		q.Set("type", "2") // shows, not seasons or episodes
		q.Set("includeGuids", "1")
		q.Set("X-Plex-Container-Start", strconv.Itoa(offset))
		q.Set("X-Plex-Container-Size", strconv.Itoa(pageSize))

		var resp itemsResponse
		if err := c.get(ctx, "library items", "/library/sections/"+url.PathEscape(section.Key)+"/all", q, &resp); err != nil {
			return nil, err
		}

		for _, item := range resp.MediaContainer.Metadata {
			shows = append(shows, toShow(item))
		}

		offset += len(resp.MediaContainer.Metadata)
		total := resp.MediaContainer.TotalSize
		if total == 0 {
			total = resp.MediaContainer.Size
		}
		if len(resp.MediaContainer.Metadata) == 0 || offset >= total {
			break
		}
	}
	return shows, nil
}

func toShow(item metadataItem) models.Show {
	show := models.Show{RatingKey: item.RatingKey, Title: item.Title}
	for _, g := range item.Guids {
		if g.ID != "" {
			show.Guids = append(show.Guids, g.ID)
		}
	}
	// Legacy agents only carry the primary guid, e.g. "com.plexapp.agents.themoviedb://1399?lang=en".
	if len(show.Guids) == 0 {
		for ns, id := range ParseGUID(item.GUID) {
			show.Guids = append(show.Guids, ns+"://"+id)
		}
	}
	return show
}

var guidPatterns = map[string]*regexp.Regexp{
	"imdb": regexp.MustCompile(`imdb://?(tt\d+)`),
	"tmdb": regexp.MustCompile(`(?:tmdb|themoviedb)://(\d+)`),
	"tvdb": regexp.MustCompile(`(?:tvdb|thetvdb)://(\d+)`),
}

// ParseGUID extracts external IDs from a Plex GUID string
// Example GUIDs: "tmdb://1399", "com.plexapp.agents.thetvdb://121361?lang=en"
func ParseGUID(guid string) map[string]string {
	ids := make(map[string]string)
	for service, pattern := range guidPatterns {
		if matches := pattern.FindStringSubmatch(guid); len(matches) > 1 {
			ids[service] = matches[1]
		}
	}
	return ids
}
