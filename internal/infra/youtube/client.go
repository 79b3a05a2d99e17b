// Package youtube provides a client for the YouTube Data API v3.
package youtube

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// DefaultBaseURL is the YouTube Data API v3 endpoint.
const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

// ErrNotFound is returned when a lookup yields no items.
var ErrNotFound = errors.New("youtube: not found")

// Client is a YouTube Data API client keyed by an API key.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Config represents YouTube client configuration.
type Config struct {
	APIKey  string
	BaseURL string
}

// Video is the subset of video metadata the player needs.
type Video struct {
	ID           string
	Title        string
	Duration     time.Duration // 0 when the endpoint does not report it
	ThumbnailURL string
}

// PlaylistPage is one page of playlist items.
type PlaylistPage struct {
	Items         []Video
	NextPageToken string
}

type thumbnails struct {
	Default struct {
		URL string `json:"url"`
	} `json:"default"`
}

type videosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title      string     `json:"title"`
			Thumbnails thumbnails `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title      string     `json:"title"`
			Thumbnails thumbnails `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

type playlistItemsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		Snippet struct {
			Title      string     `json:"title"`
			Thumbnails thumbnails `json:"thumbnails"`
			ResourceID struct {
				VideoID string `json:"videoId"`
			} `json:"resourceId"`
		} `json:"snippet"`
	} `json:"items"`
}

// APIError represents an error response from the Data API.
type APIError struct {
	Err struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// New creates a new YouTube client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("youtube API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// GetVideo looks up a video by ID including its duration.
// Reference: https://developers.google.com/youtube/v3/docs/videos/list
func (c *Client) GetVideo(ctx context.Context, videoID string) (*Video, error) {
	if videoID == "" {
		return nil, errors.New("video ID is required")
	}

	params := url.Values{}
	params.Set("part", "snippet,contentDetails")
	params.Set("id", videoID)

	var response videosResponse
	if err := c.get(ctx, "videos", params, &response); err != nil {
		return nil, errors.Wrapf(err, "failed to get video %s", videoID)
	}

	if len(response.Items) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "video %s", videoID)
	}

	item := response.Items[0]
	return &Video{
		ID:           item.ID,
		Title:        item.Snippet.Title,
		Duration:     ParseDuration(item.ContentDetails.Duration),
		ThumbnailURL: item.Snippet.Thumbnails.Default.URL,
	}, nil
}

// Search runs a text search restricted to videos.
// Reference: https://developers.google.com/youtube/v3/docs/search/list
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Video, error) {
	if query == "" {
		return nil, errors.New("search query is required")
	}

	if limit <= 0 {
		limit = 5
	}
	if limit > 50 {
		limit = 50
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(limit))

	var response searchResponse
	if err := c.get(ctx, "search", params, &response); err != nil {
		return nil, errors.Wrap(err, "failed to search")
	}

	videos := make([]Video, 0, len(response.Items))
	for _, item := range response.Items {
		if item.ID.VideoID == "" {
			continue
		}
		videos = append(videos, Video{
			ID:           item.ID.VideoID,
			Title:        item.Snippet.Title,
			ThumbnailURL: item.Snippet.Thumbnails.Default.URL,
		})
	}

	zlog.Debug().Msgf("youtube search: query=%q, results=%d", query, len(videos))
	return videos, nil
}

// GetPlaylistItems fetches one page of a playlist.
// Reference: https://developers.google.com/youtube/v3/docs/playlistItems/list
func (c *Client) GetPlaylistItems(ctx context.Context, playlistID, pageToken string, limit int) (*PlaylistPage, error) {
	if playlistID == "" {
		return nil, errors.New("playlist ID is required")
	}

	if limit <= 0 || limit > 50 {
		limit = 50
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("playlistId", playlistID)
	params.Set("maxResults", strconv.Itoa(limit))
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var response playlistItemsResponse
	if err := c.get(ctx, "playlistItems", params, &response); err != nil {
		return nil, errors.Wrapf(err, "failed to get playlist items %s", playlistID)
	}

	page := &PlaylistPage{
		Items:         make([]Video, 0, len(response.Items)),
		NextPageToken: response.NextPageToken,
	}
	for _, item := range response.Items {
		page.Items = append(page.Items, Video{
			ID:           item.Snippet.ResourceID.VideoID,
			Title:        item.Snippet.Title,
			ThumbnailURL: item.Snippet.Thumbnails.Default.URL,
		})
	}

	return page, nil
}

// get performs a GET against the named resource and decodes the JSON body.
func (c *Client) get(ctx context.Context, resource string, params url.Values, out any) error {
	params.Set("key", c.apiKey)
	reqURL := c.baseURL + "/" + resource + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr APIError
		err := errors.Errorf("youtube API status %d", resp.StatusCode)
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Err.Code != 0 {
			err = errors.Errorf("youtube API error %d: %s", apiErr.Err.Code, apiErr.Err.Message)
		}
		if resp.StatusCode == http.StatusNotFound {
			return errors.Mark(err, ErrNotFound)
		}
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}
