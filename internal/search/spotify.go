package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// SpotifyClient searches the Spotify catalog with a client-credentials
// token. The token is cached and refreshed shortly before it expires.
type SpotifyClient struct {
	clientID     string
	clientSecret string
	tokenURL     string
	searchURL    string
	http         *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewSpotifyClient(clientID, clientSecret string) *SpotifyClient {
	return &SpotifyClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     "https://accounts.spotify.com/api/token",
		searchURL:    "https://api.spotify.com/v1/search",
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *SpotifyClient) Name() string { return "spotify" }

type spotifyTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *SpotifyClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && time.Now().Before(c.expires) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("spotify token status %d", resp.StatusCode)
	}

	var body spotifyTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("spotify token response missing access_token")
	}

	c.mu.Lock()
	c.token = body.AccessToken
	// Refresh half a minute early to avoid racing the expiry.
	c.expires = time.Now().Add(time.Duration(body.ExpiresIn)*time.Second - 30*time.Second)
	c.mu.Unlock()
	return body.AccessToken, nil
}

type spotifySearchResponse struct {
	Tracks struct {
		Items []struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Album struct {
				Name   string `json:"name"`
				Images []struct {
					URL string `json:"url"`
				} `json:"images"`
			} `json:"album"`
			DurationMs int    `json:"duration_ms"`
			PreviewURL string `json:"preview_url"`
		} `json:"items"`
	} `json:"tracks"`
}

func (c *SpotifyClient) SearchTracks(ctx context.Context, query string, limit int) ([]TrackItem, error) {
	if limit <= 0 || limit > 25 {
		limit = 10
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	val := url.Values{}
	val.Set("q", query)
	val.Set("type", "track")
	val.Set("limit", fmt.Sprint(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+"?"+val.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spotify status %d", resp.StatusCode)
	}

	var body spotifySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	out := make([]TrackItem, 0, len(body.Tracks.Items))
	for _, it := range body.Tracks.Items {
		names := make([]string, 0, len(it.Artists))
		for _, a := range it.Artists {
			names = append(names, a.Name)
		}
		var cover string
		if len(it.Album.Images) > 0 {
			cover = it.Album.Images[0].URL
		}
		out = append(out, TrackItem{
			Title:        it.Name,
			Artist:       strings.Join(names, ", "),
			Provider:     "spotify",
			VideoID:      it.ID,
			ThumbnailURL: cover,
			Album:        it.Album.Name,
			PreviewURL:   it.PreviewURL,
			Duration:     (it.DurationMs + 500) / 1000,
		})
	}
	return out, nil
}
