package gbfs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	httpClient *http.Client
	statusURL  string
	infoURL    string
}

func NewClient(statusURL, infoURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		statusURL:  statusURL,
		infoURL:    infoURL,
	}
}

// FetchStatus pulls station_status.json and returns one snapshot stamped
// with the wall-clock capture time.
func (c *Client) FetchStatus(ctx context.Context) (*Snapshot, error) {
	var f feed[StationStatus]
	if err := c.fetch(ctx, c.statusURL, &f); err != nil {
		return nil, fmt.Errorf("fetch station_status: %w", err)
	}
	return &Snapshot{
		CapturedAt:  time.Now().UTC(),
		LastUpdated: time.Unix(f.LastUpdated, 0).UTC(),
		Stations:    f.Data.Stations,
	}, nil
}

// FetchInformation pulls station_information.json.
func (c *Client) FetchInformation(ctx context.Context) ([]StationInformation, error) {
	var f feed[StationInformation]
	if err := c.fetch(ctx, c.infoURL, &f); err != nil {
		return nil, fmt.Errorf("fetch station_information: %w", err)
	}
	return f.Data.Stations, nil
}

func (c *Client) fetch(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode feed: %w", err)
	}
	return nil
}
