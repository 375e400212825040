package source

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mmcdole/gofeed"
)

// DefaultFeedURL is the public Atom feed of a channel's latest uploads.
const DefaultFeedURL = "https://www.youtube.com/feeds/videos.xml"

// UploadFeed counts recent uploads from a channel's public upload feed. The
// feed lists the latest 15 videos, so counts saturate there.
type UploadFeed struct {
	client  *http.Client
	parser  *gofeed.Parser
	baseURL string
}

// NewUploadFeed creates a feed reader. An empty baseURL uses DefaultFeedURL;
// a nil client uses a retrying client.
func NewUploadFeed(client *http.Client, baseURL string) *UploadFeed {
	if client == nil {
		client = newRetryClient(0, 0, 0, nopLogger()).StandardClient()
	}
	if baseURL == "" {
		baseURL = DefaultFeedURL
	}
	return &UploadFeed{client: client, parser: gofeed.NewParser(), baseURL: baseURL}
}

// CountUploads returns how many feed entries were published at or after since.
func (f *UploadFeed) CountUploads(ctx context.Context, channelID string, since time.Time) (int64, error) {
	reqURL := f.baseURL + "?" + url.Values{"channel_id": {channelID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, errors.Wrapf(err, "create feed request %s", channelID)
	}
	req.Header.Set("User-Agent", "playaura/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "fetch feed %s", channelID)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, errors.Newf("feed %s status %d", channelID, resp.StatusCode)
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return 0, errors.Wrapf(err, "parse feed %s", channelID)
	}

	var n int64
	for _, entry := range parsed.Items {
		published := entry.PublishedParsed
		if published == nil {
			published = entry.UpdatedParsed
		}
		if published != nil && !published.Before(since) {
			n++
		}
	}
	return n, nil
}
