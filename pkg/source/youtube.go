package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/elonfeng/playaura/pkg/creator"
)

// DefaultBaseURL is the YouTube Data API v3 root.
const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

// shortsCutoff is the duration below which a video counts as a short.
const shortsCutoff = 60 * time.Second

// YouTubeOptions configure the collector.
type YouTubeOptions struct {
	APIKey  string
	BaseURL string
	// RequestsPerSecond paces API calls. Zero disables pacing.
	RequestsPerSecond float64
	MaxResults        int
	RetryMax          int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
	// Feed counts recent uploads per channel. Nil leaves Uploads7d unknown.
	Feed *UploadFeed
	Now  func() time.Time
}

// YouTube discovers channels through the YouTube Data API.
type YouTube struct {
	client     *retryablehttp.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	maxResults int
	feed       *UploadFeed
	now        func() time.Time
	log        *zap.SugaredLogger
}

// NewYouTube creates a YouTube collector.
func NewYouTube(opts YouTubeOptions, log *zap.SugaredLogger) *YouTube {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 25
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &YouTube{
		client:     newRetryClient(opts.RetryMax, opts.RetryWaitMin, opts.RetryWaitMax, log),
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		limiter:    limiter,
		maxResults: opts.MaxResults,
		feed:       opts.Feed,
		now:        opts.Now,
		log:        log.Named("youtube"),
	}
}

func (y *YouTube) Name() string { return "youtube" }

// Collect runs search, video details and channel details for one region and
// category and returns the channels found.
func (y *YouTube) Collect(ctx context.Context, region string, cat Category) ([]Channel, error) {
	if y.apiKey == "" {
		return nil, errors.New("youtube: API key required (set YOUTUBE_API_KEY)")
	}

	videos, err := y.search(ctx, region, cat)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, nil
	}

	formats, err := y.videoFormats(ctx, videos)
	if err != nil {
		return nil, err
	}

	// first video seen per channel decides its format
	var channelIDs []string
	repVideo := make(map[string]string)
	for _, v := range videos {
		ch := v.Snippet.ChannelID
		if _, ok := repVideo[ch]; !ok {
			repVideo[ch] = v.ID.VideoID
			channelIDs = append(channelIDs, ch)
		}
	}

	items, err := y.channels(ctx, channelIDs)
	if err != nil {
		return nil, err
	}

	observedAt := y.now().UTC()
	out := make([]Channel, 0, len(items))
	for _, item := range items {
		format := formats[repVideo[item.ID]]
		if format == "" {
			format = creator.FormatLong
		}
		ch := Channel{
			Creator: creator.Creator{
				ID:            item.ID,
				CategoryID:    cat.ID,
				Region:        region,
				Format:        format,
				Name:          item.Snippet.Title,
				Handle:        item.Snippet.CustomURL,
				Description:   item.Snippet.Description,
				ThumbnailURL:  item.Snippet.Thumbnails.Medium.URL,
				ChannelURL:    "https://www.youtube.com/channel/" + item.ID,
				LastUpdatedAt: observedAt,
			},
			Observation: Observation{
				TotalViews:  parseCount(item.Statistics.ViewCount),
				TotalVideos: parseCount(item.Statistics.VideoCount),
			},
			ObservedAt: observedAt,
		}
		if !item.Statistics.HiddenSubscriberCount {
			ch.Observation.Subscribers = parseCount(item.Statistics.SubscriberCount)
		}
		if y.feed != nil {
			n, err := y.feed.CountUploads(ctx, item.ID, observedAt.Add(-7*24*time.Hour))
			if err != nil {
				y.log.Debugw("upload feed unavailable", "channel", item.ID, "error", err)
			} else {
				ch.Observation.Uploads7d = &n
			}
		}
		out = append(out, ch)
	}
	return out, nil
}

func (y *YouTube) search(ctx context.Context, region string, cat Category) ([]ytSearchItem, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", SearchQuery(cat.ID, region))
	params.Set("type", "video")
	params.Set("videoCategoryId", cat.YouTubeID)
	params.Set("regionCode", region)
	params.Set("relevanceLanguage", Language(region))
	params.Set("maxResults", strconv.Itoa(y.maxResults))

	var result struct {
		Items []ytSearchItem `json:"items"`
	}
	if err := y.get(ctx, "search", params, &result); err != nil {
		return nil, errors.Wrapf(err, "search %s/%s", region, cat.ID)
	}

	items := result.Items[:0]
	for _, it := range result.Items {
		if it.ID.VideoID != "" && it.Snippet.ChannelID != "" {
			items = append(items, it)
		}
	}
	return items, nil
}

func (y *YouTube) videoFormats(ctx context.Context, videos []ytSearchItem) (map[string]creator.Format, error) {
	ids := make([]string, len(videos))
	for i, v := range videos {
		ids[i] = v.ID.VideoID
	}

	formats := make(map[string]creator.Format, len(ids))
	for _, batch := range batches(ids, 50) {
		params := url.Values{}
		params.Set("part", "contentDetails")
		params.Set("id", strings.Join(batch, ","))

		var result struct {
			Items []struct {
				ID             string `json:"id"`
				ContentDetails struct {
					Duration string `json:"duration"`
				} `json:"contentDetails"`
			} `json:"items"`
		}
		if err := y.get(ctx, "videos", params, &result); err != nil {
			return nil, errors.Wrap(err, "video details")
		}

		for _, v := range result.Items {
			d, err := ParseDuration(v.ContentDetails.Duration)
			if err != nil {
				y.log.Debugw("unparsable duration", "video", v.ID, "duration", v.ContentDetails.Duration)
				continue
			}
			formats[v.ID] = FormatFor(d)
		}
	}
	return formats, nil
}

func (y *YouTube) channels(ctx context.Context, ids []string) ([]ytChannel, error) {
	var out []ytChannel
	for _, batch := range batches(ids, 50) {
		params := url.Values{}
		params.Set("part", "snippet,statistics")
		params.Set("id", strings.Join(batch, ","))

		var result struct {
			Items []ytChannel `json:"items"`
		}
		if err := y.get(ctx, "channels", params, &result); err != nil {
			return nil, errors.Wrap(err, "channel details")
		}
		out = append(out, result.Items...)
	}
	return out, nil
}

// get issues a paced GET against the API and decodes the JSON body into out.
func (y *YouTube) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if err := y.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limit wait")
	}

	params.Set("key", y.apiKey)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return errors.Wrapf(err, "create %s request", endpoint)
	}

	resp, err := y.client.Do(req)
	if err != nil {
		// the request URL carries the API key
		return errors.Newf("fetch %s: %s", endpoint, redact(err.Error(), y.apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "read %s response", endpoint)
	}

	var apiErr ytErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != nil {
		return errors.Newf("youtube %s: %s (status %d)", endpoint, apiErr.Error.Message, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Newf("youtube %s status %d", endpoint, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "decode %s", endpoint)
	}
	return nil
}

var durationRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseDuration parses an ISO-8601 video duration such as "PT1M30S".
func ParseDuration(s string) (time.Duration, error) {
	m := durationRe.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, errors.Newf("invalid ISO-8601 duration %q", s)
	}

	var d time.Duration
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute}
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "duration %q", s)
		}
		d += time.Duration(n) * unit
	}
	if m[4] != "" {
		sec, err := strconv.ParseFloat(m[4], 64)
		if err != nil {
			return 0, errors.Wrapf(err, "duration %q", s)
		}
		d += time.Duration(sec * float64(time.Second))
	}
	return d, nil
}

// FormatFor classifies a video by duration.
func FormatFor(d time.Duration) creator.Format {
	if d < shortsCutoff {
		return creator.FormatShorts
	}
	return creator.FormatLong
}

func parseCount(s string) *int64 {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

func batches(ids []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "REDACTED")
}

type ytSearchItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		ChannelID    string `json:"channelId"`
		ChannelTitle string `json:"channelTitle"`
		Title        string `json:"title"`
	} `json:"snippet"`
}

type ytChannel struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		CustomURL   string `json:"customUrl"`
		Thumbnails  struct {
			Medium struct {
				URL string `json:"url"`
			} `json:"medium"`
		} `json:"thumbnails"`
	} `json:"snippet"`
	Statistics struct {
		ViewCount             string `json:"viewCount"`
		SubscriberCount       string `json:"subscriberCount"`
		HiddenSubscriberCount bool   `json:"hiddenSubscriberCount"`
		VideoCount            string `json:"videoCount"`
	} `json:"statistics"`
}

type ytErrorResponse struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
