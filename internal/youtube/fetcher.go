package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/runnerr0/watchlog/internal/videoid"
)

// DefaultEndpoint is the YouTube Data API root.
const DefaultEndpoint = "https://youtube.googleapis.com/"

// Sent as one comma-joined value: part=snippet,contentDetails.
var videoParts = []string{"snippet,contentDetails"}

// Thumbnail is one size variant of a video thumbnail.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int64  `json:"width"`
	Height int64  `json:"height"`
}

// Metadata is the normalized subset of a videos.list item.
type Metadata struct {
	Title           string
	Description     string
	DurationSeconds *int
	ChannelTitle    string
	Thumbnails      map[string]Thumbnail
}

// RemoteError reports a failed API call. StatusCode is 0 when no HTTP
// response was received.
type RemoteError struct {
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("youtube api request failed: %v", e.Err)
	}
	return fmt.Sprintf("youtube api error: %d", e.StatusCode)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// NotFoundError is returned when the API answers with no items.
type NotFoundError struct {
	VideoID videoid.ID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("video %s not found in api response", e.VideoID)
}

// Fetcher retrieves video metadata from the YouTube Data API. The service
// and its HTTP client are built once; the API key is supplied per call
// because it lives in user settings and may change while the daemon runs.
type Fetcher struct {
	endpoint string
	timeout  time.Duration
	svc      *yt.Service
	svcErr   error
}

// NewFetcher returns a Fetcher for endpoint (DefaultEndpoint when empty).
// A zero timeout disables the per-request deadline.
func NewFetcher(endpoint string, timeout time.Duration) *Fetcher {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	f := &Fetcher{endpoint: endpoint, timeout: timeout}
	f.svc, f.svcErr = yt.NewService(context.Background(),
		option.WithHTTPClient(&http.Client{}),
		option.WithEndpoint(endpoint),
	)
	return f
}

// Fetch looks up a single video.
func (f *Fetcher) Fetch(ctx context.Context, id videoid.ID, apiKey string) (Metadata, error) {
	if f.svcErr != nil {
		return Metadata{}, fmt.Errorf("create youtube service: %w", f.svcErr)
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	response, err := f.svc.Videos.List(videoParts).Id(string(id)).Context(ctx).
		Do(googleapi.QueryParameter("key", apiKey))
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return Metadata{}, &RemoteError{StatusCode: apiErr.Code, Err: err}
		}
		return Metadata{}, &RemoteError{Err: err}
	}
	if len(response.Items) == 0 {
		return Metadata{}, &NotFoundError{VideoID: id}
	}

	return normalize(response.Items[0]), nil
}

func normalize(item *yt.Video) Metadata {
	md := Metadata{Thumbnails: map[string]Thumbnail{}}

	if item.Snippet != nil {
		md.Title = item.Snippet.Title
		md.Description = item.Snippet.Description
		md.ChannelTitle = item.Snippet.ChannelTitle
		if th := item.Snippet.Thumbnails; th != nil {
			for label, t := range map[string]*yt.Thumbnail{
				"default":  th.Default,
				"medium":   th.Medium,
				"high":     th.High,
				"standard": th.Standard,
				"maxres":   th.Maxres,
			} {
				if t != nil {
					md.Thumbnails[label] = Thumbnail{URL: t.Url, Width: t.Width, Height: t.Height}
				}
			}
		}
	}

	if item.ContentDetails != nil {
		md.DurationSeconds = ParseDuration(item.ContentDetails.Duration)
	}

	return md
}
