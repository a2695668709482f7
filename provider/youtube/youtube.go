package youtube

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/alanbriolat/tiktok-archiver"
)

type source struct {
	videoID string
}

func (s *source) URL() string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", s.videoID)
}

func (s *source) String() string {
	return s.URL()
}

func (s *source) Recon(ctx context.Context) (tiktok_archiver.ResolvedSource, error) {
	client := youtube.Client{}
	videoDetails, err := client.GetVideoContext(ctx, s.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to get video info: %w", err)
	}
	videoFormat := bestFormat(videoDetails.Formats.WithAudioChannels())
	if videoFormat == nil {
		return nil, fmt.Errorf("%w: no format with audio", tiktok_archiver.ErrNoVideo)
	}
	return &resolvedSource{
		source:       *s,
		videoDetails: videoDetails,
		videoFormat:  videoFormat,
	}, nil
}

type resolvedSource struct {
	source
	videoDetails *youtube.Video
	videoFormat  *youtube.Format
}

func (s *resolvedSource) Download(d tiktok_archiver.Download) error {
	client := youtube.Client{HTTPClient: d.HTTPClient()}
	stream, size, err := client.GetStreamContext(d.Context(), s.videoDetails, s.videoFormat)
	if err != nil {
		return fmt.Errorf("failed to get stream: %w", err)
	}
	defer stream.Close()
	d.AddExpectedBytes(int(size))
	return d.SaveStream(stream)
}

func (s *resolvedSource) String() string {
	return fmt.Sprintf("%s [%s]", s.videoDetails.Title, s.videoDetails.ID)
}

// bestFormat picks the highest bitrate, preferring mp4 containers since that is what gets written.
func bestFormat(formats youtube.FormatList) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if best == nil {
			best = f
			continue
		}
		fMP4, bestMP4 := isMP4(f), isMP4(best)
		if (fMP4 && !bestMP4) || (fMP4 == bestMP4 && f.Bitrate > best.Bitrate) {
			best = f
		}
	}
	return best
}

func isMP4(f *youtube.Format) bool {
	return strings.HasPrefix(f.MimeType, "video/mp4")
}

func Match(s string) (tiktok_archiver.Source, error) {
	if parsedURL, err := url.Parse(s); err != nil {
		return nil, err
	} else if videoID, err := extractVideoID(parsedURL); err != nil {
		return nil, err
	} else {
		return &source{videoID: *videoID}, nil
	}
}

func New() tiktok_archiver.Provider {
	return tiktok_archiver.Provider{Name: "youtube", Match: Match}
}

// Extract video ID from YouTube URL.
//
// Allowed URL formats:
//
//	http(s?)://(www|m).youtube.com/(watch|details)?v={VIDEO_ID}
//	http(s?)://(www|m).youtube.com/(v|shorts)/{VIDEO_ID}
//	http(s?)://youtu.be/{VIDEO_ID}
func extractVideoID(url *url.URL) (*string, error) {
	var id string
	switch url.Hostname() {
	case "youtube.com", "www.youtube.com", "m.youtube.com":
		if strings.HasPrefix(url.Path, "/v/") || strings.HasPrefix(url.Path, "/shorts/") {
			id = strings.SplitN(url.Path, "/", 4)[2]
		} else if url.Path == "/watch" || url.Path == "/details" {
			if url.Query().Has("v") {
				id = url.Query().Get("v")
			} else {
				return nil, fmt.Errorf("missing ?v= query parameter")
			}
		}
	case "youtu.be":
		id = strings.Trim(url.Path, "/")
	default:
		return nil, fmt.Errorf("unrecognised hostname")
	}
	if id == "" {
		return nil, fmt.Errorf("could not extract video ID")
	}
	return &id, nil
}

func init() {
	tiktok_archiver.DefaultProviderRegistry.MustAdd(New())
}
