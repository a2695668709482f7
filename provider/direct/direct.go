// Package direct downloads URLs that point straight at a video file.
package direct

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/alanbriolat/tiktok-archiver"
	"github.com/alanbriolat/tiktok-archiver/generic"
	"github.com/alanbriolat/tiktok-archiver/util"
)

type Config struct {
	Extensions generic.Set[string]
}

func NewConfig() Config {
	return Config{
		Extensions: generic.NewSet(
			"flv",
			"m4v",
			"mkv",
			"mov",
			"mp4",
			"webm",
		),
	}
}

func (c *Config) Match(s string) (tiktok_archiver.Source, error) {
	parsedURL, err := util.ParseHTTPURL(s)
	if err != nil {
		return nil, err
	}
	filename, err := util.FilenameFromURL(parsedURL)
	if err != nil {
		return nil, err
	}
	extension := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if extension == "" {
		return nil, fmt.Errorf("no file extension found")
	}
	if !c.Extensions.Contains(extension) {
		return nil, fmt.Errorf("unknown file extension %v", extension)
	}
	return &source{url: s}, nil
}

func (c Config) Provider() tiktok_archiver.Provider {
	return tiktok_archiver.Provider{
		Name:  "direct",
		Match: c.Match,
	}
}

type source struct {
	url string
}

func (s *source) URL() string {
	return s.url
}

func (s *source) String() string {
	return s.URL()
}

func (s *source) Recon(ctx context.Context) (tiktok_archiver.ResolvedSource, error) {
	return s, nil
}

func (s *source) Download(d tiktok_archiver.Download) error {
	return d.SaveURL(s.url)
}

func init() {
	tiktok_archiver.DefaultProviderRegistry.MustAdd(
		NewConfig().Provider().WithPriority(tiktok_archiver.PriorityLowest),
	)
}
