// Package tiktok downloads videos from TikTok video pages, by finding the video address embedded in the page.
package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"github.com/alanbriolat/tiktok-archiver"
	"github.com/alanbriolat/tiktok-archiver/export"
	"github.com/alanbriolat/tiktok-archiver/generic"
	"github.com/alanbriolat/tiktok-archiver/util"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type Config struct {
	Hosts generic.Set[string]
	// Client fetches both the page and the video. The video address is only valid with the cookies set by the page,
	// so it needs a cookie jar.
	Client    *http.Client
	UserAgent string
}

func NewConfig() Config {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		panic(err)
	}
	return Config{
		Hosts: generic.NewSet(
			"tiktok.com",
			"www.tiktok.com",
			"m.tiktok.com",
			"vm.tiktok.com",
			"vt.tiktok.com",
		),
		Client:    &http.Client{Jar: jar},
		UserAgent: DefaultUserAgent,
	}
}

func (c *Config) Match(s string) (tiktok_archiver.Source, error) {
	parsedURL, err := util.ParseHTTPURL(s)
	if err != nil {
		return nil, err
	}
	if !c.Hosts.Contains(strings.ToLower(parsedURL.Hostname())) {
		return nil, fmt.Errorf("unrecognised hostname")
	}
	return &source{config: c, url: parsedURL.String()}, nil
}

func (c Config) Provider() tiktok_archiver.Provider {
	return tiktok_archiver.Provider{
		Name:  "tiktok",
		Match: c.Match,
	}
}

func (c *Config) newRequest(ctx context.Context, u string, referer string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	return req, nil
}

// videoClient is the Download's client carrying the cookies collected while fetching the page.
func (c *Config) videoClient(client *http.Client) *http.Client {
	if client == nil {
		return c.Client
	}
	withJar := *client
	if withJar.Jar == nil {
		withJar.Jar = c.Client.Jar
	}
	return &withJar
}

type source struct {
	config *Config
	url    string
}

func (s *source) URL() string {
	return s.url
}

func (s *source) String() string {
	return s.URL()
}

func (s *source) Recon(ctx context.Context) (tiktok_archiver.ResolvedSource, error) {
	req, err := s.config.newRequest(ctx, s.url, "")
	if err != nil {
		return nil, err
	}
	resp, err := s.config.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	defer resp.Body.Close()
	if err := tiktok_archiver.CheckResponse(resp); err != nil {
		return nil, err
	}
	document, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	// Short links redirect to the real page, so resolve against wherever we ended up.
	pageURL := resp.Request.URL
	videoURL, err := findVideoURL(document, export.RawIDFromURL(pageURL.String()))
	if err != nil {
		return nil, err
	}
	resolved, err := pageURL.Parse(videoURL)
	if err != nil {
		return nil, fmt.Errorf("invalid video address %q: %w", videoURL, err)
	}
	return &resolvedSource{source: *s, pageURL: pageURL.String(), videoURL: resolved.String()}, nil
}

type resolvedSource struct {
	source
	pageURL  string
	videoURL string
}

func (s *resolvedSource) Download(d tiktok_archiver.Download) error {
	req, err := s.config.newRequest(d.Context(), s.videoURL, s.pageURL)
	if err != nil {
		return err
	}
	resp, err := s.config.videoClient(d.HTTPClient()).Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if err := tiktok_archiver.CheckResponse(resp); err != nil {
		return err
	}
	d.AddExpectedBytes(int(resp.ContentLength))
	return d.SaveStream(resp.Body)
}

func (s *resolvedSource) String() string {
	return fmt.Sprintf("%s [%s]", s.pageURL, s.videoURL)
}

type itemStruct struct {
	ID    string `json:"id"`
	Video struct {
		DownloadAddr string `json:"downloadAddr"`
		PlayAddr     string `json:"playAddr"`
	} `json:"video"`
}

func (i *itemStruct) address() string {
	if i.Video.DownloadAddr != "" {
		return i.Video.DownloadAddr
	}
	return i.Video.PlayAddr
}

type rehydrationData struct {
	DefaultScope struct {
		VideoDetail *struct {
			StatusCode int    `json:"statusCode"`
			StatusMsg  string `json:"statusMsg"`
			ItemInfo   struct {
				ItemStruct itemStruct `json:"itemStruct"`
			} `json:"itemInfo"`
		} `json:"webapp.video-detail"`
	} `json:"__DEFAULT_SCOPE__"`
}

type sigiState struct {
	ItemModule map[string]itemStruct `json:"ItemModule"`
}

// findVideoURL looks for the video address in each place TikTok pages have kept it, newest layout first.
func findVideoURL(document *goquery.Document, id string) (string, error) {
	if text := document.Find("script#__UNIVERSAL_DATA_FOR_REHYDRATION__").First().Text(); text != "" {
		var data rehydrationData
		if err := json.Unmarshal([]byte(text), &data); err == nil && data.DefaultScope.VideoDetail != nil {
			detail := data.DefaultScope.VideoDetail
			if detail.StatusCode != 0 {
				return "", fmt.Errorf("%w: status %d %s", tiktok_archiver.ErrNoVideo, detail.StatusCode, detail.StatusMsg)
			}
			if addr := detail.ItemInfo.ItemStruct.address(); addr != "" {
				return addr, nil
			}
		}
	}

	if text := document.Find("script#SIGI_STATE").First().Text(); text != "" {
		var state sigiState
		if err := json.Unmarshal([]byte(text), &state); err == nil {
			if item, ok := state.ItemModule[id]; ok && item.address() != "" {
				return item.address(), nil
			}
			for _, item := range state.ItemModule {
				if addr := item.address(); addr != "" {
					return addr, nil
				}
			}
		}
	}

	if content, ok := document.Find(`meta[property="og:video"]`).Attr("content"); ok && content != "" {
		return content, nil
	}
	if src, ok := document.Find("video[src]").Attr("src"); ok && src != "" {
		return src, nil
	}
	if src, ok := document.Find("video source[src]").Attr("src"); ok && src != "" {
		return src, nil
	}
	return "", tiktok_archiver.ErrNoVideo
}

func init() {
	tiktok_archiver.DefaultProviderRegistry.MustAdd(NewConfig().Provider())
}
