package tiktok

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"

	"github.com/alanbriolat/tiktok-archiver"
)

const rehydrationPage = `<html><head>
<script id="__UNIVERSAL_DATA_FOR_REHYDRATION__" type="application/json">
{"__DEFAULT_SCOPE__": {"webapp.video-detail": {"statusCode": 0, "itemInfo": {"itemStruct": {
	"id": "111", "video": {"playAddr": "/play/111-play.mp4", "downloadAddr": "/play/111.mp4"}
}}}}}
</script></head><body></body></html>`

const unavailablePage = `<html><head>
<script id="__UNIVERSAL_DATA_FOR_REHYDRATION__" type="application/json">
{"__DEFAULT_SCOPE__": {"webapp.video-detail": {"statusCode": 10204, "statusMsg": "item doesn't exist"}}}
</script></head></html>`

const sigiPage = `<html><head>
<script id="SIGI_STATE" type="application/json">
{"ItemModule": {"555": {"id": "555", "video": {"playAddr": "/play/555.mp4"}}}}
</script></head></html>`

const ogVideoPage = `<html><head><meta property="og:video" content="%s/play/222.mp4"></head></html>`

const videoTagPage = `<html><body><video><source src="/play/666.mp4" type="video/mp4"></video></body></html>`

func newTestServer(t *testing.T) *httptest.Server {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/play/"):
			if _, err := r.Cookie("tt_chain_token"); err != nil || r.Header.Get("Referer") == "" {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			_, _ = fmt.Fprintf(w, "video %s", r.URL.Path)
			return
		case r.URL.Path == "/t/short":
			http.Redirect(w, r, "/@user/video/111", http.StatusFound)
			return
		}
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			http.Error(w, "bad agent", http.StatusBadRequest)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "tt_chain_token", Value: "abc", Path: "/"})
		switch r.URL.Path {
		case "/@user/video/111":
			_, _ = w.Write([]byte(rehydrationPage))
		case "/@user/video/222":
			_, _ = fmt.Fprintf(w, ogVideoPage, server.URL)
		case "/@user/video/333":
			_, _ = w.Write([]byte(unavailablePage))
		case "/@user/video/444":
			_, _ = w.Write([]byte("<html><body>nothing here</body></html>"))
		case "/@user/video/555":
			_, _ = w.Write([]byte(sigiPage))
		case "/@user/video/666":
			_, _ = w.Write([]byte(videoTagPage))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig() Config {
	c := NewConfig()
	c.Hosts.Add("127.0.0.1")
	return c
}

func fetch(t *testing.T, c *Config, u string) (string, error) {
	t.Helper()
	source, err := c.Match(u)
	require_.NoError(t, err)
	resolved, err := source.Recon(context.Background())
	if err != nil {
		return "", err
	}
	buf := &bytes.Buffer{}
	d, err := tiktok_archiver.NewDownloadBuilder().WithTarget(buf, "").Build()
	require_.NoError(t, err)
	if err := resolved.Download(d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func TestMatch(t *testing.T) {
	assert := assert_.New(t)
	c := NewConfig()

	for _, s := range []string{
		"https://www.tiktok.com/@user/video/6947562281536113925",
		"https://WWW.TIKTOK.COM/@user/video/6947562281536113925",
		"https://vm.tiktok.com/ZMabcdef/",
	} {
		_, err := c.Match(s)
		assert.NoError(err, s)
	}
	for _, s := range []string{
		"https://example.com/@user/video/1",
		"tiktok.com/@user/video/1",
		"ftp://www.tiktok.com/@user/video/1",
	} {
		_, err := c.Match(s)
		assert.Error(err, s)
	}
}

func TestDownload(t *testing.T) {
	assert := assert_.New(t)
	server := newTestServer(t)

	cases := map[string]string{
		"/@user/video/111": "video /play/111.mp4",
		"/@user/video/222": "video /play/222.mp4",
		"/@user/video/555": "video /play/555.mp4",
		"/@user/video/666": "video /play/666.mp4",
		"/t/short":         "video /play/111.mp4",
	}
	for path, expected := range cases {
		c := testConfig()
		content, err := fetch(t, &c, server.URL+path)
		if assert.NoError(err, path) {
			assert.Equal(expected, content, path)
		}
	}
}

func TestDownloadErrors(t *testing.T) {
	assert := assert_.New(t)
	server := newTestServer(t)
	c := testConfig()

	_, err := fetch(t, &c, server.URL+"/@user/video/333")
	assert.ErrorIs(err, tiktok_archiver.ErrNoVideo)
	assert.Contains(err.Error(), "10204")

	_, err = fetch(t, &c, server.URL+"/@user/video/444")
	assert.ErrorIs(err, tiktok_archiver.ErrNoVideo)

	_, err = fetch(t, &c, server.URL+"/@user/video/999")
	var statusErr *tiktok_archiver.StatusError
	if assert.True(errors.As(err, &statusErr)) {
		assert.Equal(http.StatusNotFound, statusErr.StatusCode)
	}
}

func TestFindVideoURLPrefersRehydration(t *testing.T) {
	assert := assert_.New(t)
	page := strings.Replace(rehydrationPage, "<body>", `<body><meta property="og:video" content="/other.mp4">`, 1)
	document, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	assert.NoError(err)
	u, err := findVideoURL(document, "111")
	assert.NoError(err)
	assert.Equal("/play/111.mp4", u)
}

type countingTransport struct {
	requests int
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.requests++
	return http.DefaultTransport.RoundTrip(req)
}

func TestDownloadUsesDownloadClient(t *testing.T) {
	assert := assert_.New(t)
	server := newTestServer(t)
	c := testConfig()

	source, err := c.Match(server.URL + "/@user/video/111")
	require_.NoError(t, err)
	resolved, err := source.Recon(context.Background())
	require_.NoError(t, err)

	transport := &countingTransport{}
	buf := &bytes.Buffer{}
	d, err := tiktok_archiver.NewDownloadBuilder().
		WithHTTPClient(&http.Client{Transport: transport}).
		WithTarget(buf, "").
		Build()
	require_.NoError(t, err)
	// The page cookie still has to reach the video request.
	assert.NoError(resolved.Download(d))
	assert.Equal("video /play/111.mp4", buf.String())
	assert.Equal(1, transport.requests)
}
