package tiktok_archiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// A Download is where a ResolvedSource writes one video. It tracks progress and keeps failures to write the output
// distinguishable (as *WriteError) from failures to read the input.
type Download interface {
	// AddDownloadedBytes increases how many bytes have been successfully downloaded so far.
	AddDownloadedBytes(n int)

	// AddExpectedBytes increases how many bytes are expected to be downloaded.
	AddExpectedBytes(n int)

	// Context is the cancellable context of this Download.
	Context() context.Context

	// HTTPClient is the client used by SaveURL and SaveHTTPRequest.
	HTTPClient() *http.Client

	// Progress returns the downloaded and expected bytes of the download.
	Progress() (int, int)

	// SaveHTTPRequest will execute the http.Request with Context() and then download the resulting stream like
	// SaveStream. Non-2xx responses are returned as *StatusError.
	SaveHTTPRequest(req *http.Request) error

	// SaveStream will download the stream, calling AddDownloadedBytes as necessary.
	SaveStream(stream io.Reader) error

	// SaveURL will make a GET request to the URL and then download the resulting stream like SaveStream.
	SaveURL(url string) error

	// Write will ignore the data but will send the byte count to AddDownloadedBytes. Allows progress tracking using
	// io.MultiWriter (but ensure the Download is the last writer to avoid counting failed writes).
	Write(p []byte) (n int, err error)
}

type httpDownload struct {
	ctx              context.Context
	client           *http.Client
	progressCallback func(int, int)
	target           io.Writer
	targetPath       string
	expectedBytes    int
	downloadedBytes  int
}

func (d *httpDownload) AddDownloadedBytes(n int) {
	d.downloadedBytes += n
	if d.progressCallback != nil {
		d.progressCallback(d.Progress())
	}
}

func (d *httpDownload) AddExpectedBytes(n int) {
	if n <= 0 {
		return
	}
	d.expectedBytes += n
	if d.progressCallback != nil {
		d.progressCallback(d.Progress())
	}
}

func (d *httpDownload) Context() context.Context {
	return d.ctx
}

func (d *httpDownload) HTTPClient() *http.Client {
	return d.client
}

func (d *httpDownload) Progress() (int, int) {
	return d.downloadedBytes, d.expectedBytes
}

func (d *httpDownload) SaveHTTPRequest(req *http.Request) error {
	if req == nil {
		return fmt.Errorf("nil request")
	}
	req = req.WithContext(d.Context())
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if err := CheckResponse(resp); err != nil {
		return err
	}
	d.AddExpectedBytes(int(resp.ContentLength))
	return d.SaveStream(resp.Body)
}

func (d *httpDownload) SaveStream(stream io.Reader) error {
	target := &errorTrackingWriter{w: d.target}
	_, err := io.Copy(io.MultiWriter(target, d), &readerContext{ctx: d.ctx, r: stream})
	if target.err != nil {
		return &WriteError{Path: d.targetPath, Err: target.err}
	}
	if err != nil {
		return fmt.Errorf("failed to save stream: %w", err)
	}
	return nil
}

func (d *httpDownload) SaveURL(url string) error {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return d.SaveHTTPRequest(req)
}

func (d *httpDownload) Write(p []byte) (n int, err error) {
	n = len(p)
	d.AddDownloadedBytes(n)
	return n, nil
}

// errorTrackingWriter remembers the first write error, since io.Copy doesn't say which side failed.
type errorTrackingWriter struct {
	w   io.Writer
	err error
}

func (w *errorTrackingWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	if err != nil && w.err == nil {
		w.err = err
	}
	return n, err
}

var ErrNoTarget = errors.New("download has no target writer")

type DownloadBuilder interface {
	Build() (Download, error)
	WithContext(ctx context.Context) DownloadBuilder
	WithHTTPClient(client *http.Client) DownloadBuilder
	WithProgressCallback(f func(downloaded int, expected int)) DownloadBuilder
	// WithTarget sets where the video bytes go; path is only used to describe write errors.
	WithTarget(w io.Writer, path string) DownloadBuilder
}

type downloadBuilder struct {
	ctx              context.Context
	client           *http.Client
	progressCallback func(int, int)
	target           io.Writer
	targetPath       string
}

func NewDownloadBuilder() DownloadBuilder {
	return &downloadBuilder{
		ctx:    context.Background(),
		client: http.DefaultClient,
	}
}

func (b *downloadBuilder) Build() (Download, error) {
	if b.target == nil {
		return nil, ErrNoTarget
	}
	d := httpDownload{
		ctx:              b.ctx,
		client:           b.client,
		progressCallback: b.progressCallback,
		target:           b.target,
		targetPath:       b.targetPath,
	}
	return &d, nil
}

func (b *downloadBuilder) WithContext(ctx context.Context) DownloadBuilder {
	b.ctx = ctx
	return b
}

func (b *downloadBuilder) WithHTTPClient(client *http.Client) DownloadBuilder {
	if client != nil {
		b.client = client
	}
	return b
}

func (b *downloadBuilder) WithProgressCallback(f func(int, int)) DownloadBuilder {
	b.progressCallback = f
	return b
}

func (b *downloadBuilder) WithTarget(w io.Writer, path string) DownloadBuilder {
	b.target = w
	b.targetPath = path
	return b
}
