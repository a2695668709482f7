package tiktok_archiver

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrEmptyResponse = errors.New("empty response")
	ErrNoVideo       = errors.New("no downloadable video found")
)

// FetchError is a per-item failure to retrieve a video: transport errors, bad responses, unmatched URLs.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// WriteError is a filesystem failure while storing a video.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("write: %v", e.Err)
	}
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d %s from %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// CheckResponse returns a StatusError unless resp has a 2xx status.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	u := ""
	if resp.Request != nil && resp.Request.URL != nil {
		u = resp.Request.URL.String()
	}
	return &StatusError{URL: u, StatusCode: resp.StatusCode}
}
