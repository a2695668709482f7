package util

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrNoFilename = errors.New("cannot extract valid filename")
	ErrNotHTTPURL = errors.New("not an absolute http(s) URL")
)

func FilenameFromURL(url *url.URL) (string, error) {
	if url == nil {
		return "", ErrNoFilename
	}
	path := strings.Trim(url.Path, "/")
	if path == "" {
		return "", ErrNoFilename
	}
	pathElements := strings.Split(path, "/")
	filename := pathElements[len(pathElements)-1]
	if filename == "" {
		return "", ErrNoFilename
	}
	// Don't allow "filenames" that are just ".", "..", etc.
	if strings.ReplaceAll(filename, ".", "") == "" {
		return "", ErrNoFilename
	}
	return filename, nil
}

// ParseHTTPURL parses s, requiring an http or https scheme and a host.
func ParseHTTPURL(s string) (*url.URL, error) {
	parsedURL, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(parsedURL.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: %q", ErrNotHTTPURL, s)
	}
	if parsedURL.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrNotHTTPURL, s)
	}
	return parsedURL, nil
}
