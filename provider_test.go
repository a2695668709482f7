package tiktok_archiver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	assert_ "github.com/stretchr/testify/assert"

	"github.com/alanbriolat/tiktok-archiver/export"
)

type testSource struct {
	url     string
	content string
	err     error
}

func (s *testSource) URL() string { return s.url }

func (s *testSource) Recon(ctx context.Context) (ResolvedSource, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s, nil
}

func (s *testSource) Download(d Download) error {
	return d.SaveStream(strings.NewReader(s.content))
}

func prefixMatcher(prefix string) MatchFunc {
	return func(s string) (Source, error) {
		if strings.HasPrefix(s, prefix) {
			return &testSource{url: s, content: prefix}, nil
		}
		return nil, fmt.Errorf("not %s", prefix)
	}
}

func TestProviderRegistryPriority(t *testing.T) {
	assert := assert_.New(t)

	r := ProviderRegistry{}
	r.MustAdd(Provider{Name: "any", Match: prefixMatcher("")}.WithPriority(PriorityLowest))
	r.MustAdd(Provider{Name: "http", Match: prefixMatcher("http")})
	r.MustAdd(Provider{Name: "https", Match: prefixMatcher("https")}.WithPriority(-1))
	assert.Equal([]string{"https", "http", "any"}, r.List())

	m, err := r.Match("https://example.com")
	assert.NoError(err)
	assert.Equal("https", m.ProviderName)

	m, err = r.Match("http://example.com")
	assert.NoError(err)
	assert.Equal("http", m.ProviderName)

	m, err = r.Match("ftp://example.com")
	assert.NoError(err)
	assert.Equal("any", m.ProviderName)
}

func TestProviderRegistryAdd(t *testing.T) {
	assert := assert_.New(t)

	r := ProviderRegistry{}
	assert.ErrorIs(r.Add(Provider{Name: "x"}), ErrInvalidProvider)
	assert.ErrorIs(r.Add(Provider{Match: prefixMatcher("x")}), ErrInvalidProvider)
	assert.NoError(r.Add(Provider{Name: "x", Match: prefixMatcher("x")}))
	assert.ErrorIs(r.Add(Provider{Name: "x", Match: prefixMatcher("y")}), ErrDuplicateProvider)
	assert.Panics(func() { r.MustAdd(Provider{Name: "x", Match: prefixMatcher("y")}) })
}

func TestProviderRegistryNoMatch(t *testing.T) {
	assert := assert_.New(t)

	r := ProviderRegistry{}
	_, err := r.Match("anything")
	assert.ErrorIs(err, ErrNoMatch)

	r.MustAdd(Provider{Name: "a", Match: prefixMatcher("a")})
	r.MustAdd(Provider{Name: "nil", Match: func(string) (Source, error) { return nil, nil }})
	_, err = r.Match("b")
	assert.ErrorIs(err, ErrNoMatch)
	assert.Contains(err.Error(), "[a]")
	assert.Contains(err.Error(), "not a")
	assert.Contains(err.Error(), "[nil]")
}

func TestProviderRegistryFetch(t *testing.T) {
	assert := assert_.New(t)

	reconErr := errors.New("page gone")
	r := ProviderRegistry{}
	r.MustAdd(Provider{Name: "ok", Match: prefixMatcher("ok")})
	r.MustAdd(Provider{Name: "broken", Match: func(s string) (Source, error) {
		if s == "broken" {
			return &testSource{url: s, err: reconErr}, nil
		}
		return nil, errors.New("not broken")
	}})

	buf := &bytes.Buffer{}
	d, err := NewDownloadBuilder().WithTarget(buf, "buf").Build()
	assert.NoError(err)
	assert.NoError(r.Fetch(export.VideoReference{URL: "ok/1"}, d))
	assert.Equal("ok", buf.String())

	err = r.Fetch(export.VideoReference{URL: "broken"}, d)
	assert.ErrorIs(err, reconErr)
	assert.Contains(err.Error(), "[broken]")

	err = r.Fetch(export.VideoReference{URL: "other"}, d)
	assert.ErrorIs(err, ErrNoMatch)
}
