package export

import (
	"crypto/sha1"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"

	"github.com/alanbriolat/tiktok-archiver/generic"
)

// Key identifies a VideoReference; two references with the same Key are duplicates.
type Key struct {
	Category Category
	URL      string
}

// A VideoReference is one video the user interacted with, as recorded in the export.
type VideoReference struct {
	Category  Category
	URL       string
	Timestamp generic.Option[time.Time]
	// RawID is the platform video ID when the URL contains one, otherwise a hash of the URL.
	RawID string
}

func (r VideoReference) Key() Key {
	return Key{Category: r.Category, URL: r.URL}
}

func (r VideoReference) String() string {
	return fmt.Sprintf("%s[%s]", r.Category, r.URL)
}

var videoIDPattern = regexp.MustCompile(`/(?:video|v)/(\d+)`)

// RawIDFromURL extracts the numeric video ID from a TikTok style URL, falling back to the hex SHA-1 of the URL.
func RawIDFromURL(link string) string {
	if m := videoIDPattern.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return fmt.Sprintf("%x", sha1.Sum([]byte(link)))
}

// CleanLink removes all whitespace from a link; exports sometimes wrap or pad them.
func CleanLink(link string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, link)
}

// parseDate reads an export date, which is UTC. Anything unparseable is treated as absent.
func parseDate(s string) generic.Option[time.Time] {
	s = strings.TrimSpace(s)
	if s == "" {
		return generic.None[time.Time]()
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return generic.None[time.Time]()
	}
	return generic.Some(t.UTC())
}
