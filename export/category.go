package export

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownCategory = errors.New("unknown category")

// Category is one of the video collections found in a data export.
type Category string

const (
	Favourites Category = "favourites"
	Likes      Category = "likes"
	Uploads    Category = "uploads"
	History    Category = "history"
)

// Categories lists every known Category in the order the export presents them.
var Categories = []Category{Favourites, Likes, Uploads, History}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownCategory, s)
}

func (c Category) String() string {
	return string(c)
}
