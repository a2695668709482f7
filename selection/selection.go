// Package selection picks which references from an export get downloaded.
package selection

import (
	"errors"
	"fmt"

	"github.com/alanbriolat/tiktok-archiver/export"
	"github.com/alanbriolat/tiktok-archiver/generic"
)

var (
	ErrNoCategories    = errors.New("no categories selected")
	ErrUnknownCategory = export.ErrUnknownCategory
)

// ConfigError is returned for an invalid category selection, before any work is done.
type ConfigError struct {
	// Category is the offending value, empty if the selection itself was empty.
	Category string
	Err      error
}

func (e *ConfigError) Error() string {
	if e.Category == "" {
		return fmt.Sprintf("invalid selection: %v", e.Err)
	}
	return fmt.Sprintf("invalid selection %q: %v", e.Category, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ParseCategories validates category names, keeping the first occurrence of each.
func ParseCategories(names []string) ([]export.Category, error) {
	if len(names) == 0 {
		return nil, &ConfigError{Err: ErrNoCategories}
	}
	seen := generic.NewSet[export.Category]()
	categories := make([]export.Category, 0, len(names))
	for _, name := range names {
		c, err := export.ParseCategory(name)
		if err != nil {
			return nil, &ConfigError{Category: name, Err: ErrUnknownCategory}
		}
		if seen.Add(c) {
			categories = append(categories, c)
		}
	}
	return categories, nil
}

// Select returns the references of the named categories, in the order the categories were named and then in archive
// order. Later duplicates of the same (category, URL) are dropped. A category the export has no section for is an
// *export.ParseError.
func Select(a *export.Archive, names []string) ([]export.VideoReference, error) {
	categories, err := ParseCategories(names)
	if err != nil {
		return nil, err
	}
	for _, c := range categories {
		if !a.Has(c) {
			return nil, &export.ParseError{Path: a.Path, Err: fmt.Errorf("%w %s", export.ErrMissingCategory, c)}
		}
	}
	return Filter(a, categories), nil
}

// Filter is like Select for categories that are already validated.
func Filter(a *export.Archive, categories []export.Category) []export.VideoReference {
	seen := generic.NewSet[export.Key]()
	var selected []export.VideoReference
	for _, c := range categories {
		for _, ref := range a.References(c) {
			if seen.Add(ref.Key()) {
				selected = append(selected, ref)
			}
		}
	}
	return selected
}
