// Package export reads the videos listed in a TikTok "download your data" export.
//
// An export is either the zip file as downloaded, or a directory it was unpacked into. Both the JSON
// (user_data.json) and the older text (Activity/*.txt) formats are understood.
package export

import (
	"archive/zip"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/alanbriolat/tiktok-archiver/generic"
	"github.com/alanbriolat/tiktok-archiver/util"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// A Problem describes a record that was excluded from the Archive.
type Problem struct {
	Category Category
	Document string
	// Record is the 1-based position of the record within its document.
	Record int
	Reason string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s record %d: %s", p.Category, p.Document, p.Record, p.Reason)
}

// An Archive holds the well-formed VideoReference values of each category, in the order the export lists them.
type Archive struct {
	Path   string
	Format Format

	references map[Category][]VideoReference
	problems   map[Category][]Problem
	sections   generic.Set[Category]
}

func newArchive(path string, format Format) *Archive {
	return &Archive{
		Path:       path,
		Format:     format,
		references: make(map[Category][]VideoReference),
		problems:   make(map[Category][]Problem),
		sections:   generic.NewSet[Category](),
	}
}

// References returns a copy of the references for a category.
func (a *Archive) References(c Category) []VideoReference {
	refs := a.references[c]
	return append(make([]VideoReference, 0, len(refs)), refs...)
}

// Problems returns the records of a category that were excluded as malformed.
func (a *Archive) Problems(c Category) []Problem {
	problems := a.problems[c]
	return append(make([]Problem, 0, len(problems)), problems...)
}

// Has reports whether the export contains a section for the category, even an empty one.
func (a *Archive) Has(c Category) bool {
	return a.sections.Contains(c)
}

// Count returns the number of well-formed references for a category.
func (a *Archive) Count(c Category) int {
	return len(a.references[c])
}

// rawRecord is a record as found in a document, before validation.
type rawRecord struct {
	Date string
	Link string
}

func (a *Archive) add(c Category, document string, records []rawRecord) {
	a.sections.Add(c)
	for i, record := range records {
		link := CleanLink(record.Link)
		problem := Problem{Category: c, Document: document, Record: i + 1}
		if link == "" {
			problem.Reason = "missing video link"
			a.problems[c] = append(a.problems[c], problem)
			continue
		}
		if _, err := util.ParseHTTPURL(link); err != nil {
			problem.Reason = fmt.Sprintf("invalid video link: %v", err)
			a.problems[c] = append(a.problems[c], problem)
			continue
		}
		a.references[c] = append(a.references[c], VideoReference{
			Category:  c,
			URL:       link,
			Timestamp: parseDate(record.Date),
			RawID:     RawIDFromURL(link),
		})
	}
}

// Open reads the export at path, which may be a directory or a zip file.
func Open(path string) (*Archive, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if info.IsDir() {
		return read(os.DirFS(path), path)
	}
	if !info.Mode().IsRegular() {
		return nil, &ParseError{Path: path, Err: errors.New("not a directory or zip file")}
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("not a directory or zip file: %w", err)}
	}
	defer zr.Close()
	return read(zr, path)
}

func read(fsys fs.FS, archivePath string) (*Archive, error) {
	documents, err := findDocuments(fsys)
	if err != nil {
		return nil, &ParseError{Path: archivePath, Err: err}
	}

	if name, ok := documents.find(jsonDocuments...); ok {
		a := newArchive(archivePath, FormatJSON)
		if err := readJSON(fsys, name, a); err != nil {
			return nil, &ParseError{Path: archivePath, Err: err}
		}
		return a, nil
	}

	a := newArchive(archivePath, FormatText)
	found := false
	for _, doc := range textDocuments {
		name, ok := documents.find(doc.path)
		if !ok {
			continue
		}
		found = true
		if err := readText(fsys, name, doc.category, a); err != nil {
			return nil, &ParseError{Path: archivePath, Err: err}
		}
	}
	if !found {
		return nil, &ParseError{Path: archivePath, Err: ErrNotExport}
	}
	return a, nil
}

type documentIndex []string

// find returns the shallowest file whose path ends with any of the given suffixes, so that exports nested inside a
// top-level folder are still found.
func (idx documentIndex) find(suffixes ...string) (string, bool) {
	best := ""
	for _, name := range idx {
		for _, suffix := range suffixes {
			if name != suffix && !strings.HasSuffix(name, "/"+suffix) {
				continue
			}
			if best == "" || strings.Count(name, "/") < strings.Count(best, "/") {
				best = name
			}
		}
	}
	return best, best != ""
}

func findDocuments(fsys fs.FS) (documentIndex, error) {
	var idx documentIndex
	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path.Base(name) == "__MACOSX" {
				return fs.SkipDir
			}
			return nil
		}
		idx = append(idx, name)
		return nil
	})
	return idx, err
}
