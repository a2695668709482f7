package export

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"strings"
)

var textDocuments = []struct {
	category Category
	path     string
}{
	{Favourites, "Activity/Favorite Videos.txt"},
	{Likes, "Activity/Like List.txt"},
	{Uploads, "Videos/Videos.txt"},
	{History, "Activity/Video Browsing History.txt"},
}

func readText(fsys fs.FS, name string, c Category, a *Archive) error {
	f, err := fsys.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	records, err := parseTextRecords(f)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	a.add(c, name, records)
	return nil
}

// parseTextRecords reads blocks of "Key: value" lines. A blank line, or a key repeating within the current block,
// starts a new record; unknown keys are kept as part of the record but otherwise ignored.
func parseTextRecords(r io.Reader) ([]rawRecord, error) {
	var records []rawRecord
	var current rawRecord
	var hasDate, hasLink, inRecord bool

	flush := func() {
		if inRecord {
			records = append(records, current)
		}
		current = rawRecord{}
		hasDate, hasLink, inRecord = false, false, false
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" {
			flush()
			continue
		}
		key, value, _ := strings.Cut(line, ":")
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "date":
			if hasDate {
				flush()
			}
			current.Date = value
			hasDate = true
		case "video link", "link":
			if hasLink {
				flush()
			}
			current.Link = value
			hasLink = true
		}
		inRecord = true
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return records, nil
}
