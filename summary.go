package tiktok_archiver

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/alanbriolat/tiktok-archiver/export"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// DownloadResult is the outcome for one reference.
type DownloadResult struct {
	Reference export.VideoReference
	Status    Status
	// Err is set only for StatusFailed, and is a *FetchError or *WriteError.
	Err error
	// OutputPath is the file that was written, or the existing file for StatusSkipped.
	OutputPath string
	Bytes      int64
}

// Progress is a running tally of a Downloader.Run.
type Progress struct {
	Done      int
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
}

func (p *Progress) add(r DownloadResult) {
	p.Done++
	switch r.Status {
	case StatusSuccess:
		p.Succeeded++
	case StatusFailed:
		p.Failed++
	case StatusSkipped:
		p.Skipped++
	}
}

// Summary holds one DownloadResult per reference given to Downloader.Run, in the same order.
type Summary struct {
	RunID   uuid.UUID
	Results []DownloadResult
}

func (s *Summary) count(status Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

func (s *Summary) Succeeded() int { return s.count(StatusSuccess) }
func (s *Summary) Failed() int    { return s.count(StatusFailed) }
func (s *Summary) Skipped() int   { return s.count(StatusSkipped) }

func (s *Summary) Failures() []DownloadResult {
	var failures []DownloadResult
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			failures = append(failures, r)
		}
	}
	return failures
}

// Err combines every item failure, or returns nil if there were none.
func (s *Summary) Err() error {
	var result *multierror.Error
	for _, r := range s.Failures() {
		result = multierror.Append(result, fmt.Errorf("%s: %w", r.Reference, r.Err))
	}
	return result.ErrorOrNil()
}

// Report writes a human-readable summary.
func (s *Summary) Report(w io.Writer) error {
	b := strings.Builder{}
	fmt.Fprintf(&b, "Run %s: %d videos, %d downloaded, %d already present, %d failed\n",
		s.RunID, len(s.Results), s.Succeeded(), s.Skipped(), s.Failed())
	for _, r := range s.Failures() {
		fmt.Fprintf(&b, "  FAILED %s: %s\n", r.Reference, firstLine(r.Err.Error()))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
