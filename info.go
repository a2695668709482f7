package tiktok_archiver

import (
	"encoding/json"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanbriolat/tiktok-archiver/download"
	"github.com/alanbriolat/tiktok-archiver/export"
	"github.com/alanbriolat/tiktok-archiver/generic"
)

// Info is the metadata written next to each downloaded video.
type Info struct {
	ID        string                    `json:"id"`
	Category  export.Category           `json:"category"`
	URL       string                    `json:"webpage_url"`
	Timestamp generic.Option[time.Time] `json:"timestamp"`
	Filename  string                    `json:"filename"`
	Bytes     int64                     `json:"filesize"`
	RunID     uuid.UUID                 `json:"run_id"`
}

func newInfo(runID uuid.UUID, r DownloadResult) Info {
	return Info{
		ID:        r.Reference.RawID,
		Category:  r.Reference.Category,
		URL:       r.Reference.URL,
		Timestamp: r.Reference.Timestamp,
		Filename:  path.Base(strings.ReplaceAll(r.OutputPath, "\\", "/")),
		Bytes:     r.Bytes,
		RunID:     runID,
	}
}

// InfoName gives the sidecar name for a target name: "likes/123.mp4" becomes "likes/123.info.json".
func InfoName(name string) string {
	return strings.TrimSuffix(name, path.Ext(name)) + ".info.json"
}

func writeInfo(state *download.DownloadState, name string, info Info) error {
	f, err := state.CreateTemp(".info-*")
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(info); err != nil {
		state.Discard(f)
		return err
	}
	_, err = state.Commit(f, InfoName(name))
	return err
}
