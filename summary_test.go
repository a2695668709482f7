package tiktok_archiver

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	assert_ "github.com/stretchr/testify/assert"

	"github.com/alanbriolat/tiktok-archiver/export"
)

func TestSummary(t *testing.T) {
	assert := assert_.New(t)

	empty := Summary{RunID: uuid.New()}
	assert.NoError(empty.Err())
	assert.Empty(empty.Failures())

	broken := errors.New("broken\nwith details")
	s := Summary{
		RunID: uuid.New(),
		Results: []DownloadResult{
			{Reference: ref(export.Likes, "1"), Status: StatusSuccess},
			{Reference: ref(export.Likes, "2"), Status: StatusSkipped},
			{Reference: ref(export.Likes, "3"), Status: StatusFailed, Err: &FetchError{URL: "u", Err: broken}},
			{Reference: ref(export.Likes, "4"), Status: StatusSuccess},
		},
	}
	assert.Equal(2, s.Succeeded())
	assert.Equal(1, s.Skipped())
	assert.Equal(1, s.Failed())
	assert.Len(s.Failures(), 1)
	assert.ErrorIs(s.Err(), broken)

	b := strings.Builder{}
	assert.NoError(s.Report(&b))
	report := b.String()
	assert.Contains(report, s.RunID.String())
	assert.Contains(report, "4 videos, 2 downloaded, 1 already present, 1 failed")
	assert.Contains(report, "FAILED likes[https://www.tiktokv.com/share/video/3/]: fetch u: broken\n")
	assert.NotContains(report, "with details")
}
