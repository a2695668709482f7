package tiktok_archiver

import (
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/alanbriolat/tiktok-archiver/export"
)

const DefaultTargetFileTemplate = "{{.Category}}/{{.ID}}.mp4"

var (
	ErrInvalidParallel = errors.New("parallel must be at least 1")
	ErrInvalidRate     = errors.New("requests per second must not be negative")
	ErrNoOutputDir     = errors.New("no output directory")
	ErrEmptyName       = errors.New("target file template gave an empty name")
)

type Config struct {
	// OutputDir is where downloaded videos are written.
	OutputDir string `diff:"output_dir"`
	// TempDir is where partial downloads live, defaulting to OutputDir. It must be on the same filesystem.
	TempDir string `diff:"temp_dir"`
	// Parallel is the number of concurrent downloads.
	Parallel int `diff:"parallel"`
	// RequestsPerSecond limits how often new downloads start; 0 means no limit.
	RequestsPerSecond float64 `diff:"requests_per_second"`
	// TargetFileTemplate names each file relative to OutputDir, using "/" as the separator.
	TargetFileTemplate string `diff:"target_file_template"`
	WriteInfoJSON      bool   `diff:"write_info_json"`
}

var DefaultConfig = Config{
	OutputDir:          ".",
	Parallel:           20,
	TargetFileTemplate: DefaultTargetFileTemplate,
	WriteInfoJSON:      true,
}

func (c Config) Validate() error {
	if c.OutputDir == "" {
		return ErrNoOutputDir
	}
	if c.Parallel < 1 {
		return ErrInvalidParallel
	}
	if c.RequestsPerSecond < 0 {
		return ErrInvalidRate
	}
	namer, err := c.namer()
	if err != nil {
		return err
	}
	// Catch references to unknown fields now rather than once per video.
	sample := export.VideoReference{Category: export.Favourites, URL: "https://www.tiktok.com/@user/video/1", RawID: "1"}
	if _, err := namer.Name(sample); err != nil {
		return fmt.Errorf("invalid target file template: %w", err)
	}
	return nil
}

func (c Config) namer() (*targetNamer, error) {
	tmpl, err := template.New("target_file").Option("missingkey=error").Parse(c.TargetFileTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid target file template: %w", err)
	}
	return &targetNamer{tmpl: tmpl}, nil
}

type targetFileTemplateArgs struct {
	Category string
	ID       string
	URL      string
	// Date is YYYYMMDD, or empty when the export had no usable date.
	Date string
}

type targetNamer struct {
	tmpl *template.Template
}

func (n *targetNamer) Name(ref export.VideoReference) (string, error) {
	args := targetFileTemplateArgs{
		Category: string(ref.Category),
		ID:       ref.RawID,
		URL:      ref.URL,
	}
	if t, ok := ref.Timestamp.Get(); ok {
		args.Date = t.Format("20060102")
	}
	builder := strings.Builder{}
	if err := n.tmpl.Execute(&builder, &args); err != nil {
		return "", err
	}
	if builder.Len() == 0 {
		return "", ErrEmptyName
	}
	return builder.String(), nil
}
