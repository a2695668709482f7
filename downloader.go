package tiktok_archiver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/alanbriolat/tiktok-archiver/download"
	"github.com/alanbriolat/tiktok-archiver/export"
	"github.com/alanbriolat/tiktok-archiver/generic"
	"github.com/alanbriolat/tiktok-archiver/internal/sync_"
)

// A Fetcher retrieves the video for a reference, writing it into the Download.
type Fetcher interface {
	Fetch(ref export.VideoReference, d Download) error
}

type FetcherFunc func(ref export.VideoReference, d Download) error

func (f FetcherFunc) Fetch(ref export.VideoReference, d Download) error {
	return f(ref, d)
}

type DownloaderOption func(*Downloader)

// WithResultCallback sets a function called once per reference as it finishes, together with the tally so far. Calls
// are serialised.
func WithResultCallback(f func(DownloadResult, Progress)) DownloaderOption {
	return func(d *Downloader) {
		d.onResult = f
	}
}

// WithHTTPClient sets the client handed to each Download. Providers that scrape a page during Recon fetch the page with
// their own client and the video with this one.
func WithHTTPClient(client *http.Client) DownloaderOption {
	return func(d *Downloader) {
		d.client = client
	}
}

// A Downloader stores the video of every reference it is given in the output directory. It is safe to Run more than
// once; files already present are skipped.
type Downloader struct {
	config   Config
	fetcher  Fetcher
	namer    *targetNamer
	limiter  *rate.Limiter
	client   *http.Client
	onResult func(DownloadResult, Progress)
}

func NewDownloader(config Config, fetcher Fetcher, opts ...DownloaderOption) (*Downloader, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	namer, err := config.namer()
	if err != nil {
		return nil, err
	}
	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	d := &Downloader{
		config:  config,
		fetcher: fetcher,
		namer:   namer,
		limiter: rate.NewLimiter(limit, 1),
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Run downloads refs, returning one result per reference in the same order. The only error is failing to prepare the
// output directory, in which case nothing is attempted.
func (d *Downloader) Run(ctx context.Context, refs []export.VideoReference) (*Summary, error) {
	summary := &Summary{
		RunID:   uuid.New(),
		Results: make([]DownloadResult, len(refs)),
	}
	opts := []download.DownloadConfigOption{download.WithTargetDir(d.config.OutputDir)}
	if d.config.TempDir != "" {
		opts = append(opts, download.WithTempDir(d.config.TempDir))
	}
	err := download.WithDownloadState(func(state *download.DownloadState) error {
		d.runAll(ctx, state, refs, summary)
		return nil
	}, opts...)
	if err != nil {
		return nil, &WriteError{Path: d.config.OutputDir, Err: err}
	}
	return summary, nil
}

func (d *Downloader) runAll(ctx context.Context, state *download.DownloadState, refs []export.VideoReference, summary *Summary) {
	logger := Logger(ctx).Sugar().Named("downloader").With("run", summary.RunID.String())
	logger.Infof("Downloading %d videos into %s", len(refs), state.TargetDir())

	// Different URLs for the same video can name the same target; only the first of them is fetched.
	claimed := generic.NewSet[string]()
	duplicate := make([]bool, len(refs))
	for i, ref := range refs {
		if name, err := d.namer.Name(ref); err == nil && !claimed.Add(name) {
			duplicate[i] = true
		}
	}

	progress := sync_.NewMutexed(Progress{Total: len(refs)})
	workers := d.config.Parallel
	if workers > len(refs) {
		workers = len(refs)
	}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				result := d.downloadOne(ctx, state, summary.RunID, refs[i], duplicate[i])
				summary.Results[i] = result
				_ = progress.Locked(func(p *Progress) error {
					p.add(result)
					switch result.Status {
					case StatusSuccess:
						logger.Infof("Downloading (%d/%d) %s DONE", p.Done, p.Total, result.Reference.URL)
					case StatusSkipped:
						logger.Debugf("Downloading (%d/%d) %s SKIPPED (%s exists)", p.Done, p.Total, result.Reference.URL, result.OutputPath)
					case StatusFailed:
						logger.Warnf("Downloading (%d/%d) %s FAILED: %s", p.Done, p.Total, result.Reference.URL, firstLine(result.Err.Error()))
					}
					if d.onResult != nil {
						d.onResult(result, *p)
					}
					return nil
				})
			}
		}()
	}
	for i := range refs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

// downloadOne handles a single reference. A duplicate shares its target with an earlier reference and is skipped.
func (d *Downloader) downloadOne(ctx context.Context, state *download.DownloadState, runID uuid.UUID, ref export.VideoReference, duplicate bool) DownloadResult {
	result := DownloadResult{Reference: ref, Status: StatusFailed}

	name, err := d.namer.Name(ref)
	if err != nil {
		result.Err = &WriteError{Err: fmt.Errorf("failed to name target: %w", err)}
		return result
	}
	target, err := state.TargetPath(name)
	if err != nil {
		result.Err = &WriteError{Path: name, Err: err}
		return result
	}
	result.OutputPath = target

	if exists, err := state.Exists(name); err != nil {
		result.Err = &WriteError{Path: target, Err: err}
		return result
	} else if exists || duplicate {
		result.Status = StatusSkipped
		return result
	}

	if err := ctx.Err(); err != nil {
		result.Err = &FetchError{URL: ref.URL, Err: err}
		return result
	}
	if err := d.limiter.Wait(ctx); err != nil {
		result.Err = &FetchError{URL: ref.URL, Err: err}
		return result
	}

	f, err := state.CreateTemp(".download-*")
	if err != nil {
		result.Err = &WriteError{Path: target, Err: err}
		return result
	}
	dl, err := NewDownloadBuilder().
		WithContext(ctx).
		WithHTTPClient(d.client).
		WithTarget(f, target).
		Build()
	if err != nil {
		state.Discard(f)
		result.Err = &WriteError{Path: target, Err: err}
		return result
	}

	err = d.fetcher.Fetch(ref, dl)
	downloaded, _ := dl.Progress()
	if err == nil && downloaded == 0 {
		err = ErrEmptyResponse
	}
	if err != nil {
		state.Discard(f)
		var writeErr *WriteError
		if errors.As(err, &writeErr) {
			result.Err = writeErr
		} else {
			result.Err = &FetchError{URL: ref.URL, Err: err}
		}
		return result
	}

	if _, err := state.Commit(f, name); err != nil {
		result.Err = &WriteError{Path: target, Err: err}
		return result
	}
	result.Status = StatusSuccess
	result.Bytes = int64(downloaded)

	if d.config.WriteInfoJSON {
		if err := writeInfo(state, name, newInfo(runID, result)); err != nil {
			Logger(ctx).Sugar().Named("downloader").Warnf("failed to write info for %s: %v", ref, err)
		}
	}
	return result
}
