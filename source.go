package tiktok_archiver

import (
	"context"
)

type Source interface {
	// URL should return the canonical URL for this source. It is assumed that the Provider.Match that created the
	// Source would successfully match this canonical URL.
	URL() string
	// Recon should fetch whatever is needed to locate the actual video, e.g. the page that embeds it.
	Recon(context.Context) (ResolvedSource, error)
}

type ResolvedSource interface {
	// Download should fetch the actual video into the Download.
	Download(Download) error
}
