package domain

import (
	"context"
	"io"
)

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64, contentType string) error
}

// ReportArchiver pushes finished run artifacts to cold storage.
type ReportArchiver interface {
	ArchiveReport(ctx context.Context, report Report) (string, error)
	ArchiveLedger(ctx context.Context, runID string, trades []Trade) (string, error)
}
