package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mbrennan/weatheredge/internal/backtest"
	"github.com/mbrennan/weatheredge/internal/domain"
)

// ArchiveImpl implements domain.ReportArchiver by serializing finished run
// artifacts and uploading them to S3.
//
// Objects are partitioned by run date so a bucket listing stays navigable:
//
//	reports/2026-08/run_<id>.json
//	ledgers/2026-08/run_<id>.csv
// multipartThreshold is the payload size at which ledger uploads switch to
// multipart.
const multipartThreshold = 2 * minPartSize

type ArchiveImpl struct {
	writer domain.BlobWriter
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter) *ArchiveImpl {
	return &ArchiveImpl{writer: writer}
}

// ArchiveReport uploads a run report as pretty-printed JSON and returns the
// object key.
func (a *ArchiveImpl) ArchiveReport(ctx context.Context, report domain.Report) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return "", fmt.Errorf("s3blob: marshal report %s: %w", report.BacktestInfo.RunID, err)
	}

	path := archivePath("reports", report.BacktestInfo.RunID, report.BacktestInfo.Timestamp, "json")
	if err := a.writer.Put(ctx, path, &buf, "application/json"); err != nil {
		return "", fmt.Errorf("s3blob: archive report %s: %w", report.BacktestInfo.RunID, err)
	}
	return path, nil
}

// ArchiveLedger uploads a run's trade ledger as CSV and returns the object
// key. An empty ledger still produces an object with the header row, so a
// run's artifact set is always complete.
func (a *ArchiveImpl) ArchiveLedger(ctx context.Context, runID string, trades []domain.Trade) (string, error) {
	var buf bytes.Buffer
	if err := backtest.WriteLedgerCSV(&buf, trades); err != nil {
		return "", fmt.Errorf("s3blob: archive ledger %s: %w", runID, err)
	}

	path := archivePath("ledgers", runID, time.Now().UTC(), "csv")
	if int64(buf.Len()) >= multipartThreshold {
		if err := a.writer.PutMultipart(ctx, path, &buf, minPartSize, "text/csv"); err != nil {
			return "", fmt.Errorf("s3blob: archive ledger %s: %w", runID, err)
		}
		return path, nil
	}
	if err := a.writer.Put(ctx, path, &buf, "text/csv"); err != nil {
		return "", fmt.Errorf("s3blob: archive ledger %s: %w", runID, err)
	}
	return path, nil
}

// archivePath builds the S3 key for a run artifact, partitioned by the
// year-month of the run.
func archivePath(kind, runID string, at time.Time, ext string) string {
	return fmt.Sprintf("%s/%s/run_%s.%s", kind, at.UTC().Format("2006-01"), runID, ext)
}

// Compile-time interface check.
var _ domain.ReportArchiver = (*ArchiveImpl)(nil)
