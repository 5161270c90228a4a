// Package remote exports a table as a CSV snapshot to a remote file store.
//
// The store itself is behind Uploader; the Google Drive implementation lives
// in remote/drive. Credentials come from a CredentialProvider so the export
// can run against a fake store in tests.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"musicetl/internal/logging"
	"musicetl/internal/metrics"
	"musicetl/internal/table"
)

// CSVMimeType is the content type of uploaded snapshots.
const CSVMimeType = "text/csv"

// Uploader creates or overwrites the file called title inside folderID and
// returns its remote id.
type Uploader interface {
	Upsert(ctx context.Context, folderID, title, mimeType string, content io.Reader) (string, error)
}

// RemoteSinkError reports a failed export. It is never recovered from.
type RemoteSinkError struct {
	Title  string
	Folder string
	Err    error
}

func (e *RemoteSinkError) Error() string {
	return fmt.Sprintf("remote export %q to folder %s: %v", e.Title, e.Folder, e.Err)
}

func (e *RemoteSinkError) Unwrap() error { return e.Err }

// Exporter serializes tables and hands them to an Uploader.
type Exporter struct {
	Uploader Uploader
	// Job labels the bytes metric. Defaults to "musicetl".
	Job string
	Log *zap.Logger
}

// Export writes t as CSV in memory and upserts it. The whole table is
// serialized before the upload starts.
func (e *Exporter) Export(ctx context.Context, t *table.Table, title, folderID string) error {
	wrap := func(err error) error {
		return &RemoteSinkError{Title: title, Folder: folderID, Err: err}
	}
	if e.Uploader == nil {
		return wrap(fmt.Errorf("no uploader configured"))
	}
	if title == "" {
		return wrap(fmt.Errorf("title must not be empty"))
	}
	log := logging.OrNop(e.Log)
	job := e.Job
	if job == "" {
		job = "musicetl"
	}

	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return wrap(fmt.Errorf("encode csv: %w", err))
	}
	size := int64(buf.Len())

	start := time.Now()
	id, err := e.Uploader.Upsert(ctx, folderID, title, CSVMimeType, &buf)
	if err != nil {
		return wrap(err)
	}
	metrics.RecordBytes(job, "remote", size)
	log.Info("remote: snapshot uploaded",
		zap.String("title", title),
		zap.String("folder", folderID),
		zap.String("file_id", id),
		zap.Int("rows", t.Len()),
		zap.String("size", humanize.Bytes(uint64(size))),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Export is Exporter{Uploader: up}.Export.
func Export(ctx context.Context, up Uploader, t *table.Table, title, folderID string) error {
	return (&Exporter{Uploader: up}).Export(ctx, t, title, folderID)
}
