// Package drive uploads CSV snapshots to a Google Drive folder.
package drive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"musicetl/internal/logging"
	"musicetl/internal/remote"
)

// Uploader implements remote.Uploader on the Drive v3 API.
type Uploader struct {
	svc *drive.Service
	log *zap.Logger
}

// New builds an Uploader authenticated by creds. Extra options are appended
// after the token source, so tests can point the client at a local endpoint.
func New(ctx context.Context, creds remote.CredentialProvider, log *zap.Logger, opts ...option.ClientOption) (*Uploader, error) {
	ts, err := creds.TokenSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("drive: credentials: %w", err)
	}
	svc, err := drive.NewService(ctx, append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("drive: new service: %w", err)
	}
	return &Uploader{svc: svc, log: logging.OrNop(log)}, nil
}

// Upsert overwrites the content of the first non-trashed file called title in
// folderID, or creates it when there is none.
func (u *Uploader) Upsert(ctx context.Context, folderID, title, mimeType string, content io.Reader) (string, error) {
	q := fmt.Sprintf("name = '%s' and trashed = false", escape(title))
	if folderID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escape(folderID))
	}
	list, err := u.svc.Files.List().
		Q(q).
		Fields("files(id, name)").
		PageSize(1).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("drive: list %q: %w", title, err)
	}

	media := googleapi.ContentType(mimeType)
	if len(list.Files) > 0 {
		id := list.Files[0].Id
		f, err := u.svc.Files.Update(id, &drive.File{MimeType: mimeType}).
			Media(content, media).
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("drive: update %s: %w", id, err)
		}
		u.log.Debug("drive: file overwritten", zap.String("id", f.Id), zap.String("title", title))
		return f.Id, nil
	}

	meta := &drive.File{Name: title, MimeType: mimeType}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}
	f, err := u.svc.Files.Create(meta).
		Media(content, media).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("drive: create %q: %w", title, err)
	}
	u.log.Debug("drive: file created", zap.String("id", f.Id), zap.String("title", title))
	return f.Id, nil
}

// escape quotes a value for the Drive query language.
func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
