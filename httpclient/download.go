package httpclient

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	apperrors "github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/resilience"
	"github.com/kbukum/restkit/storage"
	"github.com/kbukum/restkit/transfer"
)

// Download streams the response body of req into w. Downloads are never
// retried and, when MaxConcurrentTransfers is set, wait for a free slot.
func (a *Adapter) Download(ctx context.Context, req Request, w io.Writer, opts DownloadOptions) (transfer.Progress, error) {
	run := func() (transfer.Progress, error) {
		sr, err := a.DoStream(ctx, req)
		if err != nil {
			return transfer.Progress{}, err
		}
		defer func() { _ = sr.Close() }()
		return sr.SaveTo(ctx, w, opts)
	}
	if a.transfers == nil {
		return run()
	}
	p, err := resilience.ExecuteWithResult(a.transfers, ctx, run)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		err = apperrors.Cancelled(0, ctx.Err())
	}
	return p, err
}

// SaveFile downloads into a temporary file next to path and renames it into
// place on success. A failed or cancelled download leaves path untouched.
func (a *Adapter) SaveFile(ctx context.Context, req Request, path string, opts DownloadOptions) (transfer.Progress, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return transfer.Progress{}, apperrors.TransferFailed(0, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		return transfer.Progress{}, apperrors.TransferFailed(0, err)
	}

	p, err := a.Download(ctx, req, tmp, opts)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = apperrors.TransferFailed(p.TransferredBytes, closeErr)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return p, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return p, apperrors.TransferFailed(p.TransferredBytes, err)
	}
	return p, nil
}

// DownloadTo streams the response body of req into store at path.
func (a *Adapter) DownloadTo(ctx context.Context, req Request, store storage.Storage, path string, opts DownloadOptions) (transfer.Progress, error) {
	pr, pw := io.Pipe()
	uploaded := make(chan error, 1)
	go func() {
		err := store.Upload(ctx, path, pr)
		_ = pr.CloseWithError(err)
		uploaded <- err
	}()

	p, err := a.Download(ctx, req, pw, opts)
	_ = pw.CloseWithError(err)
	uploadErr := <-uploaded
	if err != nil {
		return p, err
	}
	if uploadErr != nil {
		return p, apperrors.TransferFailed(p.TransferredBytes, uploadErr)
	}
	return p, nil
}
