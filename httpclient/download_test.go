package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/resilience"
	"github.com/kbukum/restkit/storage/local"
	"github.com/kbukum/restkit/transfer"
)

var payload = bytes.Repeat([]byte("0123456789abcdef"), 4096) // 64 KiB

func downloadRoutes(r *gin.Engine) {
	r.GET("/file", func(c *gin.Context) {
		c.Header("Content-Length", strconv.Itoa(len(payload)))
		c.Data(http.StatusOK, "application/octet-stream", payload)
	})
	r.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such file"})
	})
	r.GET("/truncated", func(c *gin.Context) {
		c.Header("Content-Length", strconv.Itoa(len(payload)))
		c.Status(http.StatusOK)
		_, _ = c.Writer.Write(payload[:1024])
		c.Writer.Flush()
		// Drop the connection so the client sees a short body.
		panic(http.ErrAbortHandler)
	})
	r.GET("/slow", func(c *gin.Context) {
		c.Status(http.StatusOK)
		for i := 0; i < 100; i++ {
			if _, err := c.Writer.Write(payload[:1024]); err != nil {
				return
			}
			c.Writer.Flush()
			select {
			case <-c.Request.Context().Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
	})
}

func TestAdapter_Download_Progress(t *testing.T) {
	a := newServer(t, Config{ChunkSize: 16 * 1024}, downloadRoutes)

	var (
		mu     sync.Mutex
		events []transfer.Progress
	)
	var buf bytes.Buffer
	p, err := a.Download(t.Context(), Request{Method: http.MethodGet, Path: "/file"}, &buf, DownloadOptions{
		OnProgress: func(p transfer.Progress) {
			mu.Lock()
			events = append(events, p)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), payload) {
		t.Fatalf("downloaded %d bytes, want %d", buf.Len(), len(payload))
	}
	if !p.IsCompleted || p.TransferredBytes != int64(len(payload)) {
		t.Errorf("final progress = %+v", p)
	}
	if total, ok := p.Total(); !ok || total != int64(len(payload)) {
		t.Errorf("total = %d, %v", total, ok)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) < 2 {
		t.Fatalf("expected per-chunk events, got %d", len(events))
	}
	var last int64
	for i, ev := range events {
		if ev.TransferredBytes < last {
			t.Errorf("event %d went backwards: %d < %d", i, ev.TransferredBytes, last)
		}
		last = ev.TransferredBytes
		if ev.IsCompleted != (i == len(events)-1) {
			t.Errorf("event %d IsCompleted = %v", i, ev.IsCompleted)
		}
	}
	if events[0].TotalBytes == nil || *events[0].TotalBytes != int64(len(payload)) {
		t.Error("total should be seeded from Content-Length")
	}
}

func TestAdapter_Download_StatusError(t *testing.T) {
	a := newServer(t, Config{}, downloadRoutes)

	var buf bytes.Buffer
	_, err := a.Download(t.Context(), Request{Method: http.MethodGet, Path: "/missing"}, &buf, DownloadOptions{})
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if buf.Len() != 0 {
		t.Error("error body must not be written to the destination")
	}
}

func TestAdapter_Download_Truncated(t *testing.T) {
	a := newServer(t, Config{}, downloadRoutes)

	_, err := a.Download(t.Context(), Request{Method: http.MethodGet, Path: "/truncated"}, io.Discard, DownloadOptions{})
	if !apperrors.IsCode(err, apperrors.ErrCodeTransferFailed) {
		t.Fatalf("expected TRANSFER_FAILED, got %v", err)
	}
	if n, ok := apperrors.TransferredBytes(err); !ok || n != 1024 {
		t.Errorf("transferred = %d, %v", n, ok)
	}
	if !IsRetryable(err) {
		t.Error("a broken transfer should be retryable")
	}
}

func TestAdapter_Download_Cancelled(t *testing.T) {
	a := newServer(t, Config{}, downloadRoutes)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	p, err := a.Download(ctx, Request{Method: http.MethodGet, Path: "/slow"}, io.Discard, DownloadOptions{
		ChunkSize: 1024,
		OnProgress: func(p transfer.Progress) {
			if p.TransferredBytes >= 4096 {
				cancel()
			}
		},
	})
	if !IsCancelled(err) {
		t.Fatalf("expected CANCELLED, got %v", err)
	}
	if p.IsCompleted {
		t.Error("cancelled download reported completion")
	}
}

func TestAdapter_Download_BulkheadFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	a := newServer(t, Config{MaxConcurrentTransfers: 1}, func(r *gin.Engine) {
		r.GET("/hold", func(c *gin.Context) {
			c.Status(http.StatusOK)
			c.Writer.Flush()
			close(started)
			<-release
		})
		r.GET("/file", func(c *gin.Context) { c.Data(http.StatusOK, "application/octet-stream", payload) })
	})

	done := make(chan error, 1)
	go func() {
		_, err := a.Download(context.Background(), Request{Method: http.MethodGet, Path: "/hold"}, io.Discard, DownloadOptions{})
		done <- err
	}()
	<-started

	_, err := a.Download(t.Context(), Request{Method: http.MethodGet, Path: "/file"}, io.Discard, DownloadOptions{})
	if !errors.Is(err, resilience.ErrBulkheadFull) {
		t.Fatalf("expected bulkhead full, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("held download failed: %v", err)
	}
	if _, err := a.Download(t.Context(), Request{Method: http.MethodGet, Path: "/file"}, io.Discard, DownloadOptions{}); err != nil {
		t.Fatalf("slot not released: %v", err)
	}
}

func TestAdapter_SaveFile(t *testing.T) {
	a := newServer(t, Config{}, downloadRoutes)
	dir := t.TempDir()
	target := filepath.Join(dir, "sub", "out.bin")

	if _, err := a.SaveFile(t.Context(), Request{Method: http.MethodGet, Path: "/file"}, target, DownloadOptions{}); err != nil {
		t.Fatalf("SaveFile() error: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil || !bytes.Equal(data, payload) {
		t.Fatalf("saved file mismatch: %d bytes, %v", len(data), err)
	}

	failed := filepath.Join(dir, "failed.bin")
	if _, err := a.SaveFile(t.Context(), Request{Method: http.MethodGet, Path: "/truncated"}, failed, DownloadOptions{}); err == nil {
		t.Fatal("expected error for truncated download")
	}
	if _, err := os.Stat(failed); !os.IsNotExist(err) {
		t.Error("failed download must not create the target")
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".part" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestAdapter_DownloadTo_LocalStorage(t *testing.T) {
	a := newServer(t, Config{}, downloadRoutes)
	store, err := local.NewStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	p, err := a.DownloadTo(t.Context(), Request{Method: http.MethodGet, Path: "/file"}, store, "media/file.bin", DownloadOptions{})
	if err != nil {
		t.Fatalf("DownloadTo() error: %v", err)
	}
	if p.TransferredBytes != int64(len(payload)) {
		t.Errorf("transferred = %d", p.TransferredBytes)
	}
	rc, err := store.Download(t.Context(), "media/file.bin")
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if !bytes.Equal(data, payload) {
		t.Errorf("stored %d bytes, want %d", len(data), len(payload))
	}

	_, err = a.DownloadTo(t.Context(), Request{Method: http.MethodGet, Path: "/missing"}, store, "media/missing.bin", DownloadOptions{})
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if ok, _ := store.Exists(t.Context(), "media/missing.bin"); ok {
		t.Error("failed download must not leave an object")
	}
}

func TestStreamResponse_SaveToGuards(t *testing.T) {
	a := newServer(t, Config{}, downloadRoutes)

	sr, err := a.DoStream(t.Context(), Request{Method: http.MethodGet, Path: "/file"})
	if err != nil {
		t.Fatal(err)
	}
	defer sr.Close()
	if _, err := sr.Body.Bytes(t.Context()); err != nil {
		t.Fatal(err)
	}
	_, err = sr.SaveTo(t.Context(), io.Discard, DownloadOptions{})
	if !apperrors.IsCode(err, apperrors.ErrCodeContentAlreadyBuffered) {
		t.Fatalf("expected CONTENT_ALREADY_BUFFERED, got %v", err)
	}

	sr2, err := a.DoStream(t.Context(), Request{Method: http.MethodGet, Path: "/file"})
	if err != nil {
		t.Fatal(err)
	}
	defer sr2.Close()
	if _, err := sr2.SaveTo(t.Context(), io.Discard, DownloadOptions{}); err != nil {
		t.Fatalf("first SaveTo: %v", err)
	}
	_, err = sr2.SaveTo(t.Context(), io.Discard, DownloadOptions{})
	if !apperrors.IsCode(err, apperrors.ErrCodeBodyConsumed) {
		t.Fatalf("expected BODY_CONSUMED, got %v", err)
	}
}
