package report

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
)

func TestDownloadWithLength(t *testing.T) {
	payload := bytes.Repeat([]byte("renpy"), 2000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	}))
	defer srv.Close()

	c, out, _ := newTestConsole("", ConsoleOptions{})
	dst := filepath.Join(t.TempDir(), "web.zip")
	if err := c.Download(context.Background(), "Downloading", srv.URL, dst); err != nil {
		t.Fatalf("Download: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil || !bytes.Equal(got, payload) {
		t.Fatalf("downloaded %d bytes, %v", len(got), err)
	}
	// 10000 bytes in 4096 byte chunks.
	if !strings.Contains(out.String(), "Downloading: 3/3 - DONE") {
		t.Errorf("output = %q", out)
	}
}

func TestDownloadWithoutLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("part one "))
		w.(http.Flusher).Flush()
		w.Write([]byte("part two"))
	}))
	defer srv.Close()

	c, out, _ := newTestConsole("", ConsoleOptions{})
	dst := filepath.Join(t.TempDir(), "out.txt")
	if err := c.Download(context.Background(), "Fetching", srv.URL, dst); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if got, _ := os.ReadFile(dst); string(got) != "part one part two" {
		t.Errorf("content = %q", got)
	}
	if !strings.Contains(out.String(), "s. - DONE") {
		t.Errorf("output = %q, want background progress", out)
	}
}

func TestDownloadRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, _, _ := newTestConsole("", ConsoleOptions{})
	dst := filepath.Join(t.TempDir(), "out.txt")
	if err := c.Download(context.Background(), "Fetching", srv.URL, dst); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestDownloadNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c, _, _ := newTestConsole("", ConsoleOptions{})
	err := c.Download(context.Background(), "Fetching", srv.URL, filepath.Join(t.TempDir(), "x"))
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("Download = %v, want 404 error", err)
	}
}
