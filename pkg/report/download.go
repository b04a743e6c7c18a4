package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/odvcencio/rpdist/pkg/progress"
)

const (
	downloadChunk    = 4096
	downloadAttempts = 4
)

// retryDo executes an HTTP request with exponential backoff retry.
// Retries on network errors, HTTP 429, and HTTP 5xx responses.
func retryDo(ctx context.Context, client *http.Client, req *http.Request, maxAttempts int) (*http.Response, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastResp *http.Response
	var lastErr error
	backoff := time.Second

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			lastResp = nil
			continue
		}
		if !isRetryableStatus(resp.StatusCode) {
			return resp, nil
		}

		// Drain and close body before retry.
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastResp = resp
		lastErr = nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return lastResp, nil
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// DownloadFile fetches url into out. With a known length it reports one
// step per chunk; otherwise it runs as background work.
func DownloadFile(ctx context.Context, r Reporter, client *http.Client, prompt, url, out string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	resp, err := retryDo(ctx, client, req, downloadAttempts)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("download %s: %s", url, resp.Status)
	}

	if resp.ContentLength < 0 {
		return r.Background(ctx, prompt, func(context.Context) error {
			return writeBody(out, resp.Body, nil)
		})
	}
	total := int((resp.ContentLength + downloadChunk - 1) / downloadChunk)
	job := func(context.Context) progress.Steps {
		return progress.Run(total, func(tick func() bool) error {
			return writeBody(out, resp.Body, tick)
		})
	}
	return r.Pool(ctx, []string{prompt}, []Job{job})
}

// writeBody copies body into path in chunks, calling tick after each one.
func writeBody(path string, body io.Reader, tick func() bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, downloadChunk)
	for {
		n, err := io.ReadFull(body, buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return werr
			}
			if tick != nil && !tick() {
				return nil
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return err
		}
	}
	return f.Close()
}
