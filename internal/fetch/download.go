package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/oshokin/linux-deps/internal/logger"
)

// ErrDownloadFailed is returned when every download attempt ended early.
var ErrDownloadFailed = errors.New("download failed")

const (
	// downloadFileMode is used for downloaded archives.
	downloadFileMode os.FileMode = 0o644

	// progressThrottle limits progress bar redraws.
	progressThrottle = 100 * time.Millisecond
)

// DownloadOptions controls DownloadFile.
type DownloadOptions struct {
	// Attempts bounds the number of tries; every try restarts from an empty file.
	Attempts int
	// Progress, when set, receives a byte progress bar.
	Progress io.Writer
}

// DownloadFile streams rawURL into dest. A transport error or a bad status
// ends the current attempt only; running out of attempts is an error and the
// partial file is removed. The request is never authenticated.
func (c *Client) DownloadFile(ctx context.Context, rawURL, dest string, opts DownloadOptions) error {
	attempts := max(opts.Attempts, 1)

	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.downloadOnce(ctx, rawURL, dest, opts.Progress)
		if err == nil {
			return nil
		}

		if ctx.Err() != nil {
			_ = os.Remove(dest)

			return ctx.Err()
		}

		logger.ErrorKV(ctx, "Encountered an error during the download attempt",
			"url", rawURL, "attempt", attempt, "attempts", attempts, "error", err)
	}

	_ = os.Remove(dest)

	return fmt.Errorf("%s: %w", rawURL, ErrDownloadFailed)
}

// downloadOnce truncates dest and copies the whole body into it.
func (c *Client) downloadOnce(ctx context.Context, rawURL, dest string, progress io.Writer) error {
	out, err := os.OpenFile(filepath.Clean(dest), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, downloadFileMode)
	if err != nil {
		return err
	}

	defer func() {
		_ = out.Close()
	}()

	response, err := c.Open(ctx, rawURL, false)
	if err != nil {
		return err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	var body io.Reader = response.Body

	if progress != nil {
		bar := newProgressBar(progress, response.ContentLength, filepath.Base(dest))
		defer func() {
			_ = bar.Finish()
		}()

		body = io.TeeReader(response.Body, bar)
	}

	if _, err = io.Copy(out, body); err != nil {
		return err
	}

	return out.Sync()
}

func newProgressBar(w io.Writer, size int64, name string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("downloading "+name),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(progressThrottle),
	)
}
