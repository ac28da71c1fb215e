// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// Fetch downloads the archive at archiveURL into memory and extracts it into
// dir, keeping the archive's internal directory layout.
func (c *Client) Fetch(ctx context.Context, dir, archiveURL string) error {
	c.reporter.Progress("downloading", "url", redactURL(archiveURL))

	data, err := c.download(ctx, archiveURL)
	if err != nil {
		return Fetchf("could not download: %s", err).WithCause(err)
	}

	c.reporter.Progress("download complete", "bytes", len(data))
	c.reporter.Progress("extracting", "dir", dir)

	n, err := Extract(bytes.NewReader(data), dir)
	if err != nil {
		return Fetchf("could not untar: %s", err).WithCause(err)
	}

	c.reporter.Progress("extracted", "entries", n)
	return nil
}

// download reads the full response body of archiveURL, refusing bodies larger
// than the configured maximum.
func (c *Client) download(ctx context.Context, archiveURL string) ([]byte, error) {
	resp, err := c.doRequest(ctx, archiveURL, "")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, redactURL(archiveURL))
	}

	if resp.ContentLength > c.maxArchiveBytes {
		return nil, fmt.Errorf("archive is %d bytes, limit is %d", resp.ContentLength, c.maxArchiveBytes)
	}

	// Read one byte past the limit so an oversized body is detected rather
	// than silently truncated.
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxArchiveBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(data)) > c.maxArchiveBytes {
		return nil, fmt.Errorf("archive exceeds limit of %d bytes", c.maxArchiveBytes)
	}
	return data, nil
}
