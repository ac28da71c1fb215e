// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// packageTypeSdist is the index packagetype of source distributions.
const packageTypeSdist = "sdist"

type (
	// indexProject is the JSON wire format of an index project response.
	// Only the fields the locator needs are decoded.
	indexProject struct {
		URLs []indexFile `json:"urls"`
	}

	// indexFile is one downloadable artifact of a release.
	indexFile struct {
		Filename    string `json:"filename"`
		PackageType string `json:"packagetype"`
		URL         string `json:"url"`
	}
)

// Resolve returns the download URL of the first source distribution the index
// lists for pkg. Entries are taken in index order; no other ranking applies.
func (c *Client) Resolve(ctx context.Context, pkg string) (string, error) {
	if strings.TrimSpace(pkg) == "" {
		return "", Resolutionf("no URL found for %s", pkg)
	}

	c.reporter.Progress("locating sdist", "package", pkg)

	project, err := c.fetchProject(ctx, pkg)
	if err != nil {
		return "", Resolutionf("could not get url").WithCause(err)
	}

	found, ok := firstSdist(project.URLs)
	if !ok {
		return "", Resolutionf("no URL found for %s", pkg)
	}

	c.reporter.Progress("found url", "url", redactURL(found.URL))
	return found.URL, nil
}

// projectURL builds the index JSON endpoint for pkg, honoring the version pin.
func (c *Client) projectURL(pkg string) string {
	if c.version != "" {
		return fmt.Sprintf("%s/pypi/%s/%s/json", c.indexURL, url.PathEscape(pkg), url.PathEscape(c.version))
	}
	return fmt.Sprintf("%s/pypi/%s/json", c.indexURL, url.PathEscape(pkg))
}

func (c *Client) fetchProject(ctx context.Context, pkg string) (*indexProject, error) {
	resp, err := c.doRequest(ctx, c.projectURL(pkg), "application/json")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("querying index for %s: unexpected status %d", pkg, resp.StatusCode)
	}

	var project indexProject
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&project); err != nil {
		return nil, fmt.Errorf("decoding index response: %w", err)
	}
	return &project, nil
}

// firstSdist returns the first entry whose packagetype is sdist.
func firstSdist(files []indexFile) (indexFile, bool) {
	for _, f := range files {
		if f.PackageType == packageTypeSdist {
			return f, true
		}
	}
	return indexFile{}, false
}
