package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
)

// ErrAssetNotFound is returned when a release has no asset with the requested name.
var ErrAssetNotFound = errors.New("release asset not found")

// Release is the subset of a GitHub release document the tools read.
type Release struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}

// Asset is a file attached to a release. URL is the API URL that serves the
// raw bytes when asked for application/octet-stream.
type Asset struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// ReleaseAsset finds assetName in the release tagged tag of repository (owner/name).
func (c *Client) ReleaseAsset(ctx context.Context, apiURL, repository, tag, assetName string) (*Asset, error) {
	endpoint, err := url.JoinPath(apiURL, "repos", repository, "releases", "tags", tag)
	if err != nil {
		return nil, fmt.Errorf("release url: %w", err)
	}

	response, err := c.Open(ctx, endpoint, true, header{"Accept", "application/vnd.github+json"})
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	var release Release
	if err = json.NewDecoder(response.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("decode release %s@%s: %w", repository, tag, err)
	}

	for i := range release.Assets {
		if release.Assets[i].Name == assetName {
			return &release.Assets[i], nil
		}
	}

	return nil, fmt.Errorf("%s in %s@%s: %w", assetName, repository, tag, ErrAssetNotFound)
}

// DownloadAsset reads the raw bytes of an asset.
func (c *Client) DownloadAsset(ctx context.Context, asset *Asset) ([]byte, error) {
	response, err := c.Open(ctx, asset.URL, true, header{"Accept", "application/octet-stream"})
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	var buf bytes.Buffer
	if asset.Size > 0 {
		buf.Grow(int(asset.Size))
	}

	if _, err = io.Copy(&buf, response.Body); err != nil {
		return nil, fmt.Errorf("read asset %s: %w", asset.Name, err)
	}

	return buf.Bytes(), nil
}
