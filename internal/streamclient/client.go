// Package streamclient wraps the remote transcoding service's HTTP API:
// create upload target, stream bytes, attach metadata, fetch status, list
// and delete. It performs a single request per call; polling loops live in
// the poll package.
package streamclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/vidstore/stream-ingestion-go/internal/asset"
	"github.com/vidstore/stream-ingestion-go/pkg/logger"
	"go.uber.org/zap"
)

// AssetStatus is a single point-in-time read of the remote processing state.
type AssetStatus struct {
	Ready        bool     `json:"ready"`
	State        string   `json:"state"`
	Thumbnail    string   `json:"thumbnail,omitempty"`
	PlaybackRefs []string `json:"playbackRefs,omitempty"`
}

// Client talks to the remote stream service. All calls are authenticated
// with the bearer credential from configuration.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	maxFileBytes int64
}

// New creates a stream service client. maxFileBytes is the client-side
// transfer ceiling; zero disables the check.
func New(httpClient *http.Client, baseURL, token string, maxFileBytes int64) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		httpClient:   httpClient,
		baseURL:      baseURL,
		token:        token,
		maxFileBytes: maxFileBytes,
	}
}

// MaxFileBytes returns the configured transfer ceiling.
func (c *Client) MaxFileBytes() int64 { return c.maxFileBytes }

type createAssetResponse struct {
	AssetID string `json:"assetId"`
}

// CreateUploadTarget requests a destination to stream bytes to. The asset id
// is minted here, before any bytes are sent, and is immutable afterwards.
func (c *Client) CreateUploadTarget(ctx context.Context) (endpoint, assetID string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/assets", nil)
	if err != nil {
		return "", "", fmt.Errorf("build create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", &ServiceUnavailableError{Op: "create upload target", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", "", &ServiceUnavailableError{Op: "create upload target", Status: resp.StatusCode}
	}

	endpoint = resp.Header.Get("Location")
	if endpoint == "" {
		return "", "", &ProtocolError{Op: "create upload target", Reason: "missing Location header"}
	}

	var body createAssetResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.AssetID == "" {
		return "", "", &ProtocolError{Op: "create upload target", Reason: "missing asset id in response"}
	}

	logger.Log.Debug("Upload target created",
		zap.String("assetId", body.AssetID),
		zap.String("endpoint", endpoint),
	)

	return endpoint, body.AssetID, nil
}

// TransferBytes streams size bytes from src to the upload endpoint.
// onProgress receives monotonically increasing percentages, ending at 100 on
// success. The size ceiling is checked before the first byte moves.
func (c *Client) TransferBytes(ctx context.Context, endpoint string, src io.Reader, size int64, onProgress func(int)) error {
	if c.maxFileBytes > 0 && size > c.maxFileBytes {
		return &SizeExceededError{Size: size, Limit: c.maxFileBytes}
	}

	body := io.Reader(src)
	if onProgress != nil {
		body = &progressReader{r: src, total: size, report: onProgress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, body)
	if err != nil {
		return fmt.Errorf("build transfer request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: "transfer", Cause: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 500:
		return &ServiceUnavailableError{Op: "transfer", Status: resp.StatusCode}
	case resp.StatusCode >= 300:
		return &ProtocolError{Op: "transfer", Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

type attachMetadataRequest struct {
	Meta map[string]string `json:"meta"`
}

// AttachMetadata writes the given metadata fields on the asset. The service
// does not guarantee merge semantics, so callers are expected to send an
// already-merged map (see the reconcile package).
func (c *Client) AttachMetadata(ctx context.Context, assetID string, meta map[string]string) error {
	payload, err := json.Marshal(attachMetadataRequest{Meta: meta})
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		fmt.Sprintf("%s/assets/%s/metadata", c.baseURL, assetID), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build metadata request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ServiceUnavailableError{Op: "attach metadata", Cause: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &NotFoundError{AssetID: assetID}
	case resp.StatusCode >= 300:
		return &ServiceUnavailableError{Op: "attach metadata", Status: resp.StatusCode}
	}
	return nil
}

// FetchStatus reads the current processing state once. It never waits for
// readiness itself; that is the poller's job.
func (c *Client) FetchStatus(ctx context.Context, assetID string) (*AssetStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/assets/%s/status", c.baseURL, assetID), nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ServiceUnavailableError{Op: "fetch status", Cause: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &NotFoundError{AssetID: assetID}
	case resp.StatusCode >= 300:
		return nil, &ServiceUnavailableError{Op: "fetch status", Status: resp.StatusCode}
	}

	var status AssetStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, &ProtocolError{Op: "fetch status", Reason: "undecodable response body"}
	}
	return &status, nil
}

// GetAsset fetches and normalizes a single asset record.
func (c *Client) GetAsset(ctx context.Context, assetID string) (*asset.VideoAsset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/assets/%s", c.baseURL, assetID), nil)
	if err != nil {
		return nil, fmt.Errorf("build get request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ServiceUnavailableError{Op: "get asset", Cause: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &NotFoundError{AssetID: assetID}
	case resp.StatusCode >= 300:
		return nil, &ServiceUnavailableError{Op: "get asset", Status: resp.StatusCode}
	}

	var raw asset.RawRemoteAsset
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, &ProtocolError{Op: "get asset", Reason: "undecodable response body"}
	}
	if raw.AssetID == "" {
		return nil, &ProtocolError{Op: "get asset", Reason: "missing asset id"}
	}
	return raw.Normalize(), nil
}

type listAssetsResponse struct {
	Assets []asset.RawRemoteAsset `json:"assets"`
}

// ListAssets fetches every asset record and normalizes each one. Listings
// are always a fresh remote read; no local cache mediates them.
func (c *Client) ListAssets(ctx context.Context) ([]*asset.VideoAsset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/assets", nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ServiceUnavailableError{Op: "list assets", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, &ServiceUnavailableError{Op: "list assets", Status: resp.StatusCode}
	}

	var body listAssetsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &ProtocolError{Op: "list assets", Reason: "undecodable response body"}
	}

	assets := make([]*asset.VideoAsset, 0, len(body.Assets))
	for i := range body.Assets {
		assets = append(assets, body.Assets[i].Normalize())
	}
	return assets, nil
}

// DeleteAsset removes the remote asset. Deleting an id that is already gone
// is treated as success so stale handles never surface as errors.
func (c *Client) DeleteAsset(ctx context.Context, assetID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/assets/%s", c.baseURL, assetID), nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ServiceUnavailableError{Op: "delete asset", Cause: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// Idempotent from the caller's perspective.
		return nil
	case resp.StatusCode >= 300:
		return &ServiceUnavailableError{Op: "delete asset", Status: resp.StatusCode}
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// progressReader reports transfer percentage as the HTTP client drains it.
// Percentages only move forward and stop at 99; the final 100 is reported by
// TransferBytes once the server acknowledged the upload.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 {
		p.read += int64(n)
		pct := int(p.read * 100 / p.total)
		if pct > 99 {
			pct = 99
		}
		if pct > p.last {
			p.last = pct
			p.report(pct)
		}
	}
	return n, err
}
