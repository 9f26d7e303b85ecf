// Package immich provides a typed client for the Immich REST API, covering
// the duplicate, asset, and album endpoints this tool consumes.
package immich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/immich-dedupe/pkg/model"
)

// Client defines the Immich API operations used by the dedupe pipeline.
type Client interface {
	// GetDuplicates fetches all duplicate groups with embedded asset metadata.
	GetDuplicates(ctx context.Context) ([]model.DuplicateGroup, error)
	// GetAsset fetches a single asset by id.
	GetAsset(ctx context.Context, assetID string) (*model.Asset, error)
	// SearchAssets fetches one page of the asset inventory. Pages start at 1;
	// the returned nextPage is 0 when the inventory is exhausted.
	SearchAssets(ctx context.Context, page, size int) ([]model.Asset, int, error)
	// DownloadAsset streams an asset's original bytes to path and returns the
	// number of bytes written.
	DownloadAsset(ctx context.Context, assetID, path string) (int64, error)
	// UpdateMetadata writes the restricted writable metadata subset on an asset.
	UpdateMetadata(ctx context.Context, assetID string, update MetadataUpdate) error
	// DeleteAssets deletes assets by id. force=false moves them to trash.
	DeleteAssets(ctx context.Context, assetIDs []string, force bool) error
	// UploadAsset uploads a file as a new asset.
	UploadAsset(ctx context.Context, path string) (*UploadResponse, error)
	// GetAlbumsForAsset lists the albums containing an asset.
	GetAlbumsForAsset(ctx context.Context, assetID string) ([]Album, error)
	// AddToAlbum adds assets to an album.
	AddToAlbum(ctx context.Context, albumID string, assetIDs []string) error
	// RemoveFromAlbum removes assets from an album.
	RemoveFromAlbum(ctx context.Context, albumID string, assetIDs []string) error
}

// MetadataUpdate is the writable metadata subset. Camera and lens fields are
// read-only in the Immich API and deliberately have no place here.
type MetadataUpdate struct {
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	DateTimeOriginal *string  `json:"dateTimeOriginal,omitempty"`
	Description      *string  `json:"description,omitempty"`
}

// IsEmpty reports whether the update carries no fields.
func (u MetadataUpdate) IsEmpty() bool {
	return u.Latitude == nil && u.Longitude == nil && u.DateTimeOriginal == nil && u.Description == nil
}

// Album is an album summary as returned by the album endpoints.
type Album struct {
	ID        string `json:"id"`
	AlbumName string `json:"albumName"`
}

// UploadResponse is the result of an asset upload.
type UploadResponse struct {
	ID        string `json:"id"`
	Duplicate bool   `json:"duplicate"`
}

// Option configures the Immich client.
type Option func(*httpClient)

// WithBaseURL overrides the server base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a new Immich API client for the given server and API key.
func NewClient(baseURL, apiKey string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, eris.Wrap(err, "immich: marshal request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, eris.Wrap(err, "immich: create request")
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// doJSON executes a request and decodes a JSON response into out (may be nil
// for endpoints whose body is irrelevant).
func (c *httpClient) doJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "immich: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return eris.Wrap(err, "immich: decode response")
	}
	return nil
}

func (c *httpClient) GetDuplicates(ctx context.Context) ([]model.DuplicateGroup, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/duplicates", nil)
	if err != nil {
		return nil, err
	}

	var groups []model.DuplicateGroup
	if err := c.doJSON(req, &groups); err != nil {
		return nil, eris.Wrap(err, "immich: get duplicates")
	}
	return groups, nil
}

func (c *httpClient) GetAsset(ctx context.Context, assetID string) (*model.Asset, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/assets/"+assetID, nil)
	if err != nil {
		return nil, err
	}

	var asset model.Asset
	if err := c.doJSON(req, &asset); err != nil {
		return nil, eris.Wrapf(err, "immich: get asset %s", assetID)
	}
	return &asset, nil
}

// searchMetadataResponse mirrors the POST /api/search/metadata payload shape.
type searchMetadataResponse struct {
	Assets struct {
		Items    []model.Asset `json:"items"`
		NextPage *string       `json:"nextPage"`
	} `json:"assets"`
}

func (c *httpClient) SearchAssets(ctx context.Context, page, size int) ([]model.Asset, int, error) {
	body := map[string]any{
		"page":        page,
		"size":        size,
		"withExif":    true,
		"isTrashed":   false,
		"withDeleted": false,
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/search/metadata", body)
	if err != nil {
		return nil, 0, err
	}

	var out searchMetadataResponse
	if err := c.doJSON(req, &out); err != nil {
		return nil, 0, eris.Wrapf(err, "immich: search assets page %d", page)
	}

	next := 0
	if out.Assets.NextPage != nil {
		if _, err := fmt.Sscanf(*out.Assets.NextPage, "%d", &next); err != nil {
			next = 0
		}
	}
	return out.Assets.Items, next, nil
}

func (c *httpClient) DownloadAsset(ctx context.Context, assetID, path string) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/assets/"+assetID+"/original", nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, eris.Wrapf(err, "immich: download asset %s", assetID)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return 0, newAPIError(resp)
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "immich: create backup file")
	}

	n, err := io.Copy(file, resp.Body)
	if err != nil {
		file.Close() //nolint:errcheck
		os.Remove(path)
		return n, eris.Wrapf(err, "immich: stream asset %s", assetID)
	}
	if err := file.Close(); err != nil {
		return n, eris.Wrap(err, "immich: close backup file")
	}
	return n, nil
}

func (c *httpClient) UpdateMetadata(ctx context.Context, assetID string, update MetadataUpdate) error {
	req, err := c.newRequest(ctx, http.MethodPut, "/api/assets/"+assetID, update)
	if err != nil {
		return err
	}
	if err := c.doJSON(req, nil); err != nil {
		return eris.Wrapf(err, "immich: update metadata for %s", assetID)
	}
	return nil
}

func (c *httpClient) DeleteAssets(ctx context.Context, assetIDs []string, force bool) error {
	body := map[string]any{
		"ids":   assetIDs,
		"force": force,
	}
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/assets", body)
	if err != nil {
		return err
	}
	if err := c.doJSON(req, nil); err != nil {
		return eris.Wrap(err, "immich: delete assets")
	}
	return nil
}

func (c *httpClient) UploadAsset(ctx context.Context, path string) (*UploadResponse, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "immich: open upload file")
	}

	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "immich: stat upload file")
	}
	modTime := info.ModTime().UTC().Format("2006-01-02T15:04:05.000Z")

	// Stream the multipart body instead of buffering the whole file; backups
	// can be hundreds of megabytes.
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		defer file.Close() //nolint:errcheck
		pw.CloseWithError(writeUploadForm(form, file, filepath.Base(path), modTime))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/assets", pr)
	if err != nil {
		pr.CloseWithError(err) //nolint:errcheck
		return nil, eris.Wrap(err, "immich: create upload request")
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	var out UploadResponse
	if err := c.doJSON(req, &out); err != nil {
		return nil, eris.Wrapf(err, "immich: upload %s", filepath.Base(path))
	}
	return &out, nil
}

func writeUploadForm(form *multipart.Writer, file *os.File, name, modTime string) error {
	part, err := form.CreateFormFile("assetData", RestoreFileName(name))
	if err != nil {
		return eris.Wrap(err, "immich: create form file")
	}
	if _, err := io.Copy(part, file); err != nil {
		return eris.Wrap(err, "immich: read upload file")
	}

	fields := map[string]string{
		"deviceAssetId":  "restore-" + uuid.New().String(),
		"deviceId":       "immich-dedupe-restore",
		"fileCreatedAt":  modTime,
		"fileModifiedAt": modTime,
	}
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			return eris.Wrapf(err, "immich: write form field %s", k)
		}
	}
	return form.Close()
}

func (c *httpClient) GetAlbumsForAsset(ctx context.Context, assetID string) ([]Album, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/albums?assetId="+assetID, nil)
	if err != nil {
		return nil, err
	}

	var albums []Album
	if err := c.doJSON(req, &albums); err != nil {
		return nil, eris.Wrapf(err, "immich: get albums for %s", assetID)
	}
	return albums, nil
}

func (c *httpClient) AddToAlbum(ctx context.Context, albumID string, assetIDs []string) error {
	body := map[string]any{"ids": assetIDs}
	req, err := c.newRequest(ctx, http.MethodPut, "/api/albums/"+albumID+"/assets", body)
	if err != nil {
		return err
	}
	if err := c.doJSON(req, nil); err != nil {
		return eris.Wrapf(err, "immich: add assets to album %s", albumID)
	}
	return nil
}

func (c *httpClient) RemoveFromAlbum(ctx context.Context, albumID string, assetIDs []string) error {
	body := map[string]any{"ids": assetIDs}
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/albums/"+albumID+"/assets", body)
	if err != nil {
		return err
	}
	if err := c.doJSON(req, nil); err != nil {
		return eris.Wrapf(err, "immich: remove assets from album %s", albumID)
	}
	return nil
}

// RestoreFileName strips the `{uuid}_` backup prefix from a filename so the
// asset is restored under its original name. Filenames without the prefix are
// returned unchanged.
func RestoreFileName(name string) string {
	if len(name) > 37 && name[36] == '_' {
		if _, err := uuid.Parse(name[:36]); err == nil {
			return name[37:]
		}
	}
	return name
}
