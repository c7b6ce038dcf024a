package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultChunkSize      = 5 * 1024 * 1024
	defaultSmallFileLimit = 4 * 1024 * 1024
	defaultDownloadWait   = 30 * time.Second

	// DefaultRootFolder is the top-level container for all client trees.
	DefaultRootFolder = "CLIENTS"
)

// Item is the atomic unit returned by folder listing. The id is the only
// handle that stays stable across renames; paths do not.
type Item struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Size   int64        `json:"size"`
	Folder *FolderFacet `json:"folder,omitempty"`
}

// FolderFacet marks an item as a folder.
type FolderFacet struct {
	ChildCount int `json:"childCount"`
}

// IsFolder reports whether the item is a folder.
func (i Item) IsFolder() bool {
	return i.Folder != nil
}

// Config carries remote store endpoints and tuning knobs. Everything is
// injected at startup so the client can run against a mock endpoint.
type Config struct {
	// BaseURL is the site root, e.g. https://graph.example.com/v1.0/sites/{id}.
	BaseURL string
	// RootFolder is the top-level container, "CLIENTS" by default.
	RootFolder string
	// ChunkSize is the upload-session chunk size (5 MiB by default).
	ChunkSize int64
	// SmallFileLimit is the largest payload sent as a single PUT.
	SmallFileLimit int64
	// DownloadTimeout bounds download requests. Uploads intentionally carry
	// no artificial timeout so large files survive slow links.
	DownloadTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.RootFolder == "" {
		c.RootFolder = DefaultRootFolder
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = defaultChunkSize
	}
	if c.SmallFileLimit <= 0 {
		c.SmallFileLimit = defaultSmallFileLimit
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = defaultDownloadWait
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
}

// Recorder receives remote-call instrumentation. Implemented by the metrics
// service; nil disables recording.
type Recorder interface {
	ObserveRemoteCall(operation string, status int, duration time.Duration)
}

// Client talks to the path-and-id-addressed remote document store. Every
// call authenticates via the token provider and runs through the retryer.
type Client struct {
	http    *http.Client
	tokens  TokenProvider
	retry   *Retryer
	cfg     Config
	logger  *zap.Logger
	metrics Recorder
}

// NewClient wires a drive client. A nil httpClient falls back to a client
// without timeout; per-operation deadlines come from contexts instead.
func NewClient(cfg Config, tokens TokenProvider, retry *Retryer, httpClient *http.Client, logger *zap.Logger, metrics Recorder) *Client {
	cfg.applyDefaults()
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if retry == nil {
		retry = NewRetryer(0, 0, logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:    httpClient,
		tokens:  tokens,
		retry:   retry,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// RootFolder exposes the configured top-level container name.
func (c *Client) RootFolder() string {
	return c.cfg.RootFolder
}

// pathURL renders the path-addressed form {base}/drive/root:/<path>: with
// each segment escaped.
func (c *Client) pathURL(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	escaped := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		escaped = append(escaped, url.PathEscape(seg))
	}
	return fmt.Sprintf("%s/drive/root:/%s:", c.cfg.BaseURL, strings.Join(escaped, "/"))
}

func (c *Client) itemURL(id string) string {
	return fmt.Sprintf("%s/drive/items/%s", c.cfg.BaseURL, url.PathEscape(id))
}

type request struct {
	method      string
	url         string
	body        []byte
	contentType string
	headers     map[string]string
	// session upload URLs are pre-authorised; skip the bearer header there.
	skipAuth bool
}

type reply struct {
	status int
	body   []byte
}

// send issues one HTTP request and classifies any non-2xx answer into a
// RemoteError carrying the status and the remote error code when present.
func (c *Client) send(ctx context.Context, operation string, req request) (reply, error) {
	var bodyReader io.Reader
	if req.body != nil {
		bodyReader = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, bodyReader)
	if err != nil {
		return reply{}, fmt.Errorf("build %s request: %w", operation, err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}
	if !req.skipAuth {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return reply{}, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+token.Value)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.observe(operation, 0, time.Since(start))
		return reply{}, &RemoteError{Message: fmt.Sprintf("%s: %v", operation, err)}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	c.observe(operation, resp.StatusCode, time.Since(start))
	if err != nil {
		return reply{}, &RemoteError{Message: fmt.Sprintf("%s: read response: %v", operation, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return reply{}, remoteErrorFrom(operation, resp.StatusCode, body)
	}
	return reply{status: resp.StatusCode, body: body}, nil
}

func remoteErrorFrom(operation string, status int, body []byte) *RemoteError {
	re := &RemoteError{
		Message:    fmt.Sprintf("%s failed", operation),
		StatusCode: status,
	}
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		re.ErrorCode = payload.Error.Code
		re.Details = payload.Error.Message
	} else if len(body) > 0 {
		re.Details = string(body)
	}
	return re
}

func (c *Client) observe(operation string, status int, duration time.Duration) {
	if c.metrics != nil {
		c.metrics.ObserveRemoteCall(operation, status, duration)
	}
}

type listPage struct {
	Value    []Item `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

// ListChildren walks a folder's children across the continuation-link
// sequence and returns the complete item list. A 404 on any page means the
// folder was never created and yields an empty list, not an error, so
// cleanup code downstream degrades to a no-op.
func (c *Client) ListChildren(ctx context.Context, path string) ([]Item, error) {
	next := c.pathURL(path) + "/children"
	var items []Item
	for next != "" {
		page, err := Do(ctx, c.retry, "list_children", func(ctx context.Context) (listPage, error) {
			res, err := c.send(ctx, "list_children", request{method: http.MethodGet, url: next})
			if err != nil {
				return listPage{}, err
			}
			var page listPage
			if err := json.Unmarshal(res.body, &page); err != nil {
				return listPage{}, fmt.Errorf("decode children page: %w", err)
			}
			return page, nil
		})
		if err != nil {
			if IsNotFound(err) {
				return []Item{}, nil
			}
			return nil, err
		}
		items = append(items, page.Value...)
		next = page.NextLink
	}
	return items, nil
}

// GetItem resolves the item at a path. A missing item surfaces as a 404
// RemoteError; callers distinguish via IsNotFound.
func (c *Client) GetItem(ctx context.Context, path string) (*Item, error) {
	item, err := Do(ctx, c.retry, "get_item", func(ctx context.Context) (*Item, error) {
		res, err := c.send(ctx, "get_item", request{method: http.MethodGet, url: c.pathURL(path)})
		if err != nil {
			return nil, err
		}
		var item Item
		if err := json.Unmarshal(res.body, &item); err != nil {
			return nil, fmt.Errorf("decode item: %w", err)
		}
		return &item, nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// EnsureFolder makes sure a folder exists at path and returns its id. The
// existence check runs before the create so repeated calls for the same
// logical entity do not accumulate renamed sibling duplicates; a concurrent
// create surfacing as 409 resolves by re-reading the winner.
func (c *Client) EnsureFolder(ctx context.Context, path string) (string, error) {
	item, err := c.GetItem(ctx, path)
	if err == nil {
		if !item.IsFolder() {
			return "", &RemoteError{
				Message:    fmt.Sprintf("path %q is occupied by a file", path),
				StatusCode: http.StatusConflict,
			}
		}
		return item.ID, nil
	}
	if !IsNotFound(err) {
		return "", err
	}

	id, err := c.createFolder(ctx, path)
	if err != nil {
		if Classify(err).StatusCode == http.StatusConflict {
			if winner, gerr := c.GetItem(ctx, path); gerr == nil {
				return winner.ID, nil
			}
		}
		return "", err
	}
	return id, nil
}

func (c *Client) createFolder(ctx context.Context, path string) (string, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"folder":                            map[string]interface{}{},
		"@microsoft.graph.conflictBehavior": "fail",
	})
	return Do(ctx, c.retry, "create_folder", func(ctx context.Context) (string, error) {
		res, err := c.send(ctx, "create_folder", request{
			method:      http.MethodPut,
			url:         c.pathURL(path) + "/",
			body:        body,
			contentType: "application/json",
		})
		if err != nil {
			return "", err
		}
		var item Item
		if err := json.Unmarshal(res.body, &item); err != nil {
			return "", fmt.Errorf("decode created folder: %w", err)
		}
		return item.ID, nil
	})
}

// Upload places content at path and returns the created item id. Payloads at
// or below the small-file limit go up as one content PUT; larger payloads use
// a resumable upload session streamed in fixed-size chunks.
func (c *Client) Upload(ctx context.Context, path string, content []byte) (string, error) {
	if int64(len(content)) <= c.cfg.SmallFileLimit {
		return c.uploadSmall(ctx, path, content)
	}
	return c.uploadChunked(ctx, path, content)
}

func (c *Client) uploadSmall(ctx context.Context, path string, content []byte) (string, error) {
	return Do(ctx, c.retry, "upload_content", func(ctx context.Context) (string, error) {
		res, err := c.send(ctx, "upload_content", request{
			method:      http.MethodPut,
			url:         c.pathURL(path) + "/content",
			body:        content,
			contentType: "application/octet-stream",
		})
		if err != nil {
			return "", err
		}
		var item Item
		if err := json.Unmarshal(res.body, &item); err != nil {
			return "", fmt.Errorf("decode uploaded item: %w", err)
		}
		return item.ID, nil
	})
}

func (c *Client) uploadChunked(ctx context.Context, path string, content []byte) (string, error) {
	sessionBody, _ := json.Marshal(map[string]interface{}{
		"item": map[string]interface{}{
			"@microsoft.graph.conflictBehavior": "replace",
		},
	})
	sessionURL, err := Do(ctx, c.retry, "create_upload_session", func(ctx context.Context) (string, error) {
		res, err := c.send(ctx, "create_upload_session", request{
			method:      http.MethodPost,
			url:         c.pathURL(path) + "/createUploadSession",
			body:        sessionBody,
			contentType: "application/json",
		})
		if err != nil {
			return "", err
		}
		var session struct {
			UploadURL string `json:"uploadUrl"`
		}
		if err := json.Unmarshal(res.body, &session); err != nil {
			return "", fmt.Errorf("decode upload session: %w", err)
		}
		if session.UploadURL == "" {
			return "", &RemoteError{Message: "upload session missing uploadUrl"}
		}
		return session.UploadURL, nil
	})
	if err != nil {
		return "", err
	}

	total := int64(len(content))
	var itemID string
	for offset := int64(0); offset < total; offset += c.cfg.ChunkSize {
		end := min(offset+c.cfg.ChunkSize, total)
		chunk := content[offset:end]
		rangeHeader := fmt.Sprintf("bytes %d-%d/%d", offset, end-1, total)

		res, err := Do(ctx, c.retry, "upload_chunk", func(ctx context.Context) (reply, error) {
			return c.send(ctx, "upload_chunk", request{
				method:      http.MethodPut,
				url:         sessionURL,
				body:        chunk,
				contentType: "application/octet-stream",
				headers:     map[string]string{"Content-Range": rangeHeader},
				skipAuth:    true,
			})
		})
		if err != nil {
			return "", err
		}

		// The final chunk's response carries the created item.
		if end == total {
			var item Item
			if err := json.Unmarshal(res.body, &item); err != nil {
				return "", fmt.Errorf("decode finished upload: %w", err)
			}
			itemID = item.ID
		}
	}
	if itemID == "" {
		return "", &RemoteError{Message: fmt.Sprintf("upload session for %q finished without an item id", path)}
	}
	return itemID, nil
}

// Copy server-side copies an existing item into destFolderPath under name.
// The remote performs the copy asynchronously; acceptance is success here.
func (c *Client) Copy(ctx context.Context, itemID, destFolderPath, name string) error {
	body, _ := json.Marshal(map[string]interface{}{
		"parentReference": map[string]string{
			"path": "/drive/root:/" + strings.Trim(destFolderPath, "/"),
		},
		"name": name,
	})
	_, err := Do(ctx, c.retry, "copy_item", func(ctx context.Context) (struct{}, error) {
		_, err := c.send(ctx, "copy_item", request{
			method:      http.MethodPost,
			url:         c.itemURL(itemID) + "/copy",
			body:        body,
			contentType: "application/json",
		})
		return struct{}{}, err
	})
	return err
}

// Delete removes an item by id. A 404 is a no-op: the item is already gone.
func (c *Client) Delete(ctx context.Context, itemID string) error {
	_, err := Do(ctx, c.retry, "delete_item", func(ctx context.Context) (struct{}, error) {
		_, err := c.send(ctx, "delete_item", request{method: http.MethodDelete, url: c.itemURL(itemID)})
		return struct{}{}, err
	})
	if err != nil && IsNotFound(err) {
		return nil
	}
	return err
}

// Rename changes an item's name in place, keeping its id and children.
func (c *Client) Rename(ctx context.Context, itemID, newName string) error {
	body, _ := json.Marshal(map[string]string{"name": newName})
	_, err := Do(ctx, c.retry, "rename_item", func(ctx context.Context) (struct{}, error) {
		_, err := c.send(ctx, "rename_item", request{
			method:      http.MethodPatch,
			url:         c.itemURL(itemID),
			body:        body,
			contentType: "application/json",
		})
		return struct{}{}, err
	})
	return err
}

// Download streams an item's content. The request is bounded by the
// configured download timeout; closing the reader releases the deadline.
func (c *Client) Download(ctx context.Context, itemID string) (io.ReadCloser, error) {
	dlCtx, cancel := context.WithTimeout(ctx, c.cfg.DownloadTimeout)

	body, err := Do(dlCtx, c.retry, "download_content", func(ctx context.Context) (io.ReadCloser, error) {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.itemURL(itemID)+"/content", nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token.Value)

		start := time.Now()
		resp, err := c.http.Do(req)
		if err != nil {
			c.observe("download_content", 0, time.Since(start))
			return nil, &RemoteError{Message: fmt.Sprintf("download_content: %v", err)}
		}
		c.observe("download_content", resp.StatusCode, time.Since(start))
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			raw, _ := io.ReadAll(resp.Body)
			resp.Body.Close() //nolint:errcheck
			return nil, remoteErrorFrom("download_content", resp.StatusCode, raw)
		}
		return resp.Body, nil
	})
	if err != nil {
		cancel()
		return nil, err
	}
	return &cancelReadCloser{ReadCloser: body, cancel: cancel}, nil
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
