package strapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ivseb/strapi-sync-wizard/internal/content"
	"github.com/ivseb/strapi-sync-wizard/internal/schema"
)

// DefaultCallTimeout bounds every request to the instance. A timeout
// is an item-level failure like any other request error.
const DefaultCallTimeout = 30 * time.Second

// tokenTTL is how long a cached admin JWT is trusted before
// re-authenticating. Instances issue longer-lived tokens; refreshing
// early is harmless.
const tokenTTL = 20 * time.Minute

const pageSize = 100

// HTTPClient implements Client against the instance admin API.
//
// The login token is process-wide mutable state with an explicit
// timestamp and TTL: Authenticate is called lazily before each request
// and re-logs-in when the cached token expired.
type HTTPClient struct {
	instance Instance
	http     *http.Client

	mu        sync.Mutex
	token     string
	fetchedAt time.Time

	kindsMu sync.Mutex
	kinds   map[string]string // content type uid -> kind
}

// NewHTTPClient builds a client for one instance with the default
// per-call timeout.
func NewHTTPClient(instance Instance) *HTTPClient {
	return &HTTPClient{
		instance: instance,
		http:     &http.Client{Timeout: DefaultCallTimeout},
	}
}

// InstanceID implements Client.
func (c *HTTPClient) InstanceID() string {
	return c.instance.ID
}

// Authenticate logs in and caches the admin token. Safe to call
// concurrently; a fresh token short-circuits.
func (c *HTTPClient) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Since(c.fetchedAt) < tokenTTL {
		return nil
	}

	body, err := json.Marshal(map[string]string{
		"email":    c.instance.Email,
		"password": c.instance.Password,
	})
	if err != nil {
		return fmt.Errorf("marshal login: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.instance.BaseURL+"/admin/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("login %s: %w", c.instance.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("login %s: status %d: %s", c.instance.ID, resp.StatusCode, detail)
	}

	var payload struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if payload.Data.Token == "" {
		return fmt.Errorf("login %s: empty token", c.instance.ID)
	}

	c.token = payload.Data.Token
	c.fetchedAt = time.Now()
	slog.Debug("authenticated", "instance", c.instance.ID)
	return nil
}

// InvalidateToken drops the cached token; the next call re-logs-in.
func (c *HTTPClient) InvalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

// do issues an authenticated JSON request and returns the raw body.
// Non-2xx responses return the body verbatim in the error so callers
// can record it on the selection row.
func (c *HTTPClient) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.instance.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.Lock()
	req.Header.Set("Authorization", "Bearer "+c.token)
	c.mu.Unlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{Method: method, Path: path, Status: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// RequestError is a non-2xx response, carrying the body verbatim.
type RequestError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// IsNotFound reports whether the error is a 404 response.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Status == http.StatusNotFound
}

// ContentTypes implements Client. The fetched kinds are kept so entry
// writes know which endpoint family a uid belongs to.
func (c *HTTPClient) ContentTypes(ctx context.Context) ([]schema.ContentType, error) {
	data, err := c.do(ctx, http.MethodGet, "/content-type-builder/content-types", nil)
	if err != nil {
		return nil, err
	}
	cts, err := decodeContentTypes(data)
	if err != nil {
		return nil, err
	}

	c.kindsMu.Lock()
	if c.kinds == nil {
		c.kinds = make(map[string]string, len(cts))
	}
	for _, ct := range cts {
		c.kinds[ct.UID] = ct.Kind
	}
	c.kindsMu.Unlock()
	return cts, nil
}

// isSingleType reports whether the uid names a single type, fetching
// the content-type listing once when the kind is not yet cached.
func (c *HTTPClient) isSingleType(ctx context.Context, uid string) (bool, error) {
	c.kindsMu.Lock()
	kind, ok := c.kinds[uid]
	c.kindsMu.Unlock()
	if !ok {
		if _, err := c.ContentTypes(ctx); err != nil {
			return false, err
		}
		c.kindsMu.Lock()
		kind = c.kinds[uid]
		c.kindsMu.Unlock()
	}
	return kind == schema.KindSingle, nil
}

// Components implements Client.
func (c *HTTPClient) Components(ctx context.Context) (map[string]schema.Component, error) {
	data, err := c.do(ctx, http.MethodGet, "/content-type-builder/components", nil)
	if err != nil {
		return nil, err
	}
	return decodeComponents(data)
}

// Entries implements Client. Collection types walk every page; single
// types fetch the one record (absence is an empty set, not an error).
func (c *HTTPClient) Entries(ctx context.Context, ct schema.ContentType) ([]content.Object, error) {
	if !ct.IsCollection() {
		data, err := c.do(ctx, http.MethodGet, "/content-manager/single-types/"+ct.UID, nil)
		if err != nil {
			if IsNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		obj, err := decodeEntry(data)
		if err != nil {
			return nil, err
		}
		return []content.Object{obj}, nil
	}

	var out []content.Object
	for page := 1; ; page++ {
		path := fmt.Sprintf("/content-manager/collection-types/%s?page=%d&pageSize=%d", ct.UID, page, pageSize)
		data, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		results, pageCount, err := decodeEntryPage(data)
		if err != nil {
			return nil, err
		}
		out = append(out, results...)
		if page >= pageCount {
			break
		}
	}
	return out, nil
}

// UpsertEntry implements Client: update when the document exists,
// create otherwise. Creation carries the documentId so both instances
// share it from then on. Single types have one unaddressed document
// and PUT creates it when absent.
func (c *HTTPClient) UpsertEntry(ctx context.Context, contentType, documentID string, payload content.Object) (content.Object, error) {
	single, err := c.isSingleType(ctx, contentType)
	if err != nil {
		return nil, err
	}
	if single {
		data, err := c.do(ctx, http.MethodPut, "/content-manager/single-types/"+contentType, content.ToAny(payload))
		if err != nil {
			return nil, err
		}
		return decodeEntry(data)
	}

	base := "/content-manager/collection-types/" + contentType

	data, err := c.do(ctx, http.MethodPut, base+"/"+url.PathEscape(documentID), content.ToAny(payload))
	if IsNotFound(err) {
		body := content.ToAny(payload).(map[string]any)
		body["documentId"] = documentID
		data, err = c.do(ctx, http.MethodPost, base, body)
	}
	if err != nil {
		return nil, err
	}
	return decodeEntry(data)
}

// DeleteEntry implements Client.
func (c *HTTPClient) DeleteEntry(ctx context.Context, contentType, documentID string) error {
	single, err := c.isSingleType(ctx, contentType)
	if err != nil {
		return err
	}
	path := "/content-manager/collection-types/" + contentType + "/" + url.PathEscape(documentID)
	if single {
		path = "/content-manager/single-types/" + contentType
	}
	_, err = c.do(ctx, http.MethodDelete, path, nil)
	return err
}

// Files implements Client.
func (c *HTTPClient) Files(ctx context.Context) ([]content.Object, error) {
	var out []content.Object
	for page := 1; ; page++ {
		path := fmt.Sprintf("/upload/files?page=%d&pageSize=%d", page, pageSize)
		data, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		results, pageCount, err := decodeEntryPage(data)
		if err != nil {
			return nil, err
		}
		out = append(out, results...)
		if page >= pageCount {
			break
		}
	}
	return out, nil
}

// DownloadFile implements Client. Relative urls resolve against the
// instance base URL.
func (c *HTTPClient) DownloadFile(ctx context.Context, fileURL string) ([]byte, error) {
	if strings.HasPrefix(fileURL, "/") {
		fileURL = c.instance.BaseURL + fileURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("download request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &RequestError{Method: http.MethodGet, Path: fileURL, Status: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

// UploadFile implements Client.
func (c *HTTPClient) UploadFile(ctx context.Context, meta content.Object, data []byte, folderID int64) (content.Object, error) {
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}

	name := "file"
	if s, ok := meta["name"].(content.String); ok {
		name = string(s)
	}

	info := map[string]any{"name": name}
	if alt, ok := meta["alternativeText"].(content.String); ok {
		info["alternativeText"] = string(alt)
	}
	if caption, ok := meta["caption"].(content.String); ok {
		info["caption"] = string(caption)
	}
	if folderID != 0 {
		info["folder"] = folderID
	}
	infoJSON, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("marshal file info: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("files", name)
	if err != nil {
		return nil, fmt.Errorf("upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("upload form: %w", err)
	}
	if err := mw.WriteField("fileInfo", string(infoJSON)); err != nil {
		return nil, fmt.Errorf("upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.instance.BaseURL+"/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.mu.Lock()
	req.Header.Set("Authorization", "Bearer "+c.token)
	c.mu.Unlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("upload %s: read body: %w", name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{Method: http.MethodPost, Path: "/upload", Status: resp.StatusCode, Body: string(body)}
	}

	// The upload endpoint answers with an array of created records.
	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil || len(records) == 0 {
		return nil, fmt.Errorf("upload %s: unexpected response: %s", name, body)
	}
	return decodeEntry(records[0])
}

// DeleteFile implements Client.
func (c *HTTPClient) DeleteFile(ctx context.Context, fileID int64) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/upload/files/%d", fileID), nil)
	return err
}

// EnsureFolder implements Client. Path segments are resolved one at a
// time, creating missing folders under the previous segment.
func (c *HTTPClient) EnsureFolder(ctx context.Context, path string) (int64, error) {
	var parent int64
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		if segment == "" {
			continue
		}
		id, err := c.findFolder(ctx, segment, parent)
		if err != nil {
			return 0, err
		}
		if id == 0 {
			id, err = c.createFolder(ctx, segment, parent)
			if err != nil {
				return 0, err
			}
		}
		parent = id
	}
	return parent, nil
}

func (c *HTTPClient) findFolder(ctx context.Context, name string, parent int64) (int64, error) {
	path := fmt.Sprintf("/upload/folders?filters[parent][id]=%d&filters[name]=%s", parent, url.QueryEscape(name))
	if parent == 0 {
		path = "/upload/folders?filters[parent][id][$null]=true&filters[name]=" + url.QueryEscape(name)
	}
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, err
	}

	var payload struct {
		Data []struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, fmt.Errorf("decode folders: %w", err)
	}
	if len(payload.Data) == 0 {
		return 0, nil
	}
	return payload.Data[0].ID, nil
}

func (c *HTTPClient) createFolder(ctx context.Context, name string, parent int64) (int64, error) {
	body := map[string]any{"name": name}
	if parent != 0 {
		body["parent"] = parent
	}
	data, err := c.do(ctx, http.MethodPost, "/upload/folders", body)
	if err != nil {
		return 0, err
	}

	var payload struct {
		Data struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, fmt.Errorf("decode created folder: %w", err)
	}
	return payload.Data.ID, nil
}
