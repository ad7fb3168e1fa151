// Package strapi talks to one content-management instance. The engine
// depends only on the Client interface; HTTPClient is the production
// implementation.
package strapi

import (
	"context"

	"github.com/ivseb/strapi-sync-wizard/internal/content"
	"github.com/ivseb/strapi-sync-wizard/internal/schema"
)

// Instance identifies and authenticates one deployment.
type Instance struct {
	ID       string `yaml:"id"` // stable identifier used in mapping rows
	BaseURL  string `yaml:"base_url"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// Client is the engine's view of an instance. Implementations must
// honor context cancellation and apply a per-call timeout; a timeout
// surfaces as an ordinary request error.
type Client interface {
	// InstanceID returns the stable identifier used in mapping rows.
	InstanceID() string

	// ContentTypes fetches the instance's content-type schemas.
	ContentTypes(ctx context.Context) ([]schema.ContentType, error)

	// Components fetches the component sub-schemas, keyed by uid.
	Components(ctx context.Context) (map[string]schema.Component, error)

	// Entries fetches every record of a content type. Collection
	// types paginate; single types return at most one record.
	Entries(ctx context.Context, ct schema.ContentType) ([]content.Object, error)

	// UpsertEntry creates the document when absent and updates it
	// otherwise, addressed by documentId. Returns the resulting
	// record as the instance stores it.
	UpsertEntry(ctx context.Context, contentType, documentID string, payload content.Object) (content.Object, error)

	// DeleteEntry removes a document. Deleting an absent document is
	// an error the caller may treat as already satisfied.
	DeleteEntry(ctx context.Context, contentType, documentID string) error

	// Files fetches the media library records.
	Files(ctx context.Context) ([]content.Object, error)

	// DownloadFile fetches a file's bytes from its url.
	DownloadFile(ctx context.Context, url string) ([]byte, error)

	// UploadFile uploads file bytes with the given metadata into a
	// folder (0 = library root) and returns the created record.
	UploadFile(ctx context.Context, meta content.Object, data []byte, folderID int64) (content.Object, error)

	// DeleteFile removes a media record by numeric id.
	DeleteFile(ctx context.Context, fileID int64) error

	// EnsureFolder resolves a media folder path, creating missing
	// segments, and returns the folder id.
	EnsureFolder(ctx context.Context, path string) (int64, error)
}
