// Package gcs stores uploaded statements and avatars in Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// Client reads and writes objects in one bucket. Credentials come from
// Application Default Credentials unless options say otherwise.
type Client struct {
	client *storage.Client
	bucket string
}

// NewClient creates a storage client bound to bucket.
func NewClient(ctx context.Context, bucket string, opts ...option.ClientOption) (*Client, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewClient: bucket is required")
	}
	c, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewClient: create storage client: %w", err)
	}
	return &Client{client: c, bucket: bucket}, nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string { return c.bucket }

// Upload writes r to objectName and returns its gs:// URI.
func (c *Client) Upload(ctx context.Context, objectName, contentType string, r io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := c.client.Bucket(c.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Upload: copy to GCS writer: %w", err)
	}
	// Close finalizes the upload
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Upload: finalize upload: %w", err)
	}
	return URI(c.bucket, objectName), nil
}

// Fetch downloads the object at a gs:// URI.
func (c *Client) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	r, err := c.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("Fetch: read GCS object: %w", err)
	}
	return data, nil
}

// PublicURL is the HTTPS URL of an object in the client's bucket.
func (c *Client) PublicURL(objectName string) string {
	return "https://storage.googleapis.com/" + c.bucket + "/" + objectName
}

// URI builds a gs:// URI.
func URI(bucket, objectName string) string {
	return "gs://" + bucket + "/" + objectName
}

// ParseURI splits gs://bucket/path into bucket and object path.
func ParseURI(uri string) (string, string, error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// FilenameFromURI extracts the filename from a storage URI.
// e.g., "gs://bucket/folder/file.pdf" → "file.pdf"
func FilenameFromURI(uri string) string {
	_, object, err := ParseURI(uri)
	if err != nil {
		return path.Base(uri)
	}
	return path.Base(object)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename keeps a safe, short base name.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "statement"
	}
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	return name
}

// ImportObjectName is where a user's uploaded statement is stored:
// imports/{user}/{yyyy/mm/dd}/{uuid}-{name}.
func ImportObjectName(userID, filename string, now time.Time) string {
	return fmt.Sprintf("imports/%s/%s/%s-%s", userID, now.UTC().Format("2006/01/02"), uuid.New().String(), SanitizeFilename(filename))
}

// AvatarObjectName is where a user's avatar is stored.
func AvatarObjectName(userID, ext string) string {
	return fmt.Sprintf("avatars/%s/%s%s", userID, uuid.New().String(), ext)
}
