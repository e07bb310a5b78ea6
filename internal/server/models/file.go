package models

import "time"

// File describes metadata for one uploaded binary object. The bytes
// themselves live in object storage under StorageKey.
type File struct {
	// ID is the opaque unique identifier assigned on creation.
	ID string
	// Filename is the sanitized name (path separators replaced, <=255 chars).
	Filename string
	// OriginalName is the name exactly as supplied by the uploader.
	OriginalName string
	// MimeType is declared by the uploader or inferred from the extension.
	MimeType string
	// Size is the object length in bytes.
	Size int64
	// OwnerID references the owning user; it never changes after creation.
	OwnerID string
	// StorageKey is the globally unique object-store key
	// (files/{ownerID}/{uuid}{ext}); immutable.
	StorageKey string
	// StorageBucket identifies the bucket holding the object.
	StorageBucket string
	// UploadedAt is set when the metadata row is created.
	UploadedAt time.Time
	// LastAccessedAt is bumped on every download-URL issuance.
	LastAccessedAt time.Time
	// DownloadCount counts download-URL issuances, not completed downloads.
	DownloadCount int64
	// IsActive is true until the file is soft-deleted. There is no
	// transition back to active.
	IsActive bool
}
