package domain

import "time"

// FileMetadata is the vendor-neutral description of one remote file as
// reported by a vendor client listing.
type FileMetadata struct {
	// ExternalID is the vendor-native file identifier.
	ExternalID string

	// Name is the file name.
	Name string

	// Path is the folder path within the vendor service, if known.
	Path string

	// Link is a browser link to the file.
	Link string

	// Size is the file size in bytes; zero when the vendor omits it.
	Size int64

	// MIMEType is the vendor-reported content type, if any.
	MIMEType string

	// ExternalCreatedAt is when the vendor created the file.
	ExternalCreatedAt time.Time

	// ExternalUpdatedAt is when the vendor last modified the file.
	ExternalUpdatedAt time.Time

	// Vendor holds vendor-specific attributes, opaque to the core.
	Vendor map[string]string
}

// FileRecord is the stored form of a remote file. Records are uniquely
// keyed by (EndpointID, ExternalID).
type FileRecord struct {
	// ID is the record's own identifier.
	ID string

	// EndpointID links the record to the endpoint that discovered it.
	EndpointID string

	// ExternalID is the vendor-native file identifier.
	ExternalID string

	// Name, Path, Link, Size and MIMEType mirror FileMetadata.
	Name     string
	Path     string
	Link     string
	Size     int64
	MIMEType string

	// ExternalCreatedAt and ExternalUpdatedAt are the vendor timestamps
	// as of the last upsert.
	ExternalCreatedAt time.Time
	ExternalUpdatedAt time.Time

	// FirstSeenAt and LastSeenAt bracket the record's sync history.
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}
