package common

import "time"

// AuthorizationHeaderName is the HTTP header carrying the bearer token on
// inbound requests.
const AuthorizationHeaderName = "Authorization"

// MaxFileSize is the upper bound, in bytes, for a single uploaded file (50 MiB).
const MaxFileSize = 50 * 1024 * 1024

// DefaultPresignTTL is the validity window of issued download URLs.
const DefaultPresignTTL = 15 * time.Minute

// MaxListLimit caps the page size of file listings.
const MaxListLimit = 100
