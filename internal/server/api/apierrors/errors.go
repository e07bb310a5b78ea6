// Package apierrors renders HTTP error responses in the single envelope
// format used by both servers:
//
//	{"error": {"code": "...", "message": "...", "timestamp": "...", "path": "...", "method": "..."}}
//
// All error responses must go through Write or one of the constructors.
package apierrors

import (
	"encoding/json"
	"net/http"
	"time"
)

// Machine-readable error codes.
const (
	CodeMissingFields      = "MISSING_FIELDS"
	CodeInvalidEmail       = "INVALID_EMAIL"
	CodeWeakPassword       = "WEAK_PASSWORD"
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeMissingAuthHeader  = "MISSING_AUTH_HEADER"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeWrongTokenKind     = "WRONG_TOKEN_KIND"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeMissingFilename    = "MISSING_FILENAME"
	CodeFilenameTooLong    = "FILENAME_TOO_LONG"
	CodeEmptyFile          = "EMPTY_FILE"
	CodeFileTooLarge       = "FILE_TOO_LARGE"
	CodeStorageError       = "STORAGE_ERROR"
	CodeFileNotFound       = "FILE_NOT_FOUND"
	CodeFileNotInStorage   = "FILE_NOT_IN_STORAGE"
	CodeURLGenerationError = "URL_GENERATION_ERROR"
	CodeLimitTooHigh       = "LIMIT_TOO_HIGH"
	CodeDuplicateFile      = "DUPLICATE_FILE"
	CodeRequestTimeout     = "REQUEST_TIMEOUT"
	CodeInternalError      = "INTERNAL_ERROR"
)

type envelope struct {
	Error detail `json:"error"`
}

type detail struct {
	Message   string   `json:"message"`
	Code      string   `json:"code"`
	Details   []string `json:"details,omitempty"`
	Timestamp string   `json:"timestamp"`
	Path      string   `json:"path"`
	Method    string   `json:"method"`
}

// Write renders the error envelope. details is optional and carries
// itemized validation failures.
func Write(w http.ResponseWriter, r *http.Request, statusCode int, code, message string, details ...string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(envelope{
		Error: detail{
			Message:   message,
			Code:      code,
			Details:   details,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Path:      r.URL.Path,
			Method:    r.Method,
		},
	})
}

// MissingFields is a 400 for absent required request fields.
func MissingFields(w http.ResponseWriter, r *http.Request, message string) {
	Write(w, r, http.StatusBadRequest, CodeMissingFields, message)
}

// InvalidEmail is a 400 for a malformed email address.
func InvalidEmail(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusBadRequest, CodeInvalidEmail, "invalid email format")
}

// WeakPassword is a 400 carrying every failed password rule.
func WeakPassword(w http.ResponseWriter, r *http.Request, rules []string) {
	Write(w, r, http.StatusBadRequest, CodeWeakPassword, "password does not meet requirements", rules...)
}

// EmailExists is a 409 for an already registered email.
func EmailExists(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusConflict, CodeEmailExists, "user with this email already exists")
}

// InvalidCredentials is a 401 that never says which factor failed.
func InvalidCredentials(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusUnauthorized, CodeInvalidCredentials, "invalid email or password")
}

// MissingAuthHeader is a 401 for an absent Authorization header.
func MissingAuthHeader(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusUnauthorized, CodeMissingAuthHeader, "authorization header is required")
}

// InvalidToken is a 401 for a malformed or badly signed token.
func InvalidToken(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusUnauthorized, CodeInvalidToken, "invalid or malformed token")
}

// TokenExpired is a 401 for an expired token.
func TokenExpired(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusUnauthorized, CodeTokenExpired, "token has expired")
}

// WrongTokenKind is a 401 for a token of the wrong kind, e.g. a refresh
// token presented where an access token is required.
func WrongTokenKind(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusUnauthorized, CodeWrongTokenKind, "token kind not accepted for this operation")
}

// UserNotFound is a 404 for a missing account.
func UserNotFound(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusNotFound, CodeUserNotFound, "user not found")
}

// MissingFilename is a 400 for an upload without a filename.
func MissingFilename(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusBadRequest, CodeMissingFilename, "filename is required")
}

// FilenameTooLong is a 400 for a filename over the length limit.
func FilenameTooLong(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusBadRequest, CodeFilenameTooLong, "filename must not exceed 255 characters")
}

// EmptyFile is a 400 for a zero-byte upload.
func EmptyFile(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusBadRequest, CodeEmptyFile, "file must not be empty")
}

// FileTooLarge is a 413 for a payload over the size limit.
func FileTooLarge(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusRequestEntityTooLarge, CodeFileTooLarge, "file exceeds the maximum allowed size")
}

// StorageError is a 500 for an object-storage backend failure.
func StorageError(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusInternalServerError, CodeStorageError, "object storage is unavailable")
}

// FileNotFound is a 404. It is returned both for files that do not exist
// and for files owned by somebody else.
func FileNotFound(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusNotFound, CodeFileNotFound, "file not found")
}

// FileNotInStorage is a 404 for a metadata record whose object is missing.
func FileNotInStorage(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusNotFound, CodeFileNotInStorage, "file not found in storage")
}

// URLGenerationError is a 500 for a failed presign call.
func URLGenerationError(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusInternalServerError, CodeURLGenerationError, "failed to generate download URL")
}

// LimitTooHigh is a 400 for a page size over the maximum.
func LimitTooHigh(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusBadRequest, CodeLimitTooHigh, "requested limit exceeds the maximum")
}

// DuplicateFile is a 409 for a storage key collision.
func DuplicateFile(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusConflict, CodeDuplicateFile, "file already exists")
}

// RequestTimeout is a 408 for a request that exceeded its deadline.
func RequestTimeout(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusRequestTimeout, CodeRequestTimeout, "request timed out")
}

// InternalError is a 500 that deliberately carries no internal detail.
func InternalError(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusInternalServerError, CodeInternalError, "internal server error")
}
