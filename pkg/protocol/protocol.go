// Package protocol defines the Data Lake Gen2 REST wire types and constants.
package protocol

// APIVersion is sent as x-ms-version on every request.
const APIVersion = "2019-02-02"

// DefaultDNSSuffix completes the storage account host name.
const DefaultDNSSuffix = ".dfs.core.windows.net"

// Query parameter names.
const (
	ParamResource  = "resource"
	ParamRecursive = "recursive"
	ParamDirectory = "directory"
	ParamAction    = "action"
	ParamPosition  = "position"
)

// Values for the "resource" parameter.
const (
	ResourceFilesystem = "filesystem"
	ResourceFile       = "file"
)

// Values for the "action" parameter.
const (
	ActionAppend    = "append"
	ActionFlush     = "flush"
	ActionGetStatus = "getStatus"
)

// Request and response headers.
const (
	HeaderVersion      = "x-ms-version"
	HeaderResourceType = "x-ms-resource-type"
	HeaderErrorCode    = "x-ms-error-code"
	HeaderMediaType    = "Media-Type"
)

// Provider error codes that mean "the path does not exist".
const (
	CodePathNotFound       = "PathNotFound"
	CodeFilesystemNotFound = "FilesystemNotFound"
	CodeBlobNotFound       = "BlobNotFound"
)

// CodeInvalidFlushPosition is returned when a flush position does not match
// the contiguous length of previously appended data.
const CodeInvalidFlushPosition = "InvalidFlushPosition"

// ListResponse is the body of GET ?resource=filesystem.
type ListResponse struct {
	Paths []PathItem `json:"paths"`
}

// PathItem is one entry of a listing response. The service encodes
// numeric and boolean fields as strings and omits them freely, so the
// raw shape stays in this package and is normalized into Entry before
// crossing any other boundary.
type PathItem struct {
	Name          string `json:"name"`
	IsDirectory   string `json:"isDirectory,omitempty"`
	ContentLength string `json:"contentLength,omitempty"`
	LastModified  string `json:"lastModified,omitempty"`
	ETag          string `json:"etag,omitempty"`
}

// ErrorResponse is the error envelope returned on failed requests.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the provider's structured error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Kind distinguishes files from directories in normalized entries.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// Entry is the canonical directory entry produced from provider responses.
// It is an immutable value with no identity beyond its name.
type Entry struct {
	Name string `json:"name"`
	Size uint64 `json:"size"`
	Kind Kind   `json:"type"`
}
