package catalog

import (
	"errors"
	"fmt"
)

// ErrNoRows is the sentinel a query run returns both when the query matched
// nothing and when a chunked execution has been exhausted. The two meanings
// are distinguished by the caller, by whether a chunk was already obtained.
var ErrNoRows = errors.New("no rows found")

// ErrNotConnected is returned by calls made on a closed client.
var ErrNotConnected = errors.New("not connected to the catalog")

// Catalog error codes, mirrored from the store's own vocabulary so that
// embedded errors can carry the store's code and name verbatim.
const (
	CodeInvalidArgument    = -101
	CodeItemNotFound       = -310
	CodeNameExists         = -312
	CodeNoAccess           = -350
	CodeCollectionNotEmpty = -421
	CodeChecksumMismatch   = -407
	CodeInternal           = -500
)

var codeNames = map[int]string{
	CodeInvalidArgument:    "CAT_INVALID_ARGUMENT",
	CodeItemNotFound:       "CAT_ITEM_NOT_FOUND",
	CodeNameExists:         "CAT_NAME_EXISTS_AS_ENTITY",
	CodeNoAccess:           "CAT_NO_ACCESS_PERMISSION",
	CodeCollectionNotEmpty: "CAT_COLLECTION_NOT_EMPTY",
	CodeChecksumMismatch:   "CAT_CHECKSUM_MISMATCH",
	CodeInternal:           "CAT_INTERNAL_ERROR",
}

// Error is a failure reported by the catalog store, carrying the store's
// numeric code and symbolic name alongside a human-readable message.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	if name, ok := codeNames[e.Code]; ok {
		return fmt.Sprintf("%s: %s [%d]", name, e.Message, e.Code)
	}
	return fmt.Sprintf("%s [%d]", e.Message, e.Code)
}

// NewError builds a catalog error with a formatted message.
func NewError(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorCode extracts the catalog code from err, or a generic internal code
// when err is not a catalog error.
func ErrorCode(err error) int {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code
	}
	return CodeInternal
}
