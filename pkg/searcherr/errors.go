// Package searcherr defines the search engine's error code enumeration.
package searcherr

import "fmt"

type Code int

const (
	Success Code = iota
	InvalidQuery
	InvalidBoolean
	InvalidPinyinFormat
	InvalidFileTypes
	InvalidSearchMethod
	KeywordIsEmpty
	KeywordTooShort
	PathIsEmpty
	PathNotFound
	PermissionDenied
	FileNameIndexNotFound
	ContentIndexNotFound
	ContentIndexException
	WildcardNotSupported
	SearchTimeout
	InternalError
)

var codeNames = [...]string{
	"Success",
	"InvalidQuery",
	"InvalidBoolean",
	"InvalidPinyinFormat",
	"InvalidFileTypes",
	"InvalidSearchMethod",
	"KeywordIsEmpty",
	"KeywordTooShort",
	"PathIsEmpty",
	"PathNotFound",
	"PermissionDenied",
	"FileNameIndexNotFound",
	"ContentIndexNotFound",
	"ContentIndexException",
	"WildcardNotSupported",
	"SearchTimeout",
	"InternalError",
}

func (c Code) String() string {
	if int(c) >= 0 && int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Error is a SearchError value returned by pre-flight validation, query
// construction, or engine execution.
type Error struct {
	Code   Code
	Detail string
}

func New(code Code, detail string) *Error {
	return &Error{Code: code, Detail: detail}
}

// Error returns the sanitized, user-facing rendering of e. e.Detail
// itself keeps the raw, unsanitized text for klog — callers that log
// through klog should log e.Detail directly rather than e.Error().
func (e *Error) Error() string {
	detail := e.Sanitize()
	if detail == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, detail)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}
