// Package deviceerr defines a single error type for the mount client and
// device monitor whose numeric code falls into one of four bands
// (backend, I/O, D-Bus, user-level) plus an UnhandledError catch-all, so
// transport errors can be translated to a band cheaply.
package deviceerr

import "fmt"

// Code is a DeviceError code. Bands:
//
//	0-199   backend (udisks-like)
//	200-399 I/O (gio-like)
//	400-799 D-Bus
//	800-999 user-level
//	1000    unhandled
type Code int

const (
	// Backend band (0-199).
	Cancelled Code = iota
	NotAuthorized
	AlreadyMounted
	AlreadyUnmounted
	OptionNotPermitted
	NotSupported
	TimedOut
	DeviceBusy
	SCSIGeneralError
	SCSISenseError
)

const (
	// I/O band (200-399).
	IONotFound Code = iota + 200
	IOPermissionDenied
	IOAlreadyMounted
	IOHostNotFound
	IOHostUnreachable
	IOInvalidArgument
	IOFailed
)

const (
	// D-Bus band (400-799).
	DBusNoReply Code = iota + 400
	DBusInvalidArgs
	DBusAccessDenied
	DBusAuthFailed
	DBusNoNetwork
	DBusObjectUnknown
	DBusInterfaceUnknown
	DBusPropertyUnknown
	DBusServiceUnknown
)

const (
	// User-level band (800-999).
	UserErrorNotMountable Code = iota + 800
	UserErrorNotEjectable
	UserErrorNoDriver
	UserErrorNotEncryptable
	UserErrorNoPartition
	UserErrorNoBlock
	UserErrorNetworkWrongPasswd
	UserErrorNetworkAnonymousNotAllowed
	UserErrorUserCancelled
	UserErrorTimedOut
	UserErrorAlreadyMounted
	UserErrorNotMounted
	UserErrorNotPoweroffable
	UserErrorAuthenticationFailed
	UserErrorFailed
)

// UnhandledError is the catch-all for anything that doesn't map to a band.
const UnhandledError Code = 1000

// band names, used only for Error()'s diagnostic text.
func (c Code) band() string {
	switch {
	case c >= 0 && c < 200:
		return "backend"
	case c >= 200 && c < 400:
		return "io"
	case c >= 400 && c < 800:
		return "dbus"
	case c >= 800 && c < 1000:
		return "user"
	default:
		return "unhandled"
	}
}

var codeNames = map[Code]string{
	Cancelled:                           "Cancelled",
	NotAuthorized:                       "NotAuthorized",
	AlreadyMounted:                      "AlreadyMounted",
	AlreadyUnmounted:                    "AlreadyUnmounted",
	OptionNotPermitted:                  "OptionNotPermitted",
	NotSupported:                        "NotSupported",
	TimedOut:                            "TimedOut",
	DeviceBusy:                          "DeviceBusy",
	SCSIGeneralError:                    "SCSIGeneralError",
	SCSISenseError:                      "SCSISenseError",
	IONotFound:                          "IONotFound",
	IOPermissionDenied:                  "IOPermissionDenied",
	IOAlreadyMounted:                    "IOAlreadyMounted",
	IOHostNotFound:                      "IOHostNotFound",
	IOHostUnreachable:                   "IOHostUnreachable",
	IOInvalidArgument:                   "IOInvalidArgument",
	IOFailed:                            "IOFailed",
	DBusNoReply:                         "DBusNoReply",
	DBusInvalidArgs:                     "DBusInvalidArgs",
	DBusAccessDenied:                    "DBusAccessDenied",
	DBusAuthFailed:                      "DBusAuthFailed",
	DBusNoNetwork:                       "DBusNoNetwork",
	DBusObjectUnknown:                   "DBusObjectUnknown",
	DBusInterfaceUnknown:                "DBusInterfaceUnknown",
	DBusPropertyUnknown:                 "DBusPropertyUnknown",
	DBusServiceUnknown:                  "DBusServiceUnknown",
	UserErrorNotMountable:                "UserErrorNotMountable",
	UserErrorNotEjectable:                "UserErrorNotEjectable",
	UserErrorNoDriver:                    "UserErrorNoDriver",
	UserErrorNotEncryptable:              "UserErrorNotEncryptable",
	UserErrorNoPartition:                 "UserErrorNoPartition",
	UserErrorNoBlock:                     "UserErrorNoBlock",
	UserErrorNetworkWrongPasswd:          "UserErrorNetworkWrongPasswd",
	UserErrorNetworkAnonymousNotAllowed:  "UserErrorNetworkAnonymousNotAllowed",
	UserErrorUserCancelled:               "UserErrorUserCancelled",
	UserErrorTimedOut:                    "UserErrorTimedOut",
	UserErrorAlreadyMounted:              "UserErrorAlreadyMounted",
	UserErrorNotMounted:                  "UserErrorNotMounted",
	UserErrorNotPoweroffable:             "UserErrorNotPoweroffable",
	UserErrorAuthenticationFailed:        "UserErrorAuthenticationFailed",
	UserErrorFailed:                      "UserErrorFailed",
	UnhandledError:                       "UnhandledError",
}

func (c Code) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Error is a device error value: a code plus the detail that produced it.
// Sync calls return *Error directly; async calls pass it to the caller's
// completion callback; every device operation also sets it as the
// device's sticky LastError.
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
		return fmt.Sprintf("%s error: %s", e.Code.band(), e.Code)
	}
	return fmt.Sprintf("%s error: %s: %s", e.Code.band(), e.Code, detail)
}

// Is allows errors.Is(err, deviceerr.New(Code, "")) to match purely on
// code, regardless of Detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}
