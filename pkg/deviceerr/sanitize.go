package deviceerr

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Sanitization patterns for anything that might leak into a backend error
// string (D-Bus fault text, gvfs/udisks2 messages, cdrskin output) before
// it reaches a user-facing surface.
var (
	ipv4Pattern = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	ipv6Pattern = regexp.MustCompile(`\b(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}\b`)

	// Unix absolute paths; /dev, /sys, /proc are kept as-is since they
	// name the device itself rather than user data.
	unixPathPattern = regexp.MustCompile(`/[a-zA-Z0-9_\-]+(?:/[a-zA-Z0-9_.\-]+)*`)

	hostnamePattern = regexp.MustCompile(`\b[a-z0-9]([a-z0-9\-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9\-]{0,61}[a-z0-9])?)*\.(com|net|org|io|local|lan)\b`)

	whitespacePattern = regexp.MustCompile(`\s+`)
)

var devicePathPrefixes = []string{"/dev/", "/sys/", "/proc/"}

// Sanitize strips filesystem paths, IP addresses, and hostnames from msg,
// leaving only a path's basename (and device paths untouched) so a
// user-facing error doesn't leak directory structure or network identity
// from the backend it came from.
func Sanitize(msg string) string {
	msg = ipv4Pattern.ReplaceAllString(msg, "[IP-ADDRESS]")
	msg = ipv6Pattern.ReplaceAllString(msg, "[IP-ADDRESS]")
	msg = sanitizePaths(msg)
	msg = hostnamePattern.ReplaceAllString(msg, "[HOSTNAME]")
	msg = whitespacePattern.ReplaceAllString(msg, " ")
	return strings.TrimSpace(msg)
}

func sanitizePaths(msg string) string {
	return unixPathPattern.ReplaceAllStringFunc(msg, func(path string) string {
		for _, prefix := range devicePathPrefixes {
			if strings.HasPrefix(path, prefix) {
				return path
			}
		}
		base := filepath.Base(path)
		if base == "." || base == "/" || base == "" {
			return "[PATH]"
		}
		return fmt.Sprintf("[PATH]/%s", base)
	})
}

// Sanitize returns e.Detail with backend-internal paths/addresses
// stripped, for display to a caller outside the process. e.Detail itself
// is left untouched so klog can still log the unsanitized original.
func (e *Error) Sanitize() string {
	return Sanitize(e.Detail)
}
