package searcherr

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Same sanitization shape as pkg/deviceerr.Sanitize, duplicated rather
// than shared since the two error packages intentionally carry no
// dependency on each other.
var (
	ipv4Pattern       = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	ipv6Pattern       = regexp.MustCompile(`\b(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}\b`)
	unixPathPattern   = regexp.MustCompile(`/[a-zA-Z0-9_\-]+(?:/[a-zA-Z0-9_.\-]+)*`)
	hostnamePattern   = regexp.MustCompile(`\b[a-z0-9]([a-z0-9\-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9\-]{0,61}[a-z0-9])?)*\.(com|net|org|io|local|lan)\b`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Sanitize strips filesystem paths down to their basename and removes
// IP addresses/hostnames from msg, so a PathNotFound/PermissionDenied
// error doesn't expose a search tree's full directory layout to a log
// or UI shared outside the searching user's own session.
func Sanitize(msg string) string {
	msg = ipv4Pattern.ReplaceAllString(msg, "[IP-ADDRESS]")
	msg = ipv6Pattern.ReplaceAllString(msg, "[IP-ADDRESS]")
	msg = unixPathPattern.ReplaceAllStringFunc(msg, func(path string) string {
		base := filepath.Base(path)
		if base == "." || base == "/" || base == "" {
			return "[PATH]"
		}
		return fmt.Sprintf("[PATH]/%s", base)
	})
	msg = hostnamePattern.ReplaceAllString(msg, "[HOSTNAME]")
	msg = whitespacePattern.ReplaceAllString(msg, " ")
	return strings.TrimSpace(msg)
}

// Sanitize returns e.Detail with paths reduced to a basename, for
// display to a caller outside the process. e.Detail itself is left
// untouched so klog can still log the unsanitized original.
func (e *Error) Sanitize() string {
	return Sanitize(e.Detail)
}
