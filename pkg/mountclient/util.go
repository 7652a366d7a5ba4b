package mountclient

import (
	"fmt"
	"net/url"
	"strings"
)

// PathToURL converts a local filesystem path to a file:// URL, mirroring
// the original dfmmountutils helper kept per SPEC_FULL.md's supplemented
// features.
func PathToURL(path string) string {
	u := url.URL{Scheme: "file", Path: path}
	return u.String()
}

// URLToDeviceId normalizes a raw URI string into a DeviceId, trimming a
// trailing slash so that "smb://host/share/" and "smb://host/share"
// resolve to the same logical device.
func URLToDeviceId(raw string) DeviceId {
	return DeviceId(strings.TrimSuffix(raw, "/"))
}

// FormatBytes renders a byte count the way the original's size-formatting
// helper does: binary units, one decimal place above 1 KiB.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	units := "KMGTPE"
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), units[exp])
}

// allowedFilesystems is the filesystem-type allow-list the original
// keeps for Mount()'s fsType argument validation.
var allowedFilesystems = map[string]bool{
	"ext2": true, "ext3": true, "ext4": true, "xfs": true, "btrfs": true,
	"vfat": true, "exfat": true, "ntfs": true, "ntfs3": true, "iso9660": true,
	"udf": true, "f2fs": true, "hfsplus": true,
}

// IsAllowedFilesystem reports whether fsType is in the mount backend's
// filesystem allow-list.
func IsAllowedFilesystem(fsType string) bool {
	return allowedFilesystems[strings.ToLower(fsType)]
}
