package mountclient

import (
	"strings"

	"github.com/moby/sys/mountinfo"
	"k8s.io/klog/v2"
)

// pseudoAndNetworkFSTypes are filesystem types excluded from source-based
// deduplication of /proc/self/mountinfo ("first mount-point
// canonicalization", §6 "deduplicating pseudo and network FS").
var pseudoAndNetworkFSTypes = map[string]bool{
	"proc": true, "sysfs": true, "tmpfs": true, "devtmpfs": true,
	"cgroup": true, "cgroup2": true, "devpts": true, "mqueue": true,
	"fusectl": true, "securityfs": true, "debugfs": true, "tracefs": true,
	"nfs": true, "nfs4": true, "cifs": true, "smbfs": true, "fuse.sshfs": true,
	"fuse.gvfsd-fuse": true, "autofs": true,
}

// canonicalMountPoint implements "first mount-point
// canonicalization": when the backend reports several mount points for
// the same device, read /proc/self/mountinfo (deduplicating pseudo/network
// filesystems by source) and return the first real mount point matching
// this device; mountPoints is the backend-reported list in its own
// order, used as a fallback when /proc/self/mountinfo can't be read or
// doesn't mention any of them.
func canonicalMountPoint(mountPoints []string) string {
	if len(mountPoints) == 0 {
		return ""
	}
	if len(mountPoints) == 1 {
		return mountPoints[0]
	}

	entries, err := mountinfo.GetMounts(nil)
	if err != nil {
		klog.V(3).Infof("mountclient: failed to read /proc/self/mountinfo: %v", err)
		return mountPoints[0]
	}

	seenSource := make(map[string]bool)
	want := make(map[string]bool, len(mountPoints))
	for _, mp := range mountPoints {
		want[mp] = true
	}

	for _, e := range entries {
		if pseudoAndNetworkFSTypes[e.FSType] {
			continue
		}
		if seenSource[e.Source] {
			continue
		}
		seenSource[e.Source] = true
		if want[e.Mountpoint] {
			return e.Mountpoint
		}
	}
	return mountPoints[0]
}

// IsPseudoOrNetworkFS reports whether fsType should be excluded from
// source-based dedup (exported for reuse by pkg/netmount's already-
// mounted detection).
func IsPseudoOrNetworkFS(fsType string) bool {
	return pseudoAndNetworkFSTypes[strings.ToLower(fsType)]
}

// ReadMounts exposes the raw mountinfo entries for callers (e.g.
// pkg/netmount) that need to match an address/target pair rather than a
// single device's canonical mount point.
func ReadMounts() ([]*mountinfo.Info, error) {
	return mountinfo.GetMounts(nil)
}
