// Package opticalengine acquires an optical drive, inspects media, and
// runs burn/erase/dump/verify jobs by driving an external ISO-writing
// backend and scraping its textual progress stream.
package opticalengine

import (
	"context"
)

// MediaType enumerates the optical media kinds the drive can report.
type MediaType int

const (
	NoMedia MediaType = iota
	CDROM
	CDR
	CDRW
	DVDROM
	DVDR
	DVDRW
	DVDPlusR
	DVDPlusRDL
	DVDRAM
	DVDPlusRW
	BDROM
	BDR
	BDRE
)

var mediaTypeNames = map[MediaType]string{
	NoMedia:    "NoMedia",
	CDROM:      "CD-ROM",
	CDR:        "CD-R",
	CDRW:       "CD-RW",
	DVDROM:     "DVD-ROM",
	DVDR:       "DVD-R",
	DVDRW:      "DVD-RW",
	DVDPlusR:   "DVD+R",
	DVDPlusRDL: "DVD+R/DL",
	DVDRAM:     "DVD-RAM",
	DVDPlusRW:  "DVD+RW",
	BDROM:      "BD-ROM",
	BDR:        "BD-R",
	BDRE:       "BD-RE",
}

func (m MediaType) String() string {
	if n, ok := mediaTypeNames[m]; ok {
		return n
	}
	return "NoMedia"
}

// mediaTypeByToken maps the exact token the backend prints before the
// first space in a "Media current:" line to its MediaType.
var mediaTypeByToken = map[string]MediaType{
	"CD-ROM":   CDROM,
	"CD-R":     CDR,
	"CD-RW":    CDRW,
	"DVD-ROM":  DVDROM,
	"DVD-R":    DVDR,
	"DVD-RW":   DVDRW,
	"DVD+R":    DVDPlusR,
	"DVD+R/DL": DVDPlusRDL,
	"DVD-RAM":  DVDRAM,
	"DVD+RW":   DVDPlusRW,
	"BD-ROM":   BDROM,
	"BD-R":     BDR,
	"BD-RE":    BDRE,
}

// WriteSpeed is a single entry from the drive's "Write speed" list,
// formatted by the backend as "<bytes/s>\t<label>".
type WriteSpeed struct {
	BytesPerSecond int64
	Label          string
}

// DiscInfo is an immutable snapshot acquired by locking the drive,
// reading its properties, then releasing it.
type DiscInfo struct {
	DevicePath    string
	Media         MediaType
	Blank         bool
	VolumeID      string
	UsedBytes     int64
	AvailBytes    int64
	TotalBytes    int64
	DataBlocks    int64
	WriteSpeeds   []WriteSpeed
}

// DeviceHandle is the backend surface the engine drives: acquiring
// exclusive access to the optical drive, listing its properties and
// speeds, and running the textual-progress-emitting job commands.
type DeviceHandle interface {
	// AcquireDevice exclusively locks the drive node. Busy is reported
	// as an error, never as blocking.
	AcquireDevice(ctx context.Context, devicePath string) error
	ReleaseDevice(ctx context.Context) error

	// ListProperties returns the sieve-able "key : value" lines the
	// backend prints for "list properties".
	ListProperties(ctx context.Context) ([]string, error)
	// ListSpeeds returns the sieve-able "Write speed" lines.
	ListSpeeds(ctx context.Context) ([]string, error)

	// RunCommands issues a sequence of engine commands (e.g.
	// "speed 24", "volid MYDISC", "commit") and returns the evaluated
	// problem status of the last command (<=0 means failure).
	RunCommands(ctx context.Context, commands []string) (status int, err error)

	// Watch subscribes to the backend's message watcher, delivering
	// each raw textual line until ctx is cancelled or the job backend
	// closes the stream.
	Watch(ctx context.Context) (<-chan string, error)
}

// SCSIProbe issues the DVD-RW true-capacity probe against a device
// node. Implemented over SG_IO in scsi.go; swapped for a fake in tests.
type SCSIProbe interface {
	ReadFormatCapacities(devicePath string) (blockSize int64, capacityBlocks int64, err error)
}
