package opticalengine

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/linuxdeepin/dfm-toolkit/pkg/deviceerr"
)

// sgIOHdr mirrors struct sg_io_hdr from <scsi/sg.h>, the subset of
// fields SG_IO needs for a synchronous command/data-in exchange.
type sgIOHdr struct {
	interfaceID    int32
	dxferDirection int32
	cmdLen         uint8
	mxSBLen        uint8
	iovecCount     uint16
	dxferLen       uint32
	dxferp         uintptr
	cmdp           uintptr
	sbp            uintptr
	timeout        uint32
	flags          uint32
	packID         int32
	usrPtr         uintptr
	status         uint8
	maskedStatus   uint8
	msgStatus      uint8
	sbLenWr        uint8
	hostStatus     uint16
	driverStatus   uint16
	resid          int32
	duration       uint32
	info           uint32
}

const (
	sgDxferFromDev = -3
	sgInterfaceID  = 'S'
	sgIOCode       = 0x2285 // SG_IO
	scsiReadFormatCapacities = 0x23
)

// scsiProbe is the real SCSIProbe, issuing SG_IO against the device node.
type scsiProbe struct{}

// NewSCSIProbe returns the production SCSIProbe.
func NewSCSIProbe() SCSIProbe { return scsiProbe{} }

func (scsiProbe) ReadFormatCapacities(devicePath string) (int64, int64, error) {
	fd, err := unix.Open(devicePath, unix.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return 0, 0, deviceerr.New(deviceerr.SCSIGeneralError, fmt.Sprintf("open %s: %v", devicePath, err))
	}
	defer unix.Close(fd)

	first, err := readFormatCapacities(fd, 12)
	if err != nil {
		return 0, 0, err
	}
	length := int(first[3])
	if length&7 != 0 || length < 16 {
		return 0, 0, deviceerr.New(deviceerr.SCSIGeneralError, fmt.Sprintf("invalid capacity list length %d", length))
	}

	second, err := readFormatCapacities(fd, 4+length)
	if err != nil {
		return 0, 0, err
	}
	if length != int(second[3]) {
		return 0, 0, deviceerr.New(deviceerr.SCSIGeneralError, fmt.Sprintf("capacity list length mismatch: %d != %d", length, second[3]))
	}

	blockSize := int64(second[9])<<16 | int64(second[10])<<8 | int64(second[11])
	capacity := int64(second[12])<<24 | int64(second[13])<<16 | int64(second[14])<<8 | int64(second[15])
	return blockSize, capacity, nil
}

// readFormatCapacities issues a single READ FORMAT CAPACITIES (SCSI
// opcode 0x23) command via SG_IO, requesting allocLen bytes of data-in.
func readFormatCapacities(fd int, allocLen int) ([]byte, error) {
	cdb := [10]byte{
		0: scsiReadFormatCapacities,
		7: byte(allocLen >> 8),
		8: byte(allocLen),
	}
	sense := make([]byte, 32)
	buf := make([]byte, allocLen)

	hdr := sgIOHdr{
		interfaceID:    sgInterfaceID,
		dxferDirection: sgDxferFromDev,
		cmdLen:         uint8(len(cdb)),
		mxSBLen:        uint8(len(sense)),
		dxferLen:       uint32(allocLen),
		dxferp:         uintptr(unsafe.Pointer(&buf[0])),
		cmdp:           uintptr(unsafe.Pointer(&cdb[0])),
		sbp:            uintptr(unsafe.Pointer(&sense[0])),
		timeout:        10000,
	}

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), sgIOCode, uintptr(unsafe.Pointer(&hdr)))
	if errno != 0 {
		return nil, deviceerr.New(deviceerr.SCSIGeneralError, fmt.Sprintf("SG_IO ioctl: %v", errno))
	}
	if hdr.sbLenWr > 0 {
		return nil, deviceerr.New(deviceerr.SCSISenseError, fmt.Sprintf("status=%d host=%d driver=%d sense=%x",
			hdr.status, hdr.hostStatus, hdr.driverStatus, sense[:hdr.sbLenWr]))
	}
	if hdr.status != 0 || hdr.hostStatus != 0 || hdr.driverStatus != 0 {
		return nil, deviceerr.New(deviceerr.SCSIGeneralError, fmt.Sprintf("status=%d host=%d driver=%d",
			hdr.status, hdr.hostStatus, hdr.driverStatus))
	}
	return buf, nil
}
