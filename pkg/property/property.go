// Package property defines the flat, closed Property enumeration shared by
// every device-property lookup in the toolkit (block, drive, filesystem,
// partition, encrypted, protocol).
package property

// Property is a single flat identifier for a device property, independent
// of which backend sub-interface actually carries it. Clients subscribe to
// propertyChanged(device, {Property -> value}) without needing to know
// which D-Bus interface the change came from.
type Property int

// Band boundaries. A Property's band is recovered with Band(), not by
// comparing against these constants directly.
const (
	bandBlockStart      Property = 1
	bandBlockEnd        Property = 29
	bandDriveStart      Property = 30
	bandDriveEnd        Property = 59
	bandFilesystemStart Property = 60
	bandFilesystemEnd   Property = 79
	bandPartitionStart  Property = 80
	bandPartitionEnd    Property = 99
	bandEncryptedStart  Property = 100
	bandEncryptedEnd    Property = 119
	bandProtocolStart   Property = 800
)

// Block interface properties (1-29).
const (
	BlockConfiguration Property = iota + 1
	BlockCryptoBackingDevice
	BlockDevice
	BlockDrive
	BlockIDLabel
	BlockIDType
	BlockIDUsage
	BlockIDUUID
	BlockIDVersion
	BlockDeviceNumber
	BlockPreferredDevice
	BlockSize
	BlockReadOnly
	BlockSymlinks
	BlockHintAuto
	BlockHintIconName
	BlockHintIgnore
	BlockHintName
	BlockHintPartitionable
	BlockHintSystem
	BlockMDRaid
	BlockMDRaidMember
)

// Drive interface properties (30-59).
const (
	DriveConnectionBus Property = iota + 30
	DriveRemovable
	DriveEjectable
	DriveSeat
	DriveMedia
	DriveMediaCompatibility
	DriveMediaRemovable
	DriveMediaAvailable
	DriveMediaChangeDetected
	DriveTimeDetected
	DriveTimeMediaDetected
	DriveSize
	DriveOptical
	DriveOpticalBlank
	DriveOpticalNumTracks
	DriveOpticalNumAudioTracks
	DriveOpticalNumDataTracks
	DriveOpticalNumSessions
	DriveModel
	DriveRevision
	DriveRotationRate
	DriveSerial
	DriveVendor
	DriveWWN
	DriveSortKey
	DriveConfiguration
	DriveID
	DriveCanPowerOff
	DriveSiblingID
)

// Filesystem interface properties (60-79).
const (
	FilesystemMountPoints Property = iota + 60
)

// Partition interface properties (80-99).
const (
	PartitionNumber Property = iota + 80
	PartitionType
	PartitionOffset
	PartitionSize
	PartitionFlags
	PartitionName
	PartitionUUID
	PartitionTable
	PartitionIsContainer
	PartitionIsContained
)

// Encrypted interface properties (100-119).
const (
	EncryptedChildConfiguration Property = iota + 100
	EncryptedCleartextDevice
	EncryptedHintEncryptionType
	EncryptedMetadataSize
)

// Protocol placeholder range (800+).
const (
	ProtocolPlaceholder Property = iota + 800
)

// Band names.
const (
	BandUnknown     = "unknown"
	BandBlock       = "block"
	BandDrive       = "drive"
	BandFilesystem  = "filesystem"
	BandPartition   = "partition"
	BandEncrypted   = "encrypted"
	BandProtocol    = "protocol"
)

// Band returns the named band a Property falls in, used to select which
// backend sub-interface a lookup must target.
func Band(p Property) string {
	switch {
	case p >= bandBlockStart && p <= bandBlockEnd:
		return BandBlock
	case p >= bandDriveStart && p <= bandDriveEnd:
		return BandDrive
	case p >= bandFilesystemStart && p <= bandFilesystemEnd:
		return BandFilesystem
	case p >= bandPartitionStart && p <= bandPartitionEnd:
		return BandPartition
	case p >= bandEncryptedStart && p <= bandEncryptedEnd:
		return BandEncrypted
	case p >= bandProtocolStart:
		return BandProtocol
	default:
		return BandUnknown
	}
}

// nameTable is the single compile-time bidirectional name<->enum mapping,
// scanned both ways instead of maintaining two hand-rolled maps (design
// note).
var nameTable = []struct {
	prop Property
	name string
}{
	{BlockConfiguration, "Block.Configuration"},
	{BlockCryptoBackingDevice, "Block.CryptoBackingDevice"},
	{BlockDevice, "Block.Device"},
	{BlockDrive, "Block.Drive"},
	{BlockIDLabel, "Block.IdLabel"},
	{BlockIDType, "Block.IdType"},
	{BlockIDUsage, "Block.IdUsage"},
	{BlockIDUUID, "Block.IdUUID"},
	{BlockIDVersion, "Block.IdVersion"},
	{BlockDeviceNumber, "Block.DeviceNumber"},
	{BlockPreferredDevice, "Block.PreferredDevice"},
	{BlockSize, "Block.Size"},
	{BlockReadOnly, "Block.ReadOnly"},
	{BlockSymlinks, "Block.Symlinks"},
	{BlockHintAuto, "Block.HintAuto"},
	{BlockHintIconName, "Block.HintIconName"},
	{BlockHintIgnore, "Block.HintIgnore"},
	{BlockHintName, "Block.HintName"},
	{BlockHintPartitionable, "Block.HintPartitionable"},
	{BlockHintSystem, "Block.HintSystem"},
	{BlockMDRaid, "Block.MDRaid"},
	{BlockMDRaidMember, "Block.MDRaidMember"},

	{DriveConnectionBus, "Drive.ConnectionBus"},
	{DriveRemovable, "Drive.Removable"},
	{DriveEjectable, "Drive.Ejectable"},
	{DriveSeat, "Drive.Seat"},
	{DriveMedia, "Drive.Media"},
	{DriveMediaCompatibility, "Drive.MediaCompatibility"},
	{DriveMediaRemovable, "Drive.MediaRemovable"},
	{DriveMediaAvailable, "Drive.MediaAvailable"},
	{DriveMediaChangeDetected, "Drive.MediaChangeDetected"},
	{DriveTimeDetected, "Drive.TimeDetected"},
	{DriveTimeMediaDetected, "Drive.TimeMediaDetected"},
	{DriveSize, "Drive.Size"},
	{DriveOptical, "Drive.Optical"},
	{DriveOpticalBlank, "Drive.OpticalBlank"},
	{DriveOpticalNumTracks, "Drive.OpticalNumTracks"},
	{DriveOpticalNumAudioTracks, "Drive.OpticalNumAudioTracks"},
	{DriveOpticalNumDataTracks, "Drive.OpticalNumDataTracks"},
	{DriveOpticalNumSessions, "Drive.OpticalNumSessions"},
	{DriveModel, "Drive.Model"},
	{DriveRevision, "Drive.Revision"},
	{DriveRotationRate, "Drive.RotationRate"},
	{DriveSerial, "Drive.Serial"},
	{DriveVendor, "Drive.Vendor"},
	{DriveWWN, "Drive.WWN"},
	{DriveSortKey, "Drive.SortKey"},
	{DriveConfiguration, "Drive.Configuration"},
	{DriveID, "Drive.Id"},
	{DriveCanPowerOff, "Drive.CanPowerOff"},
	{DriveSiblingID, "Drive.SiblingId"},

	{FilesystemMountPoints, "Filesystem.MountPoints"},

	{PartitionNumber, "Partition.Number"},
	{PartitionType, "Partition.Type"},
	{PartitionOffset, "Partition.Offset"},
	{PartitionSize, "Partition.Size"},
	{PartitionFlags, "Partition.Flags"},
	{PartitionName, "Partition.Name"},
	{PartitionUUID, "Partition.UUID"},
	{PartitionTable, "Partition.Table"},
	{PartitionIsContainer, "Partition.IsContainer"},
	{PartitionIsContained, "Partition.IsContained"},

	{EncryptedChildConfiguration, "Encrypted.ChildConfiguration"},
	{EncryptedCleartextDevice, "Encrypted.CleartextDevice"},
	{EncryptedHintEncryptionType, "Encrypted.HintEncryptionType"},
	{EncryptedMetadataSize, "Encrypted.MetadataSize"},
}

var (
	propToName map[Property]string
	nameToProp map[string]Property
)

func init() {
	propToName = make(map[Property]string, len(nameTable))
	nameToProp = make(map[string]Property, len(nameTable))
	for _, e := range nameTable {
		propToName[e.prop] = e.name
		nameToProp[e.name] = e.prop
	}
}

// Name returns the interface-qualified name for p, or "" if p is unknown.
func Name(p Property) string {
	return propToName[p]
}

// FromInterfaceAndName resolves a (D-Bus interface, member name) pair
// emitted by the backend's property-changed signal to the flat enum.
// Unknown pairs resolve to (0, false) and must be dropped by the caller
// (unknown values are dropped rather than erroring).
func FromInterfaceAndName(iface, name string) (Property, bool) {
	band := ifaceBand(iface)
	if band == "" {
		return 0, false
	}
	p, ok := nameToProp[band+"."+name]
	return p, ok
}

func ifaceBand(iface string) string {
	switch iface {
	case "org.freedesktop.UDisks2.Block":
		return "Block"
	case "org.freedesktop.UDisks2.Drive":
		return "Drive"
	case "org.freedesktop.UDisks2.Filesystem":
		return "Filesystem"
	case "org.freedesktop.UDisks2.Partition":
		return "Partition"
	case "org.freedesktop.UDisks2.Encrypted":
		return "Encrypted"
	default:
		return ""
	}
}
