package fake

import "github.com/linuxdeepin/dfm-toolkit/pkg/mountclient"

// BlockEventSource is a scriptable fake of devicemonitor.BlockEventSource:
// tests call its Add/Remove/... methods directly to simulate udisks2
// ObjectManager signals without a real system bus.
type BlockEventSource struct {
	added       func(objectPath string, hasFilesystem, hasEncrypted, hasDrive, driveEjectable, driveCanPowerOff bool)
	removed     func(objectPath string)
	fsAdded     func(objectPath string)
	fsRemoved   func(objectPath string)
	propChanged func(objectPath string, changed mountclient.PropertyBag)
}

func NewBlockEventSource() *BlockEventSource { return &BlockEventSource{} }

func (s *BlockEventSource) Subscribe(
	added func(objectPath string, hasFilesystem, hasEncrypted, hasDrive, driveEjectable, driveCanPowerOff bool),
	removed func(objectPath string),
	fsAdded func(objectPath string),
	fsRemoved func(objectPath string),
	propChanged func(objectPath string, changed mountclient.PropertyBag),
) {
	s.added = added
	s.removed = removed
	s.fsAdded = fsAdded
	s.fsRemoved = fsRemoved
	s.propChanged = propChanged
}

func (s *BlockEventSource) Add(objectPath string, hasFilesystem, hasEncrypted, hasDrive, driveEjectable, driveCanPowerOff bool) {
	s.added(objectPath, hasFilesystem, hasEncrypted, hasDrive, driveEjectable, driveCanPowerOff)
}

func (s *BlockEventSource) Remove(objectPath string) { s.removed(objectPath) }

func (s *BlockEventSource) FilesystemAdded(objectPath string)   { s.fsAdded(objectPath) }
func (s *BlockEventSource) FilesystemRemoved(objectPath string) { s.fsRemoved(objectPath) }

func (s *BlockEventSource) PropertiesChanged(objectPath string, changed mountclient.PropertyBag) {
	s.propChanged(objectPath, changed)
}
