package fake

// ProtocolEventSource is a scriptable fake of devicemonitor.ProtocolEventSource.
type ProtocolEventSource struct {
	volumeAdded   func(volumeID, activationURI string, hasDrive bool)
	volumeRemoved func(volumeID string)
	mountAdded    func(mountRoot, sourceDevicePath, volumeID string)
	mountRemoved  func(mountRoot string)
}

func NewProtocolEventSource() *ProtocolEventSource { return &ProtocolEventSource{} }

func (s *ProtocolEventSource) Subscribe(
	volumeAdded func(volumeID, activationURI string, hasDrive bool),
	volumeRemoved func(volumeID string),
	mountAdded func(mountRoot, sourceDevicePath, volumeID string),
	mountRemoved func(mountRoot string),
) {
	s.volumeAdded = volumeAdded
	s.volumeRemoved = volumeRemoved
	s.mountAdded = mountAdded
	s.mountRemoved = mountRemoved
}

func (s *ProtocolEventSource) VolumeAdded(volumeID, activationURI string, hasDrive bool) {
	s.volumeAdded(volumeID, activationURI, hasDrive)
}

func (s *ProtocolEventSource) VolumeRemoved(volumeID string) { s.volumeRemoved(volumeID) }

func (s *ProtocolEventSource) MountAdded(mountRoot, sourceDevicePath, volumeID string) {
	s.mountAdded(mountRoot, sourceDevicePath, volumeID)
}

func (s *ProtocolEventSource) MountRemoved(mountRoot string) { s.mountRemoved(mountRoot) }
