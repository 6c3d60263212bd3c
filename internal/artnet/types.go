package artnet

// ChannelValue defines an ArtNet Universe and the value of the DMX channel.
type ChannelValue struct {
	Universe uint16 // Universe: старший байт - Net, младший байт - SubUni.
	Channel  uint16 // Channel: номер байта (канал).
	Value    uint8  // Value: значение для канала.
}

// Universe wraps the 512 byte array for convenience.
type Universe [512]byte

// UniverseStateMap holds the state of all used universes.
type UniverseStateMap map[uint16]Universe

// Binding mirrors one host parameter onto one DMX channel.
type Binding struct {
	Group    string
	Key      string
	Universe uint16
	Channel  uint16 // Channel is the channel a binding writes to (0-511).
}

// NodeTopic describes the output ports of a discovered node.
type NodeTopic struct {
	Name   string
	Output []string
}
