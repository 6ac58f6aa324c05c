package dnpacket

import "github.com/braboj/protocol-devicenet/dnerr"

// IO is an unfragmented I/O message: the raw produced/consumed data with
// no message header at all. Addressing alone (the CAN identifier) tells
// the receiver everything it needs -- poll/bit-strobe/cos/cyclic
// connections are already established by the time I/O frames flow.
type IO struct {
	Header
	Data []byte // at most 8 bytes
}

// Validate bounds-checks the packet's fields.
func (p IO) Validate() error {
	if len(p.Data) > 8 {
		return dnerr.NewPacketError("io payload too long: %d bytes", len(p.Data))
	}
	return nil
}

// ToFrame serializes the packet to a CAN identifier and payload.
func (p IO) ToFrame() (uint32, []byte, error) {
	if err := p.Validate(); err != nil {
		return 0, nil, err
	}
	id, err := p.canID()
	if err != nil {
		return 0, nil, err
	}
	return id, append([]byte(nil), p.Data...), nil
}

// ParseIO parses a raw frame as an I/O message. otherMAC is supplied by
// the caller from connection state, since I/O frames carry no header byte
// to recover it from.
func ParseIO(rawCANID uint32, payload []byte, otherMAC int) (IO, error) {
	h, err := fromCANHeader(rawCANID, otherMAC)
	if err != nil {
		return IO{}, err
	}
	p := IO{Header: h, Data: append([]byte(nil), payload...)}
	return p, p.Validate()
}

// IOFragment is one fragment of a reassembled I/O message: a single
// fragment-header byte followed by up to 7 bytes of data.
type IOFragment struct {
	Header
	FragType  FragType
	FragCount int
	Data      []byte
}

// Validate bounds-checks the packet's fields.
func (p IOFragment) Validate() error {
	if p.FragCount < 0 || p.FragCount > 0x3F {
		return dnerr.NewPacketError("fragment count out of range: %d", p.FragCount)
	}
	if len(p.Data) > 7 {
		return dnerr.NewPacketError("io fragment data too long: %d bytes", len(p.Data))
	}
	return nil
}

// ToFrame serializes the packet to a CAN identifier and payload.
func (p IOFragment) ToFrame() (uint32, []byte, error) {
	if err := p.Validate(); err != nil {
		return 0, nil, err
	}
	id, err := p.canID()
	if err != nil {
		return 0, nil, err
	}
	fragByte, err := fragHeaderByte(p.FragType, p.FragCount)
	if err != nil {
		return 0, nil, err
	}
	payload := make([]byte, 0, 1+len(p.Data))
	payload = append(payload, fragByte)
	payload = append(payload, p.Data...)
	return id, payload, nil
}

// ParseIOFragment parses a raw frame as an I/O fragment.
func ParseIOFragment(rawCANID uint32, payload []byte, otherMAC int) (IOFragment, error) {
	if len(payload) < 1 {
		return IOFragment{}, dnerr.NewParsingError("io fragment too short: %d bytes", len(payload))
	}
	h, err := fromCANHeader(rawCANID, otherMAC)
	if err != nil {
		return IOFragment{}, err
	}
	ft, count := parseFragHeaderByte(payload[0])
	p := IOFragment{Header: h, FragType: ft, FragCount: count, Data: append([]byte(nil), payload[1:]...)}
	return p, p.Validate()
}
