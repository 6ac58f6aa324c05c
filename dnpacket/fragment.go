package dnpacket

import "github.com/braboj/protocol-devicenet/dnerr"

// ExplicitFragment is one fragment of a reassembled explicit message:
// fragFlag is implicitly 1, so the fragment-header byte follows the
// message-header byte directly. Data holds at most 6 bytes -- the explicit
// frame budget minus the message-header and fragment-header bytes.
type ExplicitFragment struct {
	Header
	XID       bool
	FragType  FragType
	FragCount int
	Data      []byte
}

// Validate bounds-checks the packet's fields.
func (p ExplicitFragment) Validate() error {
	if p.FragType == FragAck {
		return dnerr.NewPacketError("use ExplicitFragmentAck for ack fragments")
	}
	if p.FragCount < 0 || p.FragCount > 0x3F {
		return dnerr.NewPacketError("fragment count out of range: %d", p.FragCount)
	}
	if len(p.Data) > 6 {
		return dnerr.NewPacketError("fragment data too long: %d bytes", len(p.Data))
	}
	return nil
}

// ToFrame serializes the packet to a CAN identifier and payload.
func (p ExplicitFragment) ToFrame() (uint32, []byte, error) {
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

	_, other := p.embeddedMAC()
	payload := make([]byte, 0, 2+len(p.Data))
	payload = append(payload, msgHeaderByte(true, p.XID, other), fragByte)
	payload = append(payload, p.Data...)
	return id, payload, nil
}

// ParseExplicitFragment parses a raw frame as an explicit fragment. It
// fails if the frame's fragment type is ACK; use ParseExplicitFragmentAck
// for those.
func ParseExplicitFragment(rawCANID uint32, payload []byte) (ExplicitFragment, error) {
	if len(payload) < 2 {
		return ExplicitFragment{}, dnerr.NewParsingError("explicit fragment too short: %d bytes", len(payload))
	}

	fragFlag, xid, other := parseMsgHeaderByte(payload[0])
	if !fragFlag {
		return ExplicitFragment{}, dnerr.NewParsingError("frame is not a fragment")
	}

	h, err := fromCANHeader(rawCANID, other)
	if err != nil {
		return ExplicitFragment{}, err
	}

	ft, count := parseFragHeaderByte(payload[1])
	if ft == FragAck {
		return ExplicitFragment{}, dnerr.NewParsingError("frame is a fragment ack, not a data fragment")
	}

	p := ExplicitFragment{Header: h, XID: xid, FragType: ft, FragCount: count, Data: append([]byte(nil), payload[2:]...)}
	return p, p.Validate()
}

// ExplicitFragmentAck acknowledges receipt of one explicit fragment.
// AckStatus 0 means "accepted"; 1 means "too much data"; any other value
// is unspecified by the protocol.
type ExplicitFragmentAck struct {
	Header
	XID       bool
	FragCount int
	AckStatus byte
}

// Validate bounds-checks the packet's fields.
func (p ExplicitFragmentAck) Validate() error {
	if p.FragCount < 0 || p.FragCount > 0x3F {
		return dnerr.NewPacketError("fragment count out of range: %d", p.FragCount)
	}
	return nil
}

// ToFrame serializes the packet to a CAN identifier and payload.
func (p ExplicitFragmentAck) ToFrame() (uint32, []byte, error) {
	if err := p.Validate(); err != nil {
		return 0, nil, err
	}

	id, err := p.canID()
	if err != nil {
		return 0, nil, err
	}

	fragByte, err := fragHeaderByte(FragAck, p.FragCount)
	if err != nil {
		return 0, nil, err
	}

	_, other := p.embeddedMAC()
	payload := []byte{msgHeaderByte(true, p.XID, other), fragByte, p.AckStatus}
	return id, payload, nil
}

// ParseExplicitFragmentAck parses a raw frame as an explicit fragment ack.
func ParseExplicitFragmentAck(rawCANID uint32, payload []byte) (ExplicitFragmentAck, error) {
	if len(payload) < 3 {
		return ExplicitFragmentAck{}, dnerr.NewParsingError("explicit fragment ack too short: %d bytes", len(payload))
	}

	fragFlag, xid, other := parseMsgHeaderByte(payload[0])
	if !fragFlag {
		return ExplicitFragmentAck{}, dnerr.NewParsingError("frame is not a fragment")
	}

	h, err := fromCANHeader(rawCANID, other)
	if err != nil {
		return ExplicitFragmentAck{}, err
	}

	ft, count := parseFragHeaderByte(payload[1])
	if ft != FragAck {
		return ExplicitFragmentAck{}, dnerr.NewParsingError("frame is a data fragment, not an ack")
	}

	p := ExplicitFragmentAck{Header: h, XID: xid, FragCount: count, AckStatus: payload[2]}
	return p, p.Validate()
}
