package dnpacket

import "github.com/braboj/protocol-devicenet/dnerr"

// DupMAC is the duplicate-MAC-check message a master sends while
// claiming an address: a fixed 7-byte body carrying the claimant's vendor
// ID and serial number so any current owner of the MAC can object.
type DupMAC struct {
	Header
	RRFlag       bool
	PhysicalPort byte
	VendorID     uint16
	SerialNumber uint32
}

// Validate bounds-checks the packet's fields.
func (p DupMAC) Validate() error {
	if p.PhysicalPort > 0x7F {
		return dnerr.NewPacketError("physical port out of range: %d", p.PhysicalPort)
	}
	return nil
}

// ToFrame serializes the packet to a CAN identifier and payload.
func (p DupMAC) ToFrame() (uint32, []byte, error) {
	if err := p.Validate(); err != nil {
		return 0, nil, err
	}
	id, err := p.canID()
	if err != nil {
		return 0, nil, err
	}

	portByte := p.PhysicalPort & 0x7F
	if p.RRFlag {
		portByte |= 0x80
	}

	payload := []byte{
		portByte,
		byte(p.VendorID), byte(p.VendorID >> 8),
		byte(p.SerialNumber), byte(p.SerialNumber >> 8), byte(p.SerialNumber >> 16), byte(p.SerialNumber >> 24),
	}
	return id, payload, nil
}

// ParseDupMAC parses a raw frame as a duplicate-MAC-check message.
func ParseDupMAC(rawCANID uint32, payload []byte, otherMAC int) (DupMAC, error) {
	if len(payload) != 7 {
		return DupMAC{}, dnerr.NewParsingError("dupmac frame must be 7 bytes, got %d", len(payload))
	}
	h, err := fromCANHeader(rawCANID, otherMAC)
	if err != nil {
		return DupMAC{}, err
	}

	p := DupMAC{
		Header:       h,
		RRFlag:       payload[0]&0x80 != 0,
		PhysicalPort: payload[0] & 0x7F,
		VendorID:     uint16(payload[1]) | uint16(payload[2])<<8,
		SerialNumber: uint32(payload[3]) | uint32(payload[4])<<8 | uint32(payload[5])<<16 | uint32(payload[6])<<24,
	}
	return p, p.Validate()
}
