package dnpacket

import "github.com/braboj/protocol-devicenet/dnerr"

// Explicit is the unspecialized explicit message: a header byte followed
// by up to 7 bytes of message body. Higher-level code almost always works
// with ExplicitService or ExplicitFragment instead; Explicit exists so the
// link layer can peek at the header byte before committing to a
// specialization.
type Explicit struct {
	Header
	FragFlag bool
	XID      bool
	Body     []byte // byte 1 onward, at most 7 bytes
}

// Validate bounds-checks the packet's fields.
func (p Explicit) Validate() error {
	if len(p.Body) > 7 {
		return dnerr.NewPacketError("explicit body too long: %d bytes", len(p.Body))
	}
	return nil
}

// ToFrame serializes the packet to a CAN identifier and payload.
func (p Explicit) ToFrame() (uint32, []byte, error) {
	if err := p.Validate(); err != nil {
		return 0, nil, err
	}

	id, err := p.canID()
	if err != nil {
		return 0, nil, err
	}

	_, other := p.embeddedMAC()
	payload := make([]byte, 0, 1+len(p.Body))
	payload = append(payload, msgHeaderByte(p.FragFlag, p.XID, other))
	payload = append(payload, p.Body...)
	return id, payload, nil
}

// ParseExplicit parses a raw frame as a generic explicit message. otherMAC
// is taken from the header byte itself, so the caller need not already
// know it.
func ParseExplicit(rawCANID uint32, payload []byte) (Explicit, error) {
	if len(payload) < 1 {
		return Explicit{}, dnerr.NewParsingError("explicit frame too short: %d bytes", len(payload))
	}

	fragFlag, xid, other := parseMsgHeaderByte(payload[0])
	h, err := fromCANHeader(rawCANID, other)
	if err != nil {
		return Explicit{}, err
	}

	p := Explicit{Header: h, FragFlag: fragFlag, XID: xid, Body: append([]byte(nil), payload[1:]...)}
	return p, p.Validate()
}
