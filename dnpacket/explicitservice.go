package dnpacket

import "github.com/braboj/protocol-devicenet/dnerr"

// BodyFormat selects the width of the class/instance ID fields (or the
// EPATH encoding) carried in an ExplicitService request body. Responses
// ignore BodyFormat entirely -- they never carry a class/instance pair.
type BodyFormat int

const (
	// Format0 is the default 8-bit class / 8-bit instance layout used by
	// every operation the link layer issues.
	Format0 BodyFormat = iota
	Format1            // 8-bit class / 16-bit instance
	Format2            // 16-bit class / 8-bit instance
	Format3            // 16-bit class / 16-bit instance
	FormatEPath        // logical-segment EPATH in place of class/instance
)

func (f BodyFormat) idFieldLen() int {
	switch f {
	case Format0:
		return 2
	case Format1, Format2:
		return 3
	case Format3:
		return 4
	default:
		return 0 // EPATH length is carried in the path bytes themselves
	}
}

// ExplicitService is an unfragmented explicit request or response carrying
// a CIP service invocation: GET_ATTR_ALL, GET_ATTR_SINGLE, SET_ATTR_SINGLE,
// RESET, ALLOCATE, RELEASE and so on.
type ExplicitService struct {
	Header
	FragFlag    bool
	XID         bool
	RRFlag      bool // false = request, true = response
	ServiceCode byte // 0..0x7F
	ClassID     uint32
	InstanceID  uint32
	Format      BodyFormat
	EPath       []byte // used only when Format == FormatEPath
	ServiceData []byte
}

// Validate bounds-checks the packet's fields against the wire layout in
// effect for Format.
func (p ExplicitService) Validate() error {
	if p.ServiceCode > 0x7F {
		return dnerr.NewPacketError("service code out of range: 0x%02X", p.ServiceCode)
	}

	if p.RRFlag {
		if len(p.ServiceData) > 6 {
			return dnerr.NewPacketError("response service data too long: %d bytes", len(p.ServiceData))
		}
		return nil
	}

	if p.Format == FormatEPath {
		if len(p.EPath) > 5 {
			return dnerr.NewPacketError("epath too long: %d bytes", len(p.EPath))
		}
		if len(p.ServiceData) > 6-len(p.EPath) {
			return dnerr.NewPacketError("request service data too long for epath body: %d bytes", len(p.ServiceData))
		}
		return nil
	}

	maxData := 6 - p.Format.idFieldLen()
	if len(p.ServiceData) > maxData {
		return dnerr.NewPacketError("request service data too long: %d bytes (max %d)", len(p.ServiceData), maxData)
	}
	if (p.Format == Format0 || p.Format == Format1) && p.ClassID > 0xFF {
		return dnerr.NewPacketError("class id does not fit 8 bits: 0x%X", p.ClassID)
	}
	if (p.Format == Format0 || p.Format == Format2) && p.InstanceID > 0xFF {
		return dnerr.NewPacketError("instance id does not fit 8 bits: 0x%X", p.InstanceID)
	}
	return nil
}

// ToFrame serializes the packet to a CAN identifier and payload.
func (p ExplicitService) ToFrame() (uint32, []byte, error) {
	if err := p.Validate(); err != nil {
		return 0, nil, err
	}

	id, err := p.canID()
	if err != nil {
		return 0, nil, err
	}

	_, other := p.embeddedMAC()
	payload := make([]byte, 0, 8)
	payload = append(payload, msgHeaderByte(p.FragFlag, p.XID, other))

	serviceByte := p.ServiceCode & 0x7F
	if p.RRFlag {
		serviceByte |= 0x80
		payload = append(payload, serviceByte)
		payload = append(payload, p.ServiceData...)
		return id, payload, nil
	}

	payload = append(payload, serviceByte)
	if p.Format == FormatEPath {
		payload = append(payload, p.EPath...)
	} else {
		payload = appendIDField(payload, p.ClassID, p.Format == Format2 || p.Format == Format3)
		payload = appendIDField(payload, p.InstanceID, p.Format == Format1 || p.Format == Format3)
	}
	payload = append(payload, p.ServiceData...)
	return id, payload, nil
}

func appendIDField(payload []byte, id uint32, wide bool) []byte {
	if wide {
		return append(payload, byte(id), byte(id>>8))
	}
	return append(payload, byte(id))
}

// ParseExplicitServiceRequest parses a raw frame as an explicit service
// request using the given body format.
func ParseExplicitServiceRequest(rawCANID uint32, payload []byte, format BodyFormat) (ExplicitService, error) {
	if len(payload) < 2 {
		return ExplicitService{}, dnerr.NewParsingError("explicit service frame too short: %d bytes", len(payload))
	}

	fragFlag, xid, other := parseMsgHeaderByte(payload[0])
	h, err := fromCANHeader(rawCANID, other)
	if err != nil {
		return ExplicitService{}, err
	}

	serviceByte := payload[1]
	if serviceByte&0x80 != 0 {
		return ExplicitService{}, dnerr.NewParsingError("frame has response flag set, expected request")
	}

	p := ExplicitService{
		Header:      h,
		FragFlag:    fragFlag,
		XID:         xid,
		RRFlag:      false,
		ServiceCode: serviceByte & 0x7F,
		Format:      format,
	}

	rest := payload[2:]
	if format == FormatEPath {
		if len(rest) < 1 {
			return ExplicitService{}, dnerr.NewParsingError("epath request frame too short")
		}
		epathLen := int(rest[0])*2 + 1 // size byte counts 16-bit words
		if epathLen > len(rest) {
			return ExplicitService{}, dnerr.NewParsingError("epath length exceeds frame: %d", epathLen)
		}
		p.EPath = append([]byte(nil), rest[:epathLen]...)
		p.ServiceData = append([]byte(nil), rest[epathLen:]...)
		return p, p.Validate()
	}

	classWide := format == Format2 || format == Format3
	instanceWide := format == Format1 || format == Format3
	classLen := 1
	if classWide {
		classLen = 2
	}
	instanceLen := 1
	if instanceWide {
		instanceLen = 2
	}
	if len(rest) < classLen+instanceLen {
		return ExplicitService{}, dnerr.NewParsingError("request frame too short for format %d", format)
	}

	p.ClassID = readIDField(rest[:classLen])
	rest = rest[classLen:]
	p.InstanceID = readIDField(rest[:instanceLen])
	rest = rest[instanceLen:]
	p.ServiceData = append([]byte(nil), rest...)

	return p, p.Validate()
}

// ParseExplicitServiceResponse parses a raw frame as an explicit service
// response. It does not check the service code against the request; the
// link layer compares it with the ERROR service code itself.
func ParseExplicitServiceResponse(rawCANID uint32, payload []byte) (ExplicitService, error) {
	if len(payload) < 2 {
		return ExplicitService{}, dnerr.NewParsingError("explicit service frame too short: %d bytes", len(payload))
	}

	fragFlag, xid, other := parseMsgHeaderByte(payload[0])
	h, err := fromCANHeader(rawCANID, other)
	if err != nil {
		return ExplicitService{}, err
	}

	serviceByte := payload[1]
	if serviceByte&0x80 == 0 {
		return ExplicitService{}, dnerr.NewParsingError("frame missing response flag, expected response")
	}

	p := ExplicitService{
		Header:      h,
		FragFlag:    fragFlag,
		XID:         xid,
		RRFlag:      true,
		ServiceCode: serviceByte & 0x7F,
		ServiceData: append([]byte(nil), payload[2:]...),
	}
	return p, p.Validate()
}

func readIDField(b []byte) uint32 {
	if len(b) == 1 {
		return uint32(b[0])
	}
	return uint32(b[0]) | uint32(b[1])<<8
}
