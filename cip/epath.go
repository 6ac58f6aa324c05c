// Package cip is the CIP object adapter: it turns attribute GET/SET calls
// into dnlink service requests, the way the rest of the gateway's
// protocol packages wrap a link layer in an object-shaped facade. The
// object model sits above dnlink; it never touches candrv directly.
package cip

import "fmt"

// LogicalType identifies what a CIP logical segment addresses.
type LogicalType byte

// LogicalFormat is the width of a logical segment's value.
type LogicalFormat byte

const (
	LogicalTypeClassID     LogicalType = 0x0
	LogicalTypeInstanceID  LogicalType = 0x1
	LogicalTypeMemberID    LogicalType = 0x2
	LogicalTypeAttributeID LogicalType = 0x4

	LogicalFormat8Bit  LogicalFormat = 0x0
	LogicalFormat16Bit LogicalFormat = 0x1
	LogicalFormat32Bit LogicalFormat = 0x2
)

// EPath is a packed CIP logical path: an ordered sequence of logical
// segments. DeviceNet's EPATH explicit-service body format (spec.md
// §3's "one EPATH variant") carries one of these as the addressing
// portion of a request instead of the fixed-width class/instance byte
// pair the default body format uses.
type EPath []byte

// logicalSegment encodes one class/instance/attribute/member segment.
// DeviceNet padding requirements mirror EtherNet/IP's: 16- and 32-bit
// logical segments get an inter-byte pad for word alignment.
func logicalSegment(typ LogicalType, format LogicalFormat, value uint32) (EPath, error) {
	header := byte(0b001<<5) | (byte(typ)&0b111)<<2 | byte(format)&0b11

	switch format {
	case LogicalFormat8Bit:
		if value > 0xFF {
			return nil, fmt.Errorf("cip: value %d does not fit an 8-bit logical segment", value)
		}
		return EPath{header, byte(value)}, nil
	case LogicalFormat16Bit:
		if value > 0xFFFF {
			return nil, fmt.Errorf("cip: value %d does not fit a 16-bit logical segment", value)
		}
		return EPath{header, 0x00, byte(value), byte(value >> 8)}, nil
	case LogicalFormat32Bit:
		return EPath{header, 0x00, byte(value), byte(value >> 8), byte(value >> 16), byte(value >> 24)}, nil
	default:
		return nil, fmt.Errorf("cip: unsupported logical format %v", format)
	}
}

func widthFor(v uint32) LogicalFormat {
	switch {
	case v <= 0xFF:
		return LogicalFormat8Bit
	case v <= 0xFFFF:
		return LogicalFormat16Bit
	default:
		return LogicalFormat32Bit
	}
}

// BuildEPath packs classID, instanceID and, when attrID is non-negative,
// an attribute logical segment into one EPath, each segment sized to the
// smallest format that holds its value.
func BuildEPath(classID, instanceID uint32, attrID int) EPath {
	var out EPath
	seg, _ := logicalSegment(LogicalTypeClassID, widthFor(classID), classID)
	out = append(out, seg...)
	seg, _ = logicalSegment(LogicalTypeInstanceID, widthFor(instanceID), instanceID)
	out = append(out, seg...)
	if attrID >= 0 {
		seg, _ = logicalSegment(LogicalTypeAttributeID, widthFor(uint32(attrID)), uint32(attrID))
		out = append(out, seg...)
	}
	return out
}

// WordLen returns the EPath length in 16-bit words, the form the
// explicit-service EPATH body format's size byte expects.
func (p EPath) WordLen() byte {
	return byte(len(p) / 2)
}
