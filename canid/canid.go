// Package canid converts between DeviceNet (message group, message id, MAC)
// triples and the 11-bit CAN arbitration identifier that carries them on
// the wire. The four message groups partition the identifier space as
// defined by the DeviceNet specification (Volume 3, ch. 2-4).
package canid

import "github.com/braboj/protocol-devicenet/dnerr"

// Group identifies one of the four DeviceNet message groups.
type Group int

const (
	Group1 Group = 1 // low-latency I/O and allocation
	Group2 Group = 2 // explicit and most I/O messaging
	Group3 Group = 3 // slave-initiated / diagnostic
	Group4 Group = 4 // master-to-slave broadcast (offline ownership etc.)
)

const (
	group1Base uint32 = 0x000
	group2Base uint32 = 0x400
	group3Base uint32 = 0x600
	group4Base uint32 = 0x7C0
)

// ToCAN builds the 11-bit CAN identifier for the given group, message id and
// MAC address. It returns dnerr.GroupError if any field is out of the range
// the group allows.
func ToCAN(group Group, msgID, mac int) (uint32, error) {
	if mac < 0 || mac > 63 {
		return 0, dnerr.NewGroupError("mac out of range: %d", mac)
	}

	switch group {
	case Group1:
		if msgID < 0 || msgID > 15 {
			return 0, dnerr.NewGroupError("group 1 message id out of range: %d", msgID)
		}
		return uint32(msgID<<6) + uint32(mac), nil

	case Group2:
		if msgID < 0 || msgID > 7 {
			return 0, dnerr.NewGroupError("group 2 message id out of range: %d", msgID)
		}
		return group2Base + uint32(mac<<3) + uint32(msgID), nil

	case Group3:
		if msgID < 0 || msgID > 6 {
			return 0, dnerr.NewGroupError("group 3 message id out of range: %d", msgID)
		}
		return group3Base + uint32(msgID<<6) + uint32(mac), nil

	case Group4:
		if msgID < 0 || msgID > 47 {
			return 0, dnerr.NewGroupError("group 4 message id out of range: %d", msgID)
		}
		return group4Base + uint32(msgID), nil

	default:
		return 0, dnerr.NewGroupError("unknown message group: %d", group)
	}
}

// FromCAN decomposes an 11-bit CAN identifier into its message group,
// message id and MAC address. It returns dnerr.GroupError if the
// identifier does not fall into any of the four defined group ranges
// (0x7F0-0x7FF, reserved for the physical layer, is rejected this way).
func FromCAN(canID uint32) (group Group, msgID int, mac int, err error) {
	switch {
	case canID < group2Base:
		group = Group1
		msgID = int((canID & 0x3C0) >> 6)
		mac = int(canID & 0x03F)

	case canID < group3Base:
		group = Group2
		msgID = int(canID & 0x007)
		mac = int((canID & 0x1F8) >> 3)

	case canID < group4Base:
		group = Group3
		msgID = int((canID & 0x1C0) >> 6)
		mac = int(canID & 0x03F)

	case canID < 0x7F0:
		group = Group4
		msgID = int(canID & 0x03F)
		mac = 0

	default:
		return 0, 0, 0, dnerr.NewGroupError("can id out of range: 0x%03X", canID)
	}

	return group, msgID, mac, nil
}
