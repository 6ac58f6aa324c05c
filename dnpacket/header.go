// Package dnpacket implements the DeviceNet packet codec: build, parse,
// validate, serialize and (for the oversized shapes) split every wire
// packet variant the link layer exchanges with a slave. Each variant is
// a distinct Go type rather than a subclass of a shared base, per the
// tagged-variant design called for by the addressing rules below.
package dnpacket

import (
	"github.com/braboj/protocol-devicenet/canid"
	"github.com/braboj/protocol-devicenet/dnerr"
)

// Group 2 message IDs that distinguish explicit/I/O sub-protocols sharing
// the group. Named per the DeviceNet Adaptation of CIP (Volume 3, ch. 2.2).
const (
	MsgBitstrobeCmd    = 0x00
	MsgMPollCmd        = 0x01
	MsgMasterAck       = 0x02 // COS/CYCLIC master acknowledge
	MsgExplicitRsp     = 0x03 // also UNCONNECTED_RSP
	MsgExplicitReq     = 0x04
	MsgPollCmd         = 0x05 // also COS/CYCLIC master message
	MsgUnconnectedReq  = 0x06
	MsgDupMAC          = 0x06 // shares message id 6 with MsgUnconnectedReq

	MsgCosSlaveMessage = 0x0D // also CYCLIC_SLAVE_MESSAGE
	MsgBitstrobeRsp    = 0x0E
	MsgPollRsp         = 0x0F // also COS/CYCLIC slave acknowledge
	MsgMPollRsp        = 0x0C
)

// FragType identifies the role of a fragment within a reassembly sequence.
type FragType byte

const (
	FragStart  FragType = 0
	FragMiddle FragType = 1
	FragFinal  FragType = 2
	FragAck    FragType = 3
)

// FragSentinel is the fragCount value that, on a START frame, means "this
// single frame carries the entire message" (the single-fragment shortcut).
const FragSentinel = 0x3F

// Header carries the fields common to every DeviceNet packet: the logical
// message addressing tuple plus both ends of the conversation. Exactly one
// of SrcMAC/DstMAC is embedded in the CAN identifier; the codec derives
// which one from Group and MessageID per the DeviceNet group-2 routing
// rules (the group-2 sub-protocol determines which direction owns the
// embedded address).
type Header struct {
	Group     canid.Group
	MessageID int
	SrcMAC    int
	DstMAC    int
}

// embeddedMAC returns the MAC address folded into the CAN identifier and
// the other one, which (for explicit messages) rides in the message
// header byte instead.
func (h Header) embeddedMAC() (embedded, other int) {
	switch h.Group {
	case canid.Group2:
		if h.MessageID == MsgBitstrobeCmd || h.MessageID == MsgExplicitRsp {
			return h.SrcMAC, h.DstMAC
		}
		return h.DstMAC, h.SrcMAC
	case canid.Group4:
		return 0, 0
	default: // Group1, Group3: embedded MAC is always src
		return h.SrcMAC, h.DstMAC
	}
}

// canID computes the CAN identifier this header maps to.
func (h Header) canID() (uint32, error) {
	embedded, _ := h.embeddedMAC()
	return canid.ToCAN(h.Group, h.MessageID, embedded)
}

// CANID computes the CAN identifier this header maps to. Callers outside
// the package use this to derive listen filters for a given direction.
func (h Header) CANID() (uint32, error) {
	return h.canID()
}

// fromCANHeader reconstructs a Header from a received CAN identifier. The
// caller supplies the MAC that is NOT embedded in the identifier (read
// from the message header byte for explicit traffic, or known from
// context/connection state for I/O traffic); ownership of which field
// (src or dst) that MAC fills follows the same group-2 routing rule.
func fromCANHeader(canIDValue uint32, otherMAC int) (Header, error) {
	group, msgID, embedded, err := canid.FromCAN(canIDValue)
	if err != nil {
		return Header{}, err
	}

	h := Header{Group: group, MessageID: msgID}
	switch group {
	case canid.Group2:
		if msgID == MsgBitstrobeCmd || msgID == MsgExplicitRsp {
			h.SrcMAC, h.DstMAC = embedded, otherMAC
		} else {
			h.DstMAC, h.SrcMAC = embedded, otherMAC
		}
	case canid.Group4:
		h.SrcMAC, h.DstMAC = 0, 0
	default:
		h.SrcMAC, h.DstMAC = embedded, otherMAC
	}

	return h, nil
}

// msgHeaderByte builds the explicit message-header byte (byte 0): bit7 is
// fragFlag, bit6 is xid, bits5..0 are the MAC not folded into the CAN
// identifier.
func msgHeaderByte(fragFlag, xid bool, other int) byte {
	b := byte(other & 0x3F)
	if fragFlag {
		b |= 0x80
	}
	if xid {
		b |= 0x40
	}
	return b
}

// parseMsgHeaderByte decomposes an explicit message-header byte.
func parseMsgHeaderByte(b byte) (fragFlag, xid bool, other int) {
	return b&0x80 != 0, b&0x40 != 0, int(b & 0x3F)
}

// fragHeaderByte builds a fragment-header byte: bits7..6 fragType,
// bits5..0 fragCount.
func fragHeaderByte(ft FragType, count int) (byte, error) {
	if count < 0 || count > 0x3F {
		return 0, dnerr.NewPacketError("fragment count out of range: %d", count)
	}
	return byte(ft)<<6 | byte(count&0x3F), nil
}

// parseFragHeaderByte decomposes a fragment-header byte.
func parseFragHeaderByte(b byte) (FragType, int) {
	return FragType(b >> 6), int(b & 0x3F)
}
