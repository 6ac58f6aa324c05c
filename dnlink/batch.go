package dnlink

import (
	"context"
	"encoding/binary"

	"github.com/braboj/protocol-devicenet/dnerr"
)

// epath builds the 3-segment 8-bit logical path (class, instance,
// attribute) a sub-request addresses, as a word count followed by the
// segment bytes -- the layout ParseExplicitServiceRequest's EPath format
// expects when it is used standalone, and the layout a Multiple Service
// Packet sub-request embeds verbatim.
func epath(classID, instanceID uint32, attrID byte) []byte {
	segs := []byte{
		0x20, byte(classID),
		0x24, byte(instanceID),
		0x30, attrID,
	}
	return append([]byte{byte(len(segs) / 2)}, segs...)
}

// buildMultiServiceRequest packs svc (the service code every sub-request
// shares, here always GET_ATTR_SINGLE) and attrIDs into one Multiple
// Service Packet body: a service count, an offset table, then each
// sub-request's [service][epath][data].
func buildMultiServiceRequest(svc byte, classID, instanceID uint32, attrIDs []byte) []byte {
	var subs [][]byte
	for _, attr := range attrIDs {
		p := epath(classID, instanceID, attr)
		sub := make([]byte, 0, 1+len(p))
		sub = append(sub, svc)
		sub = append(sub, p...)
		subs = append(subs, sub)
	}

	headerSize := 2 + len(subs)*2
	offsets := make([]uint16, len(subs))
	offset := uint16(headerSize)
	for i, s := range subs {
		offsets[i] = offset
		offset += uint16(len(s))
	}

	out := make([]byte, 0, int(offset))
	out = binary.LittleEndian.AppendUint16(out, uint16(len(subs)))
	for _, o := range offsets {
		out = binary.LittleEndian.AppendUint16(out, o)
	}
	for _, s := range subs {
		out = append(out, s...)
	}
	return out
}

// parseMultiServiceResponse splits a Multiple Service Packet response body
// into one raw reply per sub-request, in request order: the bytes from
// each reply's offset up to the next offset (or the end of data). The
// reply contents are not interpreted here.
func parseMultiServiceResponse(data []byte) ([][]byte, error) {
	if len(data) < 2 {
		return nil, dnerr.NewParsingError("multi-service response too short: %d bytes", len(data))
	}
	count := int(binary.LittleEndian.Uint16(data[0:2]))
	minLen := 2 + count*2
	if len(data) < minLen {
		return nil, dnerr.NewParsingError("multi-service response too short for %d replies", count)
	}

	offsets := make([]int, count)
	for i := 0; i < count; i++ {
		offsets[i] = int(binary.LittleEndian.Uint16(data[2+i*2 : 4+i*2]))
	}

	replies := make([][]byte, count)
	for i := 0; i < count; i++ {
		start := offsets[i]
		end := len(data)
		if i+1 < count {
			end = offsets[i+1]
		}
		if start < 0 || end > len(data) || start > end {
			return nil, dnerr.NewParsingError("multi-service reply %d has invalid bounds", i)
		}
		replies[i] = append([]byte(nil), data[start:end]...)
	}
	return replies, nil
}

// GetAttributesBatch reads every attribute in attrIDs from (classID,
// instanceID) in a single Multiple Service Packet (service 0x0A) request,
// returning each attribute's raw reply bytes, with the sub-reply's
// leading reply-service and general-status bytes removed, keyed by
// attribute ID. The general-status byte is not checked, and a sub-reply
// shorter than those two bytes fails the whole call with ParsingError.
func (n *Node) GetAttributesBatch(ctx context.Context, classID, instanceID uint32, attrIDs []byte) (map[byte][]byte, error) {
	body := buildMultiServiceRequest(SvcGetAttrSingle, classID, instanceID, attrIDs)

	rsp, err := n.ServiceRequest(ctx, SvcMultiService, classID, instanceID, body)
	if err != nil {
		return nil, err
	}

	replies, perr := parseMultiServiceResponse(rsp)
	if perr != nil {
		return nil, perr
	}
	if len(replies) != len(attrIDs) {
		return nil, dnerr.NewFragmentResponseError("multi-service reply count %d does not match request count %d", len(replies), len(attrIDs))
	}

	out := make(map[byte][]byte, len(attrIDs))
	for i, attr := range attrIDs {
		reply := replies[i]
		if len(reply) < 2 {
			return nil, dnerr.NewParsingError("multi-service reply %d too short", i)
		}
		// [reply service][general status][data...]
		out[attr] = append([]byte(nil), reply[2:]...)
	}
	return out, nil
}
