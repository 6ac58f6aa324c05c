package dnpacket

import "github.com/braboj/protocol-devicenet/dnerr"

const (
	maxExplicitFragData = 6
	maxIOFragData       = 7
)

// SplitExplicit partitions payload into a sequence of ExplicitFragment
// frames, each carrying at most 6 data bytes (the explicit frame budget
// minus the message-header and fragment-header bytes). The first
// fragment is FragStart with count 0, middles are FragMiddle with
// monotonically increasing counts, and the last is FragFinal.
//
// If shortcut is true (the connection has fragmentation active but the
// payload happens to fit in one fragment), a single FragStart frame with
// the sentinel count 0x3F is emitted instead of the normal START/FINAL
// pair.
func SplitExplicit(h Header, xid bool, payload []byte, shortcut bool) ([]ExplicitFragment, error) {
	if shortcut {
		if len(payload) > maxExplicitFragData {
			return nil, dnerr.NewPacketError("shortcut payload too long: %d bytes", len(payload))
		}
		return []ExplicitFragment{{
			Header: h, XID: xid, FragType: FragStart, FragCount: FragSentinel,
			Data: append([]byte(nil), payload...),
		}}, nil
	}
	return splitGeneric(payload, maxExplicitFragData, func(ft FragType, count int, chunk []byte) ExplicitFragment {
		return ExplicitFragment{Header: h, XID: xid, FragType: ft, FragCount: count, Data: chunk}
	})
}

// SplitIO partitions payload into a sequence of IOFragment frames, each
// carrying at most 7 data bytes. shortcut behaves as in SplitExplicit.
func SplitIO(h Header, payload []byte, shortcut bool) ([]IOFragment, error) {
	if shortcut {
		if len(payload) > maxIOFragData {
			return nil, dnerr.NewPacketError("shortcut payload too long: %d bytes", len(payload))
		}
		return []IOFragment{{
			Header: h, FragType: FragStart, FragCount: FragSentinel,
			Data: append([]byte(nil), payload...),
		}}, nil
	}
	return splitGeneric(payload, maxIOFragData, func(ft FragType, count int, chunk []byte) IOFragment {
		return IOFragment{Header: h, FragType: ft, FragCount: count, Data: chunk}
	})
}

func splitGeneric[T any](payload []byte, maxData int, build func(ft FragType, count int, chunk []byte) T) ([]T, error) {
	var out []T
	count := 0
	for i := 0; i < len(payload); i += maxData {
		end := i + maxData
		if end > len(payload) {
			end = len(payload)
		}
		ft := FragMiddle
		if i == 0 {
			ft = FragStart
		}
		if end == len(payload) {
			ft = FragFinal
		}
		if count > 0x3F {
			return nil, dnerr.NewPacketError("payload requires too many fragments: %d", len(payload))
		}
		out = append(out, build(ft, count, append([]byte(nil), payload[i:end]...)))
		count++
	}
	return out, nil
}
