// Package dnwire holds the primitive byte-level codecs shared by every
// DeviceNet packet variant: fixed-width integer encoding and the
// length-prefixed string format CIP attributes use for short text values.
package dnwire

import "github.com/braboj/protocol-devicenet/dnerr"

// IntegerToBytes encodes value into size bytes, little-endian unless big
// is true. It truncates silently if value does not fit in size bytes, the
// same way a fixed-width CIP attribute would.
func IntegerToBytes(value uint64, size int, big bool) []byte {
	out := make([]byte, size)
	for i := 0; i < size; i++ {
		out[i] = byte(value >> (uint(i) * 8))
	}
	if big {
		reverse(out)
	}
	return out
}

// BytesToInteger decodes stream as an unsigned integer, little-endian
// unless big is true. A stream shorter than expected is accepted as-is
// and decoded from whatever bytes are present -- callers that need a
// truncated-reply error must check len(stream) themselves.
func BytesToInteger(stream []byte, big bool) uint64 {
	ordered := stream
	if !big {
		ordered = make([]byte, len(stream))
		copy(ordered, stream)
		reverse(ordered)
	}

	var result uint64
	for _, b := range ordered {
		result = result*256 + uint64(b)
	}
	return result
}

// StringToBytes encodes value as UTF-8 prefixed with a single length byte,
// the CIP short-string format. The total output is truncated to 255 bytes
// (254 bytes of payload plus the length prefix) if value is longer.
func StringToBytes(value string) []byte {
	raw := []byte(value)
	if len(raw) > 254 {
		raw = raw[:254]
	}

	out := make([]byte, 0, len(raw)+1)
	out = append(out, byte(len(raw)))
	out = append(out, raw...)

	if len(out) > 255 {
		out = out[:255]
	}
	return out
}

// BytesToString decodes a length-prefixed short string, stripping trailing
// NUL padding. It returns dnerr.ParsingError if stream is empty or shorter
// than its own declared length.
func BytesToString(stream []byte) (string, error) {
	if len(stream) == 0 {
		return "", dnerr.NewParsingError("empty string stream")
	}

	length := int(stream[0])
	body := stream[1:]
	if len(body) < length {
		return "", dnerr.NewParsingError("string stream too short: want %d, got %d", length, len(body))
	}

	body = body[:length]
	return trimTrailingNUL(string(body)), nil
}

func trimTrailingNUL(s string) string {
	end := len(s)
	for end > 0 && s[end-1] == 0 {
		end--
	}
	return s[:end]
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
