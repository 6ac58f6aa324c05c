// Package dnerr defines the error taxonomy used across the DeviceNet
// protocol stack. It splits errors into two families: programmer errors
// raised by the codec layer (malformed bytes, addresses, or groups, which
// must propagate rather than be swallowed) and protocol errors raised by
// the link layer (a slave answered with a CIP general status, didn't
// answer at all, or sent a malformed fragment acknowledge).
package dnerr

import "fmt"

// ParsingError reports that a byte sequence could not be decoded into the
// structure a caller expected (wrong length, bad tag byte, and so on).
type ParsingError struct {
	msg string
}

func (e *ParsingError) Error() string { return e.msg }

// NewParsingError builds a ParsingError with a formatted message.
func NewParsingError(format string, args ...interface{}) error {
	return &ParsingError{msg: fmt.Sprintf(format, args...)}
}

// PacketError reports an internal inconsistency while building or
// validating a packet (field out of range, wrong body format for the
// service, and so on).
type PacketError struct {
	msg string
}

func (e *PacketError) Error() string { return e.msg }

// NewPacketError builds a PacketError with a formatted message.
func NewPacketError(format string, args ...interface{}) error {
	return &PacketError{msg: fmt.Sprintf(format, args...)}
}

// GroupError reports that a (group, message id, MAC) triple or a raw CAN
// identifier falls outside the ranges the DeviceNet address map defines.
type GroupError struct {
	msg string
}

func (e *GroupError) Error() string { return e.msg }

// NewGroupError builds a GroupError with a formatted message.
func NewGroupError(format string, args ...interface{}) error {
	return &GroupError{msg: fmt.Sprintf(format, args...)}
}

// ServiceError reports that a slave answered an explicit request with a
// non-success CIP general status.
type ServiceError struct {
	Code             byte
	AdditionalStatus []uint16
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error 0x%02X: %s", e.Code, GeneralStatusText(e.Code))
}

// NewServiceError builds a ServiceError for the given CIP general status.
func NewServiceError(code byte, additional []uint16) error {
	return &ServiceError{Code: code, AdditionalStatus: additional}
}

// NoResponseError reports that no reply arrived on the expected CAN
// identifier before the deadline elapsed.
type NoResponseError struct{}

func (e *NoResponseError) Error() string { return GeneralStatusText(0) }

// NewNoResponseError builds a NoResponseError.
func NewNoResponseError() error { return &NoResponseError{} }

// FragmentResponseError reports that a fragment acknowledge packet did
// not have the shape the fragmentation engine expects.
type FragmentResponseError struct {
	msg string
}

func (e *FragmentResponseError) Error() string { return e.msg }

// NewFragmentResponseError builds a FragmentResponseError.
func NewFragmentResponseError(format string, args ...interface{}) error {
	return &FragmentResponseError{msg: fmt.Sprintf(format, args...)}
}

// FragmentMissing reports that the fragment sequence counter jumped by
// more than one, meaning at least one fragment was lost in transit.
type FragmentMissing struct {
	Expected, Got int
}

func (e *FragmentMissing) Error() string {
	return fmt.Sprintf("missing fragment: expected count %d, got %d", e.Expected, e.Got)
}

// NewFragmentMissing builds a FragmentMissing error.
func NewFragmentMissing(expected, got int) error {
	return &FragmentMissing{Expected: expected, Got: got}
}

// GeneralStatusText maps a CIP general status code to a human-readable
// description. Code 0 additionally covers the "no response" condition,
// which has no wire representation of its own.
var GeneralStatusText = func(code byte) string {
	if text, ok := generalStatusTable[code]; ok {
		return text
	}
	return fmt.Sprintf("unknown status 0x%02X", code)
}

var generalStatusTable = map[byte]string{
	0x00: "Slave is not responding",
	0x01: "Communication related problem",
	0x02: "Resource unavailable",
	0x03: "Invalid parameter value",
	0x04: "Path segment error",
	0x05: "Path destination unknown",
	0x06: "Partial transfer",
	0x07: "Connection lost",
	0x08: "Service not supported",
	0x09: "Invalid attribute value",
	0x0A: "Attribute list error",
	0x0B: "Already in requested mode/state",
	0x0C: "Object state conflict",
	0x0D: "Object already exists",
	0x0E: "Attribute not settable",
	0x0F: "Privilege violation",
	0x10: "Device state conflict",
	0x11: "Reply data too large",
	0x12: "Fragmentation of a primitive value",
	0x13: "Not enough data",
	0x14: "Attribute not supported",
	0x15: "Too much data",
	0x16: "Object instance does not exist",
	0x17: "Service fragmentation out of sequence",
	0x18: "No stored attribute data",
	0x19: "Store operation failure",
	0x1A: "Routing failure, request packet too large",
	0x1B: "Routing failure, response packet too large",
	0x1C: "Missing attribute list entry data",
	0x1D: "Invalid attribute value list",
	0x1E: "Embedded service error",
	0x1F: "Vendor specific error",
	0x20: "Invalid parameter",
	0x21: "Write-once value or medium already written",
	0x22: "Invalid reply received",
	0x23: "Buffer overflow",
	0x24: "Message format error",
	0x25: "Key failure in path",
	0x26: "Path size invalid",
	0x27: "Unexpected attribute in list",
	0x28: "Invalid member ID",
	0x29: "Member not settable",
	0x2A: "Group 2 only server general failure",
	0x2B: "Unknown Modbus error",
	0x2C: "Attribute not gettable",
	0x2D: "Instance not deletable",
	0x2E: "Service not supported for specified path",
}
