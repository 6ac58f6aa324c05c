package dnlink

// CIP service codes the link layer issues or recognizes on replies.
const (
	SvcGetAttrAll    byte = 0x01
	SvcReset         byte = 0x05
	SvcGetAttrSingle byte = 0x0E
	SvcSetAttrSingle byte = 0x10
	SvcMultiService  byte = 0x0A
	SvcError         byte = 0x14
	SvcGetMember     byte = 0x18
	SvcSetMember     byte = 0x19
	SvcAllocate      byte = 0x4B
	SvcRelease       byte = 0x4C
)

// errGeneralInvalidReplyReceived is the general status used when a slave
// answers with a service code the caller didn't ask for.
const errGeneralInvalidReplyReceived byte = 0x22

// DeviceNet object class/instance, the target of Allocate/Release.
const (
	ClassDeviceNet    = 0x03
	InstanceDeviceNet = 0x01
)
