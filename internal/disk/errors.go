package disk

import "errors"

var (
	// ErrInvalidBlock is returned when a block number falls outside
	// [0, Blocks) for the open device.
	ErrInvalidBlock = errors.New("disk: block number out of range")

	// ErrAlreadyMounted is returned by Mount when called twice. Read/Write
	// carry no mounted precondition of their own: Format and Mount's own
	// state-rebuild both read and write the device before it is marked
	// mounted, so gating block I/O on Mounted() would break them.
	ErrAlreadyMounted = errors.New("disk: device is already mounted")
)
