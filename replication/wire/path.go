package wire

import "fmt"

const (
	// SimplifyPathHeaderSize is the fixed part of a SIMPLIFY_PATH packet.
	SimplifyPathHeaderSize = 1 + 4 + 4
	// ConfirmPathSize is the size of a CONFIRM_PATH packet.
	ConfirmPathSize = 1 + 1 + 4
	// MaxPathSize bounds the object path carried by SIMPLIFY_PATH.
	MaxPathSize = 4096
)

// AppendSimplifyPath appends a SIMPLIFY_PATH packet announcing that id refers to path.
func AppendSimplifyPath(buf []byte, id uint32, path string) []byte {
	buf = append(buf, CmdSimplifyPath)
	buf = le.AppendUint32(buf, id)
	buf = le.AppendUint32(buf, uint32(len(path)))
	return append(buf, path...)
}

// DecodeSimplifyPath decodes a SIMPLIFY_PATH packet.
func DecodeSimplifyPath(buf []byte) (uint32, string, error) {
	if len(buf) < SimplifyPathHeaderSize {
		return 0, "", fmt.Errorf("%w: simplify path %d < %d", ErrShortPacket, len(buf), SimplifyPathHeaderSize)
	}
	if buf[0] != CmdSimplifyPath {
		return 0, "", fmt.Errorf("%w: %d", ErrCommand, buf[0])
	}
	id := le.Uint32(buf[1:])
	size := le.Uint32(buf[5:])
	if size == 0 || size > MaxPathSize {
		return 0, "", fmt.Errorf("%w: path size %d", ErrMalformed, size)
	}
	if uint64(size) != uint64(len(buf)-SimplifyPathHeaderSize) {
		return 0, "", fmt.Errorf("%w: path size %d, packet carries %d",
			ErrMalformed, size, len(buf)-SimplifyPathHeaderSize)
	}
	return id, string(buf[SimplifyPathHeaderSize:]), nil
}

// AppendConfirmPath appends a CONFIRM_PATH packet.
func AppendConfirmPath(buf []byte, valid bool, id uint32) []byte {
	flag := byte(0)
	if valid {
		flag = 1
	}
	buf = append(buf, CmdConfirmPath, flag)
	return le.AppendUint32(buf, id)
}

// DecodeConfirmPath decodes a CONFIRM_PATH packet.
func DecodeConfirmPath(buf []byte) (bool, uint32, error) {
	if len(buf) < ConfirmPathSize {
		return false, 0, fmt.Errorf("%w: confirm path %d < %d", ErrShortPacket, len(buf), ConfirmPathSize)
	}
	if buf[0] != CmdConfirmPath {
		return false, 0, fmt.Errorf("%w: %d", ErrCommand, buf[0])
	}
	return buf[1] != 0, le.Uint32(buf[2:]), nil
}
