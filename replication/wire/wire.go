// Package wire defines the binary layouts of replication commands.
//
// All integers are fixed width little-endian. Every packet starts with a
// one byte command.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/spacemeshos/go-replica/common/types"
)

// Command bytes. Values are shared with the path cache protocol.
const (
	CmdSimplifyPath byte = 1
	CmdConfirmPath  byte = 2
	CmdSpawn        byte = 4
	CmdDespawn      byte = 5
	CmdSync         byte = 6
)

// CustomScene is the scene id sentinel for spawns instantiated from a custom argument.
const CustomScene uint8 = 0xff

const (
	// SpawnHeaderSize is the fixed part of a SPAWN packet.
	SpawnHeaderSize = 1 + 1 + 4 + 4 + 4 + 4
	// DespawnSize is the size of a DESPAWN packet.
	DespawnSize = 1 + 4
	// SyncHeaderSize is the command byte plus the 16 bit counter.
	SyncHeaderSize = 1 + 2
	// SyncEntryHeaderSize is the net id plus the payload size of one entry.
	SyncEntryHeaderSize = 4 + 4
	// MinSyncSize is the smallest SYNC packet carrying one entry.
	MinSyncSize = SyncHeaderSize + SyncEntryHeaderSize
)

var (
	// ErrShortPacket is returned when a packet is shorter than its layout requires.
	ErrShortPacket = errors.New("packet too short")
	// ErrMalformed is returned when declared sizes are inconsistent with the packet.
	ErrMalformed = errors.New("malformed packet")
	// ErrCommand is returned when a packet carries an unexpected command byte.
	ErrCommand = errors.New("unexpected command")
)

var le = binary.LittleEndian

// SpawnHeader is the fixed part of a SPAWN packet.
type SpawnHeader struct {
	SceneID     uint8
	SpawnerPath uint32
	NetID       types.NetID
	SyncCount   uint32
	NameLen     uint32
}

// Spawn is a decoded SPAWN packet.
type Spawn struct {
	SceneID     uint8
	SpawnerPath uint32
	NetID       types.NetID
	SyncIDs     []types.NetID
	Name        string
	// Arg is the encoded custom spawn argument. Only present when SceneID is CustomScene.
	Arg []byte
	// State is the concatenation of the encoded spawn state of every synchronizer.
	State []byte
}

// IsCustom returns true if the object is instantiated from a custom argument.
func (s *Spawn) IsCustom() bool {
	return s.SceneID == CustomScene
}

// Size returns the encoded size of the packet.
func (s *Spawn) Size() int {
	size := SpawnHeaderSize + 4*len(s.SyncIDs) + len(s.Name) + 1 + len(s.State)
	if s.IsCustom() {
		size += 4 + len(s.Arg)
	}
	return size
}

// AppendTo appends the encoded packet to buf and returns the extended buffer.
func (s *Spawn) AppendTo(buf []byte) []byte {
	buf = append(buf, CmdSpawn, s.SceneID)
	buf = le.AppendUint32(buf, s.SpawnerPath)
	buf = le.AppendUint32(buf, s.NetID.Uint32())
	buf = le.AppendUint32(buf, uint32(len(s.SyncIDs)))
	buf = le.AppendUint32(buf, uint32(len(s.Name)+1))
	for _, id := range s.SyncIDs {
		buf = le.AppendUint32(buf, id.Uint32())
	}
	buf = append(buf, s.Name...)
	buf = append(buf, 0)
	if s.IsCustom() {
		buf = le.AppendUint32(buf, uint32(len(s.Arg)))
		buf = append(buf, s.Arg...)
	}
	return append(buf, s.State...)
}

// DecodeSpawnHeader decodes the fixed part of a SPAWN packet.
func DecodeSpawnHeader(buf []byte) (SpawnHeader, error) {
	if len(buf) < SpawnHeaderSize {
		return SpawnHeader{}, fmt.Errorf("%w: spawn %d < %d", ErrShortPacket, len(buf), SpawnHeaderSize)
	}
	if buf[0] != CmdSpawn {
		return SpawnHeader{}, fmt.Errorf("%w: %d", ErrCommand, buf[0])
	}
	return SpawnHeader{
		SceneID:     buf[1],
		SpawnerPath: le.Uint32(buf[2:]),
		NetID:       types.NetID(le.Uint32(buf[6:])),
		SyncCount:   le.Uint32(buf[10:]),
		NameLen:     le.Uint32(buf[14:]),
	}, nil
}

// DecodeSpawn decodes a SPAWN packet. Returned slices alias buf.
// The name is returned as sent, without validation other than a non zero length.
func DecodeSpawn(buf []byte) (*Spawn, error) {
	hdr, err := DecodeSpawnHeader(buf)
	if err != nil {
		return nil, err
	}
	ofs := SpawnHeaderSize
	remaining := uint64(len(buf) - ofs)
	if uint64(hdr.NameLen)+4*uint64(hdr.SyncCount) > remaining {
		return nil, fmt.Errorf("%w: spawn size %d, wants %d", ErrMalformed,
			len(buf), uint64(ofs)+uint64(hdr.NameLen)+4*uint64(hdr.SyncCount))
	}
	if hdr.NameLen < 1 {
		return nil, fmt.Errorf("%w: zero spawn name size", ErrMalformed)
	}
	s := &Spawn{
		SceneID:     hdr.SceneID,
		SpawnerPath: hdr.SpawnerPath,
		NetID:       hdr.NetID,
		SyncIDs:     make([]types.NetID, 0, hdr.SyncCount),
	}
	for i := uint32(0); i < hdr.SyncCount; i++ {
		s.SyncIDs = append(s.SyncIDs, types.NetID(le.Uint32(buf[ofs:])))
		ofs += 4
	}
	name := buf[ofs : ofs+int(hdr.NameLen)]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	s.Name = string(name)
	ofs += int(hdr.NameLen)

	if s.IsCustom() {
		if len(buf)-ofs < 4 {
			return nil, fmt.Errorf("%w: missing custom argument size", ErrMalformed)
		}
		size := le.Uint32(buf[ofs:])
		ofs += 4
		if uint64(size) > uint64(len(buf)-ofs) {
			return nil, fmt.Errorf("%w: custom argument %d > %d", ErrMalformed, size, len(buf)-ofs)
		}
		s.Arg = buf[ofs : ofs+int(size)]
		ofs += int(size)
	}
	if ofs < len(buf) {
		s.State = buf[ofs:]
	}
	return s, nil
}

// AppendDespawn appends a DESPAWN packet to buf.
func AppendDespawn(buf []byte, id types.NetID) []byte {
	buf = append(buf, CmdDespawn)
	return le.AppendUint32(buf, id.Uint32())
}

// DecodeDespawn decodes a DESPAWN packet.
func DecodeDespawn(buf []byte) (types.NetID, error) {
	if len(buf) < DespawnSize {
		return 0, fmt.Errorf("%w: despawn %d < %d", ErrShortPacket, len(buf), DespawnSize)
	}
	if buf[0] != CmdDespawn {
		return 0, fmt.Errorf("%w: %d", ErrCommand, buf[0])
	}
	return types.NetID(le.Uint32(buf[1:])), nil
}

// AppendSyncHeader appends the command and counter of a SYNC packet to buf.
func AppendSyncHeader(buf []byte, counter uint16) []byte {
	buf = append(buf, CmdSync)
	return le.AppendUint16(buf, counter)
}

// AppendSyncEntry appends one (net id, size, payload) entry to buf.
func AppendSyncEntry(buf []byte, id types.NetID, payload []byte) []byte {
	buf = le.AppendUint32(buf, id.Uint32())
	buf = le.AppendUint32(buf, uint32(len(payload)))
	return append(buf, payload...)
}

// SyncEntry is one synchronizer state carried by a SYNC packet.
type SyncEntry struct {
	NetID   types.NetID
	Payload []byte
}

// SyncReader iterates the entries of a SYNC packet.
type SyncReader struct {
	buf     []byte
	ofs     int
	counter uint16
}

// NewSyncReader validates the header of a SYNC packet.
func NewSyncReader(buf []byte) (*SyncReader, error) {
	if len(buf) < MinSyncSize {
		return nil, fmt.Errorf("%w: sync %d < %d", ErrShortPacket, len(buf), MinSyncSize)
	}
	if buf[0] != CmdSync {
		return nil, fmt.Errorf("%w: %d", ErrCommand, buf[0])
	}
	return &SyncReader{buf: buf, ofs: SyncHeaderSize, counter: le.Uint16(buf[1:])}, nil
}

// Counter returns the counter shared by every entry of the packet.
func (r *SyncReader) Counter() uint16 {
	return r.counter
}

// Next returns the next entry. It returns false once fewer than
// SyncEntryHeaderSize bytes remain. A payload size pointing past the end of
// the packet is an error, and no further entries can be read.
func (r *SyncReader) Next() (SyncEntry, bool, error) {
	if len(r.buf)-r.ofs < SyncEntryHeaderSize {
		return SyncEntry{}, false, nil
	}
	id := types.NetID(le.Uint32(r.buf[r.ofs:]))
	size := le.Uint32(r.buf[r.ofs+4:])
	r.ofs += SyncEntryHeaderSize
	if remaining := len(r.buf) - r.ofs; uint64(size) > uint64(remaining) {
		r.ofs = len(r.buf)
		return SyncEntry{}, false, fmt.Errorf("%w: sync entry %s size %d > %d",
			ErrMalformed, id, size, remaining)
	}
	entry := SyncEntry{NetID: id, Payload: r.buf[r.ofs : r.ofs+int(size)]}
	r.ofs += int(size)
	return entry, true, nil
}
