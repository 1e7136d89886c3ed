package dicom

import (
	"io"

	"github.com/practical-imaging/dicomindex/dicomerr"
)

// ByteSource is a buffered random-access reader over an in-memory DICOM
// file. It owns exactly one bit of interpretive state beyond its position:
// whether multi-byte reads should be byte-swapped against the encoding the
// caller declared when the source was created. The swap flag exists to
// support the Explicit VR Big Endian sentinel-tag trick (see Parser); most
// callers set the byte order once from the transfer syntax and never touch
// it again.
type ByteSource struct {
	data      []byte
	pos       int64
	bigEndian bool
}

// NewByteSource wraps data for reading, initially in little-endian order.
func NewByteSource(data []byte) *ByteSource {
	return &ByteSource{data: data}
}

// Position returns the current read offset.
func (s *ByteSource) Position() int64 { return s.pos }

// Len returns the total number of bytes in the source.
func (s *ByteSource) Len() int64 { return int64(len(s.data)) }

// Remaining returns the number of unread bytes.
func (s *ByteSource) Remaining() int64 { return int64(len(s.data)) - s.pos }

// BigEndian reports the current byte-order interpretation.
func (s *ByteSource) BigEndian() bool { return s.bigEndian }

// SetBigEndian sets the byte-order interpretation used by subsequent reads.
func (s *ByteSource) SetBigEndian(big bool) { s.bigEndian = big }

// ToggleByteOrder flips the swap flag. Calling it twice restores the
// original interpretation of any future u16 read (byte-swap idempotence).
func (s *ByteSource) ToggleByteOrder() { s.bigEndian = !s.bigEndian }

// Seek moves the read position to an absolute offset. It is the mechanism
// behind the Explicit VR Big Endian sentinel-tag rewind.
func (s *ByteSource) Seek(pos int64) error {
	if pos < 0 || pos > int64(len(s.data)) {
		return dicomerr.NewIoError("seek", dicomerr.ErrIo)
	}
	s.pos = pos
	return nil
}

// SkipBytes advances the read position by n bytes without returning them.
func (s *ByteSource) SkipBytes(n int64) error {
	return s.Seek(s.pos + n)
}

// Peek returns the next n bytes without advancing the position. A short
// read fails with an error matching dicomerr.ErrIo that wraps
// io.ErrUnexpectedEOF.
func (s *ByteSource) Peek(n int) ([]byte, error) {
	if s.Remaining() < int64(n) {
		return nil, dicomerr.NewIoError("read", io.ErrUnexpectedEOF)
	}
	return s.data[s.pos : s.pos+int64(n)], nil
}

// ReadBytes consumes and returns the next n bytes.
func (s *ByteSource) ReadBytes(n int) ([]byte, error) {
	b, err := s.Peek(n)
	if err != nil {
		return nil, err
	}
	s.pos += int64(n)
	return b, nil
}

// ReadUint16 reads a 2-byte unsigned integer honouring the swap flag.
func (s *ByteSource) ReadUint16() (uint16, error) {
	b, err := s.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return DecodeUint16(b, s.bigEndian), nil
}

// ReadInt16 reads a 2-byte signed integer honouring the swap flag.
func (s *ByteSource) ReadInt16() (int16, error) {
	u, err := s.ReadUint16()
	return int16(u), err
}

// ReadUint32 reads a 4-byte unsigned integer honouring the swap flag.
func (s *ByteSource) ReadUint32() (uint32, error) {
	b, err := s.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return DecodeUint32(b, s.bigEndian), nil
}

// ReadFloat32 reads a 4-byte IEEE-754 binary float honouring the swap flag.
// Used for VRs that carry a binary float (FL) rather than an ASCII decimal
// string (DS); most geometry tags in this system use DS and go through
// ValueDecoder's ASCII parsing instead.
func (s *ByteSource) ReadFloat32() (float32, error) {
	b, err := s.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return DecodeFloat32Binary(b, s.bigEndian), nil
}
