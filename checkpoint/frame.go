package checkpoint

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/seqpack"
	"github.com/hupe1980/seqpack/codec"
	"github.com/hupe1980/seqpack/internal/compress"
	"github.com/hupe1980/seqpack/internal/conv"
	"github.com/hupe1980/seqpack/internal/hash"
)

const (
	magic = "SQPK"
	// FormatVersion is the version of the checkpoint frame.
	FormatVersion uint16 = 1

	// magic + version + compression + codec name length
	fixedHeaderSize = 4 + 2 + 1 + 1
	checksumSize    = 4
)

// Encode serializes st into a checkpoint frame.
func Encode(st seqpack.State, c codec.Codec, ct Compression) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}
	name := c.Name()
	nameLen, err := conv.IntToUint8(len(name))
	if err != nil {
		return nil, fmt.Errorf("codec name %q: %w", name, err)
	}

	raw, err := c.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode state with %s: %w", name, err)
	}
	payload, err := compress.Encode(raw, ct)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(fixedHeaderSize + len(name) + checksumSize + len(payload))
	buf.WriteString(magic)
	_ = binary.Write(&buf, binary.LittleEndian, FormatVersion)
	buf.WriteByte(byte(ct))
	buf.WriteByte(nameLen)
	buf.WriteString(name)
	_ = binary.Write(&buf, binary.LittleEndian, hash.CRC32C(payload))
	buf.Write(payload)
	return buf.Bytes(), nil
}

// Header describes a checkpoint frame.
type Header struct {
	Version     uint16
	Compression Compression
	Codec       string
}

// Decode verifies a checkpoint frame and returns the State it holds.
func Decode(data []byte) (seqpack.State, Header, error) {
	var st seqpack.State

	h, payload, err := parseFrame(data)
	if err != nil {
		return st, h, err
	}

	c, ok := codec.ByName(h.Codec)
	if !ok {
		return st, h, fmt.Errorf("%w: unknown codec %q", ErrCorrupt, h.Codec)
	}

	raw, err := compress.Decode(payload, h.Compression)
	if err != nil {
		return st, h, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := c.Unmarshal(raw, &st); err != nil {
		return st, h, fmt.Errorf("%w: decode state with %s: %v", ErrCorrupt, h.Codec, err)
	}
	return st, h, nil
}

func parseFrame(data []byte) (Header, []byte, error) {
	var h Header

	if len(data) < fixedHeaderSize {
		return h, nil, fmt.Errorf("%w: %d bytes is too small for header", ErrCorrupt, len(data))
	}
	if string(data[:4]) != magic {
		return h, nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, data[:4])
	}

	h.Version = binary.LittleEndian.Uint16(data[4:6])
	if h.Version != FormatVersion {
		return h, nil, fmt.Errorf("%w: got %d, want %d", ErrIncompatibleVersion, h.Version, FormatVersion)
	}
	h.Compression = compress.Type(data[6])

	nameLen := int(data[7])
	rest := data[fixedHeaderSize:]
	if len(rest) < nameLen+checksumSize {
		return h, nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}
	h.Codec = string(rest[:nameLen])
	sum := binary.LittleEndian.Uint32(rest[nameLen:])
	payload := rest[nameLen+checksumSize:]

	if !hash.Verify(payload, sum) {
		return h, nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	return h, payload, nil
}
