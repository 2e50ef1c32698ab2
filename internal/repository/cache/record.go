package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
)

// On-disk layout, little-endian, no padding between fields:
//
//	magic [4]byte "NHTC"
//	version uint8
//	flags uint8
//	reserved uint16
//	registeredAt int64 (unix nanoseconds)
//	length uint32 (stored payload bytes)
//	payload [length]byte
const (
	recordVersion    = 1
	recordHeaderSize = 20

	flagZstd = 1 << 0
)

var recordMagic = [4]byte{'N', 'H', 'T', 'C'}

var ErrCorruptRecord = errors.New("corrupt cache record")

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// EncodeRecord serializes r, optionally compressing the payload.
func EncodeRecord(r Record, compress bool) []byte {
	payload := r.Bytes
	var flags uint8
	if compress {
		payload = zstdEncoder.EncodeAll(r.Bytes, nil)
		flags |= flagZstd
	}

	buf := make([]byte, recordHeaderSize+len(payload))
	copy(buf[0:4], recordMagic[:])
	buf[4] = recordVersion
	buf[5] = flags
	binary.LittleEndian.PutUint64(buf[8:16], uint64(r.RegisteredAt.UnixNano()))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(payload)))
	copy(buf[recordHeaderSize:], payload)

	return buf
}

func DecodeRecord(b []byte) (Record, error) {
	if len(b) < recordHeaderSize {
		return Record{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorruptRecord, len(b))
	}
	if [4]byte(b[0:4]) != recordMagic {
		return Record{}, fmt.Errorf("%w: bad magic", ErrCorruptRecord)
	}
	if b[4] != recordVersion {
		return Record{}, fmt.Errorf("%w: unsupported version %d", ErrCorruptRecord, b[4])
	}

	flags := b[5]
	registeredAt := time.Unix(0, int64(binary.LittleEndian.Uint64(b[8:16])))
	length := binary.LittleEndian.Uint32(b[16:20])
	if uint64(len(b)-recordHeaderSize) != uint64(length) {
		return Record{}, fmt.Errorf("%w: payload length %d, header says %d", ErrCorruptRecord, len(b)-recordHeaderSize, length)
	}

	payload := b[recordHeaderSize:]
	if flags&flagZstd != 0 {
		decoded, err := zstdDecoder.DecodeAll(payload, nil)
		if err != nil {
			return Record{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		}
		payload = decoded
	} else {
		payload = append([]byte(nil), payload...)
	}

	return Record{Bytes: payload, RegisteredAt: registeredAt}, nil
}
