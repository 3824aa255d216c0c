package codec

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Wire protocol between the pool and a codec worker process. All integers
// are big-endian.
//
// Request:  op(1) | offset(8) | pathLen(2) | path
// Response: status(1) | compressedSize(4) | dataLen(4) | data   on success
//           status(1) | reasonLen(4) | reason                   on failure
//
// The worker answers requests one at a time in order; the quit op takes no
// payload and asks the worker to exit cleanly.
const (
	opDecompress byte = 0x01
	opQuit       byte = 0x02

	statusOK     byte = 0x00
	statusFailed byte = 0x01

	// maxSourcePath bounds the request path field.
	maxSourcePath = 4096

	// MaxPayloadSize bounds a single decompressed payload. Sprite sheets
	// top out well under 64 KiB; anything past this is a corrupt stream.
	MaxPayloadSize = 16 << 20
)

// writeDecompressRequest writes one decompress request.
func writeDecompressRequest(w io.Writer, req Request) error {
	if len(req.Source) > maxSourcePath {
		return fmt.Errorf("source path too long: %d bytes", len(req.Source))
	}

	buf := make([]byte, 0, 1+8+2+len(req.Source))
	buf = append(buf, opDecompress)
	buf = binary.BigEndian.AppendUint64(buf, uint64(req.Offset))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(req.Source)))
	buf = append(buf, req.Source...)

	_, err := w.Write(buf)
	return err
}

// writeQuitRequest writes the quit op.
func writeQuitRequest(w io.Writer) error {
	_, err := w.Write([]byte{opQuit})
	return err
}

// readResult reads one response and converts it to a Result. Protocol
// violations are returned as errors; a clean decode failure is a Result
// with Success=false.
func readResult(r io.Reader) (Result, error) {
	var status [1]byte
	if _, err := io.ReadFull(r, status[:]); err != nil {
		return Result{}, fmt.Errorf("read status: %w", err)
	}

	switch status[0] {
	case statusOK:
		var header [8]byte
		if _, err := io.ReadFull(r, header[:]); err != nil {
			return Result{}, fmt.Errorf("read payload header: %w", err)
		}
		compressedSize := binary.BigEndian.Uint32(header[:4])
		dataLen := binary.BigEndian.Uint32(header[4:])
		if dataLen > MaxPayloadSize {
			return Result{}, fmt.Errorf("%w: %d bytes", ErrResponseTooLarge, dataLen)
		}
		// A successful decode always carries output. Workers that
		// report OK with no payload are treated as a decode failure so
		// Data stays non-empty iff Success.
		if dataLen == 0 {
			return Result{FailureReason: "empty payload"}, nil
		}

		data := make([]byte, dataLen)
		if _, err := io.ReadFull(r, data); err != nil {
			return Result{}, fmt.Errorf("read payload: %w", err)
		}
		return Result{
			Success:        true,
			Data:           data,
			CompressedSize: int(compressedSize),
		}, nil

	case statusFailed:
		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return Result{}, fmt.Errorf("read failure header: %w", err)
		}
		reasonLen := binary.BigEndian.Uint32(lenBuf[:])
		if reasonLen > MaxPayloadSize {
			return Result{}, fmt.Errorf("%w: %d byte reason", ErrResponseTooLarge, reasonLen)
		}

		reason := make([]byte, reasonLen)
		if _, err := io.ReadFull(r, reason); err != nil {
			return Result{}, fmt.Errorf("read failure reason: %w", err)
		}
		return Result{FailureReason: string(reason)}, nil

	default:
		return Result{}, fmt.Errorf("unknown response status 0x%02X", status[0])
	}
}
