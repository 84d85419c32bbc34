// Package archive persists finished captures to local frame files and,
// optionally, to S3.
//
// An archive file is a sequence of length-prefixed msgpack frames: one
// header, one frame per segment, and a trailing index frame. The format is
// append-only and self-describing, so a partial file (process killed
// mid-write) is still readable up to the last complete frame.
package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Frame types.
const (
	FrameHeader  byte = 1
	FrameSegment byte = 2
	FrameIndex   byte = 3
)

// MaxFrameSize bounds a single frame payload. Larger frames indicate a
// corrupt or hostile file.
const MaxFrameSize = 16 << 20

// ErrFrameTooLarge is returned when a frame length exceeds MaxFrameSize.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// Header opens an archive file and carries the capture-level fields.
type Header struct {
	SessionID      string `msgpack:"session_id"`
	Title          string `msgpack:"title"`
	Kind           string `msgpack:"kind"`
	CaptureType    string `msgpack:"capture_type"`
	TotalParts     int    `msgpack:"total_parts"`
	TotalSize      int    `msgpack:"total_size"`
	ConversationID string `msgpack:"conversation_id,omitempty"`
	Platform       string `msgpack:"platform,omitempty"`
	CreatedAt      string `msgpack:"created_at"`
}

// SegmentFrame carries one segment with its storage outcome. RecordID is
// empty when the segment was planned but never written (partial capture).
type SegmentFrame struct {
	PartNumber int    `msgpack:"part_number"`
	RecordID   string `msgpack:"record_id,omitempty"`
	SizeBytes  int    `msgpack:"size_bytes"`
	Content    string `msgpack:"content"`
}

// IndexFrame closes an archive file with the capture outcome.
type IndexFrame struct {
	IndexID       string   `msgpack:"index_id,omitempty"`
	RecordIDs     []string `msgpack:"record_ids"`
	Updated       bool     `msgpack:"updated"`
	Partial       bool     `msgpack:"partial"`
	FailedAt      int      `msgpack:"failed_at,omitempty"`
	FailureReason string   `msgpack:"failure_reason,omitempty"`
}

// FrameWriter encodes frames onto a stream.
// Wire layout per frame: 4-byte big-endian payload length, 1 type byte,
// msgpack payload.
type FrameWriter struct {
	w io.Writer
}

// NewFrameWriter creates a writer over w.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteHeader writes the opening header frame.
func (fw *FrameWriter) WriteHeader(h *Header) error {
	return fw.write(FrameHeader, h)
}

// WriteSegment writes one segment frame.
func (fw *FrameWriter) WriteSegment(s *SegmentFrame) error {
	return fw.write(FrameSegment, s)
}

// WriteIndex writes the closing index frame.
func (fw *FrameWriter) WriteIndex(idx *IndexFrame) error {
	return fw.write(FrameIndex, idx)
}

func (fw *FrameWriter) write(frameType byte, v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame type %d: %w", frameType, err)
	}
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	var head [5]byte
	binary.BigEndian.PutUint32(head[:4], uint32(len(payload)))
	head[4] = frameType
	if _, err := fw.w.Write(head[:]); err != nil {
		return fmt.Errorf("write frame head: %w", err)
	}
	if _, err := fw.w.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}

// Frame is one raw frame read off a stream.
type Frame struct {
	Type    byte
	Payload []byte
}

// Decode unmarshals the frame payload into v, which must match Type.
func (f *Frame) Decode(v any) error {
	return msgpack.Unmarshal(f.Payload, v)
}

// FrameReader decodes frames from a stream.
type FrameReader struct {
	r io.Reader
}

// NewFrameReader creates a reader over r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r}
}

// Next reads the next frame. Returns io.EOF at a clean end of stream and
// io.ErrUnexpectedEOF when the stream ends mid-frame.
func (fr *FrameReader) Next() (*Frame, error) {
	var head [5]byte
	if _, err := io.ReadFull(fr.r, head[:1]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	if _, err := io.ReadFull(fr.r, head[1:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	size := binary.BigEndian.Uint32(head[:4])
	if size > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return &Frame{Type: head[4], Payload: payload}, nil
}
