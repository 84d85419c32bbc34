package archive

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/seam-io/seam/capture"
	"github.com/seam-io/seam/iox"
	"github.com/seam-io/seam/log"
	"github.com/seam-io/seam/types"
)

// FileExt is the archive file extension.
const FileExt = ".seam"

// Uploader pushes a finished archive file to remote object storage.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64) error
}

// FileArchiver writes one frame file per finished capture under a local
// directory. With an Uploader attached, each file is additionally pushed
// to object storage after the local write succeeds.
type FileArchiver struct {
	dir      string
	logger   *log.Logger
	uploader Uploader
}

// NewFileArchiver creates the archive directory if needed.
func NewFileArchiver(dir string, logger *log.Logger) (*FileArchiver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &FileArchiver{dir: dir, logger: logger}, nil
}

// WithUploader attaches remote upload to the archiver.
func (a *FileArchiver) WithUploader(u Uploader) *FileArchiver {
	a.uploader = u
	return a
}

// ArchiveCapture writes the capture to <dir>/<sessionID>.seam. The file is
// written to a temp name and renamed so readers never observe a
// half-written archive under the final name.
func (a *FileArchiver) ArchiveCapture(ctx context.Context, meta capture.SegmentMeta, segments []types.Segment, res *types.FinalizeResult) error {
	name := meta.SessionID + FileExt
	path := filepath.Join(a.dir, name)
	tmp := path + ".tmp"

	if err := a.writeFile(tmp, meta, segments, res); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename archive: %w", err)
	}
	a.logger.Debug("capture archived", map[string]any{
		"session_id": meta.SessionID,
		"path":       path,
	})

	if a.uploader == nil {
		return nil
	}
	return a.upload(ctx, name, path)
}

func (a *FileArchiver) writeFile(path string, meta capture.SegmentMeta, segments []types.Segment, res *types.FinalizeResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer iox.DiscardClose(f)

	buf := bufio.NewWriter(f)
	fw := NewFrameWriter(buf)

	if err := fw.WriteHeader(&Header{
		SessionID:      meta.SessionID,
		Title:          meta.Title,
		Kind:           string(meta.Kind),
		CaptureType:    captureType(meta),
		TotalParts:     meta.TotalParts,
		TotalSize:      meta.TotalSize,
		ConversationID: meta.ConversationID,
		Platform:       meta.Platform,
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return err
	}

	// Record ids by part number, for segments that made it to storage.
	ids := make(map[int]string, len(res.Segments))
	for _, w := range res.Segments {
		ids[w.PartNumber] = w.RecordID
	}
	for _, seg := range segments {
		if err := fw.WriteSegment(&SegmentFrame{
			PartNumber: seg.PartNumber,
			RecordID:   ids[seg.PartNumber],
			SizeBytes:  seg.SizeBytes,
			Content:    seg.Content,
		}); err != nil {
			return err
		}
	}

	if err := fw.WriteIndex(&IndexFrame{
		IndexID:       res.IndexID,
		RecordIDs:     res.RecordIDs(),
		Updated:       res.Updated,
		Partial:       res.Partial,
		FailedAt:      res.FailedAt,
		FailureReason: res.FailureReason,
	}); err != nil {
		return err
	}

	if err := buf.Flush(); err != nil {
		return fmt.Errorf("flush archive: %w", err)
	}
	return f.Sync()
}

func (a *FileArchiver) upload(ctx context.Context, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive for upload: %w", err)
	}
	defer iox.DiscardClose(f)

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat archive: %w", err)
	}
	if err := a.uploader.Upload(ctx, name, f, info.Size()); err != nil {
		return fmt.Errorf("upload archive: %w", err)
	}
	a.logger.Debug("archive uploaded", map[string]any{"key": name})
	return nil
}

func captureType(meta capture.SegmentMeta) string {
	if meta.TotalParts > 1 {
		return string(types.CaptureChunked)
	}
	return string(types.CaptureSingle)
}

// Verify FileArchiver implements capture.Archiver.
var _ capture.Archiver = (*FileArchiver)(nil)

// Summary is the decoded view of one archive file.
type Summary struct {
	Header   Header
	Segments []SegmentFrame
	Index    *IndexFrame
	// Truncated marks a file that ended mid-frame; decoded frames up to
	// that point are still populated.
	Truncated bool
}

// SegmentIDs returns the storage ids of the written segments, in order.
func (s *Summary) SegmentIDs() []string {
	var ids []string
	for _, seg := range s.Segments {
		if seg.RecordID != "" {
			ids = append(ids, seg.RecordID)
		}
	}
	return ids
}

// ReadSummary decodes an archive stream.
func ReadSummary(r io.Reader) (*Summary, error) {
	fr := NewFrameReader(r)
	var s Summary
	for {
		frame, err := fr.Next()
		if errors.Is(err, io.EOF) {
			return &s, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			s.Truncated = true
			return &s, nil
		}
		if err != nil {
			return nil, err
		}

		switch frame.Type {
		case FrameHeader:
			if err := frame.Decode(&s.Header); err != nil {
				return nil, fmt.Errorf("decode header: %w", err)
			}
		case FrameSegment:
			var seg SegmentFrame
			if err := frame.Decode(&seg); err != nil {
				return nil, fmt.Errorf("decode segment: %w", err)
			}
			s.Segments = append(s.Segments, seg)
		case FrameIndex:
			var idx IndexFrame
			if err := frame.Decode(&idx); err != nil {
				return nil, fmt.Errorf("decode index: %w", err)
			}
			s.Index = &idx
		default:
			return nil, fmt.Errorf("unknown frame type %d", frame.Type)
		}
	}
}

// ReadSummaryFile decodes one archive file.
func ReadSummaryFile(path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer iox.DiscardClose(f)
	return ReadSummary(f)
}

// Reassemble concatenates the segment contents of an archive file,
// reproducing the original payload.
func Reassemble(path string) (string, error) {
	s, err := ReadSummaryFile(path)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, seg := range s.Segments {
		b.WriteString(seg.Content)
	}
	return b.String(), nil
}

// List returns the archive files under dir, newest first by filename.
// Session ids are ULIDs, so lexical order is creation order.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), FileExt) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	return paths, nil
}
