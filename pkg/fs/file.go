package fs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/datalake-go/adlfs/pkg/client"
	"github.com/datalake-go/adlfs/pkg/protocol"
)

// DefaultBlockSize is the unit of range-fetch and flush granularity.
const DefaultBlockSize = 5 << 20

// Mode is the handle's fixed direction, chosen at open and never mixed.
type Mode int

const (
	// ModeRead presents a seekable byte stream backed by range fetches.
	// A read handle never mutates the remote object.
	ModeRead Mode = iota
	// ModeWrite accumulates bytes and commits them through the
	// append/flush protocol. Flushed bytes are never rewritten.
	ModeWrite
)

// ParseMode maps the accepted mode strings onto a Mode: "rb" reads,
// "wb" and the empty string write. Anything else is rejected.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "rb":
		return ModeRead, nil
	case "wb", "":
		return ModeWrite, nil
	}
	return 0, fmt.Errorf("unsupported open mode %q", s)
}

var (
	// ErrClosed is returned by any operation on a closed handle.
	ErrClosed = errors.New("file already closed")
	// ErrNotReadable is returned for reads or seeks on a write handle.
	ErrNotReadable = errors.New("file not open for reading")
	// ErrNotWritable is returned for writes on a read handle.
	ErrNotWritable = errors.New("file not open for writing")
	// ErrSingleShot is returned by Sync on a single-shot handle, which
	// commits everything at close.
	ErrSingleShot = errors.New("single-shot handle commits on close")
)

// OpenOption adjusts a handle at open time.
type OpenOption func(*File)

// WithBlockSize overrides the handle's block size.
func WithBlockSize(n int64) OpenOption {
	return func(f *File) {
		if n > 0 {
			f.blockSize = n
		}
	}
}

// WithSingleShot switches a write handle to upload its entire buffer as
// one PUT at close, skipping the append/flush protocol. The write path is
// fixed for the handle's lifetime.
func WithSingleShot() OpenOption {
	return func(f *File) { f.singleShot = true }
}

// File is one open buffered remote file. It is not safe for concurrent
// use; callers wanting parallel range fetches should open one handle per
// goroutine. The context passed to Open bounds every network call the
// handle makes.
type File struct {
	fs        *Fs
	ctx       context.Context
	path      string
	mode      Mode
	blockSize int64
	logger    *zap.Logger
	closed    bool

	// Read state: pos is the logical offset, win the most recently
	// fetched block-sized window.
	pos      int64
	winStart int64
	win      []byte

	// Write state: buffered bytes not yet committed, whether the remote
	// object has been created, and how many bytes have been flushed.
	// committed is the append/flush position for the next chunk, which
	// keeps multi-chunk uploads contiguous.
	buf        bytes.Buffer
	initiated  bool
	committed  int64
	singleShot bool
}

// Name returns the filesystem-relative path of the handle.
func (f *File) Name() string { return f.path }

// Size returns the current remote object size via a fresh stat round
// trip; it is never cached.
func (f *File) Size() (uint64, error) {
	return f.fs.Size(f.ctx, f.path)
}

// fetch issues a range GET. A nil rng requests the whole object with no
// Range header.
func (f *File) fetch(rng *client.ByteRange) ([]byte, error) {
	resp, err := f.fs.client.Get(f.ctx, f.path, nil, client.Headers{
		ContentType: formURLEncoded,
		Range:       rng,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// fetchRange returns the bytes of the half-open interval [start, end).
func (f *File) fetchRange(start, end uint64) ([]byte, error) {
	return f.fetch(&client.ByteRange{Start: start, End: &end})
}

func (f *File) readWhole() ([]byte, error) {
	if f.mode != ModeRead {
		return nil, ErrNotReadable
	}
	if f.closed {
		return nil, ErrClosed
	}
	return f.fetch(nil)
}

// beyondEOF reports whether err is the provider rejecting a range that
// starts at or past the end of the object.
func beyondEOF(err error) bool {
	var te *client.TransportError
	return errors.As(err, &te) && te.Status == http.StatusRequestedRangeNotSatisfiable
}

// Read reads sequentially from the current offset, pulling block-sized
// windows on demand.
func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}
	if f.mode != ModeRead {
		return 0, ErrNotReadable
	}
	if len(p) == 0 {
		return 0, nil
	}
	if f.pos < f.winStart || f.pos >= f.winStart+int64(len(f.win)) {
		data, err := f.fetchRange(uint64(f.pos), uint64(f.pos+f.blockSize))
		if err != nil {
			if beyondEOF(err) {
				return 0, io.EOF
			}
			return 0, err
		}
		if len(data) == 0 {
			return 0, io.EOF
		}
		f.winStart = f.pos
		f.win = data
	}
	n := copy(p, f.win[f.pos-f.winStart:])
	f.pos += int64(n)
	return n, nil
}

// ReadAt reads len(p) bytes at offset off with a single range fetch. A
// short read past the end of the object returns io.EOF per io.ReaderAt.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}
	if f.mode != ModeRead {
		return 0, ErrNotReadable
	}
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if len(p) == 0 {
		return 0, nil
	}
	data, err := f.fetchRange(uint64(off), uint64(off)+uint64(len(p)))
	if err != nil {
		if beyondEOF(err) {
			return 0, io.EOF
		}
		return 0, err
	}
	n := copy(p, data)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Seek repositions the read offset. Seeking is rejected on write handles;
// the write protocol is append-only.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, ErrClosed
	}
	if f.mode != ModeRead {
		return 0, ErrNotReadable
	}
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = f.pos + offset
	case io.SeekEnd:
		size, err := f.Size()
		if err != nil {
			return 0, err
		}
		next = int64(size) + offset
	default:
		return 0, fmt.Errorf("invalid whence value: %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("negative position %d", next)
	}
	f.pos = next
	return f.pos, nil
}

// Write buffers p. On the chunked path the remote object is created before
// the first byte is accepted, and the buffer is committed whenever it
// reaches the block size. Single-shot handles only buffer; the upload
// happens at close.
func (f *File) Write(p []byte) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}
	if f.mode != ModeWrite {
		return 0, ErrNotWritable
	}
	if len(p) > 0 && !f.singleShot && !f.initiated {
		if err := f.initiateUpload(); err != nil {
			return 0, err
		}
	}
	f.buf.Write(p)
	if !f.singleShot && int64(f.buf.Len()) >= f.blockSize {
		if err := f.uploadChunk(); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Sync commits buffered bytes on a chunked write handle without closing it.
func (f *File) Sync() error {
	if f.closed {
		return ErrClosed
	}
	if f.mode != ModeWrite {
		return nil
	}
	if f.singleShot {
		return ErrSingleShot
	}
	if f.buf.Len() == 0 {
		return nil
	}
	if !f.initiated {
		if err := f.initiateUpload(); err != nil {
			return err
		}
	}
	return f.uploadChunk()
}

// Close terminates the handle. A write handle commits any remaining
// buffered bytes first (creating the remote object even when nothing was
// written); a read handle releases its buffer with no network call.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.win = nil

	if f.mode != ModeWrite {
		return nil
	}
	if f.singleShot {
		return f.uploadSingleShot()
	}
	if !f.initiated {
		if err := f.initiateUpload(); err != nil {
			return err
		}
	}
	if f.buf.Len() > 0 {
		return f.uploadChunk()
	}
	return nil
}

// initiateUpload creates a zero-length remote object. It must precede any
// append.
func (f *File) initiateUpload() error {
	query := url.Values{protocol.ParamResource: {protocol.ResourceFile}}
	_, err := f.fs.client.Put(f.ctx, f.path, query, client.Headers{
		ContentType: formURLEncoded,
		MediaType:   "application/octet-stream",
	}, nil)
	if err != nil {
		return fmt.Errorf("initiate upload: %w", err)
	}
	f.initiated = true
	return nil
}

// uploadChunk commits the buffer as one append plus one flush. The flush
// position must equal the contiguous length of everything appended so
// far, so both calls are positioned by the committed-bytes counter. If the
// append lands but the flush fails, the object is left unflushed and the
// error surfaces; there is no rollback.
func (f *File) uploadChunk() error {
	data := f.buf.Bytes()
	n := int64(len(data))

	query := url.Values{
		protocol.ParamAction:   {protocol.ActionAppend},
		protocol.ParamPosition: {strconv.FormatInt(f.committed, 10)},
	}
	if _, err := f.fs.client.Patch(f.ctx, f.path, query, client.Headers{
		ContentType: "application/octet-stream",
	}, data); err != nil {
		return fmt.Errorf("append at %d: %w", f.committed, err)
	}

	query = url.Values{
		protocol.ParamAction:   {protocol.ActionFlush},
		protocol.ParamPosition: {strconv.FormatInt(f.committed+n, 10)},
	}
	if _, err := f.fs.client.Patch(f.ctx, f.path, query, client.Headers{
		MediaType: "application/octet-stream",
	}, nil); err != nil {
		return fmt.Errorf("flush at %d: %w", f.committed+n, err)
	}

	f.committed += n
	f.buf.Reset()
	f.logger.Debug("chunk committed",
		zap.String("path", f.path),
		zap.Int64("bytes", n),
		zap.Int64("committed", f.committed))
	return nil
}

// uploadSingleShot writes the entire buffer as one PUT, bypassing the
// append/flush protocol.
func (f *File) uploadSingleShot() error {
	query := url.Values{protocol.ParamResource: {protocol.ResourceFile}}
	data := f.buf.Bytes()
	if _, err := f.fs.client.Put(f.ctx, f.path, query, client.Headers{}, data); err != nil {
		return fmt.Errorf("single-shot upload: %w", err)
	}
	f.committed = int64(len(data))
	f.buf.Reset()
	return nil
}
