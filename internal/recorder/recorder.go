// Package recorder logs the packets a graph delivers and replays them later
// without the runner.
package recorder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/andresmejia3/trackpoint/internal/graph"
	"github.com/andresmejia3/trackpoint/internal/packet"
)

// Version is the recording format version written in every header.
const Version = 2

// Header opens every recording.
type Header struct {
	Version  int                `msgpack:"version"`
	Solution string             `msgpack:"solution"`
	Info     graph.SolutionInfo `msgpack:"info"`
	Side     packet.SidePackets `msgpack:"side"`
	// Options is the YAML encoding of the solution options the session ran with.
	Options []byte    `msgpack:"options"`
	Created time.Time `msgpack:"created"`
}

// Frame is one delivery. Index is the input frame it answers. A frame the
// runner failed to process carries Error and no packets.
type Frame struct {
	Index   int             `msgpack:"index"`
	Error   string          `msgpack:"error,omitempty"`
	Packets []packet.Record `msgpack:"packets"`
}

// Writer appends frames to a recording.
type Writer struct {
	bw     *bufio.Writer
	enc    *msgpack.Encoder
	closer io.Closer
	frames int
	index  int
}

// NewWriter writes h to w and returns a Writer for the frames that follow.
func NewWriter(w io.Writer, h Header) (*Writer, error) {
	if h.Version == 0 {
		h.Version = Version
	}
	if h.Created.IsZero() {
		h.Created = time.Now().UTC()
	}
	bw := bufio.NewWriter(w)
	rw := &Writer{bw: bw, enc: msgpack.NewEncoder(bw)}
	if c, ok := w.(io.Closer); ok {
		rw.closer = c
	}
	if err := rw.enc.Encode(&h); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return rw, nil
}

// Create creates the file at path and writes h to it.
func Create(path string, h Header) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, h)
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// Mark sets the input frame index stamped on the frames that follow.
func (w *Writer) Mark(index int) { w.index = index }

// WriteFrame appends one delivery for the marked frame. runErr is the
// runner's error message, empty on success.
func (w *Writer) WriteFrame(runErr string, records []packet.Record) error {
	if err := w.enc.Encode(&Frame{Index: w.index, Error: runErr, Packets: records}); err != nil {
		return fmt.Errorf("write frame %d: %w", w.frames, err)
	}
	w.frames++
	return nil
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int { return w.frames }

// Close flushes buffered frames and closes the underlying file, if any.
func (w *Writer) Close() error {
	err := w.bw.Flush()
	if w.closer != nil {
		err = errors.Join(err, w.closer.Close())
	}
	return err
}

// Reader reads a recording frame by frame.
type Reader struct {
	br     *bufio.Reader
	dec    *msgpack.Decoder
	header Header
	closer io.Closer
}

// NewReader reads the header from r.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	rr := &Reader{br: br, dec: msgpack.NewDecoder(br)}
	if c, ok := r.(io.Closer); ok {
		rr.closer = c
	}
	if err := rr.dec.Decode(&rr.header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if rr.header.Version != Version {
		return nil, fmt.Errorf("unsupported recording version %d", rr.header.Version)
	}
	return rr, nil
}

// Open opens the recording at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func (r *Reader) Header() Header { return r.header }

// Next returns the next frame, or io.EOF after the last one.
func (r *Reader) Next() (Frame, error) {
	if _, err := r.br.Peek(1); err != nil {
		return Frame{}, err
	}
	var f Frame
	if err := r.dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, fmt.Errorf("read frame: %w", err)
	}
	return f, nil
}

func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
