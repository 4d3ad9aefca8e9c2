// Package worker drives an external graph runner process. Requests go to the
// runner's stdin, responses come back on a dedicated pipe (FD 3) so runner
// logging on stdout/stderr never corrupts the protocol.
package worker

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/andresmejia3/trackpoint/internal/graph"
	"github.com/andresmejia3/trackpoint/internal/monitoring"
	"github.com/andresmejia3/trackpoint/internal/packet"
	"github.com/andresmejia3/trackpoint/internal/utils"
)

// maxMessage bounds a single response body.
const maxMessage = 256 << 20

// Config controls how the runner process is spawned.
type Config struct {
	Command     string        `yaml:"command"`
	Args        []string      `yaml:"args"`
	GraphDir    string        `yaml:"graph_dir"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type startRequest struct {
	Info        graph.SolutionInfo `msgpack:"info"`
	SidePackets packet.SidePackets `msgpack:"side_packets"`
}

type startResponse struct {
	Error string `msgpack:"error"`
}

type frameRequest struct {
	Timestamp packet.Timestamp `msgpack:"timestamp"`
	Image     []byte           `msgpack:"image"`
}

type frameResponse struct {
	Error   string          `msgpack:"error"`
	Packets []packet.Record `msgpack:"packets"`
}

// Tap observes every frame response as read from the runner, before any
// validation. runErr is the runner's error message, empty on success.
type Tap interface {
	WriteFrame(runErr string, records []packet.Record) error
}

type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// Runner is a graph.Runtime backed by a runner process.
type Runner struct {
	ID       int
	Cfg      Config
	Cmd      *utils.SafeCommand
	Stdin    io.WriteCloser
	DataPipe io.ReadCloser

	info   graph.SolutionInfo
	out    graph.OutputHandler
	tap    Tap
	closed bool
}

func New(id int, cfg Config) *Runner {
	return &Runner{ID: id, Cfg: cfg}
}

// SetTap installs t to receive a copy of every delivered frame.
func (w *Runner) SetTap(t Tap) { w.tap = t }

func (w *Runner) launch(ctx context.Context) error {
	// 1. Initialize the SafeCommand
	cmd := utils.NewSafeCommand(ctx, w.Cfg.Command, w.Cfg.Args...)

	// Create a side-channel pipe (FD 3) for clean data transfer
	r, pw, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("failed to create pipe: %w", err)
	}
	// Pass the write-end to the child process. It will appear as FD 3.
	cmd.Cmd.ExtraFiles = []*os.File{pw}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		pw.Close()
		r.Close()
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		pw.Close()
		r.Close()
		return fmt.Errorf("runner %d failed to start: %w", w.ID, err)
	}

	// Close the write-end in the parent so only the child holds it
	pw.Close()

	w.Cmd = cmd
	w.Stdin = stdin
	w.DataPipe = r
	return nil
}

// Start spawns the runner, unless pipes were injected, and performs the
// start handshake.
func (w *Runner) Start(ctx context.Context, info graph.SolutionInfo, side packet.SidePackets, out graph.OutputHandler) error {
	if w.Stdin == nil || w.DataPipe == nil {
		if w.Cfg.Command == "" {
			return errors.New("runner command is not configured")
		}
		if err := w.launch(ctx); err != nil {
			return err
		}
	}

	if w.Cfg.GraphDir != "" && !filepath.IsAbs(info.BinaryGraphPath) {
		info.BinaryGraphPath = filepath.Join(w.Cfg.GraphDir, info.BinaryGraphPath)
	}
	w.info = info
	w.out = out

	if err := w.write(startRequest{Info: info, SidePackets: side}); err != nil {
		return fmt.Errorf("runner %d: send start: %w", w.ID, err)
	}
	var resp startResponse
	if err := w.read(&resp); err != nil {
		return fmt.Errorf("runner %d: read start: %w", w.ID, err)
	}
	if resp.Error != "" {
		return &graph.RuntimeError{Op: "start", Err: errors.New(resp.Error)}
	}
	return nil
}

// Send feeds one image and delivers the resulting packets. Runner-reported
// faults go to the OutputHandler; only transport failures are returned.
func (w *Runner) Send(ctx context.Context, image []byte, ts packet.Timestamp) error {
	if w.out == nil {
		return errors.New("runner is not started")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := w.write(frameRequest{Timestamp: ts, Image: image}); err != nil {
		return fmt.Errorf("runner %d: send frame: %w", w.ID, err)
	}
	var resp frameResponse
	if err := w.read(&resp); err != nil {
		return fmt.Errorf("runner %d: read frame: %w", w.ID, err)
	}
	if w.tap != nil {
		if err := w.tap.WriteFrame(resp.Error, resp.Packets); err != nil {
			return fmt.Errorf("runner %d: record frame: %w", w.ID, err)
		}
	}

	if resp.Error != "" {
		w.out.HandleError(&graph.RuntimeError{Op: "process", Err: errors.New(resp.Error)})
		return nil
	}
	packets, err := packet.Packets(resp.Packets)
	if err != nil {
		w.out.HandleError(&graph.RuntimeError{Op: "deliver", Err: err})
		return nil
	}
	if err := graph.CheckPackets(w.info, packets); err != nil {
		w.out.HandleError(err)
		return nil
	}
	w.out.HandlePackets(packets)
	return nil
}

// Close shuts the pipes and waits for the runner to exit. Later calls do nothing.
func (w *Runner) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.out = nil

	var errs []error
	if w.Stdin != nil {
		errs = append(errs, w.Stdin.Close())
	}
	if w.DataPipe != nil {
		errs = append(errs, w.DataPipe.Close())
	}
	if w.Cmd != nil {
		if err := w.Cmd.Wait(); err != nil {
			errs = append(errs, fmt.Errorf("runner %d exited: %w", w.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Protocol: [Length][msgpack body]
func (w *Runner) write(v any) error {
	return WriteMessage(w.Stdin, v)
}

func (w *Runner) read(v any) error {
	if w.Cfg.ReadTimeout > 0 {
		if d, ok := w.DataPipe.(deadliner); ok {
			if err := d.SetReadDeadline(time.Now().Add(w.Cfg.ReadTimeout)); err != nil {
				monitoring.Logf("[worker] runner %d: read timeout not applied: %v", w.ID, err)
			}
		}
	}
	return ReadMessage(w.DataPipe, v)
}

// WriteMessage writes v as a length-prefixed msgpack frame.
func WriteMessage(wr io.Writer, v any) error {
	body, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	if err := binary.Write(wr, binary.BigEndian, uint32(len(body))); err != nil {
		return err
	}
	_, err = wr.Write(body)
	return err
}

// ReadMessage reads one length-prefixed msgpack frame into v.
func ReadMessage(r io.Reader, v any) error {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return err // This is where we catch a runner that crashed on startup
	}

	n := binary.BigEndian.Uint32(header)
	if n > maxMessage {
		return fmt.Errorf("message of %d bytes exceeds limit", n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return err
	}
	return msgpack.Unmarshal(body, v)
}
