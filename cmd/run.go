package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"gopkg.in/yaml.v3"

	"github.com/andresmejia3/trackpoint/internal/graph"
	"github.com/andresmejia3/trackpoint/internal/packet"
	"github.com/andresmejia3/trackpoint/internal/recorder"
	"github.com/andresmejia3/trackpoint/internal/store"
	"github.com/andresmejia3/trackpoint/internal/types"
	"github.com/andresmejia3/trackpoint/internal/utils"
	"github.com/andresmejia3/trackpoint/internal/worker"
)

const megabyte = 1024 * 1024

// sender is a started solution.
type sender interface {
	Send(ctx context.Context, image []byte, ts packet.Timestamp) error
	Close() error
}

// frameLog stores the outcome of each frame of a session. Listeners fire
// inside Send, so begin/finish bracket exactly one frame.
type frameLog struct {
	ctx     context.Context
	sink    store.Sink
	session store.Session
	// rec, when set, stamps recorded frames with the current index
	rec *recorder.Writer

	index   int
	ts      packet.Timestamp
	summary any
	errs    []string

	frames int
	failed int
}

func newFrameLog(ctx context.Context, sink store.Sink, session store.Session) (*frameLog, error) {
	if err := sink.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return &frameLog{ctx: ctx, sink: sink, session: session}, nil
}

func (l *frameLog) begin(index int) {
	if l.rec != nil {
		l.rec.Mark(index)
	}
	l.index = index
	l.ts = packet.Unset
	l.summary = nil
	l.errs = l.errs[:0]
}

// result records the decoded result of the current frame.
func (l *frameLog) result(ts packet.Timestamp, summary any) {
	l.ts = ts
	l.summary = summary
}

// report is the solution's error listener.
func (l *frameLog) report(message string, err error) {
	msg := message
	if err != nil {
		msg = fmt.Sprintf("%s: %v", message, err)
	}
	l.errs = append(l.errs, msg)
}

// finish persists the current frame. A frame without a result is stored as failed.
func (l *frameLog) finish() error {
	f := store.Frame{Index: l.index, Timestamp: l.ts}
	if l.summary == nil {
		f.Error = strings.Join(l.errs, "; ")
		if f.Error == "" {
			f.Error = "no result"
		}
		l.failed++
	} else {
		body, err := json.Marshal(struct {
			Result any      `json:"result"`
			Errors []string `json:"errors,omitempty"`
		}{l.summary, l.errs})
		if err != nil {
			return err
		}
		f.Summary = body
	}
	l.frames++
	return l.sink.InsertFrame(l.ctx, l.session.ID, f)
}

// frameTimestamp converts a frame index to microseconds at fps.
func frameTimestamp(index int, fps float64) packet.Timestamp {
	return packet.Timestamp(float64(index) * 1e6 / fps)
}

// forEachFrame reads input and calls fn for every nth frame with its
// timestamp. Images yield a single frame at timestamp 0.
func forEachFrame(ctx context.Context, input string, nth int, bar *progressbar.ProgressBar, fn func(types.FrameTask, packet.Timestamp) error) (int, error) {
	if utils.IsImage(input) {
		data, err := os.ReadFile(input)
		if err != nil {
			return 0, err
		}
		bar.Add(1)
		return 1, fn(types.FrameTask{Index: 0, Data: data}, 0)
	}

	// Get FPS for timestamp calculations
	fps, err := utils.GetVideoFPS(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("failed to determine video FPS: %w", err)
	}

	ffmpeg := utils.NewFFmpegCmd(ctx, input)
	var stderrBuf bytes.Buffer
	ffmpeg.Stderr = &stderrBuf

	ffmpegOut, err := ffmpeg.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("failed to create FFmpeg stdout pipe: %w", err)
	}
	defer ffmpegOut.Close() // Ensure pipe is closed to prevent leaks/zombies

	if err := ffmpeg.Start(); err != nil {
		return 0, fmt.Errorf("failed to start FFmpeg: %w", err)
	}

	scanner := bufio.NewScanner(ffmpegOut)
	scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	scanner.Split(utils.SplitJpeg)

	index, sent := 0, 0
	for scanner.Scan() {
		bar.Add(1) // Update progress bar for every frame read
		if index%nth == 0 {
			// The solution delivers before Send returns, so the scanner buffer can be passed as is
			if err := fn(types.FrameTask{Index: index, Data: scanner.Bytes()}, frameTimestamp(index, fps)); err != nil {
				ffmpeg.Process.Kill()
				ffmpeg.Wait()
				return sent, err
			}
			sent++
		}
		index++
	}

	// Check for scanner errors (e.g. token too long, unexpected EOF)
	if err := scanner.Err(); err != nil {
		return sent, fmt.Errorf("frame scanner failed: %w", err)
	}
	if err := ffmpeg.Wait(); err != nil {
		if stderrBuf.Len() > 0 {
			fmt.Fprintf(os.Stderr, "\nFFmpeg Logs:\n%s\n", stderrBuf.String())
		}
		return sent, fmt.Errorf("FFmpeg execution failed: %w", err)
	}
	return sent, nil
}

// drive feeds every frame of input to s, storing results through log.
func drive(ctx context.Context, input string, nth int, s sender, log *frameLog) (int, error) {
	total := -1
	if !utils.IsImage(input) {
		if n := utils.GetTotalFrames(ctx, input); n > 0 {
			total = n
		}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("🔍 Trackpoint "+log.session.Solution),
		progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
		progressbar.OptionShowCount(),
	)
	defer bar.Finish()

	return forEachFrame(ctx, input, nth, bar, func(task types.FrameTask, ts packet.Timestamp) error {
		log.begin(task.Index)
		if err := s.Send(ctx, task.Data, ts); err != nil {
			return err
		}
		return log.finish()
	})
}

// validateRunFlags ensures all CLI arguments are valid before starting heavy processes.
func validateRunFlags(opts *RunOptions) error {
	info, err := os.Stat(opts.InputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file does not exist: %w", err)
		}
		return fmt.Errorf("unable to access input file: %w", err)
	}
	if info.IsDir() {
		return errors.New("input path is a directory, expected a video or image file")
	}
	if opts.NthFrame < 1 {
		return fmt.Errorf("invalid nth-frame interval: must be >= 1, got %d", opts.NthFrame)
	}
	return nil
}

// newSession registers the input with the store.
func newSession(ctx context.Context, solution string, opts RunOptions, static bool) (*frameLog, error) {
	sourceID, err := utils.GenerateSourceID(opts.InputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to generate source ID: %w", err)
	}
	session := store.NewSession(solution, opts.InputPath, sourceID, static)
	return newFrameLog(ctx, Sink, session)
}

// startRunner prepares the runner process, with an optional recording tap.
// The recording is nil when recordPath is empty.
func startRunner(solution string, info graph.SolutionInfo, side packet.SidePackets, options any, recordPath string) (*worker.Runner, *recorder.Writer, error) {
	runner := worker.New(0, cfg.Runner)
	if recordPath == "" {
		return runner, nil, nil
	}

	raw, err := yaml.Marshal(options)
	if err != nil {
		return nil, nil, err
	}
	rec, err := recorder.Create(recordPath, recorder.Header{
		Solution: solution,
		Info:     info,
		Side:     side,
		Options:  raw,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create recording: %w", err)
	}
	runner.SetTap(rec)
	return runner, rec, nil
}

func printSummary(log *frameLog, sent int) {
	fmt.Fprintf(os.Stderr, "\n---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "📊 %s SUMMARY\n", strings.ToUpper(log.session.Solution))
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "🆔 Session:          %s\n", shortID(log.session.ID))
	fmt.Fprintf(os.Stderr, "🎞️  Frames processed: %d\n", sent)
	fmt.Fprintf(os.Stderr, "⚠️  Frames failed:    %d\n", log.failed)
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
