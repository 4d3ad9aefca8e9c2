package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/andresmejia3/trackpoint/internal/gesture"
	"github.com/andresmejia3/trackpoint/internal/graph"
	"github.com/andresmejia3/trackpoint/internal/packet"
	"github.com/andresmejia3/trackpoint/internal/pose"
	"github.com/andresmejia3/trackpoint/internal/recorder"
	"github.com/andresmejia3/trackpoint/internal/store"
)

var replayInput string

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Decode a packet recording again without the graph runner",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, sent, err := replayRecording(cmd.Context(), replayInput, Sink)
		if err != nil {
			return fail("Replay failed", err, nil)
		}
		printSummary(log, sent)
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVarP(&replayInput, "input", "i", "", "Path to a recording written with --record")
	replayCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(replayCmd)
}

// startReplay builds the recorded solution on top of rt and wires its
// listeners to log.
func startReplay(ctx context.Context, h recorder.Header, rt graph.Runtime, log *frameLog) (sender, error) {
	switch h.Solution {
	case "pose":
		var opts pose.Options
		if err := yaml.Unmarshal(h.Options, &opts); err != nil {
			return nil, fmt.Errorf("recorded pose options: %w", err)
		}
		t, err := pose.New(ctx, rt, opts)
		if err != nil {
			return nil, err
		}
		t.SetResultListener(func(r pose.Result) { log.result(r.Timestamp(), summarizePose(r)) })
		t.SetErrorListener(log.report)
		return t, nil
	case "gesture":
		var opts gesture.Options
		if err := yaml.Unmarshal(h.Options, &opts); err != nil {
			return nil, fmt.Errorf("recorded gesture options: %w", err)
		}
		r, err := gesture.New(ctx, rt, opts)
		if err != nil {
			return nil, err
		}
		r.SetResultListener(func(res gesture.Result) { log.result(res.Timestamp(), summarizeGesture(res)) })
		r.SetErrorListener(log.report)
		return r, nil
	}
	return nil, fmt.Errorf("unknown solution %q in recording", h.Solution)
}

// replayRecording decodes every frame of the recording at path into a new session.
func replayRecording(ctx context.Context, path string, sink store.Sink) (*frameLog, int, error) {
	reader, err := recorder.Open(path)
	if err != nil {
		return nil, 0, err
	}
	h := reader.Header()

	session := store.NewSession(h.Solution, path, "", h.Info.StaticImageMode)
	log, err := newFrameLog(ctx, sink, session)
	if err != nil {
		reader.Close()
		return nil, 0, err
	}

	rp := recorder.NewReplay(reader)
	s, err := startReplay(ctx, h, rp, log)
	if err != nil {
		reader.Close()
		return nil, 0, err
	}
	defer s.Close()

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("⏪ Replaying "+h.Solution),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)
	defer bar.Finish()

	sent := 0
	for {
		log.begin(sent)
		// Recorded packets carry their own timestamps, the frame index only orders the feed
		err := s.Send(ctx, nil, packet.Timestamp(sent))
		if errors.Is(err, io.EOF) {
			return log, sent, nil
		}
		if err != nil {
			return log, sent, err
		}
		// Store the frame under the index it had in the recorded session
		log.index = rp.Index()
		if err := log.finish(); err != nil {
			return log, sent, err
		}
		bar.Add(1)
		sent++
	}
}
