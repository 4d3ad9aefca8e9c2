package cmd

import (
	"github.com/spf13/cobra"

	"github.com/andresmejia3/trackpoint/internal/gesture"
	"github.com/andresmejia3/trackpoint/internal/types"
	"github.com/andresmejia3/trackpoint/internal/utils"
)

var (
	gestureRun  RunOptions
	gestureOpts gesture.Options
)

var gestureCmd = &cobra.Command{
	Use:   "gesture",
	Short: "Recognize hand gestures in a video or image",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cfg.Gesture
		flags := cmd.Flags()
		if flags.Changed("hands") {
			opts.NumHands = gestureOpts.NumHands
		}
		if flags.Changed("min-detection") {
			opts.MinHandDetectionConfidence = gestureOpts.MinHandDetectionConfidence
		}
		if flags.Changed("min-presence") {
			opts.MinHandPresenceConfidence = gestureOpts.MinHandPresenceConfidence
		}
		if flags.Changed("min-tracking") {
			opts.MinTrackingConfidence = gestureOpts.MinTrackingConfidence
		}
		return runGesture(cmd, gestureRun, opts)
	},
}

func init() {
	addRunFlags(gestureCmd, &gestureRun)
	gestureCmd.Flags().IntVar(&gestureOpts.NumHands, "hands", 1, "Maximum number of hands to detect")
	gestureCmd.Flags().Float32Var(&gestureOpts.MinHandDetectionConfidence, "min-detection", 0.5, "Minimum hand detection confidence")
	gestureCmd.Flags().Float32Var(&gestureOpts.MinHandPresenceConfidence, "min-presence", 0.5, "Minimum hand presence confidence")
	gestureCmd.Flags().Float32Var(&gestureOpts.MinTrackingConfidence, "min-tracking", 0.5, "Minimum hand tracking confidence")
	rootCmd.AddCommand(gestureCmd)
}

// gestureSummary is what gets stored for each gesture frame.
type gestureSummary struct {
	Hands      int      `json:"hands"`
	Gestures   []string `json:"gestures"`
	Handedness []string `json:"handedness"`
}

// topLabel returns the best-scoring category's label, or "" when there is none.
func topLabel(cats []types.Category) string {
	best := -1
	for i, c := range cats {
		if best < 0 || c.Score > cats[best].Score {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return cats[best].Label
}

func summarizeGesture(r gesture.Result) gestureSummary {
	s := gestureSummary{
		Hands:      len(r.Landmarks()),
		Gestures:   []string{},
		Handedness: []string{},
	}
	for _, g := range r.Gestures() {
		s.Gestures = append(s.Gestures, topLabel(g))
	}
	for _, h := range r.Handednesses() {
		s.Handedness = append(s.Handedness, topLabel(h))
	}
	return s
}

func runGesture(cmd *cobra.Command, run RunOptions, opts gesture.Options) error {
	ctx := cmd.Context()
	if err := validateRunFlags(&run); err != nil {
		return fail("Invalid arguments", err, nil)
	}
	if err := opts.Validate(); err != nil {
		return fail("Invalid gesture options", err, nil)
	}
	opts.StaticImageMode = opts.StaticImageMode || run.Static || utils.IsImage(run.InputPath)

	runner, rec, err := startRunner("gesture", gesture.Info(opts), gesture.SidePackets(opts), opts, run.RecordPath)
	if err != nil {
		return fail("Failed to prepare runner", err, nil)
	}
	if rec != nil {
		defer rec.Close()
	}

	recognizer, err := gesture.New(ctx, runner, opts)
	if err != nil {
		runner.Close()
		return fail("Graph runner failed to start", err, runner.Cmd)
	}
	defer recognizer.Close()

	log, err := newSession(ctx, "gesture", run, opts.StaticImageMode)
	if err != nil {
		return fail("Failed to register session", err, nil)
	}
	log.rec = rec
	recognizer.SetResultListener(func(r gesture.Result) { log.result(r.Timestamp(), summarizeGesture(r)) })
	recognizer.SetErrorListener(log.report)

	sent, err := drive(ctx, run.InputPath, run.NthFrame, recognizer, log)
	if err != nil {
		// Drain the runner so its final logs are captured
		recognizer.Close()
		return fail("Gesture recognition failed", err, runner.Cmd)
	}
	printSummary(log, sent)
	return nil
}
