package cmd

import (
	"github.com/spf13/cobra"

	"github.com/andresmejia3/trackpoint/internal/pose"
	"github.com/andresmejia3/trackpoint/internal/utils"
)

var (
	poseRun  RunOptions
	poseOpts pose.Options
)

var poseCmd = &cobra.Command{
	Use:   "pose",
	Short: "Track body pose landmarks in a video or image",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cfg.Pose
		flags := cmd.Flags()
		if flags.Changed("model-complexity") {
			opts.ModelComplexity = poseOpts.ModelComplexity
		}
		if flags.Changed("smooth") {
			opts.SmoothLandmarks = poseOpts.SmoothLandmarks
		}
		if flags.Changed("overlay") {
			opts.LandmarkVisibility = poseOpts.LandmarkVisibility
		}
		return runPose(cmd, poseRun, opts)
	},
}

func init() {
	addRunFlags(poseCmd, &poseRun)
	poseCmd.Flags().IntVarP(&poseOpts.ModelComplexity, "model-complexity", "m", 1, "Landmark model: 0 lite, 1 full, 2 heavy")
	poseCmd.Flags().BoolVar(&poseOpts.SmoothLandmarks, "smooth", true, "Smooth landmarks across frames")
	poseCmd.Flags().BoolVar(&poseOpts.LandmarkVisibility, "overlay", false, "Keep the rendered overlay image instead of the input image")
	rootCmd.AddCommand(poseCmd)
}

// poseSummary is what gets stored for each pose frame.
type poseSummary struct {
	Detections int       `json:"detections"`
	Scores     []float32 `json:"scores,omitempty"`
	Landmarks  int       `json:"landmarks"`
}

func summarizePose(r pose.Result) poseSummary {
	s := poseSummary{Landmarks: len(r.Landmarks())}
	for _, d := range r.Detections() {
		s.Detections++
		s.Scores = append(s.Scores, d.Scores...)
	}
	return s
}

func runPose(cmd *cobra.Command, run RunOptions, opts pose.Options) error {
	ctx := cmd.Context()
	if err := validateRunFlags(&run); err != nil {
		return fail("Invalid arguments", err, nil)
	}
	if err := opts.Validate(); err != nil {
		return fail("Invalid pose options", err, nil)
	}
	// A still image has no neighbouring frames to track across
	opts.StaticImageMode = opts.StaticImageMode || run.Static || utils.IsImage(run.InputPath)

	runner, rec, err := startRunner("pose", pose.Info(opts), pose.SidePackets(opts), opts, run.RecordPath)
	if err != nil {
		return fail("Failed to prepare runner", err, nil)
	}
	if rec != nil {
		defer rec.Close()
	}

	tracker, err := pose.New(ctx, runner, opts)
	if err != nil {
		runner.Close()
		return fail("Graph runner failed to start", err, runner.Cmd)
	}
	defer tracker.Close()

	log, err := newSession(ctx, "pose", run, opts.StaticImageMode)
	if err != nil {
		return fail("Failed to register session", err, nil)
	}
	log.rec = rec
	tracker.SetResultListener(func(r pose.Result) { log.result(r.Timestamp(), summarizePose(r)) })
	tracker.SetErrorListener(log.report)

	sent, err := drive(ctx, run.InputPath, run.NthFrame, tracker, log)
	if err != nil {
		// Drain the runner so its final logs are captured
		tracker.Close()
		return fail("Pose tracking failed", err, runner.Cmd)
	}
	printSummary(log, sent)
	return nil
}
