package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all recorded sessions in the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := Sink.ListSessions(cmd.Context())
		if err != nil {
			return fail("Failed to list sessions", err, nil)
		}

		if len(sessions) == 0 {
			fmt.Println("No sessions found in store.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tSOLUTION\tMODE\tFRAMES\tFAILED\tSTARTED\tSOURCE")
		fmt.Fprintln(w, "--\t--------\t----\t------\t------\t-------\t------")

		for _, s := range sessions {
			mode := "stream"
			if s.StaticImageMode {
				mode = "static"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
				shortID(s.ID), s.Solution, mode, s.Frames, s.Errors, s.StartedAt.Local().Format("2006-01-02 15:04"), s.Source)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
