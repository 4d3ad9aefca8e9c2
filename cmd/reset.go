package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	resetSessions      bool
	resetRecordings string
	resetYes        bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset system state (Store, Recordings)",
	Long:  "Clears stored sessions. Pass --recordings to also delete a directory of packet recordings.",
	RunE: func(cmd *cobra.Command, args []string) error {
		// If no flags are set, default to clearing the store
		if !resetSessions && resetRecordings == "" {
			resetSessions = true
		}

		reader := bufio.NewReader(os.Stdin)

		if resetSessions {
			if resetYes || confirm(reader, "⚠️  Are you sure you want to DROP all stored sessions?") {
				fmt.Println("🗑️  Clearing Store...")
				if err := Sink.Reset(cmd.Context()); err != nil {
					return fail("Failed to reset store", err, nil)
				}
			}
		}

		if resetRecordings != "" {
			if resetYes || confirm(reader, fmt.Sprintf("⚠️  Are you sure you want to delete %s?", resetRecordings)) {
				fmt.Println("🗑️  Clearing Recordings...")
				removeDir(resetRecordings)
			}
		}

		fmt.Println("✨ System Reset Complete.")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetSessions, "sessions", false, "Clear the session store")
	resetCmd.Flags().StringVar(&resetRecordings, "recordings", "", "Delete this directory of recordings")
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(resetCmd)
}

func confirm(r *bufio.Reader, prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}

func removeDir(path string) {
	if err := os.RemoveAll(path); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to remove %s: %v\n", path, err)
	}
}
