package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLessonsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lessons",
		Short: "List available lessons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			all := a.catalog.All()
			if len(all) == 0 {
				fmt.Fprintln(w, "No lessons found.")
				return nil
			}
			for _, l := range all {
				fmt.Fprintf(w, "%-12s %-36s %2d segments, %d quizzes\n", l.ID, l.Title, l.Len(), len(l.Quizzes()))
			}
			return nil
		},
	}
}
