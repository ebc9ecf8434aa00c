package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <lesson-id>",
		Short: "Follow progress updates for a lesson as they are saved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.client == nil {
				return fmt.Errorf("watch needs a Progress Service; set --api")
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			l, err := a.lesson(ctx, args[0])
			if err != nil {
				return err
			}
			count, _ := cmd.Flags().GetInt("count")

			updates, err := a.client.Watch(ctx, l.ID)
			if err != nil {
				return fmt.Errorf("watch %s: %w", l.ID, err)
			}

			w := cmd.OutOrStdout()
			seen := 0
			for rec := range updates {
				if rec.CurrentIndex < 0 {
					fmt.Fprintf(w, "%s: no progress yet\n", l.Title)
				} else {
					fmt.Fprintf(w, "%s: segment %d/%d unlocked (%s)\n",
						l.Title, rec.CurrentIndex+1, l.Len(), rec.UpdatedAt.Local().Format(time.DateTime))
				}
				seen++
				if count > 0 && seen >= count {
					return nil
				}
			}
			if ctx.Err() == nil {
				fmt.Fprintln(w, "Watch closed by the server.")
			}
			return nil
		},
	}
	cmd.Flags().IntP("count", "n", 0, "Stop after this many updates (0 follows until interrupted)")
	return cmd
}
