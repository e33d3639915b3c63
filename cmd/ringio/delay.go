package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/coreglyph/ringio"
)

func newDelayCommand() *cobra.Command {
	var d time.Duration

	cmd := &cobra.Command{
		Use:   "delay",
		Short: "Sleep via a kernel timeout operation",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ringio.New(ringio.DefaultOptions())
			if err != nil {
				return err
			}
			defer rt.Close()

			return rt.Run(cmd.Context(), func(ctx context.Context) error {
				start := time.Now()
				if err := ringio.Delay(ctx, d); err != nil {
					return err
				}
				fmt.Printf("slept %s (asked for %s)\n", time.Since(start), d)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&d, "duration", 50*time.Millisecond, "how long to sleep")
	return cmd
}
