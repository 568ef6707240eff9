// gridlockctl is the level designer's offline tool: it verifies replays and
// renders share images against level files without a running server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gridlock-dev/gridlock/internal/share"
	"github.com/gridlock-dev/gridlock/internal/sim"
)

func main() {
	root := &cobra.Command{
		Use:           "gridlockctl",
		Short:         "Offline tools for Gridlock levels",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newVerifyCmd())
	root.AddCommand(newRenderCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newVerifyCmd() *cobra.Command {
	var levelPath, replay string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Replay a move sequence against a level file and print the verdict",
		RunE: func(cmd *cobra.Command, args []string) error {
			grid, err := os.ReadFile(levelPath)
			if err != nil {
				return err
			}
			verdict, err := sim.Verify(string(grid), replay)
			if err != nil {
				return err
			}
			if verdict.OK {
				fmt.Fprintf(cmd.OutOrStdout(), "cleared in %d moves\n", verdict.Moves)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "not cleared (decided at move %d)\n", verdict.Moves)
			return fmt.Errorf("replay does not clear the level")
		},
	}
	cmd.Flags().StringVar(&levelPath, "level", "", "path to a level file")
	cmd.Flags().StringVar(&replay, "replay", "", "encoded replay, e.g. 6d2r")
	cmd.MarkFlagRequired("level")
	cmd.MarkFlagRequired("replay")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var levelPath, outPath, title string
	var par int

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a level file as a PNG share image",
		RunE: func(cmd *cobra.Command, args []string) error {
			grid, err := os.ReadFile(levelPath)
			if err != nil {
				return err
			}
			lvl, err := sim.ParseLevel(string(grid))
			if err != nil {
				return err
			}
			data, err := share.Render(lvl, title, par)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", outPath, len(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&levelPath, "level", "", "path to a level file")
	cmd.Flags().StringVar(&outPath, "out", "share.png", "output PNG path")
	cmd.Flags().StringVar(&title, "title", "Untitled", "caption title")
	cmd.Flags().IntVar(&par, "par", 0, "par move count for the caption")
	cmd.MarkFlagRequired("level")
	return cmd
}
