package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nathoo/duelcore/cli"
	"github.com/nathoo/duelcore/engine/save"
)

var playCmd = &cobra.Command{
	Use:   "play <scenario.lua|dir>",
	Short: "Play a scenario interactively or run its script",
	Long: `Loads a scenario and opens a command prompt on it. With --auto the
scenario's own script runs instead and the final state hash is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

func init() {
	playCmd.Flags().String("script", "", "Read prompt input from a file and echo it")
	playCmd.Flags().Bool("auto", false, "Run the scenario's script non-interactively")
	playCmd.Flags().Bool("trace", false, "Print trace output")
	playCmd.Flags().Bool("manual", false, "Queue commands without running them")
	playCmd.Flags().String("export", "", "Write a replay to this path when done")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	rt, err := setup(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	sc, eng, err := rt.engineFor(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	auto, _ := cmd.Flags().GetBool("auto")
	export, _ := cmd.Flags().GetString("export")

	if auto {
		res, err := sc.Play(eng)
		if err != nil {
			return err
		}
		s := eng.State()
		fmt.Fprintf(out, "%s: %d commands, turn %d, %s\n", sc.Name, eng.Log().Len(), s.Turn.Number, res.Status)
		if s.Turn.Winner != "" {
			fmt.Fprintf(out, "Winner: %s\n", s.Turn.Winner)
		}
		fmt.Fprintf(out, "Hash: %s\n", eng.GetViewHash())
	} else {
		c := cli.New(eng)
		c.Out = out
		c.ReplayDir = rt.cfg.ReplayDir
		c.MaxSteps = sc.MaxSteps
		c.Trace, _ = cmd.Flags().GetBool("trace")
		c.Manual, _ = cmd.Flags().GetBool("manual")

		if script, _ := cmd.Flags().GetString("script"); script != "" {
			f, err := os.Open(script)
			if err != nil {
				return fmt.Errorf("opening script: %w", err)
			}
			defer f.Close()
			c.In = f
			c.EchoInput = true
		}
		if sc.Name != "" {
			fmt.Fprintf(out, "%s\n\n", sc.Name)
		}
		c.Run()
	}

	if export != "" {
		if err := save.WriteFile(export, eng.ExportReplay()); err != nil {
			return err
		}
		fmt.Fprintf(out, "Replay written to %s\n", export)
	}
	return nil
}
