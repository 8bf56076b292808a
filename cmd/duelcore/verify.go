package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nathoo/duelcore/engine"
	"github.com/nathoo/duelcore/engine/save"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <replay.json>",
	Short: "Re-execute a replay and print its state hash",
	Long: `Loads the scenario the replay was recorded against, re-executes every
logged command from the replay's initial state and prints the resulting hash.
With --expect the command fails when the hash differs.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().String("scenario", "", "Scenario the replay was recorded against (required)")
	verifyCmd.Flags().String("expect", "", "Expected state hash")
	_ = verifyCmd.MarkFlagRequired("scenario")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	rt, err := setup(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	scenario, _ := cmd.Flags().GetString("scenario")
	sc, eng, err := rt.engineFor(scenario)
	if err != nil {
		return err
	}
	blob, err := save.ReadFile(args[0])
	if err != nil {
		return err
	}
	if err := eng.ImportReplay(*blob); err != nil {
		return err
	}
	// Replay runs no triggers, so every step is one logged command.
	res, err := eng.RunUntilIdle(max(sc.MaxSteps, len(blob.Commands)+1))
	if err != nil {
		return err
	}
	if res.Status == engine.StatusMaxSteps || res.Status == engine.StatusCycle {
		return fmt.Errorf("replay stopped after %d of %d commands: %s", eng.Log().Len(), len(blob.Commands), res.Status)
	}

	hash := eng.GetViewHash()
	fmt.Fprintf(cmd.OutOrStdout(), "Replayed %d commands (%s)\nHash: %s\n", eng.Log().Len(), res.Status, hash)
	if expect, _ := cmd.Flags().GetString("expect"); expect != "" && expect != hash {
		return fmt.Errorf("hash mismatch: got %s, want %s", hash, expect)
	}
	return nil
}
