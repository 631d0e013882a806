package main

import (
	"encoding/json"
	"fmt"
	"os"

	"localglobal-go/internal/metrics"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	jsonFlag bool
	outFlag  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE",
	Short: "Recompute the switch-cost summary from an exported CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the summary as JSON")
	analyzeCmd.Flags().StringVarP(&outFlag, "out", "o", "", "Write the relabeled table to this CSV file")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := consoleLogger()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	records, err := metrics.ReadResponsesCSV(f)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	labeled, summary := metrics.Aggregate(records)
	log.Debug("Analyzed responses", zap.String("file", args[0]), zap.Int("records", len(records)))

	if outFlag != "" {
		out, err := os.Create(outFlag)
		if err != nil {
			return err
		}
		if err := metrics.WriteCSV(out, labeled, summary); err != nil {
			out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	if jsonFlag {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Fprintf(w, "Accuracy:        %d / %d\n", summary.TotalCorrect, summary.TotalTrials)
	fmt.Fprintf(w, "Mean Repeat RT:  %d ms (%d trials)\n", summary.MeanRepeatRT, summary.RepeatCount)
	fmt.Fprintf(w, "Mean Switch RT:  %d ms (%d trials)\n", summary.MeanSwitchRT, summary.SwitchCount)
	fmt.Fprintf(w, "Switch Cost:     %d ms\n", summary.SwitchCost)
	return nil
}
