package main

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"

	"localglobal-go/internal/config"
	"localglobal-go/internal/metrics"
	"localglobal-go/internal/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	seedFlag     uint64
	totalFlag    int
	warmupFlag   int
	stimuliFlag  string
	protocolFlag string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print a generated trial sequence as JSON",
	Long: `generate builds one trial sequence from the stimulus list and writes it to
stdout. The same seed always produces the same sequence.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	defaults := models.DefaultProtocol()
	generateCmd.Flags().Uint64Var(&seedFlag, "seed", 0, "Random seed (0 picks one at random)")
	generateCmd.Flags().IntVarP(&totalFlag, "total", "n", defaults.TotalTrials, "Number of trials")
	generateCmd.Flags().IntVarP(&warmupFlag, "warmup", "w", defaults.WarmupTrials, "Number of warm-up trials")
	generateCmd.Flags().StringVarP(&stimuliFlag, "stimuli", "s", "", "Stimulus CSV (defaults to the protocol's stimulus file under task.stimulus_dir)")
	generateCmd.Flags().StringVar(&protocolFlag, "protocol", "", "Protocol YAML whose trial counts override --total and --warmup")
}

type generatedSequence struct {
	Seed     uint64                  `json:"seed"`
	Schedule []models.TransitionType `json:"schedule"`
	Trials   []models.TrialSpec      `json:"trials"`
}

func runGenerate(cmd *cobra.Command, args []string) error {
	log := consoleLogger()

	protocol := models.DefaultProtocol()
	protocol.TotalTrials = totalFlag
	protocol.WarmupTrials = warmupFlag
	if protocolFlag != "" {
		loaded, err := models.LoadProtocol(protocolFlag)
		if err != nil {
			return err
		}
		protocol = loaded
	}

	path := stimuliFlag
	if path == "" {
		if err := config.Init(projectRootFlag, log); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		path = stimulusFile(config.Conf.Task, protocol)
	}
	stimuli, err := models.LoadStimuli(path)
	if err != nil {
		return err
	}

	seed := seedFlag
	if seed == 0 {
		seed = rand.Uint64()
	}
	log.Debug("Generating sequence", zap.Uint64("seed", seed), zap.Int("stimuli", len(stimuli)))

	generator := metrics.NewGenerator(rand.New(rand.NewPCG(seed, seed)), log)
	trials, schedule := generator.GenerateWithSchedule(stimuli, protocol.TotalTrials, protocol.WarmupTrials)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(generatedSequence{Seed: seed, Schedule: schedule, Trials: trials}); err != nil {
		return fmt.Errorf("failed to write sequence: %w", err)
	}
	return nil
}
