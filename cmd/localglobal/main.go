package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"localglobal-go/internal/config"
	"localglobal-go/internal/database"
	logger "localglobal-go/internal/logging"
	"localglobal-go/internal/models"
	"localglobal-go/internal/router"
	"localglobal-go/internal/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	projectRootFlag string
	verboseFlag     bool
)

var rootCmd = &cobra.Command{
	Use:   "localglobal",
	Short: "Local-Global switch-cost task",
	Long: `localglobal serves the Local-Global attention-switching task and analyzes
its results.

Examples:
  localglobal serve
  localglobal generate --seed 42 --total 40 --warmup 2
  localglobal analyze local_global_cleaned_data.csv`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the task web server",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectRootFlag, "root", ".", "Project root holding config/ and .env files")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log debug output to the console")
	rootCmd.AddCommand(serveCmd, generateCmd, analyzeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// consoleLogger is the logger used by the offline commands.
func consoleLogger() *zap.Logger {
	if verboseFlag {
		return logger.NewConsole(zapcore.DebugLevel)
	}
	return logger.NewConsole(zapcore.WarnLevel)
}

// stimulusFile is the stimulus list the protocol names, under the configured
// stimulus directory of the project root.
func stimulusFile(task config.TaskConfig, protocol *models.Protocol) string {
	return filepath.Join(projectRootFlag, task.StimulusDir, protocol.StimulusFile)
}

func runServe(cmd *cobra.Command, args []string) error {
	bootLog := consoleLogger()
	if err := config.Init(projectRootFlag, bootLog); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Init(projectRootFlag, config.Conf.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	if err := database.Init(config.Conf.Database, log); err != nil {
		log.Error("Failed to initialize database", zap.Error(err))
		return err
	}

	protocolPath := filepath.Join(projectRootFlag, config.Conf.Task.ProtocolFile)
	protocol, err := models.LoadProtocol(protocolPath)
	if err != nil {
		log.Error("Failed to load protocol", zap.Error(err))
		return err
	}

	stimulusPath := stimulusFile(config.Conf.Task, protocol)
	stimuli, err := models.LoadStimuli(stimulusPath)
	if err != nil {
		log.Error("Failed to load stimuli", zap.Error(err), zap.String("path", stimulusPath))
		return err
	}
	log.Info("Task loaded",
		zap.String("protocol", protocol.Name),
		zap.Int("stimuli", len(stimuli)),
		zap.Int("trials", protocol.TotalTrials),
	)
	if dir := config.Conf.Server.StaticDir; dir != "" {
		if missing := models.MissingAssets(stimuli, dir); len(missing) > 0 {
			log.Warn("Stimulus images missing from the static directory",
				zap.String("static_dir", dir),
				zap.Strings("missing", missing),
			)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := services.NewSweeper(log, config.Conf.Retention.SweepInterval, config.Conf.Retention.MaxAge)
	sweeper.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + config.Conf.Server.Port,
		Handler:           router.Setup(log, protocol, stimuli),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening on http://localhost" + srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("Failed to run server", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
