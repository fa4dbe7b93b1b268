package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/manumarlats408/stocks/internal/cli"
	"github.com/manumarlats408/stocks/internal/config"
	"github.com/manumarlats408/stocks/internal/logging"
)

func main() {
	// A .env in the working directory supplies credentials during
	// development; a missing file is fine.
	_ = godotenv.Load()

	configDir := configDirFromArgs(os.Args[1:])

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stocks: %v\n", err)
		os.Exit(1)
	}

	logCfg := logging.DefaultLogConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.FilePath = cfg.Logging.FilePath
	logger := logging.NewLoggerWithConfig(logCfg)

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		logger.Debug().Err(err).Msg("Command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configDirFromArgs pre-scans for the --config flag, which must be applied
// before cobra runs so the config is available when commands are built.
func configDirFromArgs(args []string) string {
	for i, a := range args {
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if len(a) > len("--config=") && a[:len("--config=")] == "--config=" {
			return a[len("--config="):]
		}
	}
	return ""
}
