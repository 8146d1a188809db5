// Command server serves chat-style agents over the OpenAI Responses API.
//
// Configuration is read from a YAML file (--config, ANTWORT_CONFIG,
// ./config.yaml or /etc/antwort/config.yaml) and ANTWORT_* environment
// variables. A .env file in the working directory is loaded first.
//
//	ANTWORT_PORT            - Listen port (default: 8080)
//	ANTWORT_DEFAULT_AGENT   - Agent serving requests that name none
//	ANTWORT_OPENAI_BASE_URL - Backend URL shared by openai agents
//	ANTWORT_OPENAI_API_KEY  - API key shared by openai agents
//	ANTWORT_AGENTS          - JSON array of agent configs
//	ANTWORT_DEBUG           - Debug categories (agents,engine,streaming,transport,config,all)
//	ANTWORT_LOG_LEVEL       - TRACE, DEBUG, INFO, WARN or ERROR
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rhuss/antwort-agents/pkg/config"
	"github.com/rhuss/antwort-agents/pkg/debug"
	"github.com/rhuss/antwort-agents/pkg/engine"
	transporthttp "github.com/rhuss/antwort-agents/pkg/transport/http"
)

var (
	configPath string
	envFile    string
	port       int
)

var rootCmd = &cobra.Command{
	Use:   "antwort-agents",
	Short: "Serve agents over the OpenAI Responses API",
	Long: `antwort-agents hosts chat-style agents behind the OpenAI Responses API.
Requests select an agent by path (/{agent}/v1/responses) or by the model
field; streaming requests receive Responses server-sent events.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnvFile(envFile)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Validate the configuration and list the configured agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := buildAgents(cfg)
		if err != nil {
			return err
		}
		eng, err := engine.New(reg, engine.Config{DefaultAgent: cfg.Engine.DefaultAgent})
		if err != nil {
			return err
		}
		for _, a := range eng.ListAgents(cmd.Context()) {
			marker := " "
			if a.Default {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %-20s %s\n", marker, a.Name, a.Description)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before configuration")
	rootCmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port, overriding the configuration")
	rootCmd.AddCommand(agentsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadEnvFile loads path into the environment. A missing file is not an
// error; variables already set are kept.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	debug.Init(debug.Options{
		Categories: cfg.Logging.Debug,
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
	})
	return cfg, nil
}

func serve() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	reg, err := buildAgents(cfg)
	if err != nil {
		return err
	}
	eng, err := engine.New(reg, engine.Config{DefaultAgent: cfg.Engine.DefaultAgent})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}

	slog.Info("server starting",
		"addr", cfg.Server.Addr(),
		"agents", reg.Names(),
		"default_agent", cfg.Engine.DefaultAgent,
	)
	srv := transporthttp.NewServer(eng, eng,
		transporthttp.WithAddr(cfg.Server.Addr()),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithMetricsPath(metricsPath),
		transporthttp.WithLogger(slog.Default()),
	)
	return srv.ListenAndServe()
}
