package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/leanmind/internal/profile"
	"github.com/hrygo/leanmind/internal/version"
	"github.com/hrygo/leanmind/plugin/ai"
	"github.com/hrygo/leanmind/server"
	"github.com/hrygo/leanmind/server/service/relay"
)

var (
	rootCmd = &cobra.Command{
		Use:   "leanmind",
		Short: "A stateless chat relay that coaches users through procrastination.",
		Long: `LeanMind relays each user message, together with the recent session transcript,
to a chat completion provider and stores the turn for the next request.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			instanceProfile := loadProfile()
			configureLogger(instanceProfile)

			if err := instanceProfile.Validate(); err != nil {
				return err
			}

			llmConfig := ai.NewConfigFromProfile(instanceProfile)
			if err := llmConfig.Validate(); err != nil {
				return fmt.Errorf("invalid LLM configuration: %w", err)
			}
			llm, err := ai.NewLLMService(llmConfig)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := server.NewServer(ctx, instanceProfile, llm)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}
			if err := s.Start(ctx); err != nil {
				s.Shutdown(context.Background())
				return fmt.Errorf("failed to start server: %w", err)
			}

			printGreetings(instanceProfile, s.Addr())

			<-ctx.Done()
			slog.Info("shutting down")
			s.Shutdown(context.Background())
			return nil
		},
	}
)

func init() {
	viper.SetDefault("mode", "demo")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8080)
	viper.SetDefault("max-history", profile.DefaultMaxHistory)
	viper.SetDefault("system-prompt", relay.DefaultSystemPrompt)

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "demo", `mode of server, can be "prod" or "dev" or "demo"`)
	flags.String("addr", "", "address of server")
	flags.Int("port", 8080, "port of server")
	flags.String("data", "", "data directory")
	flags.String("driver", "sqlite", "session store driver: sqlite, postgres, redis or memory")
	flags.String("dsn", "", "session store connection string")
	flags.Int("max-history", profile.DefaultMaxHistory, "messages kept per session")
	flags.Duration("completion-timeout", 0, "timeout of a single completion call")
	flags.Duration("persist-timeout", 0, "timeout of each transcript write")
	flags.Int("max-concurrent-completions", 0, "maximum in-flight completion calls")
	flags.Float64("rate-limit", 0, "per-client requests per second, 0 disables limiting")
	flags.Int("rate-burst", 20, "per-client burst size")
	flags.Bool("session-api", false, "expose the internal session sub-interface")
	flags.String("session-store-url", "", "base URL of a remote session sub-interface")
	flags.String("system-prompt", relay.DefaultSystemPrompt, "system prompt prepended to every completion")

	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}

	viper.SetEnvPrefix("leanmind")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func loadProfile() *profile.Profile {
	instanceProfile := &profile.Profile{
		Mode:                     viper.GetString("mode"),
		Addr:                     viper.GetString("addr"),
		Port:                     viper.GetInt("port"),
		Data:                     viper.GetString("data"),
		Driver:                   viper.GetString("driver"),
		DSN:                      viper.GetString("dsn"),
		MaxHistory:               viper.GetInt("max-history"),
		CompletionTimeout:        viper.GetDuration("completion-timeout"),
		PersistTimeout:           viper.GetDuration("persist-timeout"),
		MaxConcurrentCompletions: viper.GetInt("max-concurrent-completions"),
		RateLimit:                viper.GetFloat64("rate-limit"),
		RateBurst:                viper.GetInt("rate-burst"),
		SessionAPIEnabled:        viper.GetBool("session-api"),
		SessionStoreURL:          viper.GetString("session-store-url"),
		SystemPrompt:             viper.GetString("system-prompt"),
	}
	instanceProfile.FromEnv()
	instanceProfile.Version = version.GetCurrentVersion(instanceProfile.Mode)
	return instanceProfile
}

func configureLogger(p *profile.Profile) {
	var handler slog.Handler
	if p.IsDev() {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

func printGreetings(p *profile.Profile, addr string) {
	slog.Info("leanmind started",
		slog.String("version", p.Version),
		slog.String("mode", p.Mode),
		slog.String("address", addr),
		slog.String("driver", p.Driver),
		slog.String("ai_provider", p.AIProvider),
		slog.Int("max_history", p.MaxHistory),
	)
	if p.IsDev() {
		fmt.Printf("LeanMind %s listening on http://%s\n", p.Version, addr)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
