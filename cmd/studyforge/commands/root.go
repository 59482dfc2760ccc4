package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "none"
)

// SetVersion records build info; the version is exported to the tracer resource.
func SetVersion(version, commit string) {
	buildVersion = version
	buildCommit = commit
}

func NewRootCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "studyforge",
		Short: "Generate personalized study plans",
		Long: `studyforge turns a learner's stored preferences into a persisted study:
a tagged plan of units, each expanded into daily sessions.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is normal outside local development.
			if envFile != "" {
				return godotenv.Load(envFile)
			}
			_ = godotenv.Load()
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment from this file instead of ./.env")

	cmd.AddCommand(
		NewServeCmd(),
		NewGenerateCmd(),
		NewMigrateCmd(),
		NewVersionCmd(),
	)
	return cmd
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
