package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/studyforge-backend/internal/app"
)

func NewServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				if err := os.Setenv("HTTP_ADDR", addr); err != nil {
					return err
				}
			}
			if os.Getenv("SERVICE_VERSION") == "" {
				_ = os.Setenv("SERVICE_VERSION", buildVersion)
			}
			a, err := app.New(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Start(); err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}
