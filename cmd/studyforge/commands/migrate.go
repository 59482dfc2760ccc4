package commands

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/studyforge-backend/internal/app"
)

func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Migrate()
		},
	}
}
