package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/studyforge-backend/internal/app"
	"github.com/yungbote/studyforge-backend/internal/modules/studygen"
)

// NewGenerateCmd runs one generation in-process and prints the result as JSON.
// The result is printed even when the run fails.
func NewGenerateCmd() *cobra.Command {
	var req studygen.Request
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a study from stored preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, runErr := a.Services.Orchestrator.Run(cmd.Context(), req)
			if res != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			}
			if runErr != nil {
				return fmt.Errorf("%s: %w", studygen.ErrorKind(runErr), runErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.PreferenceID, "preference-id", "", "preference record id")
	cmd.Flags().StringVar(&req.UserID, "user-id", "", "owning user id")
	_ = cmd.MarkFlagRequired("preference-id")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}
