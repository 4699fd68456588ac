package cmd

import (
	"fmt"

	"github.com/audiolibrelab/recorderctl/internal/service"

	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Check or request microphone permission",
	RunE: func(cmd *cobra.Command, args []string) error {
		request, _ := cmd.Flags().GetBool("request")
		svc, _ := service.NewSimulated(cfg)
		defer svc.Close(cmd.Context())

		if request {
			granted, err := svc.RequestAuthorization(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to request authorization: %w", err)
			}
			fmt.Printf("Permission granted: %v\n", granted)
			return nil
		}

		status, err := svc.AuthorizationStatus(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to check authorization: %w", err)
		}
		fmt.Printf("Permission status: %s\n", status)
		return nil
	},
}

func init() {
	authCmd.Flags().Bool("request", false, "request permission instead of checking it")
}
