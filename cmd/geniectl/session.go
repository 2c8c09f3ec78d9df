package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"genie-adapter/internal/usecase"
)

var clearSessionCmd = &cobra.Command{
	Use:   "clear-session USER_ID",
	Short: "Forget a user's conversation so the next question starts a new one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp(a)

		outcome, err := a.Service.ClearSession(cmd.Context(), args[0])
		if err != nil {
			return describeError(err)
		}
		if outcome == usecase.ClearNotFound {
			pterm.Info.Printfln("No conversation stored for %s", args[0])
			return nil
		}
		pterm.Success.Printfln("Cleared conversation for %s", args[0])
		return nil
	},
}
