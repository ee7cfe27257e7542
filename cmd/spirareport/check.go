package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spirareport/internal/config"
	"spirareport/internal/ui"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the Spira configuration and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			creds, credErr := config.NewCredentials(a.file.Settings, a.logger)
			if credErr != nil {
				fmt.Fprintln(out, ui.RenderProblems(credErr))
			}

			client, err := a.newClient(creds)
			if err != nil {
				return &exitError{code: 1, err: err}
			}

			project, err := client.GetProject(cmd.Context(), creds.ProjectID)
			if err != nil {
				return &exitError{code: 1, err: fmt.Errorf("failed to reach Spira project %d: %w", creds.ProjectID, err)}
			}

			fmt.Fprintf(out, "Connected to Spira project %d (%s) at %s as %s\n", project.ProjectID, project.Name, creds.URL, creds.Username)
			fmt.Fprintf(out, "Test case mappings: %d", creds.TestCases.Len())
			if creds.TestCases != nil && creds.TestCases.HasDefault {
				fmt.Fprintf(out, ", default TC%d", creds.TestCases.Default)
			}
			fmt.Fprintln(out)

			if credErr != nil {
				return &exitError{code: 1}
			}
			return nil
		},
	}
}
