package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List the connected workspace's teams, projects, labels and members",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := newSession()
		if err != nil {
			return err
		}

		resources, err := session.FetchWorkspaceResources(cmd.Context())
		if err != nil {
			return err
		}

		asJSON, err := cmd.Flags().GetBool("json")
		if err != nil {
			return err
		}
		if asJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(resources)
		}

		fmt.Printf("Workspace: %s (viewer: %s)\n\n", orUnset(resources.OrganizationName), resources.ViewerName)

		fmt.Println("Teams:")
		for _, team := range resources.Teams {
			triage := ""
			if team.TriageStateID != "" {
				triage = " [triage]"
			}
			fmt.Printf("  %s  %s (%d members)%s\n", team.Key, team.Name, len(team.MemberIDs), triage)
		}

		fmt.Println("\nProjects:")
		for _, project := range resources.Projects {
			fmt.Printf("  %s\n", project.Name)
		}

		fmt.Println("\nLabels:")
		for _, label := range resources.Labels {
			group := ""
			if label.IsGroup {
				group = " (group)"
			}
			fmt.Printf("  %s%s\n", label.Name, group)
		}

		fmt.Println("\nMembers:")
		for _, user := range resources.Users {
			fmt.Printf("  %s\n", user.Name)
		}
		return nil
	},
}

func orUnset(value string) string {
	if value == "" {
		return "<unknown>"
	}
	return value
}

func init() {
	resourcesCmd.Flags().Bool("json", false, "Print resources as JSON")
}
