package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/notisapp/notis/internal/linear"
	"github.com/notisapp/notis/internal/logging"
	"github.com/notisapp/notis/pkg/models"
)

// annotationFile is the capture format exported by the extension: either
// a bare array of annotations or an object carrying an overall
// description and an optional combined screenshot.
type annotationFile struct {
	Annotations []models.Annotation `json:"annotations"`
	Description string              `json:"description,omitempty"`
	Screenshot  string              `json:"screenshot,omitempty"`
}

var submitCmd = &cobra.Command{
	Use:   "submit <annotations.json>",
	Short: "Create Linear issues from captured annotations",
	Long: `Create Linear issues from a captured annotation file.

By default every annotation becomes its own issue. With --grouped, all
annotations are submitted as one issue whose body aggregates the markers.

Example:
  notis submit feedback.json --team TEAM_ID --labels bug,ui --triage`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		capture, err := readAnnotationFile(args[0])
		if err != nil {
			return err
		}
		if len(capture.Annotations) == 0 {
			return fmt.Errorf("no annotations found in %s", args[0])
		}

		overrides, err := overridesFromFlags(cmd)
		if err != nil {
			return err
		}

		session, err := newSession()
		if err != nil {
			return err
		}

		// Triage routing needs the team's triage state id.
		if overrides.Triage {
			resources, err := session.FetchWorkspaceResources(cmd.Context())
			if err != nil {
				return err
			}
			for _, team := range resources.Teams {
				if team.ID == overrides.TeamID || team.Key == overrides.TeamID {
					overrides.TeamID = team.ID
					overrides.TriageStateID = team.TriageStateID
					break
				}
			}
		}

		description, err := cmd.Flags().GetString("description")
		if err != nil {
			return err
		}
		if description == "" {
			description = capture.Description
		}

		grouped, err := cmd.Flags().GetBool("grouped")
		if err != nil {
			return err
		}

		if grouped {
			body := linear.BuildGroupedIssueDescription(capture.Annotations, capture.Screenshot, description)
			input, err := linear.BuildIssueCreateInput(capture.Annotations[0].Comment, body, overrides)
			if err != nil {
				return err
			}
			issue, err := session.CreateIssue(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Printf("Created %s: %s\n", issue.Identifier, issue.URL)
			return nil
		}

		for i, annotation := range capture.Annotations {
			body := linear.BuildIssueDescription(annotation, description)
			perNote := overrides
			if annotation.TitleOverride != "" {
				perNote.Title = annotation.TitleOverride
			}
			input, err := linear.BuildIssueCreateInput(annotation.Comment, body, perNote)
			if err != nil {
				return err
			}
			issue, err := session.CreateIssue(cmd.Context(), input)
			if err != nil {
				return fmt.Errorf("annotation %d: %w", i+1, err)
			}
			logging.Info("annotation submitted", "index", i+1, "identifier", issue.Identifier)
			fmt.Printf("Created %s: %s\n", issue.Identifier, issue.URL)
		}
		return nil
	},
}

// readAnnotationFile accepts both capture formats.
func readAnnotationFile(path string) (*annotationFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotation file: %w", err)
	}

	var capture annotationFile
	if err := json.Unmarshal(data, &capture); err == nil && capture.Annotations != nil {
		return &capture, nil
	}

	var annotations []models.Annotation
	if err := json.Unmarshal(data, &annotations); err != nil {
		return nil, fmt.Errorf("failed to parse annotation file: %w", err)
	}
	return &annotationFile{Annotations: annotations}, nil
}

func overridesFromFlags(cmd *cobra.Command) (linear.IssueOverrides, error) {
	var overrides linear.IssueOverrides
	var err error

	if overrides.TeamID, err = cmd.Flags().GetString("team"); err != nil {
		return overrides, err
	}
	if overrides.ProjectID, err = cmd.Flags().GetString("project"); err != nil {
		return overrides, err
	}
	if overrides.AssigneeID, err = cmd.Flags().GetString("assignee"); err != nil {
		return overrides, err
	}
	if overrides.Title, err = cmd.Flags().GetString("title"); err != nil {
		return overrides, err
	}
	if overrides.LabelIDs, err = cmd.Flags().GetStringSlice("labels"); err != nil {
		return overrides, err
	}
	if overrides.Triage, err = cmd.Flags().GetBool("triage"); err != nil {
		return overrides, err
	}

	if cmd.Flags().Changed("priority") {
		priority, err := cmd.Flags().GetInt("priority")
		if err != nil {
			return overrides, err
		}
		overrides.Priority = &priority
	}

	return overrides, nil
}

func init() {
	submitCmd.Flags().String("team", "", "Linear team id or key to file the issue under (required)")
	submitCmd.Flags().String("project", "", "Linear project id")
	submitCmd.Flags().String("assignee", "", "Linear user id to assign")
	submitCmd.Flags().String("title", "", "Issue title override")
	submitCmd.Flags().String("description", "", "Overall description prepended to the issue body")
	submitCmd.Flags().StringSlice("labels", nil, "Linear label ids")
	submitCmd.Flags().Int("priority", 0, "Issue priority (0-4)")
	submitCmd.Flags().Bool("triage", false, "Route the issue into the team's triage state")
	submitCmd.Flags().Bool("grouped", false, "Submit all annotations as one grouped issue")
}
