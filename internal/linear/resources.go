package linear

import (
	"context"
	"strings"

	"github.com/notisapp/notis/internal/logging"
)

// Raw wire shapes for the workspace resource queries.
type workspaceQueryResult struct {
	Viewer struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		DisplayName  string `json:"displayName"`
		Organization *struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"organization"`
	} `json:"viewer"`
	Teams struct {
		Nodes []struct {
			ID     string `json:"id"`
			Key    string `json:"key"`
			Name   string `json:"name"`
			States struct {
				Nodes []struct {
					ID   string `json:"id"`
					Name string `json:"name"`
					Type string `json:"type"`
				} `json:"nodes"`
			} `json:"states"`
			Members struct {
				Nodes []struct {
					ID string `json:"id"`
				} `json:"nodes"`
			} `json:"members"`
		} `json:"nodes"`
	} `json:"teams"`
	Projects struct {
		Nodes []struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Teams struct {
				Nodes []struct {
					ID string `json:"id"`
				} `json:"nodes"`
			} `json:"teams"`
		} `json:"nodes"`
	} `json:"projects"`
	IssueLabels struct {
		Nodes []struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Color   string `json:"color"`
			IsGroup bool   `json:"isGroup"`
			Parent  *struct {
				ID string `json:"id"`
			} `json:"parent"`
			Team *struct {
				ID string `json:"id"`
			} `json:"team"`
		} `json:"nodes"`
	} `json:"issueLabels"`
	Users struct {
		Nodes []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			DisplayName string `json:"displayName"`
			AvatarURL   string `json:"avatarUrl"`
			Active      *bool  `json:"active"`
		} `json:"nodes"`
	} `json:"users"`
}

// FetchWorkspaceResources loads the workspace entities offered as
// submission targets. When the full query fails (some scopes cannot read
// viewer.organization), it retries once with the fallback query.
func (s *Session) FetchWorkspaceResources(ctx context.Context) (*WorkspaceResources, error) {
	var raw workspaceQueryResult
	err := s.Execute(ctx, queryWorkspaceResources, nil, &raw)
	if err != nil {
		logging.Warn("workspace resource query failed, retrying with fallback", "error", err)
		raw = workspaceQueryResult{}
		if err := s.Execute(ctx, queryWorkspaceResourcesFallback, nil, &raw); err != nil {
			return nil, err
		}
	}
	return normalizeWorkspace(&raw), nil
}

// normalizeWorkspace denormalizes the wire shape into flat lists.
func normalizeWorkspace(raw *workspaceQueryResult) *WorkspaceResources {
	resources := &WorkspaceResources{
		ViewerName: displayName(raw.Viewer.DisplayName, raw.Viewer.Name),
		Teams:      []Team{},
		Projects:   []Project{},
		Labels:     []Label{},
		Users:      []User{},
	}
	if raw.Viewer.Organization != nil {
		resources.OrganizationName = raw.Viewer.Organization.Name
	}

	for _, t := range raw.Teams.Nodes {
		team := Team{
			ID:        t.ID,
			Key:       t.Key,
			Name:      t.Name,
			MemberIDs: []string{},
		}
		for _, state := range t.States.Nodes {
			if strings.EqualFold(state.Type, "triage") {
				team.TriageStateID = state.ID
				break
			}
		}
		for _, member := range t.Members.Nodes {
			team.MemberIDs = append(team.MemberIDs, member.ID)
		}
		resources.Teams = append(resources.Teams, team)
	}

	for _, p := range raw.Projects.Nodes {
		project := Project{ID: p.ID, Name: p.Name, TeamIDs: []string{}}
		for _, team := range p.Teams.Nodes {
			project.TeamIDs = append(project.TeamIDs, team.ID)
		}
		resources.Projects = append(resources.Projects, project)
	}

	for _, l := range raw.IssueLabels.Nodes {
		label := Label{ID: l.ID, Name: l.Name, Color: l.Color, IsGroup: l.IsGroup}
		if l.Parent != nil {
			label.ParentID = l.Parent.ID
		}
		if l.Team != nil {
			label.TeamID = l.Team.ID
		}
		resources.Labels = append(resources.Labels, label)
	}

	for _, u := range raw.Users.Nodes {
		// Deactivated members are never offered as assignees.
		if u.Active != nil && !*u.Active {
			continue
		}
		resources.Users = append(resources.Users, User{
			ID:        u.ID,
			Name:      displayName(u.DisplayName, u.Name),
			AvatarURL: u.AvatarURL,
		})
	}

	return resources
}

// displayName picks the most presentable name available.
func displayName(display, name string) string {
	if display != "" {
		return display
	}
	if name != "" {
		return name
	}
	return "Unknown"
}
