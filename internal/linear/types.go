package linear

// Team is a Linear team with the fields needed for issue submission.
type Team struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`

	// TriageStateID is the id of the team's workflow state whose type is
	// "triage", empty when the team has triage disabled.
	TriageStateID string `json:"triageStateId,omitempty"`

	// MemberIDs lists the ids of the team's members.
	MemberIDs []string `json:"memberIds"`
}

// Project is a Linear project.
type Project struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	TeamIDs []string `json:"teamIds"`
}

// Label is a Linear issue label.
type Label struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	IsGroup  bool   `json:"isGroup"`
	ParentID string `json:"parentId,omitempty"`
	TeamID   string `json:"teamId,omitempty"`
}

// User is an active Linear workspace member.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// WorkspaceResources is the denormalized set of workspace entities
// offered as submission targets.
type WorkspaceResources struct {
	ViewerName       string    `json:"viewerName"`
	OrganizationName string    `json:"organizationName,omitempty"`
	Teams            []Team    `json:"teams"`
	Projects         []Project `json:"projects"`
	Labels           []Label   `json:"labels"`
	Users            []User    `json:"users"`
}

// IssueCreateInput is the input of Linear's issueCreate mutation. TeamID
// is the only mandatory field; the optional fields are sent only when a
// valid override was supplied.
type IssueCreateInput struct {
	TeamID      string   `json:"teamId"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ProjectID   string   `json:"projectId,omitempty"`
	LabelIDs    []string `json:"labelIds,omitempty"`
	Priority    *int     `json:"priority,omitempty"`
	AssigneeID  string   `json:"assigneeId,omitempty"`
	StateID     string   `json:"stateId,omitempty"`
}

// IssueRef identifies a created issue.
type IssueRef struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	URL        string `json:"url"`
}

// TokenSet is the result of a token exchange or refresh. ExpiresAt is in
// epoch milliseconds and zero when the provider reported no expiry.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
}
