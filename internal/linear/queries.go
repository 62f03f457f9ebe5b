package linear

// GraphQL queries and mutations.
const (
	queryWorkspaceResources = `query WorkspaceResources {
  viewer {
    id
    name
    displayName
    organization { id name }
  }
  teams(first: 100) {
    nodes {
      id
      key
      name
      states { nodes { id name type } }
      members { nodes { id } }
    }
  }
  projects(first: 100) {
    nodes {
      id
      name
      teams { nodes { id } }
    }
  }
  issueLabels(first: 250) {
    nodes {
      id
      name
      color
      isGroup
      parent { id }
      team { id }
    }
  }
  users(first: 250) {
    nodes { id name displayName avatarUrl active }
  }
}`

	// queryWorkspaceResourcesFallback omits viewer.organization, which is
	// inaccessible under some workspace scopes.
	queryWorkspaceResourcesFallback = `query WorkspaceResourcesFallback {
  viewer {
    id
    name
    displayName
  }
  teams(first: 100) {
    nodes {
      id
      key
      name
      states { nodes { id name type } }
      members { nodes { id } }
    }
  }
  projects(first: 100) {
    nodes {
      id
      name
      teams { nodes { id } }
    }
  }
  issueLabels(first: 250) {
    nodes {
      id
      name
      color
      isGroup
      parent { id }
      team { id }
    }
  }
  users(first: 250) {
    nodes { id name displayName avatarUrl active }
  }
}`

	mutationIssueCreate = `mutation IssueCreate($input: IssueCreateInput!) {
  issueCreate(input: $input) {
    success
    issue { id identifier url }
  }
}`
)
