package linear

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/notisapp/notis/internal/store"
)

const workspacePayload = `{"data":{
  "viewer": {"id":"u0","name":"dana","displayName":"Dana","organization":{"id":"o1","name":"Acme"}},
  "teams": {"nodes":[
    {"id":"t1","key":"ENG","name":"Engineering",
     "states":{"nodes":[
       {"id":"s1","name":"Backlog","type":"backlog"},
       {"id":"s2","name":"Triage","type":"Triage"}]},
     "members":{"nodes":[{"id":"u1"},{"id":"u2"}]}},
    {"id":"t2","key":"DES","name":"Design",
     "states":{"nodes":[{"id":"s3","name":"Todo","type":"unstarted"}]},
     "members":{"nodes":[]}}]},
  "projects": {"nodes":[{"id":"p1","name":"Website","teams":{"nodes":[{"id":"t1"}]}}]},
  "issueLabels": {"nodes":[
    {"id":"l1","name":"Bug","color":"#f00","isGroup":false,"parent":null,"team":{"id":"t1"}},
    {"id":"l2","name":"Area","color":"#0f0","isGroup":true,"parent":null,"team":null},
    {"id":"l3","name":"UI","color":"#00f","isGroup":false,"parent":{"id":"l2"},"team":null}]},
  "users": {"nodes":[
    {"id":"u1","name":"dana","displayName":"Dana","avatarUrl":"https://a/1.png","active":true},
    {"id":"u2","name":"gone","displayName":"","avatarUrl":"","active":false},
    {"id":"u3","name":"","displayName":"","avatarUrl":"","active":null}]}
}}`

func fallbackPayload() string {
	// Same shape without viewer.organization.
	return strings.Replace(workspacePayload,
		`,"organization":{"id":"o1","name":"Acme"}`, "", 1)
}

func TestFetchWorkspaceResourcesNormalization(t *testing.T) {
	f := newSessionFixture(t, &store.LinearSettings{AccessToken: "token"},
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, workspacePayload)
		})

	resources, err := f.session.FetchWorkspaceResources(context.Background())
	if err != nil {
		t.Fatalf("FetchWorkspaceResources: %v", err)
	}

	if resources.ViewerName != "Dana" {
		t.Errorf("ViewerName = %q", resources.ViewerName)
	}
	if resources.OrganizationName != "Acme" {
		t.Errorf("OrganizationName = %q", resources.OrganizationName)
	}

	if len(resources.Teams) != 2 {
		t.Fatalf("expected 2 teams, got %d", len(resources.Teams))
	}
	// Triage state matching is case-insensitive on the state type.
	if resources.Teams[0].TriageStateID != "s2" {
		t.Errorf("Engineering TriageStateID = %q, want s2", resources.Teams[0].TriageStateID)
	}
	if resources.Teams[1].TriageStateID != "" {
		t.Errorf("Design TriageStateID = %q, want empty", resources.Teams[1].TriageStateID)
	}
	if len(resources.Teams[0].MemberIDs) != 2 {
		t.Errorf("Engineering members = %v", resources.Teams[0].MemberIDs)
	}

	if len(resources.Projects) != 1 || resources.Projects[0].TeamIDs[0] != "t1" {
		t.Errorf("unexpected projects: %+v", resources.Projects)
	}

	if len(resources.Labels) != 3 {
		t.Fatalf("expected 3 labels, got %d", len(resources.Labels))
	}
	if resources.Labels[2].ParentID != "l2" {
		t.Errorf("UI label ParentID = %q", resources.Labels[2].ParentID)
	}
	if resources.Labels[0].TeamID != "t1" {
		t.Errorf("Bug label TeamID = %q", resources.Labels[0].TeamID)
	}

	// Inactive users are dropped; names fall back displayName -> name -> Unknown.
	if len(resources.Users) != 2 {
		t.Fatalf("expected 2 active users, got %d: %+v", len(resources.Users), resources.Users)
	}
	if resources.Users[0].Name != "Dana" {
		t.Errorf("first user name = %q", resources.Users[0].Name)
	}
	if resources.Users[1].Name != "Unknown" {
		t.Errorf("nameless user = %q, want Unknown", resources.Users[1].Name)
	}
}

func TestFetchWorkspaceResourcesFallback(t *testing.T) {
	var fullCalls, fallbackCalls atomic.Int64
	f := newSessionFixture(t, &store.LinearSettings{AccessToken: "token"},
		func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Query string `json:"query"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			w.Header().Set("Content-Type", "application/json")

			if strings.Contains(req.Query, "WorkspaceResourcesFallback") {
				fallbackCalls.Add(1)
				fmt.Fprint(w, fallbackPayload())
				return
			}
			fullCalls.Add(1)
			fmt.Fprint(w, `{"errors":[{"message":"cannot access organization"}]}`)
		})

	resources, err := f.session.FetchWorkspaceResources(context.Background())
	if err != nil {
		t.Fatalf("FetchWorkspaceResources: %v", err)
	}

	if fullCalls.Load() != 1 || fallbackCalls.Load() != 1 {
		t.Errorf("expected 1 full + 1 fallback query, got %d + %d", fullCalls.Load(), fallbackCalls.Load())
	}
	if resources.ViewerName != "Dana" {
		t.Errorf("ViewerName = %q", resources.ViewerName)
	}
	if resources.OrganizationName != "" {
		t.Errorf("OrganizationName should be empty under fallback, got %q", resources.OrganizationName)
	}
	if len(resources.Teams) != 2 {
		t.Errorf("fallback result not normalized identically: %+v", resources.Teams)
	}
}

func TestFetchWorkspaceResourcesFallbackAlsoFails(t *testing.T) {
	f := newSessionFixture(t, &store.LinearSettings{AccessToken: "token"},
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"errors":[{"message":"workspace unavailable"}]}`)
		})

	_, err := f.session.FetchWorkspaceResources(context.Background())
	if err == nil || err.Error() != "workspace unavailable" {
		t.Errorf("expected fallback error to surface, got %v", err)
	}
	if got := f.graphqlCalls.Load(); got != 2 {
		t.Errorf("expected exactly 2 attempts, got %d", got)
	}
}
