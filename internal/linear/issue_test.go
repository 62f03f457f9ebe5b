package linear

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/notisapp/notis/internal/store"
	"github.com/notisapp/notis/pkg/models"
)

func intPtr(v int) *int { return &v }

func TestBuildIssueCreateInputRequiresTeam(t *testing.T) {
	for _, teamID := range []string{"", "   "} {
		_, err := BuildIssueCreateInput("title", "body", IssueOverrides{TeamID: teamID})
		if err == nil || err.Error() != "No Linear team selected for this submission." {
			t.Errorf("TeamID=%q: err = %v", teamID, err)
		}
	}
}

func TestBuildIssueCreateInputTitle(t *testing.T) {
	long := strings.Repeat("x", 120)

	tests := []struct {
		name        string
		titleSource string
		override    string
		want        string
	}{
		{"comment used as title", "Button misaligned", "", "Button misaligned"},
		{"override wins", "Button misaligned", "Fix header", "Fix header"},
		{"whitespace falls back to default", "   ", "", "Visual feedback"},
		{"long title truncated", long, "", strings.Repeat("x", 77) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := BuildIssueCreateInput(tt.titleSource, "body", IssueOverrides{
				TeamID: "t1",
				Title:  tt.override,
			})
			if err != nil {
				t.Fatalf("BuildIssueCreateInput: %v", err)
			}
			if input.Title != tt.want {
				t.Errorf("Title = %q, want %q", input.Title, tt.want)
			}
			if len([]rune(input.Title)) > 80 {
				t.Errorf("title exceeds 80 runes: %d", len([]rune(input.Title)))
			}
		})
	}
}

func TestBuildIssueCreateInputOverrides(t *testing.T) {
	input, err := BuildIssueCreateInput("title", "body", IssueOverrides{
		TeamID:    "t1",
		ProjectID: " p1 ",
		LabelIDs:  []string{" l1 ", "", "l2", "   "},
		Priority:  intPtr(2),
	})
	if err != nil {
		t.Fatalf("BuildIssueCreateInput: %v", err)
	}
	if input.ProjectID != "p1" {
		t.Errorf("ProjectID = %q", input.ProjectID)
	}
	if len(input.LabelIDs) != 2 || input.LabelIDs[0] != "l1" || input.LabelIDs[1] != "l2" {
		t.Errorf("LabelIDs = %v", input.LabelIDs)
	}
	if input.Priority == nil || *input.Priority != 2 {
		t.Errorf("Priority = %v", input.Priority)
	}
}

func TestBuildIssueCreateInputPriorityBounds(t *testing.T) {
	tests := []struct {
		priority *int
		want     *int
	}{
		{nil, nil},
		{intPtr(0), intPtr(0)},
		{intPtr(4), intPtr(4)},
		{intPtr(5), nil},
		{intPtr(-1), nil},
	}
	for _, tt := range tests {
		input, err := BuildIssueCreateInput("title", "body", IssueOverrides{
			TeamID:   "t1",
			Priority: tt.priority,
		})
		if err != nil {
			t.Fatalf("BuildIssueCreateInput: %v", err)
		}
		switch {
		case tt.want == nil && input.Priority != nil:
			t.Errorf("priority %v: expected dropped, got %d", tt.priority, *input.Priority)
		case tt.want != nil && (input.Priority == nil || *input.Priority != *tt.want):
			t.Errorf("priority %v: got %v, want %d", tt.priority, input.Priority, *tt.want)
		}
	}
}

func TestBuildIssueCreateInputTriageState(t *testing.T) {
	tests := []struct {
		name      string
		overrides IssueOverrides
		want      string
	}{
		{"triage with state", IssueOverrides{TeamID: "t1", Triage: true, TriageStateID: "s2"}, "s2"},
		{"triage without state", IssueOverrides{TeamID: "t1", Triage: true}, ""},
		{"state without triage", IssueOverrides{TeamID: "t1", TriageStateID: "s2"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := BuildIssueCreateInput("title", "body", tt.overrides)
			if err != nil {
				t.Fatalf("BuildIssueCreateInput: %v", err)
			}
			if input.StateID != tt.want {
				t.Errorf("StateID = %q, want %q", input.StateID, tt.want)
			}
		})
	}
}

func testAnnotation() models.Annotation {
	return models.Annotation{
		Comment:     "Button overlaps the footer",
		ElementPath: "#checkout > button",
		Color:       "#ff0000",
		CreatedAt:   1700000000000,
		Page: models.PageContext{
			URL:            "https://shop.example/cart",
			Title:          "Cart | Example",
			ViewportWidth:  1440,
			ViewportHeight: 900,
			UserAgent:      "Mozilla/5.0",
		},
	}
}

func TestBuildIssueDescriptionSections(t *testing.T) {
	a := testAnnotation()
	a.Screenshot = "data:image/png;base64,AAAA"

	body := BuildIssueDescription(a, "Checkout layout issues")

	for _, want := range []string{
		"## Summary\n\nCheckout layout issues",
		"## Feedback\n\nButton overlaps the footer",
		"## Screenshot\n\n![Screenshot](data:image/png;base64,AAAA)",
		"| Selector | `#checkout > button` |",
		"| URL | https://shop.example/cart |",
		"| Viewport | 1440x900 |",
		"| Captured | 2023-11-14T22:13:20Z |",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("description missing %q\n%s", want, body)
		}
	}
	if strings.Contains(body, "## Attachments") {
		t.Error("attachments section rendered without attachments")
	}
}

func TestBuildIssueDescriptionEmptyComment(t *testing.T) {
	a := testAnnotation()
	a.Comment = "  "

	body := BuildIssueDescription(a, "")
	if !strings.Contains(body, "_No comment provided._") {
		t.Errorf("placeholder missing:\n%s", body)
	}
	if strings.Contains(body, "## Summary") {
		t.Error("summary rendered without overall description")
	}
}

func TestBuildIssueDescriptionOversizedScreenshot(t *testing.T) {
	a := testAnnotation()
	a.Screenshot = "data:image/png;base64," + strings.Repeat("A", maxInlinePayload)

	body := BuildIssueDescription(a, "")
	if !strings.Contains(body, "_Screenshot omitted due inline payload limits._") {
		t.Errorf("omission notice missing:\n%s", body)
	}
	if strings.Contains(body, "![Screenshot]") {
		t.Error("oversized screenshot inlined")
	}
}

func TestBuildIssueDescriptionAttachmentLimit(t *testing.T) {
	a := testAnnotation()
	a.Attachments = []models.Attachment{
		{Name: "one.png", DataURL: "data:image/png;base64,AA"},
		{Name: "two.png", DataURL: "data:image/png;base64,BB"},
		{Name: "three.png", DataURL: "data:image/png;base64,CC"},
	}

	body := BuildIssueDescription(a, "")
	if !strings.Contains(body, "![one.png]") || !strings.Contains(body, "![two.png]") {
		t.Errorf("first two attachments not inlined:\n%s", body)
	}
	if strings.Contains(body, "![three.png]") {
		t.Error("third attachment inlined past the limit")
	}
	if !strings.Contains(body, "_1 attachment omitted due inline payload limits._") {
		t.Errorf("omission count missing:\n%s", body)
	}
}

func TestBuildIssueDescriptionAttachmentOmissionPlural(t *testing.T) {
	a := testAnnotation()
	a.Attachments = make([]models.Attachment, 4)
	for i := range a.Attachments {
		a.Attachments[i] = models.Attachment{
			Name:    fmt.Sprintf("file-%d.png", i),
			DataURL: "data:image/png;base64,AA",
		}
	}

	body := BuildIssueDescription(a, "")
	if !strings.Contains(body, "_2 attachments omitted due inline payload limits._") {
		t.Errorf("plural omission notice missing:\n%s", body)
	}
}

func TestBuildIssueDescriptionUnsupportedAttachmentScheme(t *testing.T) {
	a := testAnnotation()
	a.Attachments = []models.Attachment{
		{Name: "weird.bin", DataURL: "ftp://example/weird.bin"},
	}

	body := BuildIssueDescription(a, "")
	if !strings.Contains(body, "_weird.bin omitted due inline payload limits._") {
		t.Errorf("per-attachment omission missing:\n%s", body)
	}
	if strings.Contains(body, "![weird.bin]") {
		t.Error("unsupported scheme inlined")
	}
}

func TestEscapeTableCell(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a|b", `a\|b`},
		{"line1\nline2", "line1<br/>line2"},
		{"line1\r\nline2", "line1<br/>line2"},
		{"a|b\nc", `a\|b<br/>c`},
	}
	for _, tt := range tests {
		if got := escapeTableCell(tt.in); got != tt.want {
			t.Errorf("escapeTableCell(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildGroupedIssueDescription(t *testing.T) {
	first := testAnnotation()
	second := testAnnotation()
	second.Comment = "Header | logo misplaced"
	second.ElementPath = "header > img"
	second.Page.URL = "https://shop.example/other"

	body := BuildGroupedIssueDescription(
		[]models.Annotation{first, second},
		"data:image/png;base64,ZZ",
		"Several layout problems")

	for _, want := range []string{
		"## Summary\n\nSeveral layout problems",
		"| 1 | Button overlaps the footer | `#checkout > button` | #ff0000 |",
		`| 2 | Header \| logo misplaced | ` + "`header > img`" + ` | #ff0000 |`,
		"![Screenshot](data:image/png;base64,ZZ)",
		// Context always comes from the first annotation.
		"| URL | https://shop.example/cart |",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("grouped description missing %q\n%s", want, body)
		}
	}
	if strings.Contains(body, "https://shop.example/other") {
		t.Error("context table leaked a later annotation's page")
	}
}

func TestFormatTimestamp(t *testing.T) {
	if got := formatTimestamp(0); got != "unknown" {
		t.Errorf("formatTimestamp(0) = %q", got)
	}
	if got := formatTimestamp(1700000000000); got != "2023-11-14T22:13:20Z" {
		t.Errorf("formatTimestamp = %q", got)
	}
}

func TestCreateIssue(t *testing.T) {
	f := newSessionFixture(t, &store.LinearSettings{AccessToken: "token"},
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"data":{"issueCreate":{"success":true,"issue":{"id":"i1","identifier":"ENG-42","url":"https://linear.app/acme/issue/ENG-42"}}}}`)
		})

	input, err := BuildIssueCreateInput("title", "body", IssueOverrides{TeamID: "t1"})
	if err != nil {
		t.Fatalf("BuildIssueCreateInput: %v", err)
	}
	issue, err := f.session.CreateIssue(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}
	if issue.Identifier != "ENG-42" {
		t.Errorf("Identifier = %q", issue.Identifier)
	}
}

func TestCreateIssueUnsuccessful(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"success false", `{"data":{"issueCreate":{"success":false,"issue":null}}}`},
		{"missing issue", `{"data":{"issueCreate":{"success":true,"issue":null}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(t, &store.LinearSettings{AccessToken: "token"},
				func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/json")
					fmt.Fprint(w, tt.body)
				})

			_, err := f.session.CreateIssue(context.Background(), &IssueCreateInput{TeamID: "t1", Title: "x"})
			if err == nil || err.Error() != "Linear did not return an issue result." {
				t.Errorf("err = %v", err)
			}
			if got := f.graphqlCalls.Load(); got != 1 {
				t.Errorf("logical failures must not retry, got %d calls", got)
			}
		})
	}
}
