package linear

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/notisapp/notis/internal/logging"
	"github.com/notisapp/notis/pkg/models"
)

const (
	// maxTitleLength bounds issue titles; longer titles are truncated
	// with a "..." marker.
	maxTitleLength = 80

	// defaultTitle is used when no usable title text exists.
	defaultTitle = "Visual feedback"

	// maxInlinePayload is the largest data URL embedded into a
	// description before it is replaced by an omission notice.
	maxInlinePayload = 320000

	// maxInlineAttachments caps how many attachments render inline.
	maxInlineAttachments = 2
)

// IssueOverrides are the submission-time choices applied on top of an
// annotation when building the issue create input.
type IssueOverrides struct {
	TeamID     string
	ProjectID  string
	AssigneeID string
	Title      string
	LabelIDs   []string
	Priority   *int

	// Triage routes the issue into the team's triage state when the
	// team has one.
	Triage        bool
	TriageStateID string
}

// BuildIssueCreateInput assembles the issueCreate input from a title
// source, a rendered description, and the submission overrides. TeamID
// is mandatory; every other override is included only when valid.
func BuildIssueCreateInput(titleSource, description string, overrides IssueOverrides) (*IssueCreateInput, error) {
	teamID := strings.TrimSpace(overrides.TeamID)
	if teamID == "" {
		return nil, errors.New("No Linear team selected for this submission.")
	}

	title := strings.TrimSpace(overrides.Title)
	if title == "" {
		title = strings.TrimSpace(titleSource)
	}
	if title == "" {
		title = defaultTitle
	}
	if runes := []rune(title); len(runes) > maxTitleLength {
		title = string(runes[:maxTitleLength-3]) + "..."
	}

	input := &IssueCreateInput{
		TeamID:      teamID,
		Title:       title,
		Description: description,
		ProjectID:   strings.TrimSpace(overrides.ProjectID),
		AssigneeID:  strings.TrimSpace(overrides.AssigneeID),
	}

	var labelIDs []string
	for _, id := range overrides.LabelIDs {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			labelIDs = append(labelIDs, trimmed)
		}
	}
	if len(labelIDs) > 0 {
		input.LabelIDs = labelIDs
	}

	if overrides.Priority != nil && *overrides.Priority >= 0 && *overrides.Priority <= 4 {
		priority := *overrides.Priority
		input.Priority = &priority
	}

	if overrides.Triage {
		if stateID := strings.TrimSpace(overrides.TriageStateID); stateID != "" {
			input.StateID = stateID
		}
	}

	return input, nil
}

// BuildIssueDescription renders the Markdown body for a single
// annotation. The output is deterministic for a given annotation.
func BuildIssueDescription(a models.Annotation, overallDescription string) string {
	var b strings.Builder

	if overall := strings.TrimSpace(overallDescription); overall != "" {
		b.WriteString("## Summary\n\n")
		b.WriteString(overall)
		b.WriteString("\n\n")
	}

	b.WriteString("## Feedback\n\n")
	feedback := a.Comment
	if a.DescriptionOverride != "" {
		feedback = a.DescriptionOverride
	}
	if strings.TrimSpace(feedback) == "" {
		feedback = "_No comment provided._"
	}
	b.WriteString(feedback)
	b.WriteString("\n\n")

	writeScreenshotSection(&b, a.Screenshot)
	writeElementTable(&b, a)
	writeContextTable(&b, a)
	writeAttachmentsSection(&b, a.Attachments)

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// BuildGroupedIssueDescription renders one Markdown body summarizing all
// annotations of a grouped submission. Markers are numbered by array
// position; the context table comes from the first annotation. The
// caller guarantees at least one annotation.
func BuildGroupedIssueDescription(annotations []models.Annotation, groupedScreenshot, overallDescription string) string {
	var b strings.Builder

	if overall := strings.TrimSpace(overallDescription); overall != "" {
		b.WriteString("## Summary\n\n")
		b.WriteString(overall)
		b.WriteString("\n\n")
	}

	b.WriteString("## Markers\n\n")
	b.WriteString("| # | Feedback | Element | Color |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for i, a := range annotations {
		feedback := a.Comment
		if a.DescriptionOverride != "" {
			feedback = a.DescriptionOverride
		}
		fmt.Fprintf(&b, "| %d | %s | `%s` | %s |\n",
			i+1,
			escapeTableCell(feedback),
			escapeTableCell(a.ElementPath),
			escapeTableCell(a.Color))
	}
	b.WriteString("\n")

	writeScreenshotSection(&b, groupedScreenshot)
	writeContextTable(&b, annotations[0])

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeScreenshotSection(b *strings.Builder, screenshot string) {
	if screenshot == "" {
		return
	}
	b.WriteString("## Screenshot\n\n")
	if canInline(screenshot) {
		fmt.Fprintf(b, "![Screenshot](%s)\n\n", screenshot)
	} else {
		b.WriteString("_Screenshot omitted due inline payload limits._\n\n")
	}
}

func writeElementTable(b *strings.Builder, a models.Annotation) {
	b.WriteString("## Element\n\n")
	b.WriteString("| Field | Value |\n")
	b.WriteString("| --- | --- |\n")
	fmt.Fprintf(b, "| Selector | `%s` |\n", escapeTableCell(a.ElementPath))
	fmt.Fprintf(b, "| Highlight | %s |\n", escapeTableCell(a.Color))
	b.WriteString("\n")
}

func writeContextTable(b *strings.Builder, a models.Annotation) {
	b.WriteString("## Context\n\n")
	b.WriteString("| Field | Value |\n")
	b.WriteString("| --- | --- |\n")
	fmt.Fprintf(b, "| URL | %s |\n", escapeTableCell(a.Page.URL))
	fmt.Fprintf(b, "| Page title | %s |\n", escapeTableCell(a.Page.Title))
	fmt.Fprintf(b, "| Viewport | %dx%d |\n", a.Page.ViewportWidth, a.Page.ViewportHeight)
	fmt.Fprintf(b, "| User agent | %s |\n", escapeTableCell(a.Page.UserAgent))
	fmt.Fprintf(b, "| Captured | %s |\n", escapeTableCell(formatTimestamp(a.CreatedAt)))
	b.WriteString("\n")
}

func writeAttachmentsSection(b *strings.Builder, attachments []models.Attachment) {
	if len(attachments) == 0 {
		return
	}
	b.WriteString("## Attachments\n\n")

	inline := attachments
	if len(inline) > maxInlineAttachments {
		inline = inline[:maxInlineAttachments]
	}
	for _, attachment := range inline {
		if canInline(attachment.DataURL) {
			fmt.Fprintf(b, "![%s](%s)\n\n", escapeTableCell(attachment.Name), attachment.DataURL)
		} else {
			fmt.Fprintf(b, "_%s omitted due inline payload limits._\n\n", escapeTableCell(attachment.Name))
		}
	}

	if omitted := len(attachments) - maxInlineAttachments; omitted > 0 {
		noun := "attachments"
		if omitted == 1 {
			noun = "attachment"
		}
		fmt.Fprintf(b, "_%d %s omitted due inline payload limits._\n\n", omitted, noun)
	}
}

// canInline reports whether a payload may be embedded into a
// description: a recognized scheme and a bounded size.
func canInline(payload string) bool {
	if len(payload) > maxInlinePayload {
		return false
	}
	return strings.HasPrefix(payload, "data:image/") ||
		strings.HasPrefix(payload, "https://") ||
		strings.HasPrefix(payload, "http://")
}

// escapeTableCell makes a value safe inside a Markdown table cell.
func escapeTableCell(value string) string {
	return strings.NewReplacer(
		"|", `\|`,
		"\r\n", "<br/>",
		"\n", "<br/>",
	).Replace(value)
}

func formatTimestamp(epochMillis int64) string {
	if epochMillis <= 0 {
		return "unknown"
	}
	return time.UnixMilli(epochMillis).UTC().Format(time.RFC3339)
}

// CreateIssue submits the issueCreate mutation. A mutation that reports
// success:false or returns no issue payload is a logical failure and is
// never retried.
func (s *Session) CreateIssue(ctx context.Context, input *IssueCreateInput) (*IssueRef, error) {
	var result struct {
		IssueCreate struct {
			Success bool      `json:"success"`
			Issue   *IssueRef `json:"issue"`
		} `json:"issueCreate"`
	}

	variables := map[string]any{"input": input}
	if err := s.Execute(ctx, mutationIssueCreate, variables, &result); err != nil {
		return nil, err
	}

	if !result.IssueCreate.Success || result.IssueCreate.Issue == nil {
		return nil, errors.New("Linear did not return an issue result.")
	}

	logging.Info("linear issue created",
		"identifier", result.IssueCreate.Issue.Identifier,
		"url", result.IssueCreate.Issue.URL)
	return result.IssueCreate.Issue, nil
}
