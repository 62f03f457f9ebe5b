// Package models defines data structures shared across the application.
package models

// Annotation represents a single feedback note captured by the Notis
// browser extension. Annotations are immutable after capture except for
// the override fields, which are applied at submission time.
type Annotation struct {
	// Comment is the feedback text the user typed for this marker
	Comment string `json:"comment"`

	// ElementPath is the CSS selector of the annotated page element
	ElementPath string `json:"elementPath"`

	// Color is the highlight color assigned to the marker
	Color string `json:"color"`

	// CreatedAt is the capture timestamp in epoch milliseconds
	CreatedAt int64 `json:"createdAt"`

	// Page describes the environment the annotation was captured in
	Page PageContext `json:"page"`

	// Screenshot is an optional data-URL screenshot of the annotated region
	Screenshot string `json:"screenshot,omitempty"`

	// Attachments are optional extra files captured alongside the note
	Attachments []Attachment `json:"attachments,omitempty"`

	// TitleOverride replaces the derived issue title when set at submission time
	TitleOverride string `json:"titleOverride,omitempty"`

	// DescriptionOverride replaces the note comment when set at submission time
	DescriptionOverride string `json:"descriptionOverride,omitempty"`
}

// PageContext captures viewport and environment metadata for an annotation.
type PageContext struct {
	// URL is the address of the annotated page
	URL string `json:"url"`

	// Title is the document title of the annotated page
	Title string `json:"title"`

	// ViewportWidth is the browser viewport width in CSS pixels
	ViewportWidth int `json:"viewportWidth"`

	// ViewportHeight is the browser viewport height in CSS pixels
	ViewportHeight int `json:"viewportHeight"`

	// UserAgent is the browser user-agent string at capture time
	UserAgent string `json:"userAgent"`
}

// Attachment is a file captured with an annotation, held as a data URL.
type Attachment struct {
	// Name is the original file name of the attachment
	Name string `json:"name"`

	// DataURL is the attachment payload encoded as a data URL
	DataURL string `json:"dataUrl"`
}
