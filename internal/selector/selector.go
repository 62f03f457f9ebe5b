// Package selector synthesizes robust CSS selectors for elements of a
// parsed HTML document. Generated selectors prefer stable identity
// signals (ids, test attributes, curated class names) over positional
// ones, and always resolve uniquely in the document they were built for.
package selector

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// preferredAttributes are tried in priority order when looking for a
// stable identity signal on an element.
var preferredAttributes = []string{
	"data-testid",
	"data-test",
	"data-cy",
	"data-qa",
	"name",
	"aria-label",
	"role",
}

const (
	// maxAncestorDepth bounds the hierarchical walk toward the root.
	maxAncestorDepth = 10

	// maxStableClasses caps how many class names a segment uses.
	maxStableClasses = 3
)

// autoGeneratedClass matches class-name fragments produced by CSS-in-JS
// tooling and bundlers.
var autoGeneratedClass = regexp.MustCompile(`(?i)_[a-z0-9]{5,}`)

// longAlphanumeric matches hash-like tokens with no separators.
var longAlphanumeric = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// BuildElementSelector returns a CSS selector that uniquely resolves to
// node within doc. It never fails: when no stable signal produces a
// unique match, it degrades to a positional selector chain.
func BuildElementSelector(doc *goquery.Document, node *html.Node) string {
	if node == nil || node.Type != html.ElementNode {
		return "*"
	}

	root := documentRoot(doc, node)

	var parts []string
	current := node
	for depth := 0; current != nil && depth < maxAncestorDepth; depth++ {
		if tagName(current) == "html" {
			break
		}

		// A stable signal on this node replaces everything above it.
		if preferred := preferredSelector(root, current); preferred != "" {
			combined := joinParts(preferred, parts)
			if uniqueMatch(root, combined, node) {
				return combined
			}
		}

		var last string
		for _, candidate := range segmentCandidates(current) {
			last = candidate
			combined := joinParts(candidate, parts)
			if uniqueMatch(root, combined, node) {
				return combined
			}
		}

		// Nothing resolved uniqueness at this level; keep the positional
		// fallback as this level's segment and climb.
		parts = append([]string{last}, parts...)
		current = elementParent(current)
	}

	if len(parts) > 0 {
		return strings.Join(parts, " > ")
	}
	return nthOfTypeSelector(node)
}

// Build is a convenience wrapper over the first node of a selection.
func Build(sel *goquery.Selection) string {
	if sel == nil || len(sel.Nodes) == 0 {
		return "*"
	}
	doc := goquery.NewDocumentFromNode(rootNode(sel.Nodes[0]))
	return BuildElementSelector(doc, sel.Nodes[0])
}

// preferredSelector applies the attribute-preference tier to a single
// node: id, then preferred attributes, then stable classes. It returns
// the first candidate that is unique on its own, or "".
func preferredSelector(root *html.Node, n *html.Node) string {
	if id := attrValue(n, "id"); id != "" {
		s := "#" + cssEscape(id)
		if uniqueMatch(root, s, n) {
			return s
		}
	}

	for _, attr := range preferredAttributes {
		value, ok := attrLookup(n, attr)
		if !ok || value == "" {
			continue
		}
		s := fmt.Sprintf("[%s=\"%s\"]", attr, cssEscape(value))
		if uniqueMatch(root, s, n) {
			return s
		}
	}

	if classes := stableClasses(n); len(classes) > 0 {
		s := classSelector(n, classes)
		if uniqueMatch(root, s, n) {
			return s
		}
	}

	return ""
}

// segmentCandidates lists the selector fragments a node can contribute
// to a hierarchical selector, most specific first. The positional
// nth-of-type fallback is always last.
func segmentCandidates(n *html.Node) []string {
	var candidates []string

	if id := attrValue(n, "id"); id != "" {
		candidates = append(candidates, "#"+cssEscape(id))
	}

	tag := tagName(n)
	for _, attr := range preferredAttributes {
		value, ok := attrLookup(n, attr)
		if !ok || value == "" {
			continue
		}
		escaped := cssEscape(value)
		candidates = append(candidates,
			fmt.Sprintf("%s[%s=\"%s\"]", tag, attr, escaped),
			fmt.Sprintf("[%s=\"%s\"]", attr, escaped))
	}

	if classes := stableClasses(n); len(classes) > 0 {
		candidates = append(candidates, classSelector(n, classes))
	}

	candidates = append(candidates, nthOfTypeSelector(n))
	return candidates
}

// stableClasses filters a node's class list down to names that look
// hand-written rather than generated.
func stableClasses(n *html.Node) []string {
	var stable []string
	for _, class := range strings.Fields(attrValue(n, "class")) {
		if !isStableClass(class) {
			continue
		}
		stable = append(stable, class)
		if len(stable) == maxStableClasses {
			break
		}
	}
	return stable
}

// isStableClass rejects class names that look auto-generated.
func isStableClass(class string) bool {
	for _, prefix := range []string{"css-", "sc-", "jsx-"} {
		if strings.HasPrefix(class, prefix) {
			return false
		}
	}
	if autoGeneratedClass.MatchString(class) {
		return false
	}
	if len(class) > 16 && longAlphanumeric.MatchString(class) {
		return false
	}
	return true
}

func classSelector(n *html.Node, classes []string) string {
	escaped := make([]string, len(classes))
	for i, class := range classes {
		escaped[i] = cssEscape(class)
	}
	return tagName(n) + "." + strings.Join(escaped, ".")
}

// nthOfTypeSelector returns the positional fallback for a node: the bare
// tag when it is the only sibling of its tag, else tag:nth-of-type(i)
// with a 1-based position among same-tag siblings.
func nthOfTypeSelector(n *html.Node) string {
	tag := tagName(n)
	if n.Parent == nil {
		return tag
	}

	position := 0
	sameTag := 0
	for sibling := n.Parent.FirstChild; sibling != nil; sibling = sibling.NextSibling {
		if sibling.Type != html.ElementNode || tagName(sibling) != tag {
			continue
		}
		sameTag++
		if sibling == n {
			position = sameTag
		}
	}

	if sameTag <= 1 {
		return tag
	}
	return fmt.Sprintf("%s:nth-of-type(%d)", tag, position)
}

// uniqueMatch reports whether sel matches exactly one node in the
// document and that node is target. Selectors that fail to parse are
// treated as non-unique.
func uniqueMatch(root *html.Node, sel string, target *html.Node) bool {
	compiled, err := cascadia.Compile(sel)
	if err != nil {
		return false
	}
	matches := compiled.MatchAll(root)
	return len(matches) == 1 && matches[0] == target
}

// cssEscape backslash-escapes every character outside [A-Za-z0-9_-],
// producing a value safe in both identifier and quoted-string positions.
func cssEscape(value string) string {
	var b strings.Builder
	for _, r := range value {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('\\')
		b.WriteRune(r)
	}
	return b.String()
}

func joinParts(head string, parts []string) string {
	if len(parts) == 0 {
		return head
	}
	return head + " > " + strings.Join(parts, " > ")
}

func tagName(n *html.Node) string {
	return strings.ToLower(n.Data)
}

func attrValue(n *html.Node, name string) string {
	value, _ := attrLookup(n, name)
	return value
}

func attrLookup(n *html.Node, name string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val, true
		}
	}
	return "", false
}

func elementParent(n *html.Node) *html.Node {
	if n.Parent != nil && n.Parent.Type == html.ElementNode {
		return n.Parent
	}
	return nil
}

func documentRoot(doc *goquery.Document, node *html.Node) *html.Node {
	if doc != nil && len(doc.Nodes) > 0 {
		return doc.Nodes[0]
	}
	return rootNode(node)
}

func rootNode(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}
