package entities

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidQuery marks a malformed element query. It is a caller bug and is never retried.
var ErrInvalidQuery = errors.New("invalid element query")

// QueryKind identifies how an ElementQuery locates elements
type QueryKind string

const (
	QueryCSS   QueryKind = "css"
	QueryRole  QueryKind = "role"
	QueryText  QueryKind = "text"
	QueryLabel QueryKind = "label"
)

// ElementQuery describes a target element. Exactly one of CSS, Role, Text or Label is set.
// Name, Text, Label and HasText accept either a literal string or a /pattern/flags regexp.
type ElementQuery struct {
	CSS     string `json:"css,omitempty" yaml:"css,omitempty"`
	Role    string `json:"role,omitempty" yaml:"role,omitempty"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Text    string `json:"text,omitempty" yaml:"text,omitempty"`
	Label   string `json:"label,omitempty" yaml:"label,omitempty"`
	HasText string `json:"has_text,omitempty" yaml:"has_text,omitempty"`
	Exact   bool   `json:"exact,omitempty" yaml:"exact,omitempty"`
}

// CSS builds a selector query
func CSS(selector string) ElementQuery { return ElementQuery{CSS: selector} }

// Role builds an accessible role/name query
func Role(role, name string) ElementQuery { return ElementQuery{Role: role, Name: name} }

// Text builds a text query
func Text(text string) ElementQuery { return ElementQuery{Text: text} }

// Label builds a form-label query
func Label(label string) ElementQuery { return ElementQuery{Label: label} }

// WithHasText narrows the query to elements containing text
func (q ElementQuery) WithHasText(text string) ElementQuery {
	q.HasText = text
	return q
}

// Kind returns the locator strategy. It is empty for malformed queries.
func (q ElementQuery) Kind() QueryKind {
	var kinds []QueryKind
	if strings.TrimSpace(q.CSS) != "" {
		kinds = append(kinds, QueryCSS)
	}
	if strings.TrimSpace(q.Role) != "" {
		kinds = append(kinds, QueryRole)
	}
	if strings.TrimSpace(q.Text) != "" {
		kinds = append(kinds, QueryText)
	}
	if strings.TrimSpace(q.Label) != "" {
		kinds = append(kinds, QueryLabel)
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// Validate reports malformed queries wrapped in ErrInvalidQuery
func (q ElementQuery) Validate() error {
	if q.Kind() == "" {
		if q.IsZero() {
			return fmt.Errorf("%w: empty query", ErrInvalidQuery)
		}
		return fmt.Errorf("%w: exactly one of css, role, text or label is required (%s)", ErrInvalidQuery, q)
	}
	if q.Name != "" && q.Kind() != QueryRole {
		return fmt.Errorf("%w: name is only valid with role (%s)", ErrInvalidQuery, q)
	}
	for _, p := range []string{q.Name, q.Text, q.Label, q.HasText} {
		if _, err := ParsePattern(p); err != nil {
			return err
		}
	}
	return nil
}

// IsZero reports whether no field is set
func (q ElementQuery) IsZero() bool {
	return q == ElementQuery{}
}

// String renders a human-readable label used in logs and reports
func (q ElementQuery) String() string {
	var s string
	switch {
	case q.CSS != "":
		s = fmt.Sprintf("css=%s", q.CSS)
	case q.Role != "" && q.Name != "":
		s = fmt.Sprintf("role=%s[name=%q]", q.Role, q.Name)
	case q.Role != "":
		s = fmt.Sprintf("role=%s", q.Role)
	case q.Text != "":
		s = fmt.Sprintf("text=%q", q.Text)
	case q.Label != "":
		s = fmt.Sprintf("label=%q", q.Label)
	default:
		s = "<empty>"
	}
	if q.HasText != "" {
		s += fmt.Sprintf(" >> has-text=%q", q.HasText)
	}
	return s
}

// ParsePattern turns "/expr/flags" into a compiled regexp and returns any other
// value as a literal string. Only the i flag is recognised, so a path such as
// "/enroll/checkout" stays literal.
func ParsePattern(s string) (interface{}, error) {
	if len(s) < 2 || s[0] != '/' {
		return s, nil
	}
	end := strings.LastIndex(s, "/")
	if end == 0 {
		return s, nil
	}
	expr, flags := s[1:end], s[end+1:]
	if strings.Trim(flags, "i") != "" {
		return s, nil
	}
	if flags != "" {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return re, nil
}
