// Package span defines the Span record: a structured, immutable
// account of a past action the matching engine retrieves evidence
// from. The core consumes spans but never mutates them.
package span

// Status is the lifecycle state of a span.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Context captures the situational frame an action was taken in.
type Context struct {
	Environment     string
	Stakes          string
	PreviousSpanIDs []string
}

// Metadata carries provenance and quality information about a span,
// none of which participates in matching directly.
type Metadata struct {
	Quality   int // 0-100
	Timestamp int64
	Provider  string
}

// Span is an identified record of a past action: who did what, to
// what, and how it turned out.
type Span struct {
	ID             string
	Actor          string
	Action         string
	Object         string
	SuccessOutcome string
	FailureOutcome string
	Confirmation   string
	Context        Context
	Metadata       Metadata
	Status         Status
}

// Text concatenates the span's textual fields into the canonical
// string the embedder derives from it: actor,
// action, object, success outcome (if present), and context
// environment (if present), joined by single spaces, omitting absent
// fields.
func (s Span) Text() string {
	fields := []string{s.Actor, s.Action, s.Object}
	if s.SuccessOutcome != "" {
		fields = append(fields, s.SuccessOutcome)
	}
	if s.Context.Environment != "" {
		fields = append(fields, s.Context.Environment)
	}

	out := ""
	for _, f := range fields {
		if f == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += f
	}
	return out
}

// Content returns the text evidence assembly should surface for this
// span: the success outcome if present, else the failure outcome if
// present, else the canonical Text.
func (s Span) Content() string {
	if s.SuccessOutcome != "" {
		return s.SuccessOutcome
	}
	if s.FailureOutcome != "" {
		return s.FailureOutcome
	}
	return s.Text()
}
