package core

import "fmt"

// RoutingLabel is the classification emitted by the initial support step to
// decide which representative handles the next turn.
type RoutingLabel string

const (
	// RouteRespond keeps the conversation on the plain conversational path.
	RouteRespond RoutingLabel = "RESPOND"
	// RouteCertification hands the conversation to the certification path.
	RouteCertification RoutingLabel = "CERTIFICATION"
)

// Valid reports whether the label is one of the enumerated routing labels.
func (l RoutingLabel) Valid() bool {
	return l == RouteRespond || l == RouteCertification
}

// ParseRoutingLabel converts raw classifier output into a RoutingLabel,
// failing on anything outside the enumeration.
func ParseRoutingLabel(s string) (RoutingLabel, error) {
	l := RoutingLabel(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown routing label %q", s)
	}
	return l, nil
}

// Decision is the tagged result of the initial support step: the generated
// reply plus the routing label selecting the next representative.
type Decision struct {
	Label RoutingLabel
	Reply string
}

// State is the conversation state threaded through a support workflow run.
// Values are treated as immutable snapshots: steps derive new states via the
// With* helpers instead of mutating in place.
type State struct {
	Messages           []Message
	NextRepresentative RoutingLabel
	RefundAuthorized   bool
}

// NewState creates a state seeded with the given messages.
func NewState(msgs ...Message) State {
	return State{Messages: Append(nil, msgs...)}
}

// WithMessages returns a copy of the state with msgs appended to the history.
func (s State) WithMessages(msgs ...Message) State {
	next := s
	next.Messages = Append(s.Messages, msgs...)
	return next
}

// WithNext returns a copy of the state carrying the given routing label.
func (s State) WithNext(label RoutingLabel) State {
	next := s
	next.Messages = Append(nil, s.Messages...)
	next.NextRepresentative = label
	return next
}

// Clone returns a deep copy safe for independent mutation.
func (s State) Clone() State {
	next := s
	next.Messages = Append(nil, s.Messages...)
	return next
}

// AssistantReplies returns the assistant-authored text messages in order.
func (s State) AssistantReplies() []string {
	var out []string
	for _, m := range s.Messages {
		if m.Role == RoleAssistant && len(m.ToolCalls) == 0 {
			out = append(out, m.Content)
		}
	}
	return out
}
