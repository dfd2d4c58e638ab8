package schema

import (
	"fmt"
	"strings"
)

// Issue codes produced by the structural validator.
const (
	IssueMissingStart     = "MISSING_START"
	IssueMultipleStarts   = "MULTIPLE_STARTS"
	IssueMissingEnd       = "MISSING_END"
	IssueDisconnected     = "DISCONNECTED"
	IssueUnnamedNode      = "UNNAMED_NODE"
	IssueInvalidCondition = "INVALID_CONDITION"
)

// Issue is a single structural problem found in a graph. Issues carry no
// severity; how they are presented is up to the caller.
type Issue struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	NodeIDs []string `json:"node_ids,omitempty"`
}

func (i Issue) String() string {
	return i.Message
}

// Issues is the ordered output of a validation pass.
type Issues []Issue

// Valid returns true if no issue was reported.
func (is Issues) Valid() bool {
	return len(is) == 0
}

// Add appends an issue.
func (is *Issues) Add(code, message string, nodeIDs ...string) {
	*is = append(*is, Issue{Code: code, Message: message, NodeIDs: nodeIDs})
}

// Has reports whether an issue with the given code is present.
func (is Issues) Has(code string) bool {
	for _, i := range is {
		if i.Code == code {
			return true
		}
	}
	return false
}

// Messages returns the issue messages in order.
func (is Issues) Messages() []string {
	out := make([]string, len(is))
	for i, issue := range is {
		out[i] = issue.Message
	}
	return out
}

// ToError converts the issues to a GraphError if any, nil otherwise.
func (is Issues) ToError() error {
	if is.Valid() {
		return nil
	}

	msg := is[0].Message
	if len(is) > 1 {
		msg = fmt.Sprintf("validation failed with %d issues: %s", len(is), strings.Join(is.Messages(), "; "))
	}

	return NewError(ErrCodeValidation, msg).
		WithDetails(map[string]any{
			"issue_count": len(is),
			"issues":      []Issue(is),
		})
}
