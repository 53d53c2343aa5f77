// Package redact removes response rows whose value graph contains a
// forbidden owner name. The envelope outside the value array is never
// touched, so a clean response passes through byte-identical.
package redact

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/my-pwa-apps/Bloxs/internal/policy"
)

// Redactor filters OData envelopes against a forbidden-name policy.
type Redactor struct {
	names *policy.ForbiddenNames
	log   *zap.Logger
}

// New builds a Redactor. A nil logger is replaced with a no-op.
func New(names *policy.ForbiddenNames, log *zap.Logger) *Redactor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Redactor{names: names, log: log}
}

// Apply returns the body with matching rows removed from the value array.
// Non-JSON bodies, envelopes without an array-valued "value" property, and
// bodies with no matching rows are returned unchanged.
func (r *Redactor) Apply(body []byte) []byte {
	if r.names.Empty() || !gjson.ValidBytes(body) {
		return body
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return body
	}
	value := root.Get("value")
	if !value.IsArray() {
		return body
	}

	rows := value.Array()
	survivors := make([]string, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		if r.rowMatches(row) {
			dropped++
			continue
		}
		survivors = append(survivors, row.Raw)
	}

	if dropped == 0 {
		return body
	}

	rebuilt := "[" + strings.Join(survivors, ",") + "]"
	out, err := sjson.SetRawBytes(body, "value", []byte(rebuilt))
	if err != nil {
		r.log.Warn("redaction rewrite failed, passing body through", zap.Error(err))
		return body
	}

	r.log.Info("redacted response rows",
		zap.Int("dropped", dropped),
		zap.Int("remaining", len(survivors)),
	)
	return out
}

// rowMatches walks the row's value graph with an explicit stack. Values
// under @odata.* keys are not descended into. The parsed tree is acyclic,
// so visiting each node once terminates.
func (r *Redactor) rowMatches(row gjson.Result) bool {
	stack := []gjson.Result{row}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch {
		case node.Type == gjson.String:
			if r.names.Matches(node.String()) {
				return true
			}
		case node.IsObject():
			node.ForEach(func(key, val gjson.Result) bool {
				if strings.HasPrefix(key.String(), "@odata.") {
					return true
				}
				stack = append(stack, val)
				return true
			})
		case node.IsArray():
			node.ForEach(func(_, val gjson.Result) bool {
				stack = append(stack, val)
				return true
			})
		}
	}
	return false
}
