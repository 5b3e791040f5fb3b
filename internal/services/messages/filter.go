package messages

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/rzbill/smq/internal/queue"
)

// peekFilter wraps a compiled CEL program evaluated per previewed message.
// When disabled, Eval always returns true.
type peekFilter struct {
	prog    cel.Program
	enabled bool
}

// newPeekFilter compiles a filter expression. An empty expression yields a
// disabled filter that matches everything.
func newPeekFilter(expr string) (peekFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return peekFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("body", cel.StringType),
		cel.Variable("retry_count", cel.IntType),
		cel.Variable("size", cel.IntType),
		cel.Variable("ts_ms", cel.IntType),
		// parsed JSON body (map/list/values) for field filtering; null when
		// the body is not valid JSON
		cel.Variable("json", cel.DynType),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return peekFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return peekFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return peekFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return peekFilter{}, err
	}
	return peekFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the expression against a message. Evaluation errors count
// as non-matches.
func (f peekFilter) Eval(msg queue.Message, nowMs int64) bool {
	if !f.enabled {
		return true
	}
	var jsonObj any
	_ = json.Unmarshal([]byte(msg.Body), &jsonObj)

	var tsMs int64
	if sec, nsec := msg.ID.Time().UnixTime(); sec > 0 {
		tsMs = time.Unix(sec, nsec).UnixMilli()
	}

	out, _, err := f.prog.Eval(map[string]any{
		"body":        msg.Body,
		"retry_count": msg.RetryCount,
		"size":        len(msg.Body),
		"ts_ms":       tsMs,
		"json":        jsonObj,
		"now_ms":      nowMs,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
