// Package tools implements the fixed catalog of PM assistant operations.
//
// Every tool reduces its own outcome to a single string: a JSON payload on
// success or a human-readable sentence on domain failure. The orchestrator
// treats that string as opaque text, so tools never surface Go errors for
// conditions a user could fix.
package tools

import (
	"context"
	"math"
	"strconv"
)

// Mode partitions tools into side-effect-free reads and gated writes.
type Mode string

const (
	ModeRead  Mode = "read"
	ModeWrite Mode = "write"
)

// AllowedTaskStatuses is the closed set of valid task status values.
var AllowedTaskStatuses = map[string]bool{
	"Not Started": true,
	"In Progress": true,
	"In Review":   true,
	"Blocked":     true,
	"Done":        true,
}

// allowedStatusList is the sorted rendering used in error sentences.
const allowedStatusList = "Blocked, Done, In Progress, In Review, Not Started"

// Tool is a single callable operation exposed to the planner.
type Tool interface {
	Name() string
	Mode() Mode
	// Signature is the argument list rendered in the oracle tool manual,
	// e.g. "(task_id int, status string)".
	Signature() string
	Description() string
	// Schema is the JSON Schema the registry validates arguments against.
	Schema() []byte
	Invoke(ctx context.Context, args map[string]any) string
}

// intArg extracts an integer argument. JSON-decoded numbers arrive as
// float64; planner-built args may already be ints.
func intArg(args map[string]any, key string) (int, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// stringArg extracts a string argument.
func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
