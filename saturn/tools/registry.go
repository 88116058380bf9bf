package tools

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// Registry is the injected catalog of tools, partitioned into read and write
// sets. It is read-only after construction and safe to share across threads.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds a registry from the given tools.
func NewRegistry(all ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(all))}
	for _, t := range all {
		r.tools[t.Name()] = t
		r.order = append(r.order, t.Name())
	}
	return r
}

// DefaultRegistry builds the full Saturn PM catalog over db.
func DefaultRegistry(db *sql.DB) *Registry {
	return NewRegistry(
		&GetProjectsTool{DB: db},
		&GetTasksTool{DB: db},
		&SearchTeamMembersTool{DB: db},
		&UpdateTaskStatusTool{DB: db},
		&CreateProjectTool{DB: db},
	)
}

// Lookup returns the named tool, or false when the planner referenced a tool
// that does not exist. Unknown names are a reportable condition, not a crash.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// IsRead reports whether name is a registered read tool.
func (r *Registry) IsRead(name string) bool {
	t, ok := r.tools[name]
	return ok && t.Mode() == ModeRead
}

// IsWrite reports whether name is a registered write tool.
func (r *Registry) IsWrite(name string) bool {
	t, ok := r.tools[name]
	return ok && t.Mode() == ModeWrite
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Manual renders the machine-readable tool manual embedded in the oracle
// prompt: one line per tool with signature, mode, and description.
func (r *Registry) Manual() string {
	lines := []string{"Available tools:"}
	for _, name := range r.order {
		t := r.tools[name]
		lines = append(lines, fmt.Sprintf("- %s%s [%s] - %s", t.Name(), t.Signature(), t.Mode(), t.Description()))
	}
	return strings.Join(lines, "\n")
}

// Execute validates args against the tool's JSON schema and invokes it.
// Validation failures and domain failures both come back as result text;
// only an unknown name returns ok=false.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (result string, mode Mode, ok bool) {
	t, found := r.Lookup(name)
	if !found {
		return "", "", false
	}

	if args == nil {
		args = map[string]any{}
	}

	if msg := validateArgs(t, args); msg != "" {
		return msg, t.Mode(), true
	}

	log.Info().Str("tool", name).Interface("args", args).Msg("Executing tool")
	return t.Invoke(ctx, args), t.Mode(), true
}

// validateArgs checks args against the tool schema, returning a descriptive
// sentence on violation and "" when valid.
func validateArgs(t Tool, args map[string]any) string {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("Invalid arguments for %s: %v", t.Name(), err)
	}

	res, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(t.Schema()),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return fmt.Sprintf("Invalid arguments for %s: %v", t.Name(), err)
	}
	if !res.Valid() {
		details := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			details = append(details, e.String())
		}
		return fmt.Sprintf("Invalid arguments for %s: %s", t.Name(), strings.Join(details, "; "))
	}
	return ""
}
