// Package logging wires the migration tool's structured logging: a
// slog.Handler filter whose verbosity is fixed at startup from the
// WT_LOG directive string, plus the discard-by-default plumbing for
// optional loggers.
//
// Logging is dependency-injected, never global: main constructs one base
// logger and threads it through the driver, and no component calls
// slog.SetDefault. Each driver phase tags its records with a "component"
// attribute ("level", "playerdata", "advancements", "stats", "entities",
// "chunk", "poi", "raids", "saveddata", "maps"), and the filter compares
// every record against the minimum level configured for its component.
package logging

import (
	"context"
	"log/slog"
	"strings"
)

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Discard returns a logger that drops all output.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

// Default returns logger if non-nil, otherwise a discard logger. Use it
// for optional logger parameters.
func Default(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return Discard()
}

// DirectiveFilter wraps a handler and drops records below the minimum
// level configured for their component. Levels come from a WT_LOG-style
// directive string and are fixed for the lifetime of the process; the
// tool has no runtime reconfiguration surface, so the filter holds no
// locks and never mutates after construction.
//
// A directive string is a comma-separated list: a bare level name
// ("info", "debug", "warn", "error") sets the default, and a
// "component=level" pair overrides one component, e.g.
// "info,chunk=debug,raids=warn". Malformed entries and unknown level
// names are skipped rather than rejected, so a bad directive degrades
// verbosity instead of aborting a migration.
type DirectiveFilter struct {
	next         slog.Handler
	defaultLevel slog.Level
	levels       map[string]slog.Level

	// component is pre-resolved when WithAttrs carried a "component"
	// attribute, so Handle need not scan the record for loggers built
	// with Logger.With("component", ...).
	component string
}

// NewDirectiveFilter parses directives and returns the filtering handler
// in front of next.
func NewDirectiveFilter(next slog.Handler, directives string) *DirectiveFilter {
	defaultLevel, levels := parseDirectives(directives)
	return &DirectiveFilter{next: next, defaultLevel: defaultLevel, levels: levels}
}

// Enabled defers to Handle, where the record's component is known.
func (h *DirectiveFilter) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *DirectiveFilter) Handle(ctx context.Context, r slog.Record) error {
	component := h.component
	if component == "" {
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == "component" {
				if s, ok := a.Value.Resolve().Any().(string); ok {
					component = s
					return false
				}
			}
			return true
		})
	}

	if r.Level < h.Level(component) {
		return nil
	}
	if !h.next.Enabled(ctx, r.Level) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *DirectiveFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	out := *h
	out.next = h.next.WithAttrs(attrs)
	for _, a := range attrs {
		if a.Key == "component" {
			if s, ok := a.Value.Resolve().Any().(string); ok {
				out.component = s
			}
		}
	}
	return &out
}

func (h *DirectiveFilter) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	out := *h
	out.next = h.next.WithGroup(name)
	return &out
}

// Level reports the minimum level in effect for component; the empty
// component reports the default level.
func (h *DirectiveFilter) Level(component string) slog.Level {
	if level, ok := h.levels[component]; ok {
		return level
	}
	return h.defaultLevel
}

func parseDirectives(directives string) (slog.Level, map[string]slog.Level) {
	defaultLevel := slog.LevelInfo
	levels := make(map[string]slog.Level)

	for _, part := range strings.Split(directives, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		component, levelName, hasComponent := strings.Cut(part, "=")
		if !hasComponent {
			if level, ok := parseLevelName(component); ok {
				defaultLevel = level
			}
			continue
		}
		if component == "" {
			continue
		}
		if level, ok := parseLevelName(levelName); ok {
			levels[component] = level
		}
	}

	return defaultLevel, levels
}

func parseLevelName(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug", "trace":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}
