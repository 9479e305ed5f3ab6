package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestDiscard(t *testing.T) {
	logger := Discard()
	if logger == nil {
		t.Fatal("Discard returned nil")
	}
	// Must not panic, must not write anywhere.
	logger.Info("dropped", "key", "value")
	logger.Error("also dropped")
}

func TestDefault(t *testing.T) {
	if Default(nil) == nil {
		t.Fatal("Default(nil) should return a usable discard logger")
	}

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))
	if Default(base) != base {
		t.Fatal("Default should return the provided logger unchanged")
	}
}

func newTestFilter(directives string) (*slog.Logger, *bytes.Buffer, *DirectiveFilter) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	filter := NewDirectiveFilter(base, directives)
	return slog.New(filter), &buf, filter
}

func TestDirectiveFilterDefaultLevel(t *testing.T) {
	logger, buf, _ := newTestFilter("info")

	logger.Debug("quiet", "component", "chunk")
	if buf.Len() != 0 {
		t.Fatalf("debug record should be dropped at the info default: %s", buf)
	}

	logger.Info("loud", "component", "chunk")
	if !strings.Contains(buf.String(), "loud") {
		t.Fatalf("info record should pass at the info default: %s", buf)
	}
}

func TestDirectiveFilterComponentOverride(t *testing.T) {
	logger, buf, _ := newTestFilter("info,chunk=debug")

	logger.Debug("chunk detail", "component", "chunk")
	if !strings.Contains(buf.String(), "chunk detail") {
		t.Fatalf("chunk=debug should let chunk debug records through: %s", buf)
	}

	buf.Reset()
	logger.Debug("raids detail", "component", "raids")
	if buf.Len() != 0 {
		t.Fatalf("other components should stay at the default level: %s", buf)
	}
}

func TestDirectiveFilterRaisesComponentAboveDefault(t *testing.T) {
	logger, buf, _ := newTestFilter("debug,poi=error")

	logger.Info("poi progress", "component", "poi")
	if buf.Len() != 0 {
		t.Fatalf("poi=error should drop poi info records: %s", buf)
	}

	logger.Info("chunk progress", "component", "chunk")
	if !strings.Contains(buf.String(), "chunk progress") {
		t.Fatalf("unmentioned components should use the debug default: %s", buf)
	}
}

func TestDirectiveFilterWithAttrsComponent(t *testing.T) {
	logger, buf, _ := newTestFilter("info,chunk=debug")

	chunkLogger := logger.With("component", "chunk")
	chunkLogger.Debug("pre-tagged")
	if !strings.Contains(buf.String(), "pre-tagged") {
		t.Fatalf("With(component) loggers should resolve their override: %s", buf)
	}

	buf.Reset()
	raidsLogger := logger.With("component", "raids")
	raidsLogger.Debug("still quiet")
	if buf.Len() != 0 {
		t.Fatalf("With(component) must not leak another component's override: %s", buf)
	}
}

func TestDirectiveFilterNoComponentUsesDefault(t *testing.T) {
	logger, buf, _ := newTestFilter("warn")

	logger.Info("untagged info")
	if buf.Len() != 0 {
		t.Fatalf("untagged records should use the default level: %s", buf)
	}

	logger.Warn("untagged warn")
	if !strings.Contains(buf.String(), "untagged warn") {
		t.Fatalf("warn record should pass the warn default: %s", buf)
	}
}

func TestDirectiveFilterWithGroup(t *testing.T) {
	logger, buf, _ := newTestFilter("info")

	logger.WithGroup("phase").Info("grouped", "step", "one")
	if !strings.Contains(buf.String(), "grouped") {
		t.Fatalf("grouped records should still be handled: %s", buf)
	}
}

func TestDirectiveFilterLevelLookup(t *testing.T) {
	_, _, filter := newTestFilter("warn,chunk=debug,raids=error")

	if got := filter.Level("chunk"); got != slog.LevelDebug {
		t.Fatalf("Level(chunk) = %v, want debug", got)
	}
	if got := filter.Level("raids"); got != slog.LevelError {
		t.Fatalf("Level(raids) = %v, want error", got)
	}
	if got := filter.Level("saveddata"); got != slog.LevelWarn {
		t.Fatalf("Level(saveddata) = %v, want the warn default", got)
	}
	if got := filter.Level(""); got != slog.LevelWarn {
		t.Fatalf("Level(\"\") = %v, want the warn default", got)
	}
}

func TestDirectiveFilterMalformedDirectivesIgnored(t *testing.T) {
	_, _, filter := newTestFilter("info,chunk=bogus,=debug,banana")

	if got := filter.Level("chunk"); got != slog.LevelInfo {
		t.Fatalf("an unknown level name should be skipped, got %v", got)
	}
	if got := filter.Level(""); got != slog.LevelInfo {
		t.Fatalf("malformed entries should not disturb the default, got %v", got)
	}
}

func TestDirectiveFilterEmptyDirective(t *testing.T) {
	_, _, filter := newTestFilter("")

	if got := filter.Level(""); got != slog.LevelInfo {
		t.Fatalf("empty directive should default to info, got %v", got)
	}
}
