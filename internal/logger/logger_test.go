package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestOpenJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log, err := Open(FormatJSON, slog.LevelInfo, &buf, false)
	if err != nil {
		t.Fatal(err)
	}
	log.With("component", "train").Info("epoch done", "loss", 0.5)

	out := buf.String()
	for _, want := range []string{`"msg":"epoch done"`, `"component":"train"`, `"level":"INFO"`, `"loss":0.5`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output, got: %s", want, out)
		}
	}
}

func TestOpenUnknownFormat(t *testing.T) {
	t.Parallel()
	if _, err := Open("xml", slog.LevelInfo, &bytes.Buffer{}, false); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()
	for _, format := range []Format{FormatConsole, FormatText, FormatJSON} {
		var buf bytes.Buffer
		log, err := Open(format, slog.LevelWarn, &buf, false)
		if err != nil {
			t.Fatal(err)
		}
		log.Info("hidden")
		log.Debug("hidden too")
		if buf.Len() > 0 {
			t.Fatalf("%s: expected no output below warn, got: %s", format, buf.String())
		}
		log.Warn("shown")
		if !strings.Contains(buf.String(), "shown") {
			t.Fatalf("%s: expected warn message, got: %s", format, buf.String())
		}
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()
	log := Discard()
	log.Error("nobody hears this")
	log.With("k", "v").WithGroup("g").Info("or this")
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log, _ := Open(FormatText, slog.LevelInfo, &buf, false)
	FromContext(WithContext(context.Background(), log)).Info("via context")
	if !strings.Contains(buf.String(), "via context") {
		t.Fatalf("expected message via context logger, got: %s", buf.String())
	}
	if FromContext(context.Background()) == nil {
		t.Fatal("expected a default logger")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, tc := range tests {
		got, err := ParseLevel(tc.in)
		if err != nil || got != tc.want {
			t.Fatalf("ParseLevel(%q): expected %v, got %v %v", tc.in, tc.want, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestConsoleHandlerAttrs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := slog.New(NewConsoleHandler(&buf, slog.LevelInfo, false))
	log.With("service", "api").WithGroup("req").Info("served", "path", "/v1/predict", "note", "two words")

	out := buf.String()
	for _, want := range []string{"INFO ", "served", "service=api", "req.path=/v1/predict", `req.note="two words"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got: %s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Fatalf("expected no colour codes, got: %q", out)
	}
}

func TestConsoleHandlerNestedGroups(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := slog.New(NewConsoleHandler(&buf, slog.LevelInfo, false))
	log.WithGroup("a").WithGroup("b").Info("nested", "key", "val", slog.Group("g", "x", 1))

	out := buf.String()
	if !strings.Contains(out, "a.b.key=val") || !strings.Contains(out, "a.b.g.x=1") {
		t.Fatalf("expected nested keys, got: %s", out)
	}
}

func TestConsoleHandlerColor(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	h := NewConsoleHandler(&buf, slog.LevelInfo, true)
	slog.New(h).Error("boom")
	if !strings.Contains(buf.String(), ansiRed) {
		t.Fatalf("expected red level, got: %q", buf.String())
	}
	if h.WithGroup("") != slog.Handler(h) {
		t.Fatal("expected empty group to return the same handler")
	}
}
