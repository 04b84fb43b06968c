package log

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

type testLogger struct {
	entries []string
}

func (l *testLogger) Info(_ map[string]any, msg string)  { l.entries = append(l.entries, "INFO:"+msg) }
func (l *testLogger) Error(_ map[string]any, msg string) { l.entries = append(l.entries, "ERROR:"+msg) }
func (l *testLogger) Debug(_ map[string]any, msg string) { l.entries = append(l.entries, "DEBUG:"+msg) }
func (l *testLogger) Warn(_ map[string]any, msg string)  { l.entries = append(l.entries, "WARN:"+msg) }
func (l *testLogger) Panic(_ map[string]any, msg string) {}
func (l *testLogger) Fatal(_ map[string]any, msg string) {}

func TestZapLogger_Panics(t *testing.T) {
	Debug(map[string]any{"number": "5551234", "rules": 3}, "test debug")
	Info(nil, "test info")
	Warn(nil, "test warn")
	Error(map[string]any{"error": errors.New("boom")}, "test error")
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic, but none occurred")
		}
	}()
	Panic(nil, "test panic")
}

func TestSetLoggerAndGlobalLogging(t *testing.T) {
	orig := GetLogger()
	defer SetLogger(orig)
	tlog := &testLogger{}
	SetLogger(tlog)

	Info(nil, "info msg")
	Error(nil, "error msg")
	Debug(nil, "debug msg")
	Warn(nil, "warn msg")

	expected := []string{
		"INFO:info msg",
		"ERROR:error msg",
		"DEBUG:debug msg",
		"WARN:warn msg",
	}
	if len(tlog.entries) != len(expected) {
		t.Fatalf("expected %d entries, got %d", len(expected), len(tlog.entries))
	}
	for i, e := range expected {
		if tlog.entries[i] != e {
			t.Errorf("entry %d: expected %q, got %q", i, e, tlog.entries[i])
		}
	}
}

func TestNamed_NonZapReturnsGlobal(t *testing.T) {
	orig := GetLogger()
	defer SetLogger(orig)
	tlog := &testLogger{}
	SetLogger(tlog)

	if got := Named("ruleset"); got != tlog {
		t.Fatalf("Named should return the global logger when it is not zap backed")
	}
}

func TestNamed_ZapLogger(t *testing.T) {
	orig := GetLogger()
	defer SetLogger(orig)
	SetLogger(&zapLogger{base: zap.NewNop()})

	l := Named("auditlog")
	if _, ok := l.(*zapLogger); !ok {
		t.Fatalf("expected *zapLogger, got %T", l)
	}
	l.Info(map[string]any{"k": "v"}, "named info")
}

func TestOrGlobal(t *testing.T) {
	orig := GetLogger()
	defer SetLogger(orig)
	tlog := &testLogger{}
	SetLogger(tlog)

	if OrGlobal(nil) != tlog {
		t.Errorf("OrGlobal(nil) should return global")
	}
	other := NewNoopLogger()
	if OrGlobal(other) != other {
		t.Errorf("OrGlobal(l) should return l")
	}
}

func TestConfigure(t *testing.T) {
	orig := GetLogger()
	defer SetLogger(orig)

	cases := []struct {
		env, level string
		wantErr    bool
	}{
		{"dev", "debug", false},
		{"prod", "INFO", false},
		{"prod", " warn ", false},
		{"dev", "error", false},
		{"prod", "verbose", true},
	}
	for _, tc := range cases {
		err := Configure(tc.env, tc.level)
		if tc.wantErr && err == nil {
			t.Errorf("Configure(%q, %q) expected error", tc.env, tc.level)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("Configure(%q, %q) unexpected error: %v", tc.env, tc.level, err)
		}
	}
}

func TestZapFields_SortedAndErrors(t *testing.T) {
	fields := zapFields(map[string]any{"b": 2, "a": 1, "err": errors.New("x")})
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}
	want := []string{"a", "b", "err"}
	for i, f := range fields {
		if f.Key != want[i] {
			t.Errorf("field %d key = %q, want %q", i, f.Key, want[i])
		}
	}
	if zapFields(nil) != nil {
		t.Errorf("expected nil fields for nil map")
	}
}

func TestNoopLogger(t *testing.T) {
	l := NewNoopLogger()
	l.Info(nil, "x")
	l.Error(nil, "x")
	l.Debug(nil, "x")
	l.Warn(nil, "x")
	l.Panic(nil, "x")
	l.Fatal(nil, "x")
}
