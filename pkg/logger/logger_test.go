package logger

import "testing"

func TestLogger_BasicLevels(t *testing.T) {
	l := New("debug")
	if l == nil {
		t.Fatalf("logger nil")
	}
	l.Debug("dbg", "k", 1)
	l.Info("info")
	l.Warn("warn")
	l.Error("err")
}

func TestLogger_With(t *testing.T) {
	l := New("info").With("request_id", "req-1")
	if l == nil {
		t.Fatalf("child logger nil")
	}
	l.Info("scoped message")
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Info("discarded")
}
