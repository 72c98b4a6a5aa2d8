package ui

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
		{"  padded  ", 10, "padded"},
		{"ünïcödé strings", 8, "ünïcö..."},
		{"no limit", 0, "no limit"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.limit); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}

func TestTruncateMiddle(t *testing.T) {
	if got := truncateMiddle("http://127.0.0.1:10428", 11); got != "http:…10428" {
		t.Fatalf("truncateMiddle = %q", got)
	}
	if got := truncateMiddle("short", 10); got != "short" {
		t.Fatalf("truncateMiddle short = %q", got)
	}
}

func TestSingleLine(t *testing.T) {
	if got := singleLine("a\nb\r\nc\td"); got != "a ⏎ b ⏎ c  d" {
		t.Fatalf("singleLine = %q", got)
	}
	if got := singleLine("plain"); got != "plain" {
		t.Fatalf("singleLine plain = %q", got)
	}
}
