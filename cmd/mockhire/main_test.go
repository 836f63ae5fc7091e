package main

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestRow_MatchesBoxWidth(t *testing.T) {
	t.Parallel()
	border := "╔" + strings.Repeat("═", boxWidth) + "╗"
	title := "║" + center("MockHire startup summary", boxWidth) + "║"
	want := utf8.RuneCountInString(border)
	if got := utf8.RuneCountInString(title); got != want {
		t.Errorf("title width = %d, want %d", got, want)
	}

	tests := []struct {
		name, label, value string
	}{
		{"short", "Voice", "vapi"},
		{"empty", "Backend", ""},
		{"long", "Backend", "https://api.mockhire.example.com/v1"},
		{"multibyte", "Assistant", "Ünïcödé-assistant-ëëëëëëëëëë"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := row(tt.label, tt.value)
			if !utf8.ValidString(r) {
				t.Fatalf("row is not valid UTF-8: %q", r)
			}
			if got := utf8.RuneCountInString(r); got != want {
				t.Errorf("row %q width = %d, want %d", r, got, want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	if got := truncate("vapi", 21); got != "vapi" {
		t.Errorf("truncate short = %q", got)
	}
	got := truncate("äöüäöüäöü", 5)
	if got != "äöüä…" {
		t.Errorf("truncate multibyte = %q, want %q", got, "äöüä…")
	}
}
