package logger

import (
	"strings"
	"testing"
)

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"john.doe@example.com", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"not-an-email", "***@***"},
	}
	for _, tt := range tests {
		if got := RedactEmail(tt.in); got != tt.want {
			t.Errorf("RedactEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRedactPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+31 6 1234 5678", "***78"},
		{"(020) 555-0199", "***99"},
		{"x", "***"},
	}
	for _, tt := range tests {
		if got := RedactPhone(tt.in); got != tt.want {
			t.Errorf("RedactPhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRedactPIIValueInNotes(t *testing.T) {
	got := redactPIIValue("notes", "call back owner at +31 6 1234 5678 or mail jane.roe@example.com")
	if got == "call back owner at +31 6 1234 5678 or mail jane.roe@example.com" {
		t.Fatal("notes were not redacted")
	}
	for _, leaked := range []string{"1234 5678", "jane.roe@"} {
		if strings.Contains(got, leaked) {
			t.Errorf("redacted notes still contain %q: %s", leaked, got)
		}
	}
}
