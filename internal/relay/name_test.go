package relay

import "testing"

func TestExtractCallerName(t *testing.T) {
	tests := []struct {
		transcript string
		want       string
	}{
		{"Hi, my name is Jane", "Jane"},
		{"my name is Jane Doe", "Jane Doe"},
		{"This is Robert Smith Jr", "Robert Smith Jr"},
		{"Hello, this is Mary-Anne O'Brien", "Mary-Anne O'Brien"},
		{"I am Carlos", "Carlos"},
		{"it's Dana calling about the apartment", "Dana"},
		{"It's Dana", "Dana"},
		{"I'm Priya Patel", "Priya Patel"},
		{"this is a great apartment", ""},
		{"what is the rent", ""},
		{"", ""},
		{"my name is lowercase", ""},
	}
	for _, tt := range tests {
		if got := extractCallerName(tt.transcript); got != tt.want {
			t.Errorf("extractCallerName(%q) = %q, want %q", tt.transcript, got, tt.want)
		}
	}
}
