package util

import "testing"

func TestSanitizePostgresText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain utf8",
			input: "hello world",
			want:  "hello world",
		},
		{
			name:  "contains null byte",
			input: "hel\x00lo",
			want:  "hello",
		},
		{
			name:  "contains invalid utf8",
			input: string([]byte{'a', 0xff, 'b'}),
			want:  "ab",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizePostgresText(tt.input)
			if got != tt.want {
				t.Fatalf("unexpected sanitized value: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsPostgresText(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"gene-1", true},
		{"", true},
		{"ge\x00ne", false},
		{string([]byte{'a', 0xff}), false},
	}
	for _, tt := range tests {
		if got := IsPostgresText(tt.input); got != tt.want {
			t.Fatalf("IsPostgresText(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
