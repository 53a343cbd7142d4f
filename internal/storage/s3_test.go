package storage

import "testing"

func TestSnapshotKey(t *testing.T) {
	if got := SnapshotKey("g1", "abc"); got != "snapshots/g1/abc.json" {
		t.Fatalf("SnapshotKey() = %q", got)
	}
	if got := graphPrefix("g1"); got != "snapshots/g1/" {
		t.Fatalf("graphPrefix() = %q", got)
	}
}

func TestSplitPublicEndpoint(t *testing.T) {
	tests := []struct {
		in         string
		wantBase   string
		wantPrefix string
		wantErr    bool
	}{
		{"https://files.example.org", "https://files.example.org", "", false},
		{"https://example.org/s3/", "https://example.org", "/s3", false},
		{"http://localhost:9000/minio", "http://localhost:9000", "/minio", false},
		{"example.org", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			base, prefix, err := splitPublicEndpoint(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if base != tt.wantBase || prefix != tt.wantPrefix {
				t.Fatalf("got (%q, %q), want (%q, %q)", base, prefix, tt.wantBase, tt.wantPrefix)
			}
		})
	}
}
