package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://example.com", false},
		{"http://example.com/health?x=1", false},
		{"https://sub-domain.example.co.uk", false},
		{"https://api.example.com:8443/ready", false},
		{"http://localhost:8080/ok", false},
		{"http://127.0.0.1:9000", false},
		{"http://[::1]:9000/", false},
		{"example.com", true},
		{"ftp://example.com", true},
		{"https://", true},
		{"https://intranet", true},
		{"https://exa mple.com", true},
		{"https://123.456", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestParseHostList(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{
			name:  "single",
			input: "https://example.com",
			want:  []string{"https://example.com"},
		},
		{
			name:  "comma separated",
			input: "https://a.example.com,https://b.example.com",
			want:  []string{"https://a.example.com", "https://b.example.com"},
		},
		{
			name:  "whitespace and empty entries",
			input: " https://a.example.com , ,https://b.example.com,",
			want:  []string{"https://a.example.com", "https://b.example.com"},
		},
		{
			name:  "only whitespace",
			input: "   ",
			want:  nil,
		},
		{
			name:    "one invalid entry",
			input:   "https://a.example.com,not-a-url",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHostList(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHostList() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseHostList() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("ParseHostList()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReadHosts(t *testing.T) {
	input := `# production
https://a.example.com

https://b.example.com, https://c.example.com
   # indented comment
http://localhost:8080/ok
`
	got, err := ReadHosts(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadHosts() error = %v", err)
	}

	want := []string{
		"https://a.example.com",
		"https://b.example.com",
		"https://c.example.com",
		"http://localhost:8080/ok",
	}
	if len(got) != len(want) {
		t.Fatalf("ReadHosts() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ReadHosts()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReadHosts_InvalidLine(t *testing.T) {
	input := "https://a.example.com\n\nbogus\n"
	_, err := ReadHosts(strings.NewReader(input))
	if err == nil {
		t.Fatal("ReadHosts() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Errorf("ReadHosts() error = %v, want error naming line 3", err)
	}
}

func TestReadHostsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.txt")
	if err := os.WriteFile(path, []byte("https://a.example.com\nhttps://b.example.com\n"), 0o644); err != nil {
		t.Fatalf("failed to write hosts file: %v", err)
	}

	got, err := ReadHostsFile(path)
	if err != nil {
		t.Fatalf("ReadHostsFile() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len(ReadHostsFile()) = %d, want 2", len(got))
	}
}

func TestReadHostsFile_Missing(t *testing.T) {
	_, err := ReadHostsFile(filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Fatal("ReadHostsFile() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "failed to open hosts file") {
		t.Errorf("ReadHostsFile() error = %v, want open error", err)
	}
}

func TestMergeHosts(t *testing.T) {
	got := MergeHosts(
		[]string{"https://a.example.com", "https://b.example.com"},
		nil,
		[]string{"https://b.example.com", "https://c.example.com", "https://a.example.com"},
	)

	want := []string{"https://a.example.com", "https://b.example.com", "https://c.example.com"}
	if len(got) != len(want) {
		t.Fatalf("MergeHosts() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("MergeHosts()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMergeHosts_Empty(t *testing.T) {
	if got := MergeHosts(); len(got) != 0 {
		t.Errorf("MergeHosts() = %v, want empty", got)
	}
}
