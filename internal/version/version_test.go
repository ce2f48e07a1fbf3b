package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	Version, Commit = "v1.2.3", "abc123"
	t.Cleanup(func() { Version, Commit = "dev", "none" })

	got := String()
	for _, want := range []string{"bookshare v1.2.3", "commit=abc123", "go=" + GoVersion} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
}
