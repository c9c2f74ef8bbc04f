package version

import (
	"strings"
	"testing"

	"refguard/internal/platform/testkit"
)

func TestInfo(t *testing.T) {
	bi := Info("refguard-check")
	if bi.Service != "refguard-check" || bi.Version == "" || bi.Commit == "" || bi.Date == "" {
		t.Fatalf("info = %+v", bi)
	}
	testkit.MustContain(t, bi.String(), "refguard-check ")
}

func TestUserAgent(t *testing.T) {
	testkit.Serial(t)
	testkit.Swap(t, &version, "v1.2.3")
	if got := UserAgent("refguard-check"); got != "refguard-check/v1.2.3" {
		t.Fatalf("UserAgent = %q", got)
	}
	if !strings.HasPrefix(Info("x").String(), "x v1.2.3 (") {
		t.Fatalf("String = %q", Info("x").String())
	}
}
