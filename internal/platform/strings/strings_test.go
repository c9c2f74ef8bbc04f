package strings

import (
	"testing"

	"refguard/internal/platform/testkit"
)

func TestIfEmpty(t *testing.T) {
	t.Parallel()

	if got := IfEmpty([]int{1, 2, 3}, []int{9}); len(got) != 3 || got[0] != 1 {
		t.Fatalf("IfEmpty returned wrong slice: %#v", got)
	}
	var empty []string
	if got := IfEmpty(empty, []string{"x"}); len(got) != 1 || got[0] != "x" {
		t.Fatalf("IfEmpty did not return default: %#v", got)
	}
}

func TestSplitTrim(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{" , ,", nil},
		{"https://a.example.com, https://b.example.com ,", []string{"https://a.example.com", "https://b.example.com"}},
		{"one", []string{"one"}},
	}
	for _, tc := range cases {
		got := SplitTrim(tc.in, ",")
		if len(got) != len(tc.want) {
			t.Fatalf("SplitTrim(%q) = %#v", tc.in, got)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("SplitTrim(%q)[%d] = %q", tc.in, i, got[i])
			}
		}
	}
}

func TestMustPrefix(t *testing.T) {
	t.Parallel()

	cases := map[string]string{"": "", "/": "", "api": "/api", "/api/": "/api", " /api/v1 ": "/api/v1"}
	for in, want := range cases {
		if got := MustPrefix(in); got != want {
			t.Fatalf("MustPrefix(%q) = %q, want %q", in, got, want)
		}
	}
	testkit.MustPanic(t, func() { MustPrefix("/api?x=1") })
}
