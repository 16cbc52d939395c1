package template

import "testing"

func TestRewrite(t *testing.T) {
	cases := []struct {
		in   string
		job  string
		proc uint
		want string
	}{
		{"out-%j-%p.log", "run1", 0, "out-run1-0.log"},
		{"out-%j-%p.log", "run1", 1, "out-run1-1.log"},
		{"100%%-done", "x", 0, "100%-done"},
		{"plain", "job", 3, "plain"},
		{"", "job", 0, ""},
		{"%p%p", "job", 12, "1212"},
		{"%j", "", 0, ""},
		// Unknown escape: both bytes dropped, scan continues correctly.
		{"a%xb", "job", 0, "ab"},
		{"%x%p", "job", 5, "5"},
		// Trailing percent is silently accepted.
		{"tail%", "job", 0, "tail"},
	}
	for _, tc := range cases {
		if got := Rewrite(tc.in, tc.job, tc.proc); got != tc.want {
			t.Errorf("Rewrite(%q, %q, %d) = %q, want %q", tc.in, tc.job, tc.proc, got, tc.want)
		}
	}
}

func TestRewriteConcat(t *testing.T) {
	// Rewriting a concatenation equals concatenating rewrites when neither
	// side splits an escape.
	s1, s2 := "a-%p-", "%j.out"
	whole := Rewrite(s1+s2, "jb", 9)
	parts := Rewrite(s1, "jb", 9) + Rewrite(s2, "jb", 9)
	if whole != parts {
		t.Errorf("concat law violated: %q vs %q", whole, parts)
	}
}

func TestRewriteLargeIndex(t *testing.T) {
	if got := Rewrite("%p", "j", 4294967295); got != "4294967295" {
		t.Errorf("large index = %q", got)
	}
}
