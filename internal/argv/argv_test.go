package argv

import "testing"

func TestFinalize(t *testing.T) {
	var b Builder
	in := []string{"/usr/bin/ssh", "node-3", "prog", "arg with space", ""}
	for _, s := range in {
		b.AddString(s)
	}
	args, n := b.Finalize()
	if n != len(in) || len(args) != len(in) {
		t.Fatalf("Finalize returned %d args, want %d", n, len(in))
	}
	for i := range in {
		if args[i] != in[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], in[i])
		}
	}
}

func TestEmptyVector(t *testing.T) {
	var b Builder
	args, n := b.Finalize()
	if n != 0 || len(args) != 0 {
		t.Errorf("empty Finalize = %v, %d", args, n)
	}
}

func TestResetAfterFinalize(t *testing.T) {
	var b Builder
	b.AddString("one")
	first, _ := b.Finalize()
	b.AddString("two")
	second, n := b.Finalize()
	if n != 1 || second[0] != "two" {
		t.Fatalf("second vector = %v", second)
	}
	if first[0] != "one" {
		t.Errorf("first vector disturbed: %v", first)
	}
}
