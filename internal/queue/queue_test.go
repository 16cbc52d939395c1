package queue

import "testing"

type node struct {
	v    int
	a, b Links[node]
}

func alinks(n *node) *Links[node] { return &n.a }
func blinks(n *node) *Links[node] { return &n.b }

func collect(l *List[node]) []int {
	var out []int
	for n := l.Head(); n != nil; n = l.Next(n) {
		out = append(out, n.v)
	}
	return out
}

func checkEnds(t *testing.T, l *List[node]) {
	t.Helper()
	if l.Head() == nil {
		if l.Tail() != nil {
			t.Fatalf("head nil but tail %v", l.Tail())
		}
		return
	}
	if l.Prev(l.Head()) != nil {
		t.Errorf("head has prev")
	}
	if l.Next(l.Tail()) != nil {
		t.Errorf("tail has next")
	}
}

func TestAddTakeFIFO(t *testing.T) {
	l := New(alinks)
	for i := 0; i < 5; i++ {
		l.AddTail(&node{v: i})
		checkEnds(t, &l)
	}
	for i := 0; i < 5; i++ {
		n := l.TakeHead()
		if n == nil || n.v != i {
			t.Fatalf("take %d = %v", i, n)
		}
		checkEnds(t, &l)
	}
	if l.TakeHead() != nil {
		t.Errorf("take from empty returned item")
	}
}

func TestAddHeadTakeTail(t *testing.T) {
	l := New(alinks)
	for i := 0; i < 3; i++ {
		l.AddHead(&node{v: i})
	}
	got := collect(&l)
	want := []int{2, 1, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if n := l.TakeTail(); n == nil || n.v != 0 {
		t.Errorf("TakeTail = %v, want 0", n)
	}
	checkEnds(t, &l)
}

func TestRemove(t *testing.T) {
	cases := []struct {
		name   string
		remove int
		want   []int
	}{
		{"head", 0, []int{1, 2}},
		{"middle", 1, []int{0, 2}},
		{"tail", 2, []int{0, 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := New(alinks)
			nodes := make([]*node, 3)
			for i := range nodes {
				nodes[i] = &node{v: i}
				l.AddTail(nodes[i])
			}
			l.Remove(nodes[tc.remove])
			checkEnds(t, &l)
			got := collect(&l)
			if len(got) != len(tc.want) {
				t.Fatalf("after remove: %v, want %v", got, tc.want)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("after remove: %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestRemoveSole(t *testing.T) {
	l := New(alinks)
	n := &node{v: 7}
	l.AddTail(n)
	l.Remove(n)
	if !l.Empty() {
		t.Errorf("list not empty after removing sole element")
	}
	checkEnds(t, &l)
}

func TestTwoQueuesSameItems(t *testing.T) {
	la := New(alinks)
	lb := New(blinks)
	nodes := make([]*node, 4)
	for i := range nodes {
		nodes[i] = &node{v: i}
		la.AddTail(nodes[i])
	}
	// Reverse order in the second queue; membership is independent.
	for i := len(nodes) - 1; i >= 0; i-- {
		lb.AddTail(nodes[i])
	}
	la.Remove(nodes[1])
	if got := collect(&lb); len(got) != 4 {
		t.Fatalf("b membership disturbed by a removal: %v", got)
	}
	if got := collect(&la); len(got) != 3 {
		t.Fatalf("a = %v after remove", got)
	}
}
