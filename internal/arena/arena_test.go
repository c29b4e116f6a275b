package arena

import "testing"

func TestArenaAddGetStableRefs(t *testing.T) {
	a := New[int](0)
	r1 := a.Add(10)
	r2 := a.Add(20)
	if *a.Get(r1) != 10 || *a.Get(r2) != 20 {
		t.Fatalf("refs did not round-trip: %d %d", *a.Get(r1), *a.Get(r2))
	}
	*a.Get(r1) = 99
	if *a.Get(r1) != 99 {
		t.Fatal("mutation through ref did not persist")
	}
}

func TestArenaAll(t *testing.T) {
	a := New[string](0)
	a.Add("a")
	a.Add("b")
	seen := map[Ref]string{}
	a.All(func(r Ref, v *string) { seen[r] = *v })
	if len(seen) != 2 || seen[0] != "a" || seen[1] != "b" {
		t.Fatalf("unexpected iteration result: %v", seen)
	}
}

func TestPoolReuse(t *testing.T) {
	constructed := 0
	p := NewPool(func() *int {
		constructed++
		v := 0
		return &v
	}, func(v *int) { *v = -1 })

	a := p.Get()
	*a = 7
	p.Put(a)
	b := p.Get()
	if constructed != 1 {
		t.Fatalf("expected one construction, got %d", constructed)
	}
	if *b != -1 {
		t.Fatalf("expected reset value, got %d", *b)
	}
}
