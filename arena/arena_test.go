package arena

import (
	"errors"
	"reflect"
	"testing"
)

func TestInsertGet(t *testing.T) {
	var a Arena[string]
	h := a.Insert("x")
	if h.IsZero() {
		t.Fatal("issued zero handle")
	}
	v, err := a.Get(h)
	if err != nil || *v != "x" {
		t.Fatalf("Get: got %v, %v", v, err)
	}
	if a.Len() != 1 {
		t.Errorf("Len: got %d, want 1", a.Len())
	}
}

func TestLIFOReuse(t *testing.T) {
	var a Arena[int]
	hs := []Handle{a.Insert(0), a.Insert(1), a.Insert(2), a.Insert(3)}

	if _, err := a.Remove(hs[1]); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Remove(hs[3]); err != nil {
		t.Fatal(err)
	}
	if got, want := a.FreeList(), []uint32{3, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("FreeList: got %v, want %v", got, want)
	}

	h := a.Insert(10)
	if h.Index != 3 {
		t.Errorf("reuse: got index %d, want 3 (most recently freed)", h.Index)
	}
	h = a.Insert(11)
	if h.Index != 1 {
		t.Errorf("reuse: got index %d, want 1", h.Index)
	}
	if h = a.Insert(12); h.Index != 4 {
		t.Errorf("append: got index %d, want 4", h.Index)
	}
}

func TestStaleHandle(t *testing.T) {
	var a Arena[int]
	h := a.Insert(5)
	if _, err := a.Remove(h); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Get(h); !errors.Is(err, ErrStale) {
		t.Errorf("Get after remove: got %v, want ErrStale", err)
	}

	h2 := a.Insert(6)
	if h2.Index != h.Index || h2.Gen == h.Gen {
		t.Errorf("reused entry should bump generation: old %v new %v", h, h2)
	}
	if _, err := a.Get(h); !errors.Is(err, ErrStale) {
		t.Errorf("old handle after reuse: got %v, want ErrStale", err)
	}
	if _, err := a.Remove(h); !errors.Is(err, ErrStale) {
		t.Errorf("double remove: got %v, want ErrStale", err)
	}
}

func TestInvalidHandle(t *testing.T) {
	var a Arena[int]
	if _, err := a.Get(Handle{}); !errors.Is(err, ErrInvalid) {
		t.Errorf("zero handle: got %v", err)
	}
	if _, err := a.Get(Handle{Index: 9, Gen: 1}); !errors.Is(err, ErrInvalid) {
		t.Errorf("out of range: got %v", err)
	}
}

func TestEachSkipsFree(t *testing.T) {
	var a Arena[int]
	a.Insert(0)
	h := a.Insert(1)
	a.Insert(2)
	a.Remove(h)

	var seen []int
	a.Each(func(_ Handle, v *int) { seen = append(seen, *v) })
	if !reflect.DeepEqual(seen, []int{0, 2}) {
		t.Errorf("Each: got %v", seen)
	}
	if _, _, ok := a.At(1); ok {
		t.Error("At on freed index reported live")
	}
}
