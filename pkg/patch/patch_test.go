package patch

import (
	"encoding/json"
	"testing"
)

type sample struct {
	Name  Field[string] `json:"name"`
	Count Field[int]    `json:"count"`
}

func TestField_UnmarshalPresentAbsentNull(t *testing.T) {
	var s sample
	if err := json.Unmarshal([]byte(`{"name":"x","count":null}`), &s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := s.Name.Get(); !ok || v != "x" {
		t.Errorf("expected name set to x, got %q (set=%v)", v, ok)
	}
	if s.Count.Set {
		t.Error("expected null count to be absent")
	}

	var empty sample
	if err := json.Unmarshal([]byte(`{}`), &empty); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty.Name.Set || empty.Count.Set {
		t.Error("expected missing keys to be absent")
	}
}

func TestField_ZeroValueIsPresent(t *testing.T) {
	var s sample
	if err := json.Unmarshal([]byte(`{"count":0,"name":""}`), &s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Count.Set || s.Count.Value != 0 {
		t.Error("expected explicit 0 to be present")
	}
	if !s.Name.Set {
		t.Error("expected explicit empty string to be present")
	}
}

func TestField_Apply(t *testing.T) {
	dst := "old"
	None[string]().Apply(&dst)
	if dst != "old" {
		t.Errorf("absent field must not change dst, got %q", dst)
	}
	Some("new").Apply(&dst)
	if dst != "new" {
		t.Errorf("expected new, got %q", dst)
	}
}

func TestField_Marshal(t *testing.T) {
	b, err := json.Marshal(sample{Name: Some("a")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != `{"name":"a","count":null}` {
		t.Errorf("unexpected json %s", b)
	}
}

func TestField_BadType(t *testing.T) {
	var s sample
	if err := json.Unmarshal([]byte(`{"count":"nope"}`), &s); err == nil {
		t.Error("expected type error")
	}
}
