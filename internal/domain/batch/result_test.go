package batch

import (
	"errors"
	"testing"
)

func TestNewOK(t *testing.T) {
	r := NewOK(2, "doc-1", []float32{0.1})
	if r.Index() != 2 {
		t.Errorf("Index() = %d", r.Index())
	}
	if r.ID() != "doc-1" {
		t.Errorf("ID() = %q", r.ID())
	}
	if r.Status() != StatusOK || !r.OK() {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusOK)
	}
	if len(r.Vector()) != 1 {
		t.Errorf("Vector() = %v", r.Vector())
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v, want nil", r.Err())
	}
}

func TestNewError(t *testing.T) {
	err := errors.New("something failed")
	r := NewError(1, err)
	if r.Index() != 1 {
		t.Errorf("Index() = %d", r.Index())
	}
	if r.Status() != StatusError || r.OK() {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusError)
	}
	if r.Vector() != nil {
		t.Errorf("Vector() = %v, want nil", r.Vector())
	}
	if !errors.Is(r.Err(), err) {
		t.Errorf("Err() = %v, want %v", r.Err(), err)
	}
}

func TestCount(t *testing.T) {
	results := []Result{
		NewOK(0, "a", nil),
		NewError(1, errors.New("x")),
		NewOK(2, "c", nil),
	}
	ok, failed := Count(results)
	if ok != 2 || failed != 1 {
		t.Errorf("Count = (%d, %d), want (2, 1)", ok, failed)
	}
}
