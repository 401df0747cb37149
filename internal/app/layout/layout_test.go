package layout

import (
	"reflect"
	"testing"
)

func TestComputeFirstFit(t *testing.T) {
	got := Compute([]Widget{
		{TenantID: "a", Span: 4},
		{TenantID: "b", Span: 6},
		{TenantID: "c", Span: 4},
		{TenantID: "d", Span: 2},
	})
	want := []Placement{
		{TenantID: "a", Column: 0, Row: 0, Span: 4},
		{TenantID: "b", Column: 4, Row: 0, Span: 6},
		{TenantID: "c", Column: 0, Row: 1, Span: 4},
		{TenantID: "d", Column: 4, Row: 1, Span: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestComputeWideWidgetsWrap(t *testing.T) {
	got := Compute([]Widget{
		{TenantID: "a", Span: 8},
		{TenantID: "b", Span: 8},
	})
	want := []Placement{
		{TenantID: "a", Column: 0, Row: 0, Span: 8},
		{TenantID: "b", Column: 0, Row: 1, Span: 8},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestComputeFullSpanGetsOwnRow(t *testing.T) {
	got := Compute([]Widget{
		{TenantID: "a", Span: 4},
		{TenantID: "b", Span: 12},
		{TenantID: "c", Span: 4},
	})
	want := []Placement{
		{TenantID: "a", Column: 0, Row: 0, Span: 4},
		{TenantID: "b", Column: 0, Row: 1, Span: 12},
		{TenantID: "c", Column: 0, Row: 2, Span: 4},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestComputeClampsSpans(t *testing.T) {
	got := Compute([]Widget{
		{TenantID: "tiny", Span: 0},
		{TenantID: "huge", Span: 40},
		{TenantID: "neg", Span: -3},
	})
	if got[0].Span != 1 || got[1].Span != Columns || got[2].Span != 1 {
		t.Fatalf("spans not clamped: %+v", got)
	}
	if got[1].Column != 0 || got[1].Row != 1 {
		t.Fatalf("clamped full-width widget must start a new row: %+v", got[1])
	}
}

func TestComputeDeterministic(t *testing.T) {
	in := []Widget{{TenantID: "a", Span: 6}, {TenantID: "b", Span: 6}, {TenantID: "c", Span: 3}}
	first := Compute(in)
	for i := 0; i < 10; i++ {
		if !reflect.DeepEqual(Compute(in), first) {
			t.Fatal("placement must be a pure function of the input")
		}
	}
}

func TestComputeEmpty(t *testing.T) {
	if got := Compute(nil); len(got) != 0 {
		t.Fatalf("expected empty placement, got %+v", got)
	}
}
