package resource

import (
	"math"
	"testing"
)

func TestGlobalResourceSteadyState(t *testing.T) {
	f, err := NewField(2, 2, []Def{{Name: "glucose", Inflow: 1.0, Outflow: 0.1}})
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	id, _ := f.IndexByName("glucose")
	for i := 0; i < 5000; i++ {
		f.Update(1)
	}
	got, _ := f.Get(id)
	want := 1.0 / 0.1 // inflow / (1-decay) == inflow/outflow
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("steady state level = %v, want ~%v", got, want)
	}
}

func TestGlobalResourceClampsNegative(t *testing.T) {
	f, _ := NewField(1, 1, []Def{{Name: "r", Inflow: 0, Outflow: 0}})
	id, _ := f.IndexByName("r")
	f.Set(id, 5)
	f.Modify(id, -100)
	got, _ := f.Get(id)
	if got != 0 {
		t.Fatalf("got %v, want 0", got)
	}
}

func TestModifyCellClampsPerCell(t *testing.T) {
	f, _ := NewField(2, 2, []Def{{Name: "r", Spatial: true}})
	id, _ := f.IndexByName("r")
	if err := f.ModifyCell(id, 10, 0); err != nil {
		t.Fatalf("ModifyCell: %v", err)
	}
	if err := f.ModifyCell(id, -100, 0); err != nil {
		t.Fatalf("ModifyCell: %v", err)
	}
	got, _ := f.GetCell(id, 0)
	if got != 0 {
		t.Fatalf("got %v, want 0", got)
	}
	other, _ := f.GetCell(id, 1)
	if other != 0 {
		t.Fatalf("untouched cell got %v, want 0", other)
	}
}

func TestModifyCellRejectsGlobalResource(t *testing.T) {
	f, _ := NewField(1, 1, []Def{{Name: "r"}})
	id, _ := f.IndexByName("r")
	if err := f.ModifyCell(id, 1, 0); err == nil {
		t.Fatal("expected error modifying a non-spatial resource by cell")
	}
}

func TestUnknownResourceID(t *testing.T) {
	f, _ := NewField(1, 1, nil)
	if _, err := f.Get(0); err == nil {
		t.Fatal("expected error for out-of-range resource id")
	}
}
