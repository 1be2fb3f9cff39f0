package scheduler

import (
	"math/rand"
	"testing"
)

func TestConstantRoundRobin(t *testing.T) {
	s := NewConstant(4)
	var seq []int
	for i := 0; i < 8; i++ {
		seq = append(seq, s.NextID())
	}
	want := []int{0, 1, 2, 3, 0, 1, 2, 3}
	for i, v := range want {
		if seq[i] != v {
			t.Fatalf("seq[%d] = %d, want %d (full seq %v)", i, seq[i], v, seq)
		}
	}
}

func TestAdjustZeroRemovesFromSelection(t *testing.T) {
	s := NewIntegratedMerit(3)
	s.Adjust(0, 1)
	s.Adjust(1, 0)
	s.Adjust(2, 1)
	for i := 0; i < 10; i++ {
		id := s.NextID()
		if id == 1 {
			t.Fatalf("cell with merit 0 was selected")
		}
	}
}

func TestIntegratedMeritProportionalFrequency(t *testing.T) {
	s := NewIntegratedMerit(2)
	s.Adjust(0, 1)
	s.Adjust(1, 3)
	counts := map[int]int{}
	const n = 4000
	for i := 0; i < n; i++ {
		counts[s.NextID()]++
	}
	ratio := float64(counts[1]) / float64(counts[0])
	if ratio < 2.5 || ratio > 3.5 {
		t.Fatalf("cell1/cell0 ratio = %v, want ~3", ratio)
	}
}

func TestProbMeritDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := NewProbMerit(2, rng)
	s.Adjust(0, 1)
	s.Adjust(1, 1)
	counts := map[int]int{}
	const n = 20000
	for i := 0; i < n; i++ {
		counts[s.NextID()]++
	}
	ratio := float64(counts[0]) / float64(n)
	if ratio < 0.45 || ratio > 0.55 {
		t.Fatalf("cell0 empirical frequency = %v, want ~0.5", ratio)
	}
}

func TestEmptySchedulerYieldsNoCell(t *testing.T) {
	s := NewIntegratedMerit(2)
	if id := s.NextID(); id != -1 {
		t.Fatalf("NextID on all-zero scheduler = %d, want -1", id)
	}
}

func TestChangeHookFiresOnAdjust(t *testing.T) {
	s := NewConstant(3)
	var seen []int
	s.SetChangeHook(func(cellID int) { seen = append(seen, cellID) })
	s.Adjust(1, 5)
	s.Adjust(2, 0)
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("hook saw %v, want [1 2]", seen)
	}
}

func TestOKRejectsNegativeWeight(t *testing.T) {
	s := NewConstant(2)
	if !s.OK() {
		t.Fatal("fresh scheduler should be OK")
	}
	s.merit[1] = -1 // Adjust clamps negatives, so set the weight directly
	if s.OK() {
		t.Fatal("scheduler with a negative weight should not be OK")
	}
}
