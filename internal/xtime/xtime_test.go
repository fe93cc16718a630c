package xtime

import (
	"testing"
	"time"
)

func TestAddSub(t *testing.T) {
	t0 := Unix(1_700_000_000, 0)
	d := Duration(5 * time.Second)

	t1 := t0.Add(d)
	if got := t1.Sub(t0); got != d {
		t.Errorf("t1.Sub(t0) = %v, want %v", got, d)
	}
	if !t1.After(t0) {
		t.Error("t1 should be after t0")
	}
	if !t0.Before(t1) {
		t.Error("t0 should be before t1")
	}
}

func TestCompare(t *testing.T) {
	t0 := Unix(0, 0)
	t1 := t0.Add(Duration(time.Nanosecond))

	if t0.Compare(t1) != -1 {
		t.Errorf("t0.Compare(t1) = %d, want -1", t0.Compare(t1))
	}
	if t1.Compare(t0) != 1 {
		t.Errorf("t1.Compare(t0) = %d, want 1", t1.Compare(t0))
	}
	if t0.Compare(t0) != 0 {
		t.Errorf("t0.Compare(t0) = %d, want 0", t0.Compare(t0))
	}
}

func TestEqual(t *testing.T) {
	t0 := FromTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	t1 := FromTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("UTC+0", 0)))
	if !t0.Equal(t1) {
		t.Error("expected timestamps built from equivalent instants to be equal")
	}
}

func TestYearsFraction(t *testing.T) {
	d := Duration(365*24*time.Hour + 6*time.Hour) // ~365.25 days
	got := d.YearsFraction()
	if got < 0.999 || got > 1.001 {
		t.Errorf("YearsFraction() = %v, want ~1.0", got)
	}
}

func TestZero(t *testing.T) {
	var ts Timestamp
	if !ts.IsZero() {
		t.Error("zero-value Timestamp should report IsZero")
	}
}
