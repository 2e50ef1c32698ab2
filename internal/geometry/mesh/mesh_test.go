package mesh

import (
	"errors"
	"testing"
)

func TestNewComputesBounds(t *testing.T) {
	points := []Point3D{{1, -2, 3}, {-4, 5, 0}, {2, 2, -6}}
	m, err := New(points, map[Color][]uint32{{255, 0, 0}: {0, 1, 2}}, Point3D{10, 20, 30})
	if err != nil {
		t.Fatal(err)
	}

	if want := (Point3D{-4, -2, -6}); m.Min != want {
		t.Errorf("Min = %v, want %v", m.Min, want)
	}
	if want := (Point3D{2, 5, 3}); m.Max != want {
		t.Errorf("Max = %v, want %v", m.Max, want)
	}
	if m.Offset != (Point3D{10, 20, 30}) {
		t.Errorf("Offset = %v", m.Offset)
	}
}

func TestNewRejectsOutOfRangeIndex(t *testing.T) {
	_, err := New([]Point3D{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, map[Color][]uint32{{}: {0, 1, 3}}, Point3D{})
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("err = %v, want ErrIndexOutOfRange", err)
	}
}

func TestNewWaterSurface(t *testing.T) {
	corners := [4]Point3D{{0, 0, 1}, {10, 0, 2}, {10, 10, 3}, {0, 10, 4}}
	m := NewWaterSurface(corners, Color{0, 0, 255})

	idx := m.Faces[Color{0, 0, 255}]
	want := []uint32{0, 1, 2, 2, 3, 0}
	if len(idx) != len(want) {
		t.Fatalf("faces = %v, want %v", idx, want)
	}
	for i := range want {
		if idx[i] != want[i] {
			t.Fatalf("faces = %v, want %v", idx, want)
		}
	}
	if m.Min != (Point3D{0, 0, 1}) || m.Max != (Point3D{10, 10, 4}) {
		t.Fatalf("bounds = %v..%v", m.Min, m.Max)
	}
}

func TestColorsSorted(t *testing.T) {
	m, err := New([]Point3D{{}}, map[Color][]uint32{
		{0, 0, 255}:   {0},
		{255, 0, 0}:   {0},
		{0, 255, 0}:   {0},
		{0, 0, 10}:    {0},
		{255, 0, 255}: {0},
	}, Point3D{})
	if err != nil {
		t.Fatal(err)
	}

	want := []Color{{0, 0, 10}, {0, 0, 255}, {0, 255, 0}, {255, 0, 0}, {255, 0, 255}}
	got := m.Colors()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Colors() = %v, want %v", got, want)
		}
	}
}

func TestEmpty(t *testing.T) {
	m, _ := New(nil, nil, Point3D{})
	if !m.Empty() {
		t.Fatal("mesh without points should be empty")
	}
	m, _ = New([]Point3D{{}}, map[Color][]uint32{{}: {}}, Point3D{})
	if !m.Empty() {
		t.Fatal("mesh with only empty groups should be empty")
	}
	if NewWaterSurface([4]Point3D{}, Color{}).Empty() {
		t.Fatal("water surface should not be empty")
	}
}
