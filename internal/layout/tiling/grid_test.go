package tiling

import (
	"testing"

	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/geom"
)

func TestGridShape(t *testing.T) {
	tests := []struct{ n, rows, cols int }{
		{0, 0, 0}, {1, 1, 1}, {2, 1, 2}, {3, 2, 2}, {5, 2, 3}, {9, 3, 3}, {10, 3, 4},
	}
	for _, tt := range tests {
		if r, c := gridShape(tt.n); r != tt.rows || c != tt.cols {
			t.Errorf("gridShape(%d) = %dx%d, want %dx%d", tt.n, r, c, tt.rows, tt.cols)
		}
	}
}

func TestSlotsCentersCappedWindows(t *testing.T) {
	layout := &config.Layout{
		Mode:           config.LayoutModeFixed,
		FixedGrid:      config.FixedGrid{Rows: 1, Cols: 2},
		TileRegion:     config.TileRegion{Type: config.RegionFull},
		MaxWindowWidth: 50,
	}
	slots, err := Slots(geom.Rect{Width: 210, Height: 100}, 2, layout, 10)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	// cells are 90 wide at x=10 and x=110; a 50 wide window sits 20 in.
	want := []int{30, 130}
	for i, s := range slots {
		if s.X != want[i] || s.Width != 50 {
			t.Fatalf("slot %d = %+v, want x=%d width=50", i, s, want[i])
		}
	}
}

func TestSlotsFlexibleLastRowStretches(t *testing.T) {
	layout := &config.Layout{Mode: config.LayoutModeAuto, FlexibleLastRow: true}
	slots, err := Slots(geom.Rect{Width: 310, Height: 210}, 3, layout, 10)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("got %d slots", len(slots))
	}
	if slots[0].Width != 140 || slots[1].X != 160 {
		t.Fatalf("first row = %+v %+v", slots[0], slots[1])
	}
	if last := slots[2]; last.X != 10 || last.Width != 290 || last.Y != 110 {
		t.Fatalf("last row should span the width, got %+v", last)
	}
}

func TestSlotsFixedGridCapsCount(t *testing.T) {
	layout := &config.Layout{Mode: config.LayoutModeFixed, FixedGrid: config.FixedGrid{Rows: 1, Cols: 2}}
	slots, err := Slots(geom.Rect{Width: 400, Height: 200}, 5, layout, 0)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("fixed 1x2 grid should yield 2 slots, got %d", len(slots))
	}
}

func TestSlotsMasterStack(t *testing.T) {
	layout := &config.Layout{
		Mode:        config.LayoutModeMasterStack,
		MasterStack: config.MasterStack{MasterWidthPercent: 50, MaxStackRows: 2, MaxStackCols: 1},
	}
	slots, err := Slots(geom.Rect{Width: 400, Height: 200}, 4, layout, 0)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("stack capacity is 2, want 3 slots, got %d", len(slots))
	}
	if m := slots[0]; m != (geom.Rect{Width: 200, Height: 200}) {
		t.Fatalf("master = %+v", m)
	}
	if s := slots[2]; s != (geom.Rect{X: 200, Y: 100, Width: 200, Height: 100}) {
		t.Fatalf("second stack slot = %+v", s)
	}
}

func TestSlotsErrorsWhenInsufficientSpace(t *testing.T) {
	layout := &config.Layout{Mode: config.LayoutModeFixed, FixedGrid: config.FixedGrid{Rows: 1, Cols: 2}}
	if _, err := Slots(geom.Rect{Width: 20, Height: 10}, 2, layout, 20); err == nil {
		t.Fatalf("expected error for insufficient space")
	}
}

func TestRegion(t *testing.T) {
	area := geom.Rect{X: 100, Y: 0, Width: 1000, Height: 800}
	tests := []struct {
		region config.TileRegion
		want   geom.Rect
	}{
		{config.TileRegion{Type: config.RegionFull}, area},
		{config.TileRegion{Type: config.RegionRightHalf}, geom.Rect{X: 600, Width: 500, Height: 800}},
		{config.TileRegion{Type: config.RegionBottomHalf}, geom.Rect{X: 100, Y: 400, Width: 1000, Height: 400}},
		{config.TileRegion{Type: config.RegionCustom, XPercent: 10, YPercent: 25, WidthPercent: 50, HeightPercent: 50},
			geom.Rect{X: 200, Y: 200, Width: 500, Height: 400}},
		{config.TileRegion{Type: config.RegionCustom, WidthPercent: 0, HeightPercent: 0}, geom.Rect{X: 100, Width: 1, Height: 1}},
	}
	for _, tt := range tests {
		if got := Region(area, tt.region); got != tt.want {
			t.Errorf("Region(%s) = %+v, want %+v", tt.region.Type, got, tt.want)
		}
	}
}
