package tiling

import (
	"fmt"
	"math"

	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/geom"
)

// gridShape is the near-square grid for n windows: ceil(sqrt(n)) columns
// and as many rows as that needs.
func gridShape(n int) (rows, cols int) {
	if n <= 0 {
		return 0, 0
	}
	cols = int(math.Ceil(math.Sqrt(float64(n))))
	return ceilDiv(n, cols), cols
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Slots returns one output-local rectangle per tiled window, in tiling
// order. Fixed and master-stack layouts may return fewer slots than n
// when their capacity runs out; the caller stacks the rest on the last slot.
func Slots(area geom.Rect, n int, layout *config.Layout, gap int) ([]geom.Rect, error) {
	if n == 0 {
		return nil, nil
	}

	flexible := false
	var rows, cols int
	switch layout.Mode {
	case config.LayoutModeAuto:
		rows, cols = gridShape(n)
		flexible = layout.FlexibleLastRow
	case config.LayoutModeFixed:
		rows, cols = layout.FixedGrid.Rows, layout.FixedGrid.Cols
		n = min(n, rows*cols)
	case config.LayoutModeVertical:
		rows, cols = n, 1
	case config.LayoutModeHorizontal:
		rows, cols = 1, n
	case config.LayoutModeMasterStack:
		return masterStackSlots(area, n, layout.MasterStack, gap)
	default:
		return nil, fmt.Errorf("unsupported layout mode: %q", layout.Mode)
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid grid dimensions: rows=%d cols=%d", rows, cols)
	}
	return gridSlots(area, n, rows, cols, flexible, layout, gap)
}

// gridSlots lays n windows row-major into a rows x cols grid. With
// flexible set, a short last row stretches across the full width.
// Windows capped by MaxWindowWidth/Height are centered in their cell.
func gridSlots(area geom.Rect, n, rows, cols int, flexible bool, layout *config.Layout, gap int) ([]geom.Rect, error) {
	cell := geom.Size{
		W: (area.Width - (cols+1)*gap) / cols,
		H: (area.Height - (rows+1)*gap) / rows,
	}
	if cell.W <= 0 || cell.H <= 0 {
		return nil, fmt.Errorf("insufficient space for layout: area=%dx%d rows=%d cols=%d gap=%d (slot=%dx%d)",
			area.Width, area.Height, rows, cols, gap, cell.W, cell.H)
	}

	last := rows - 1
	lastCount := n - last*cols
	lastCell := cell
	stretch := flexible && lastCount > 0 && lastCount < cols
	if stretch {
		lastCell.W = (area.Width - (lastCount+1)*gap) / lastCount
	}

	slots := make([]geom.Rect, n)
	for i := range slots {
		row, col, c := i/cols, i%cols, cell
		if stretch && row == last {
			col, c = i-last*cols, lastCell
		}
		cellRect := geom.Rect{
			X:      area.X + gap + col*(c.W+gap),
			Y:      area.Y + gap + row*(cell.H+gap),
			Width:  c.W,
			Height: c.H,
		}
		slots[i] = capSize(cellRect, layout.MaxWindowWidth, layout.MaxWindowHeight)
	}
	return slots, nil
}

// capSize shrinks r to at most maxW x maxH (zero means unlimited) and
// keeps it centered in the original cell.
func capSize(r geom.Rect, maxW, maxH int) geom.Rect {
	size := r.Size()
	if maxW > 0 {
		size.W = min(size.W, maxW)
	}
	if maxH > 0 {
		size.H = min(size.H, maxH)
	}
	return r.Center(size)
}

// masterStackSlots puts the first window in a master column of fixed
// percentage width and grids the rest to its right.
func masterStackSlots(area geom.Rect, n int, ms config.MasterStack, gap int) ([]geom.Rect, error) {
	masterW := area.Width*ms.MasterWidthPercent/100 - gap
	height := area.Height - 2*gap
	master := geom.Rect{X: area.X + gap, Y: area.Y + gap, Width: masterW, Height: height}
	if n == 1 {
		return []geom.Rect{master}, nil
	}

	stack := n - 1
	cols := max(min(ceilDiv(stack, ms.MaxStackRows), ms.MaxStackCols), 1)
	rows := min(ceilDiv(stack, cols), ms.MaxStackRows)
	stack = min(stack, rows*cols)

	stackX := area.X + masterW + 2*gap
	stackW := area.Width - masterW - 3*gap
	cellW := (stackW - (cols-1)*gap) / cols
	cellH := (height - (rows-1)*gap) / rows
	if masterW <= 0 || cellW <= 0 || cellH <= 0 {
		return nil, fmt.Errorf("insufficient space for master-stack layout: area=%dx%d masterWidth=%d cellWidth=%d cellHeight=%d gap=%d",
			area.Width, area.Height, masterW, cellW, cellH, gap)
	}

	slots := make([]geom.Rect, 0, stack+1)
	slots = append(slots, master)
	for i := range stack {
		slots = append(slots, geom.Rect{
			X:      stackX + (i%cols)*(cellW+gap),
			Y:      area.Y + gap + (i/cols)*(cellH+gap),
			Width:  cellW,
			Height: cellH,
		})
	}
	return slots, nil
}

// Region returns the part of area a tile region allows, never smaller
// than 1x1.
func Region(area geom.Rect, region config.TileRegion) geom.Rect {
	r := area
	halfW, halfH := area.Width/2, area.Height/2
	switch region.Type {
	case config.RegionLeftHalf:
		r.Width = halfW
	case config.RegionRightHalf:
		r.X, r.Width = area.X+halfW, halfW
	case config.RegionTopHalf:
		r.Height = halfH
	case config.RegionBottomHalf:
		r.Y, r.Height = area.Y+halfH, halfH
	case config.RegionCustom:
		r = geom.Rect{
			X:      area.X + area.Width*region.XPercent/100,
			Y:      area.Y + area.Height*region.YPercent/100,
			Width:  area.Width * region.WidthPercent / 100,
			Height: area.Height * region.HeightPercent / 100,
		}
	}
	r.Width = max(r.Width, 1)
	r.Height = max(r.Height, 1)
	return r
}
