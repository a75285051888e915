package config

// DefaultBuiltinLayout is the layout new workspaces tile with.
const DefaultBuiltinLayout = "grid"

// gridIn is an auto grid confined to region whose last row stretches to
// fill the leftover width.
func gridIn(region RegionType) Layout {
	return Layout{
		Mode:            LayoutModeAuto,
		TileRegion:      TileRegion{Type: region},
		FlexibleLastRow: true,
	}
}

func stacked(mode LayoutMode) Layout {
	return Layout{Mode: mode, TileRegion: TileRegion{Type: RegionFull}}
}

// BuiltinLayouts returns the layouts every config starts with. A layout of
// the same name under `layouts:` replaces the builtin.
func BuiltinLayouts() map[string]Layout {
	masterStack := stacked(LayoutModeMasterStack)
	masterStack.MasterStack = MasterStack{MasterWidthPercent: 40, MaxStackRows: 3, MaxStackCols: 2}

	return map[string]Layout{
		"grid":         gridIn(RegionFull),
		"half-left":    gridIn(RegionLeftHalf),
		"half-right":   gridIn(RegionRightHalf),
		"columns":      stacked(LayoutModeVertical),
		"rows":         stacked(LayoutModeHorizontal),
		"master-stack": masterStack,
	}
}
