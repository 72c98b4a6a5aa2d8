package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutWideWidth is the minimum width to show extra record fields.
	LayoutWideWidth = 140
)

// Chrome heights around the main box: header, command bar, status line.
const (
	chromeHeight = 3
	boxBorders   = 2
)

// Timing constants.
const (
	// DefaultUIInterval is how often the explore store is re-read.
	DefaultUIInterval = time.Second

	// LiveRenderInterval is the minimum time between live view re-renders.
	LiveRenderInterval = 100 * time.Millisecond
)

// Timestamp layout for record rows.
const recordTimeLayout = "2006-01-02 15:04:05.000"
