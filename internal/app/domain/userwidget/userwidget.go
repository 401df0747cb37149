package userwidget

import "time"

// Widget is a dashboard widget created directly from a rendering prompt, with
// no backing app or data feed. The prompt is all the renderer gets; the
// markup is regenerated from it on edit and refresh.
type Widget struct {
	ID        string
	Title     string
	Prompt    string
	Markup    string
	CreatedAt time.Time
	UpdatedAt time.Time
	// Seq breaks CreatedAt ties so dashboard order stays total.
	Seq int64
}
