package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks implements every hook interface by writing structured log lines.
// It is what the server registers when no metrics backend is configured.
type LogHooks struct {
	Logger *log.Logger
}

// NewLogHooks returns hooks that log through l.
func NewLogHooks(l *log.Logger) *LogHooks {
	return &LogHooks{Logger: l}
}

func (h *LogHooks) OnPlan(_ context.Context, w, ht int, dw, dh float64, col int) {
	h.Logger.Debug("layout planned", "image", [2]int{w, ht}, "display_width", dw, "display_height", dh, "table_column", col)
}

func (h *LogHooks) OnBuildStart(_ context.Context, rows int) {
	h.Logger.Debug("building workbook", "rows", rows)
}

func (h *LogHooks) OnBuildComplete(_ context.Context, rows, size int, d time.Duration, err error) {
	if err != nil {
		h.Logger.Error("workbook build failed", "rows", rows, "err", err)
		return
	}
	h.Logger.Info("workbook built", "rows", rows, "bytes", size, "took", d.Round(time.Millisecond))
}

func (h *LogHooks) OnDragStart(_ context.Context, id string) {
	h.Logger.Debug("drag started", "annotation", id)
}

func (h *LogHooks) OnCommit(_ context.Context, id string, d time.Duration, err error) {
	if err != nil {
		h.Logger.Warn("position commit failed", "annotation", id, "err", err)
		return
	}
	h.Logger.Debug("position committed", "annotation", id, "took", d.Round(time.Millisecond))
}

func (h *LogHooks) OnRollback(_ context.Context, id string) {
	h.Logger.Warn("marker rolled back", "annotation", id)
}

func (h *LogHooks) OnRequest(_ context.Context, method, route string) {
	h.Logger.Debug("request", "method", method, "route", route)
}

func (h *LogHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.Logger.Info("response", "method", method, "route", route, "status", status, "took", d.Round(time.Millisecond))
}

var (
	_ ExportHooks    = (*LogHooks)(nil)
	_ PlacementHooks = (*LogHooks)(nil)
	_ HTTPHooks      = (*LogHooks)(nil)
)
