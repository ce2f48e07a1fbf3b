package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/bookshare/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookshare/internal/ledger"
)

type componentStatus struct {
	OK     bool   `json:"ok"`
	Mode   string `json:"mode,omitempty"`
	Impact string `json:"impact,omitempty"`
	Error  string `json:"error,omitempty"`
}

type feedStatus struct {
	Subscribers int   `json:"subscribers"`
	Dropped     int64 `json:"dropped"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
	Feed       feedStatus                 `json:"feed"`
	LastAudit  *ledger.AuditReport        `json:"last_audit,omitempty"`
}

// Infra exposes backend and audit state for operators. It never reveals
// connection strings or credentials.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"store":  checkStore(r.Context(), d),
			"ledger": ledgerStatus(d),
		}

		resp := infraResponse{
			Status:     "ok",
			Components: components,
			Feed: feedStatus{
				Subscribers: d.Feed.Subscribers(),
				Dropped:     d.Feed.Dropped(),
			},
		}
		if report, ok := d.Auditor.Last(); ok {
			resp.LastAudit = &report
			if !report.Healthy() {
				resp.Status = "degraded"
			}
		}
		if !components["store"].OK {
			resp.Status = "critical"
		}

		writeJSON(w, d.Logger, http.StatusOK, resp)
	}
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := d.Store.Ping(ctx); err != nil {
		return componentStatus{OK: false, Mode: d.StoreKind, Error: "unreachable"}
	}
	return componentStatus{OK: true, Mode: d.StoreKind}
}

func ledgerStatus(d deps.Deps) componentStatus {
	if d.Ledger.Conditional() {
		return componentStatus{OK: true, Mode: "conditional-writes", Impact: "safe-across-instances"}
	}
	return componentStatus{OK: true, Mode: "in-process-locking", Impact: "single-instance-only"}
}
