package deps

import (
	"time"

	"github.com/MrSnakeDoc/bookshare/internal/catalog"
	"github.com/MrSnakeDoc/bookshare/internal/feed"
	"github.com/MrSnakeDoc/bookshare/internal/ledger"
	"github.com/MrSnakeDoc/bookshare/internal/logger"
	"github.com/MrSnakeDoc/bookshare/internal/scheduler"
)

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // for testing, defaults to time.Now
	AllowedCIDRS []string         // IPs allowed to access /infra and /reload
	TrustProxy   bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)

	Ledger       *ledger.Ledger     // donate/receive protocol
	Searcher     *catalog.Searcher  // in-stock search over the ledger
	Store        ledger.Pinger      // readiness probe of the ledger backend
	StoreKind    string             // "memory" | "redis" | "postgres"
	Feed         *feed.Hub          // live stock changes
	Auditor      *scheduler.Auditor // last audit report
	AuditTrigger chan struct{}      // channel to trigger a manual audit

	RateLimitPerMin int // donate/receive requests per client IP per minute
	RateLimitBurst  int
}
