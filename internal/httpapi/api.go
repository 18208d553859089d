package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"authgate.org/internal/auth"
	"authgate.org/internal/obs"
	"authgate.org/internal/ratelimit"
)

// ReadyProbe reports whether downstream dependencies can serve traffic.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Route-override tiers. They supersede the global short tier for their
// route; medium and long still apply.
var (
	registerTiers = ratelimit.OverrideShort(ratelimit.Tier{Name: "register", Capacity: 3, Window: time.Hour})
	loginTiers    = ratelimit.OverrideShort(ratelimit.Tier{Name: "login", Capacity: 5, Window: 15 * time.Minute})
)

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	svc        *auth.Service
	limiter    ratelimit.Limiter
	readyProbe ReadyProbe
	version    string

	// coarse per-IP ingress guard, raised in tests
	rateBurst  int
	ratePerSec int
}

// Config wires the API dependencies.
type Config struct {
	Service    *auth.Service
	Limiter    ratelimit.Limiter
	ReadyProbe ReadyProbe
	Version    string
}

// New builds the route table. Auth and role requirements are declared
// here, per route, and nowhere else.
func New(cfg Config) *API {
	a := &API{
		mux:        http.NewServeMux(),
		svc:        cfg.Service,
		limiter:    cfg.Limiter,
		readyProbe: cfg.ReadyProbe,
		version:    cfg.Version,
		rateBurst:  50,
		ratePerSec: 25,
	}

	// health/ready/info/metrics
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	// public auth endpoints, throttled before anything else
	a.mux.Handle("/auth/register", a.throttle(registerTiers, http.HandlerFunc(a.handleRegister)))
	a.mux.Handle("/auth/login", a.throttle(loginTiers, http.HandlerFunc(a.handleLogin)))

	// authenticated endpoints: limiter first, then the access guard
	a.mux.Handle("/auth/profile", a.throttle(ratelimit.DefaultTiers, a.withAuth(http.HandlerFunc(a.handleProfile))))
	a.mux.Handle("/auth/logout", a.throttle(ratelimit.DefaultTiers, a.withAuth(http.HandlerFunc(a.handleLogout))))
	a.mux.Handle("/users", a.throttle(ratelimit.DefaultTiers, a.withAuth(a.requireRole(auth.RoleAdmin)(http.HandlerFunc(a.handleListUsers)))))
	a.mux.Handle("/users/", a.throttle(ratelimit.DefaultTiers, a.withAuth(http.HandlerFunc(a.handleGetUser))))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler composes the middleware chain around the route table.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	h = SecurityHeaders(h)
	h = CORS(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}
