package httpapi

import (
	"context"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"

	"assetdesk.org/internal/inventory"
	"assetdesk.org/internal/obs"
)

const serviceName = "assetdesk-api"

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the HTTP surface. Zero values fall back to defaults.
type Options struct {
	Version        string
	AuthRequired   bool
	AllowedOrigins []string
	LoginBurst     int
	LoginPerSecond float64
	// TrustedProxies lists the peers whose X-Forwarded-For is believed.
	TrustedProxies []netip.Prefix
}

// API is the HTTP layer over the inventory services.
type API struct {
	router       chi.Router
	svc          *inventory.Services
	store        Pinger
	tokens       TokenVerifier
	version      string
	authRequired bool
	origins      []string
	rateBurst    int
	ratePerSec   float64
	trusted      []netip.Prefix
}

// New builds the router. tokens may be nil, in which case every bearer token
// is rejected.
func New(svc *inventory.Services, store Pinger, tokens TokenVerifier, opts Options) *API {
	a := &API{
		svc:          svc,
		store:        store,
		tokens:       tokens,
		version:      opts.Version,
		authRequired: opts.AuthRequired,
		origins:      opts.AllowedOrigins,
		rateBurst:    opts.LoginBurst,
		ratePerSec:   opts.LoginPerSecond,
		trusted:      opts.TrustedProxies,
	}
	if a.rateBurst < 1 {
		a.rateBurst = 10
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 1
	}
	a.router = a.routes()
	return a
}

func (a *API) routes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/", a.Info)
	r.Get("/health", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	loginLimit := func(next http.Handler) http.Handler {
		return RateLimit(next, a.rateBurst, a.ratePerSec)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(a.withAuth)

		api.Route("/departments", resource[inventory.Department, inventory.DepartmentInput, inventory.DepartmentPatch]{
			name: "department", svc: a.svc.Departments,
		}.routes)

		api.Route("/users", func(u chi.Router) {
			u.With(loginLimit).Post("/login", a.handleLogin)
			resource[inventory.User, inventory.UserInput, inventory.UserPatch]{
				name: "user", svc: a.svc.Users,
			}.routes(u)
		})

		api.Route("/asset-categories", resource[inventory.AssetCategory, inventory.CategoryInput, inventory.CategoryPatch]{
			name: "asset_category", svc: a.svc.Categories,
		}.routes)

		api.Route("/locations", resource[inventory.Location, inventory.LocationInput, inventory.LocationPatch]{
			name: "location", svc: a.svc.Locations,
		}.routes)

		api.Route("/assets", func(as chi.Router) {
			as.Get("/category/{id}", listByID(a.svc.Assets.ListByCategory))
			as.Get("/department/{id}", listByID(a.svc.Assets.ListByDepartment))
			resource[inventory.Asset, inventory.AssetInput, inventory.AssetPatch]{
				name: "asset", svc: a.svc.Assets,
			}.routes(as)
		})

		api.Route("/asset-history", func(h chi.Router) {
			h.Get("/", func(w http.ResponseWriter, r *http.Request) { listPage(w, r, a.svc.History.List) })
			h.Get("/asset/{id}", listByID(a.svc.History.ListByAsset))
			h.Get("/{id}", getByID(a.svc.History.Get))
			h.Post("/", createFrom("asset_history", a.svc.History.Create))
		})

		api.Route("/reports", resource[inventory.Report, inventory.ReportInput, inventory.ReportPatch]{
			name: "report", svc: a.svc.Reports,
		}.routes)
	})
	return r
}

// Handler wraps the router with the request pipeline: request id, logging,
// metrics, security headers, CORS and the body cap.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router
	h = MaxBodyBytes(h, maxBodyBytes)
	h = CORS(a.origins)(h)
	h = SecurityHeaders(h)
	h = obs.Instrument(h)
	h = LoggingJSON(h)
	h = ClientIP(h, a.trusted)
	return RequestID(h)
}

// --- Handlers ---

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "IT Asset Management API",
		"service": serviceName,
		"version": a.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.checkReady(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) checkReady(ctx context.Context) error {
	if a.store == nil {
		obs.SetReady(true)
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := a.store.Ping(ctx); err != nil {
		obs.SetReady(false)
		return err
	}
	obs.SetReady(true)
	return nil
}
