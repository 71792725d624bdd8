package handler

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/infrastructure/metrics"
)

type RouterConfig struct {
	EnableCORS bool
	// RateLimit is requests per second per client address, 0 disables limiting.
	RateLimit float64
	RateBurst int
	// TrustedProxies lists the addresses or CIDR ranges whose X-Forwarded-For header is
	// used to find the client address. Any other peer is limited by its own address.
	TrustedProxies []string
	SwaggerURL     string
}

// RegisterRoutes mounts the session endpoints on the /api/v1 subrouter.
func (h *BookingHandler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/sessions", h.CreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", h.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", h.DeleteSession).Methods(http.MethodDelete)

	api.HandleFunc("/sessions/{id}/search", h.UpdateSearch).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/search", h.CheckAvailability).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/search", h.ResetAvailability).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/rooms", h.ListRooms).Methods(http.MethodGet)

	api.HandleFunc("/sessions/{id}/room", h.SelectRoom).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/guest", h.UpdateGuest).Methods(http.MethodPatch)
	api.HandleFunc("/sessions/{id}/preferences", h.UpdatePreferences).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/step", h.ChangeStep).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/booking", h.SubmitBooking).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/booking/cancel", h.CancelReservation).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/booking", h.ResetFlow).Methods(http.MethodDelete)

	api.HandleFunc("/sessions/{id}/payment", h.UpdatePayment).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/payment", h.ProcessPayment).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/payment/status", h.GetPaymentStatus).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/payment", h.ResetCheckout).Methods(http.MethodDelete)

	api.HandleFunc("/sessions/{id}/errors", h.ClearErrors).Methods(http.MethodDelete)
}

func NewRouter(h *BookingHandler, m *metrics.Metrics, cfg RouterConfig, logger *slog.Logger) *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api/v1").Subrouter()
	h.RegisterRoutes(api)

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	swaggerURL := cfg.SwaggerURL
	if swaggerURL == "" {
		swaggerURL = "/swagger/doc.json"
	}
	router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(httpSwagger.URL(swaggerURL)))

	router.Use(recoveryMiddleware(m, logger))
	if cfg.RateLimit > 0 {
		limiter := newRateLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
		router.Use(rateLimitMiddleware(limiter, parseTrustedProxies(cfg.TrustedProxies, logger)))
	}
	router.Use(loggingMiddleware(m, logger))
	if cfg.EnableCORS {
		// Preflight requests need a matching route for the middleware chain to run.
		router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
		router.Use(corsMiddleware)
	}

	return router
}

func PrintRoutes(router *mux.Router, logger *slog.Logger) {
	fmt.Println("API Routes Overview")
	fmt.Println("═══════════════════════════════════════════════════════════════")

	var routes []string

	err := router.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"ALL"}
		}

		routeDesc := fmt.Sprintf("  %-8s %s", strings.Join(methods, ", "), pathTemplate)

		switch {
		case strings.Contains(pathTemplate, "/health"):
			routeDesc += " - Health check endpoint"
		case strings.Contains(pathTemplate, "/metrics"):
			routeDesc += " - Prometheus metrics"
		case strings.Contains(pathTemplate, "/swagger"):
			routeDesc += " - API documentation (Swagger UI)"
		case strings.Contains(pathTemplate, "/search"), strings.Contains(pathTemplate, "/rooms"):
			routeDesc += " - Availability search"
		case strings.Contains(pathTemplate, "/payment"):
			routeDesc += " - Checkout"
		case strings.Contains(pathTemplate, "/sessions/{id}/"):
			routeDesc += " - Booking flow"
		case strings.Contains(pathTemplate, "/sessions"):
			routeDesc += " - Booking session"
		default:
			routeDesc += " - API endpoint"
		}

		routes = append(routes, routeDesc)
		return nil
	})

	if err != nil {
		logger.Error("Error walking routes", "error", err)
		return
	}

	for _, route := range routes {
		fmt.Println(route)
	}

	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Printf("Total registered routes: %d\n", len(routes))
	fmt.Println("Visit /swagger/ for interactive API documentation")
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if template, err := route.GetPathTemplate(); err == nil {
			return template
		}
	}
	return "unmatched"
}

func loggingMiddleware(m *metrics.Metrics, logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			m.ObserveHTTPRequest(r.Method, routeTemplate(r), wrapped.statusCode, duration)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"status_code", wrapped.statusCode,
				"duration", duration,
			)
		})
	}
}

func recoveryMiddleware(m *metrics.Metrics, logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					if recovered == http.ErrAbortHandler {
						panic(recovered)
					}
					m.PanicRecovered()
					logger.Error("Recovered from panic", "path", r.URL.Path, "panic", recovered)

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"success":false,"error":"internal server error"}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIdleTTL is how long a client's limiter is kept after its last request.
const clientIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per client. Buckets idle for idleTTL are swept on
// the first request after each idleTTL period.
type rateLimiter struct {
	clients   map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
	mu        sync.Mutex
}

func newRateLimiter(limit rate.Limit, burst int) *rateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{
		clients:   make(map[string]*clientLimiter),
		limit:     limit,
		burst:     burst,
		idleTTL:   clientIdleTTL,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (rl *rateLimiter) allow(clientID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.idleTTL {
		for id, client := range rl.clients {
			if now.Sub(client.lastSeen) >= rl.idleTTL {
				delete(rl.clients, id)
			}
		}
		rl.lastSweep = now
	}

	client, exists := rl.clients[clientID]
	if !exists {
		client = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[clientID] = client
	}
	client.lastSeen = now

	return client.limiter.AllowN(now, 1)
}

// parseTrustedProxies accepts plain addresses and CIDR ranges. Invalid entries are logged
// and skipped.
func parseTrustedProxies(entries []string, logger *slog.Logger) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}
		logger.Warn("Ignoring invalid trusted proxy", "entry", entry)
	}
	return prefixes
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	addr = addr.Unmap()
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// clientAddress is the peer address unless the peer is a trusted proxy. Then the
// X-Forwarded-For hops are read from the right and the first untrusted hop is the client.
func clientAddress(r *http.Request, trusted []netip.Prefix) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	peer, err := netip.ParseAddr(host)
	if err != nil || !isTrusted(peer, trusted) {
		return host
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	client := host
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		addr, err := netip.ParseAddr(hop)
		if err != nil {
			break
		}
		client = addr.Unmap().String()
		if !isTrusted(addr, trusted) {
			break
		}
	}
	return client
}

func rateLimitMiddleware(limiter *rateLimiter, trusted []netip.Prefix) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.allow(clientAddress(r, trusted)) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"success":false,"error":"rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
