// Package pprof serves net/http/pprof and /metrics on an opt-in debug
// listener.
package pprof

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	hpprof "net/http/pprof"
	"runtime"
	"strings"
	"sync"
	"time"

	"barstatus/internal/observability/metrics"
	rtsup "barstatus/internal/runtime/supervisor"
	logx "barstatus/pkg/logx"
)

const DefaultAddr = "127.0.0.1:6060"

// Config controls the optional pprof HTTP server.
//
// A non-loopback Addr is refused unless Token is set.
type Config struct {
	Enabled bool
	Addr    string
	Token   string

	MutexProfileFraction int
	BlockProfileRate     int
}

type Service struct {
	mu  sync.Mutex
	log logx.Logger
	cfg Config

	srv  *http.Server
	addr string
	sup  *rtsup.Supervisor
}

func New(log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{log: log.With(logx.String("comp", "pprof"))}
}

// Addr returns the bound listener address, or "" when stopped.
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Apply updates profiling rates and starts, stops or rebinds the server to
// match cfg. Safe to call on every settings reload.
func (s *Service) Apply(ctx context.Context, cfg Config) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = DefaultAddr
	}
	runtime.SetBlockProfileRate(cfg.BlockProfileRate)
	runtime.SetMutexProfileFraction(cfg.MutexProfileFraction)

	s.mu.Lock()
	prev := s.cfg
	running := s.srv != nil
	s.cfg = cfg
	s.mu.Unlock()

	if !cfg.Enabled {
		s.Stop(ctx)
		return nil
	}
	if running && prev.Addr == cfg.Addr && prev.Token == cfg.Token {
		return nil
	}
	s.Stop(ctx)
	return s.start(cfg)
}

func (s *Service) start(cfg Config) error {
	if cfg.Token == "" && !isLoopbackAddr(cfg.Addr) {
		s.log.Error("pprof refused to start: non-loopback addr requires a token", logx.String("addr", cfg.Addr))
		return errors.New("pprof: insecure bind refused")
	}
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		s.log.Warn("pprof listen failed", logx.String("addr", cfg.Addr), logx.Err(err))
		return err
	}

	wrap := func(h http.HandlerFunc) http.HandlerFunc { return withAuth(cfg.Token, h) }
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", wrap(hpprof.Index))
	mux.HandleFunc("/debug/pprof/cmdline", wrap(hpprof.Cmdline))
	mux.HandleFunc("/debug/pprof/profile", wrap(hpprof.Profile))
	mux.HandleFunc("/debug/pprof/symbol", wrap(hpprof.Symbol))
	mux.HandleFunc("/debug/pprof/trace", wrap(hpprof.Trace))
	mux.HandleFunc("/metrics", wrap(metrics.Handler().ServeHTTP))

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	sup := rtsup.NewSupervisor(context.Background(),
		rtsup.WithLogger(s.log),
		rtsup.WithCancelOnError(false),
	)

	s.mu.Lock()
	s.srv = srv
	s.addr = ln.Addr().String()
	s.sup = sup
	s.mu.Unlock()

	sup.Go("pprof.serve", func(ctx context.Context) error {
		err := srv.Serve(ln)
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	s.log.Info("pprof started", logx.String("addr", ln.Addr().String()), logx.Bool("token_set", cfg.Token != ""))
	return nil
}

// Stop shuts the server down, waiting at most until ctx is done.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	srv, sup := s.srv, s.sup
	s.srv, s.sup, s.addr = nil, nil, ""
	s.mu.Unlock()
	if srv == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
	}
	sup.Cancel()
	_ = sup.Wait(ctx)
	s.log.Info("pprof stopped")
}

// withAuth accepts "Authorization: Bearer <token>" or ?token=<token>.
func withAuth(token string, h http.HandlerFunc) http.HandlerFunc {
	tok := strings.TrimSpace(token)
	if tok == "" {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("token"); got != "" {
			if tokenEqual(got, tok) {
				h(w, r)
				return
			}
			unauthorized(w)
			return
		}
		const p = "Bearer "
		if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, p) && tokenEqual(strings.TrimSpace(strings.TrimPrefix(ah, p)), tok) {
			h(w, r)
			return
		}
		unauthorized(w)
	}
}

func tokenEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func isLoopbackAddr(addr string) bool {
	h, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	h = strings.TrimSpace(h)
	if h == "" {
		// all interfaces
		return false
	}
	if strings.EqualFold(h, "localhost") {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
