package pprof

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	logx "barstatus/pkg/logx"
)

func waitForHTTP(ctx context.Context, url, token string) (int, error) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		reqCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, http.NoBody)
		if err != nil {
			cancel()
			return 0, err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		cancel()
		if err == nil && resp != nil {
			_ = resp.Body.Close()
			return resp.StatusCode, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}
	}
}

func TestApplyEnableDisable(t *testing.T) {
	svc := New(logx.NewWriter(io.Discard, "debug"))
	t.Cleanup(func() { svc.Stop(context.Background()) })
	prevMutex := runtime.SetMutexProfileFraction(-1)
	t.Cleanup(func() {
		_ = runtime.SetMutexProfileFraction(prevMutex)
		runtime.SetBlockProfileRate(0)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	cfg := Config{Enabled: true, Addr: "127.0.0.1:0", BlockProfileRate: 1, MutexProfileFraction: 7}
	if err := svc.Apply(ctx, cfg); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	addr := svc.Addr()
	if addr == "" {
		t.Fatal("expected pprof server to expose address")
	}
	code, err := waitForHTTP(ctx, "http://"+addr+"/debug/pprof/", "")
	if err != nil {
		t.Fatalf("pprof endpoint not reachable: %v", err)
	}
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if got := runtime.SetMutexProfileFraction(-1); got != cfg.MutexProfileFraction {
		t.Fatalf("mutex profile fraction = %d, want %d", got, cfg.MutexProfileFraction)
	}

	if err := svc.Apply(ctx, Config{Enabled: false}); err != nil {
		t.Fatalf("Apply disable: %v", err)
	}
	if addr := svc.Addr(); addr != "" {
		t.Fatalf("expected pprof server to stop, still at %s", addr)
	}
}

func TestTokenRequired(t *testing.T) {
	svc := New(logx.Nop())
	t.Cleanup(func() { svc.Stop(context.Background()) })
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := svc.Apply(ctx, Config{Enabled: true, Addr: "127.0.0.1:0", Token: "s3cret"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	url := "http://" + svc.Addr() + "/debug/pprof/"
	if code, err := waitForHTTP(ctx, url, ""); err != nil || code != http.StatusUnauthorized {
		t.Fatalf("without token: code=%d err=%v", code, err)
	}
	if code, err := waitForHTTP(ctx, url, "s3cret"); err != nil || code != http.StatusOK {
		t.Fatalf("with token: code=%d err=%v", code, err)
	}
}

func TestWithAuth(t *testing.T) {
	h := withAuth("s3cret", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	tests := []struct {
		name   string
		target string
		auth   string
		want   int
	}{
		{"query ok", "/debug/pprof/?token=s3cret", "", http.StatusOK},
		{"query wrong", "/debug/pprof/?token=s3creT", "", http.StatusUnauthorized},
		{"query prefix", "/debug/pprof/?token=s3c", "", http.StatusUnauthorized},
		{"bearer ok", "/debug/pprof/", "Bearer s3cret", http.StatusOK},
		{"bearer longer", "/debug/pprof/", "Bearer s3cret2", http.StatusUnauthorized},
		{"none", "/debug/pprof/", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.target, nil)
		if tt.auth != "" {
			req.Header.Set("Authorization", tt.auth)
		}
		rec := httptest.NewRecorder()
		h(rec, req)
		if rec.Code != tt.want {
			t.Fatalf("%s: code = %d, want %d", tt.name, rec.Code, tt.want)
		}
	}
}

func TestRefusesPublicBindWithoutToken(t *testing.T) {
	svc := New(logx.Nop())
	if err := svc.Apply(context.Background(), Config{Enabled: true, Addr: "0.0.0.0:0"}); err == nil {
		svc.Stop(context.Background())
		t.Fatal("expected refusal")
	}
	if svc.Addr() != "" {
		t.Fatal("server should not be running")
	}
}

func TestIsLoopbackAddr(t *testing.T) {
	tests := map[string]bool{
		"127.0.0.1:6060": true,
		"localhost:1":    true,
		"[::1]:80":       true,
		":6060":          false,
		"10.0.0.1:6060":  false,
		"garbage":        false,
	}
	for in, want := range tests {
		if got := isLoopbackAddr(in); got != want {
			t.Fatalf("isLoopbackAddr(%q) = %v, want %v", in, got, want)
		}
	}
}
