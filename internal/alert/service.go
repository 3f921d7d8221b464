package alert

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"barstatus/internal/observability/metrics"
	rtsup "barstatus/internal/runtime/supervisor"
	logx "barstatus/pkg/logx"
)

var (
	ErrDisabled  = errors.New("alert: disabled")
	ErrQueueFull = errors.New("alert: queue full")
	ErrStopped   = errors.New("alert: stopped")
)

// Sender delivers one alert.
type Sender interface {
	Send(ctx context.Context, a Alert) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, a Alert) error

func (f SenderFunc) Send(ctx context.Context, a Alert) error { return f(ctx, a) }

// Enqueuer is the producer side handed to features.
type Enqueuer interface {
	Enqueue(a Alert) error
}

type job struct {
	a        Alert
	dedupKey string
}

// Service implements the alert pipeline:
// queue + single worker + rate limit + retry + dedup.
//
// It is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log    logx.Logger
	sender Sender

	cfg     Config
	limiter *rate.Limiter

	accepting bool
	sendWG    sync.WaitGroup

	queue    chan job
	sup      *rtsup.Supervisor
	stopDone chan struct{} // non-nil while stopping

	// key -> suppress until
	dmu   sync.Mutex
	dedup map[string]time.Time

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, sender Sender, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		sender: sender,
		log:    log,
		dedup:  map[string]time.Time{},
	}
	s.cfg = withDefaults(cfg)
	// burst = rate, so a short spike of alerts isn't held back
	s.limiter = rate.NewLimiter(rate.Limit(s.cfg.RatePerSec), s.cfg.RatePerSec)
	return s
}

func withDefaults(cfg Config) Config {
	if cfg.AppName == "" {
		cfg.AppName = "barstatus"
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 32
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.DedupWindow < 0 {
		cfg.DedupWindow = 0
	}
	if cfg.DedupMaxEntries <= 0 {
		cfg.DedupMaxEntries = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return cfg
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	en := s.cfg.Enabled && s.sender != nil
	s.mu.Unlock()
	return en
}

// Start launches the worker. It is idempotent and a no-op when disabled.
func (s *Service) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.queue != nil || s.stopDone != nil || !s.cfg.Enabled || s.sender == nil {
		s.mu.Unlock()
		return
	}
	s.queue = make(chan job, s.cfg.QueueSize)
	s.accepting = true
	s.sup = rtsup.NewSupervisor(ctx,
		rtsup.WithLogger(s.log),
		// alerts are best-effort; a broken notification daemon must not stop the bar
		rtsup.WithCancelOnError(false),
	)
	sup := s.sup
	q := s.queue
	s.mu.Unlock()

	sup.Go0("alert.worker", func(c context.Context) { s.workerLoop(c, q) })
}

// Stop stops intake and drains the queue best-effort until ctx is done.
func (s *Service) Stop(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	q := s.queue
	sup := s.sup
	if q == nil {
		s.mu.Unlock()
		return
	}
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return
	}
	done := make(chan struct{})
	s.stopDone = done
	s.accepting = false
	s.mu.Unlock()

	go func() {
		defer close(done)
		// in-flight enqueues finish before the queue closes
		s.sendWG.Wait()
		close(q)
		_ = sup.Wait(context.Background())

		s.mu.Lock()
		s.queue = nil
		s.sup = nil
		s.stopDone = nil
		s.mu.Unlock()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		sup.Cancel()
	}
}

// Enqueue queues a for delivery without blocking. A duplicate inside the
// dedup window is dropped silently.
func (s *Service) Enqueue(a Alert) error {
	s.mu.Lock()
	if !s.cfg.Enabled || s.sender == nil {
		s.mu.Unlock()
		return ErrDisabled
	}
	if !s.accepting || s.queue == nil {
		s.mu.Unlock()
		return ErrStopped
	}
	q := s.queue
	window := s.cfg.DedupWindow
	max := s.cfg.DedupMaxEntries
	s.sendWG.Add(1)
	s.mu.Unlock()
	defer s.sendWG.Done()

	key := dedupKey(a)
	if window > 0 && !s.dedupAllow(key, window, max) {
		s.log.Debug("alert deduped", logx.String("summary", a.Summary))
		metrics.Alerts.WithLabelValues(metrics.AlertDeduped).Inc()
		return nil
	}

	select {
	case q <- job{a: a, dedupKey: key}:
		return nil
	default:
		s.log.Warn("alert dropped", logx.String("summary", a.Summary), logx.Err(ErrQueueFull))
		metrics.Alerts.WithLabelValues(metrics.AlertQueueFull).Inc()
		return ErrQueueFull
	}
}

// History returns recently delivered alerts, oldest first.
func (s *Service) History() []HistoryItem {
	s.hmu.Lock()
	out := append([]HistoryItem(nil), s.history...)
	s.hmu.Unlock()
	return out
}

func (s *Service) appendHistory(a Alert) {
	s.hmu.Lock()
	s.history = append(s.history, HistoryItem{At: time.Now(), Summary: a.Summary, Body: a.Body})
	if len(s.history) > 64 {
		s.history = s.history[len(s.history)-64:]
	}
	s.hmu.Unlock()
}

func (s *Service) workerLoop(ctx context.Context, q <-chan job) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-q:
			if !ok {
				return
			}
			s.sendWithRetry(ctx, j)
		}
	}
}

func (s *Service) sendWithRetry(ctx context.Context, j job) {
	s.mu.Lock()
	cfg := s.cfg
	lim := s.limiter
	sender := s.sender
	s.mu.Unlock()

	maxAttempts := 1 + cfg.RetryMax
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := lim.Wait(ctx); err != nil {
			return
		}
		callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		err := sender.Send(callCtx, j.a)
		cancel()
		if err == nil {
			s.appendHistory(j.a)
			metrics.Alerts.WithLabelValues(metrics.AlertSent).Inc()
			s.log.Debug("alert sent", logx.String("summary", j.a.Summary), logx.String("urgency", j.a.Urgency.String()))
			return
		}
		lastErr = err
		s.log.Debug("alert send failed", logx.Err(err), logx.Int("attempt", attempt), logx.Int("max", maxAttempts))
		if attempt >= maxAttempts {
			break
		}
		t := time.NewTimer(retryDelay(cfg, attempt))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return
		}
	}
	metrics.Alerts.WithLabelValues(metrics.AlertFailed).Inc()
	s.log.Warn("alert not delivered", logx.String("summary", j.a.Summary), logx.Err(lastErr))
}

func dedupKey(a Alert) string {
	h := fnv.New64a()
	if a.DedupKey != "" {
		_, _ = h.Write([]byte(a.DedupKey))
	} else {
		_, _ = h.Write([]byte(a.Summary))
		_, _ = h.Write([]byte("|"))
		_, _ = h.Write([]byte(a.Body))
	}
	return fmt.Sprintf("%x", h.Sum64())
}

func (s *Service) dedupAllow(key string, window time.Duration, max int) bool {
	now := time.Now()
	s.dmu.Lock()
	defer s.dmu.Unlock()

	if until, ok := s.dedup[key]; ok && now.Before(until) {
		return false
	}
	s.dedup[key] = now.Add(window)

	for k, until := range s.dedup {
		if !now.Before(until) {
			delete(s.dedup, k)
		}
	}
	// over the cap: evict earliest expiry first
	for len(s.dedup) > max {
		var (
			minKey string
			minT   time.Time
		)
		for k, t := range s.dedup {
			if minKey == "" || t.Before(minT) {
				minKey, minT = k, t
			}
		}
		delete(s.dedup, minKey)
	}
	return true
}

// retryDelay is the backoff before attempt+1: base * 2^(attempt-1), jittered.
func retryDelay(cfg Config, attempt int) time.Duration {
	d := cfg.RetryBase
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	j := 0.7 + rand.Float64()*0.6
	return time.Duration(float64(d) * j)
}
