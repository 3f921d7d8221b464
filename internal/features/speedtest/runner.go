package speedtest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	st "github.com/showwin/speedtest-go/speedtest"
	"golang.org/x/sync/errgroup"
)

// RunConfig controls a single measurement.
type RunConfig struct {
	// Candidate servers to ping, nearest first.
	ServerCount int
	// Lowest-latency servers that get a full download/upload test.
	FullTestServers int
	MaxConnections  int
	PingConcurrency int
}

// Runner measures throughput against speedtest.net servers.
type Runner struct {
	cfg RunConfig
}

func NewRunner(cfg RunConfig) *Runner {
	if cfg.ServerCount <= 0 {
		cfg.ServerCount = 3
	}
	if cfg.FullTestServers <= 0 {
		cfg.FullTestServers = 1
	}
	if cfg.FullTestServers > cfg.ServerCount {
		cfg.FullTestServers = cfg.ServerCount
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 4
	}
	if cfg.PingConcurrency <= 0 {
		cfg.PingConcurrency = 4
	}
	return &Runner{cfg: cfg}
}

// Fetch runs one measurement and returns averaged results.
func (r *Runner) Fetch(ctx context.Context) (Data, error) {
	if err := ctx.Err(); err != nil {
		return Data{}, err
	}
	cfg := r.cfg

	runCtx, cancel := context.WithCancel(ctx)
	ctx = runCtx

	hc, tr := newHTTPClient(cfg.MaxConnections)
	// speedtest-go keeps package-level state in its helpers; use a private client.
	stc := st.New(
		st.WithUserConfig(&st.UserConfig{MaxConnections: cfg.MaxConnections}),
		st.WithDoer(hc),
	)
	defer func() {
		cancel()
		stc.Snapshots().Clean()
		stc.Reset()
		tr.CloseIdleConnections()
	}()

	if _, err := stc.FetchUserInfoContext(ctx); err != nil {
		return Data{}, fmt.Errorf("fetch user info: %w", err)
	}
	servers, err := stc.FetchServerListContext(ctx)
	if err != nil {
		return Data{}, fmt.Errorf("fetch server list: %w", err)
	}
	if a := servers.Available(); a != nil {
		servers = *a
	}
	if len(servers) == 0 {
		return Data{}, errors.New("no servers available")
	}

	sort.Slice(servers, func(i, j int) bool { return servers[i].Distance < servers[j].Distance })
	candidates := servers[:min(cfg.ServerCount, len(servers))]

	pinged := r.pingCandidates(ctx, candidates)
	if len(pinged) == 0 {
		return Data{}, errors.New("all latency tests failed")
	}
	sort.Slice(pinged, func(i, j int) bool { return pinged[i].Latency < pinged[j].Latency })

	results := make([]serverResult, 0, cfg.FullTestServers)
	for _, s := range pinged[:min(cfg.FullTestServers, len(pinged))] {
		if err := ctx.Err(); err != nil {
			return Data{}, err
		}
		if err := s.DownloadTestContext(ctx); err != nil {
			continue
		}
		if err := s.UploadTestContext(ctx); err != nil {
			continue
		}
		results = append(results, serverResult{
			Download: s.DLSpeed.Mbps(),
			Upload:   s.ULSpeed.Mbps(),
			Ping:     s.Latency,
		})
		stc.Snapshots().Clean()
		stc.Reset()
	}
	if len(results) == 0 {
		return Data{}, errors.New("full test failed for all servers")
	}

	avg := average(results)
	return Data{
		Down:   avg.Download,
		Up:     avg.Upload,
		PingMs: float64(avg.Ping) / float64(time.Millisecond),
	}, nil
}

// pingCandidates pings servers with bounded concurrency and returns those
// that answered.
func (r *Runner) pingCandidates(ctx context.Context, servers []*st.Server) []*st.Server {
	var (
		mu     sync.Mutex
		pinged = make([]*st.Server, 0, len(servers))
		g      errgroup.Group
	)
	g.SetLimit(r.cfg.PingConcurrency)
	for _, s := range servers {
		s := s
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			// a failed ping only drops the candidate
			if err := s.PingTestContext(ctx, nil); err != nil || s.Latency <= 0 {
				return nil
			}
			mu.Lock()
			pinged = append(pinged, s)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return pinged
}

type serverResult struct {
	Download float64
	Upload   float64
	Ping     time.Duration
}

func average(results []serverResult) serverResult {
	if len(results) == 0 {
		return serverResult{}
	}
	var avg serverResult
	for _, r := range results {
		avg.Download += r.Download
		avg.Upload += r.Upload
		avg.Ping += r.Ping
	}
	n := len(results)
	avg.Download /= float64(n)
	avg.Upload /= float64(n)
	avg.Ping /= time.Duration(n)
	return avg
}

func newHTTPClient(perHost int) (*http.Client, *http.Transport) {
	if perHost < 2 {
		perHost = 2
	}
	d := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           d.DialContext,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   perHost,
		IdleConnTimeout:       10 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: tr}, tr
}
