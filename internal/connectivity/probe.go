package connectivity

import (
	"context"
	"net/http"
	"time"
)

// Prober feeds a Monitor by polling a reachability endpoint, the server-side
// analog of a browser's online/offline events. Any 2xx-4xx response counts as
// online: the backend answered, even if it rejected the request. Only
// transport failures and 5xx mean offline.
type Prober struct {
	monitor  *Monitor
	client   *http.Client
	url      string
	interval time.Duration
}

// NewProber creates a prober for the given URL. A zero interval defaults to
// 15 seconds.
func NewProber(monitor *Monitor, url string, interval time.Duration) *Prober {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Prober{
		monitor:  monitor,
		client:   &http.Client{Timeout: 5 * time.Second},
		url:      url,
		interval: interval,
	}
}

// Run polls until ctx is canceled. An immediate probe runs before the first
// tick so startup state settles quickly.
func (p *Prober) Run(ctx context.Context) {
	p.monitor.Set(!p.reachable(ctx))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.monitor.Set(!p.reachable(ctx))
		}
	}
}

func (p *Prober) reachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	return resp.StatusCode < 500
}
