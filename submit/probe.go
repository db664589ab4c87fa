// ABOUTME: Advisory reachability probes for the Graph and login endpoints
// ABOUTME: Both run in parallel; failures are reported, never returned as errors
package submit

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// ProbeResult is the outcome of one reachability probe.
type ProbeResult struct {
	Name      string        `json:"name"`
	Endpoint  string        `json:"endpoint"`
	Reachable bool          `json:"reachable"`
	Status    int           `json:"status,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
	Error     string        `json:"error,omitempty"`
}

// Prober issues an unauthenticated GET and reports the status.
type Prober interface {
	Probe(ctx context.Context, target string) (int, error)
}

func (s *Service) probeTargets() []ProbeResult {
	return []ProbeResult{
		{Name: "graph", Endpoint: s.cfg.GraphEndpoint() + "/"},
		{Name: "login", Endpoint: s.cfg.AuthorityEndpoint() + "/v2.0/.well-known/openid-configuration"},
	}
}

// Probe checks both remote surfaces concurrently. Any HTTP response counts as reachable.
func (s *Service) Probe(ctx context.Context) []ProbeResult {
	results := s.probeTargets()

	g, gctx := errgroup.WithContext(ctx)
	for i := range results {
		g.Go(func() error {
			start := time.Now()
			status, err := s.api.Probe(gctx, results[i].Endpoint)
			results[i].Elapsed = time.Since(start)
			results[i].Status = status
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}
			results[i].Reachable = true
			return nil
		})
	}
	_ = g.Wait()

	return results
}
