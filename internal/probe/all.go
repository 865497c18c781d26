package probe

import (
	"context"
	"strings"
	"time"
)

// All is a composite prober. A round succeeds only if every member
// succeeds; it stops at the first failure and returns that result.
type All []Prober

func (a All) Target() string {
	targets := make([]string, 0, len(a))
	for _, p := range a {
		targets = append(targets, p.Target())
	}
	return strings.Join(targets, ", ")
}

func (a All) Probe(ctx context.Context) Result {
	res := newResult(a.Target())

	start := time.Now()
	for _, p := range a {
		r := p.Probe(ctx)
		if !r.OK {
			return r
		}
	}
	res.Latency = time.Since(start)
	res.OK = true
	return res
}

// Each runs every prober once without short-circuiting and returns
// the results in order.
func Each(ctx context.Context, probers []Prober) []Result {
	results := make([]Result, 0, len(probers))
	for _, p := range probers {
		results = append(results, p.Probe(ctx))
	}
	return results
}
