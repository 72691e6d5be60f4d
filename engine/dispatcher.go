package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

// Dispatcher tries its engines in order until one succeeds. The engine that
// last worked for a domain is tried first on the next fetch there.
type Dispatcher struct {
	engines []Engine
	memory  *DomainMemory
}

// NewDispatcher creates a dispatcher. memory may be nil.
func NewDispatcher(engines []Engine, memory *DomainMemory) *Dispatcher {
	return &Dispatcher{engines: engines, memory: memory}
}

// Dispatch returns the first successful fetch, or the last engine error.
func (d *Dispatcher) Dispatch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	domain := extractDomain(req.URL)

	var lastErr error
	for _, eng := range d.order(domain) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slog.Debug("engine starting", "engine", eng.Name(), "url", req.URL)
		result, err := eng.Fetch(ctx, req)
		if err != nil {
			slog.Debug("engine failed", "engine", eng.Name(), "url", req.URL, "error", err)
			if d.memory != nil && d.memory.Get(domain) == eng.Name() {
				d.memory.Delete(domain)
			}
			lastErr = err
			continue
		}
		if d.memory != nil {
			d.memory.Set(domain, eng.Name())
		}
		slog.Debug("engine succeeded", "engine", eng.Name(), "url", req.URL)
		return result, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("dispatcher: no engine fetched %s", req.URL)
	}
	return nil, lastErr
}

// order puts the remembered engine for domain first.
func (d *Dispatcher) order(domain string) []Engine {
	if d.memory == nil {
		return d.engines
	}
	remembered := d.memory.Get(domain)
	if remembered == "" {
		return d.engines
	}
	out := make([]Engine, 0, len(d.engines))
	for _, eng := range d.engines {
		if eng.Name() == remembered {
			out = append(out, eng)
		}
	}
	for _, eng := range d.engines {
		if eng.Name() != remembered {
			out = append(out, eng)
		}
	}
	return out
}

func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
