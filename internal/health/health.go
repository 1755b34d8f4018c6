// Package health probes the gateway's external dependencies.
package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the probe outcome of a dependency.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDisabled  Status = "disabled"
)

const probeTimeout = 3 * time.Second

// Dependency describes one probe target. Either Probe or HealthURL is used;
// with neither the dependency reports as disabled.
type Dependency struct {
	Category  string // "store", "voice", "llm", "events"
	HealthURL string
	Probe     func(ctx context.Context) error
}

// Info is the reported state of a dependency.
type Info struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Status   Status `json:"status"`
	Error    string `json:"error,omitempty"`
}

// Registry holds the dependencies to probe.
type Registry struct {
	deps       map[string]Dependency
	httpClient *http.Client
}

// NewRegistry creates a registry from a map of dependencies.
func NewRegistry(deps map[string]Dependency) *Registry {
	return &Registry{
		deps:       deps,
		httpClient: &http.Client{Timeout: probeTimeout},
	}
}

// Names returns all registered dependency names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.deps))
	for k := range r.deps {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Status probes a single dependency.
func (r *Registry) Status(ctx context.Context, name string) Info {
	dep, ok := r.deps[name]
	if !ok {
		return Info{Name: name, Status: StatusDisabled, Error: "not registered"}
	}
	info := Info{Name: name, Category: dep.Category, Status: StatusHealthy}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var err error
	switch {
	case dep.Probe != nil:
		err = dep.Probe(ctx)
	case dep.HealthURL != "":
		err = r.probeHealth(ctx, dep.HealthURL)
	default:
		info.Status = StatusDisabled
		return info
	}
	if err != nil {
		info.Status = StatusUnhealthy
		info.Error = err.Error()
	}
	return info
}

// StatusAll probes every dependency concurrently; results are in name order.
func (r *Registry) StatusAll(ctx context.Context) []Info {
	names := r.Names()
	results := make([]Info, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			results[i] = r.Status(ctx, name)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Healthy reports whether no dependency is unhealthy.
func Healthy(infos []Info) bool {
	for _, in := range infos {
		if in.Status == StatusUnhealthy {
			return false
		}
	}
	return true
}

func (r *Registry) probeHealth(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}

type statusError struct{ code int }

func (e *statusError) Error() string {
	return "health endpoint returned " + http.StatusText(e.code)
}
