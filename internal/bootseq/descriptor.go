package bootseq

import "time"

// Kind distinguishes resident services gated on readiness probes from
// one-shot steps gated on clean exit.
type Kind string

const (
	KindProbed  Kind = "probed"
	KindOneShot Kind = "oneshot"
)

// Managed service names, matching the supervisord program names.
const (
	ServiceDB      = "db"
	ServiceMigrate = "migrate"
	ServiceCache   = "redis"
	ServiceWorker  = "worker"
	ServiceWeb     = "web"
)

// Descriptor is the immutable definition of one boot stage. The set is fixed
// at process start; only the optional cache stage's presence and per-stage
// timeouts are configurable.
type Descriptor struct {
	Name     string
	Priority int
	Kind     Kind
	Timeout  time.Duration
	Fatal    bool
}

// DefaultStages returns the fixed dependency order:
// db → migrate → cache (optional) → worker → web.
// The database budget is generous because first-boot initialization is slow.
func DefaultStages(cacheEnabled, cacheRequired bool, overrides map[string]time.Duration) []Descriptor {
	stages := []Descriptor{
		{Name: ServiceDB, Priority: 10, Kind: KindProbed, Timeout: 120 * time.Second, Fatal: true},
		{Name: ServiceMigrate, Priority: 20, Kind: KindOneShot, Timeout: 60 * time.Second, Fatal: true},
	}
	if cacheEnabled {
		stages = append(stages, Descriptor{
			Name: ServiceCache, Priority: 30, Kind: KindProbed, Timeout: 30 * time.Second, Fatal: cacheRequired,
		})
	}
	stages = append(stages,
		Descriptor{Name: ServiceWorker, Priority: 40, Kind: KindProbed, Timeout: 30 * time.Second, Fatal: true},
		Descriptor{Name: ServiceWeb, Priority: 50, Kind: KindProbed, Timeout: 30 * time.Second, Fatal: true},
	)

	for i := range stages {
		if timeout, ok := overrides[stages[i].Name]; ok {
			stages[i].Timeout = timeout
		}
	}
	return stages
}
