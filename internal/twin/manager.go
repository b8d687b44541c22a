// Package twin manages lightweight behavioral stand-in environments that
// scenarios execute against. Each provisioned environment is an isolated
// namespace holding API-compatible clones of the services under test.
//
// State lives in an explicitly constructed Manager owned by the hosting
// process; there are no package-level registries.
package twin

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Status represents a twin instance's lifecycle state.
type Status string

const (
	StatusProvisioning Status = "provisioning"
	StatusReady        Status = "ready"
	StatusFailed       Status = "failed"
	StatusTerminated   Status = "terminated"
)

// CatalogEntry describes one service the manager knows how to clone.
type CatalogEntry struct {
	Port int
}

// DefaultCatalog lists the services with registered twin images.
func DefaultCatalog() map[string]CatalogEntry {
	return map[string]CatalogEntry{
		"checkout":  {Port: 8081},
		"inventory": {Port: 8082},
		"payments":  {Port: 8083},
		"identity":  {Port: 8084},
		"ledger":    {Port: 8085},
	}
}

// Instance is one running twin inside an environment.
type Instance struct {
	TwinID      string `json:"twin_id"`
	ServiceName string `json:"service_name"`
	Namespace   string `json:"namespace"`
	Port        int    `json:"port"`
	Status      Status `json:"status"`
	Endpoint    string `json:"endpoint,omitempty"`
}

// EnvironmentSpec requests an environment with the named twins.
type EnvironmentSpec struct {
	Twins      []string `json:"twins"`
	ScenarioID string   `json:"scenario_id,omitempty"`
}

// ProvisionResult reports a provisioned environment.
type ProvisionResult struct {
	Namespace string     `json:"namespace"`
	Twins     []Instance `json:"twins"`
	Status    string     `json:"status"`
}

// EnvironmentStatus reports a live environment.
type EnvironmentStatus struct {
	Namespace  string     `json:"namespace"`
	Twins      []Instance `json:"twins"`
	AgeSeconds float64    `json:"age_seconds"`
}

// TeardownResult confirms environment removal.
type TeardownResult struct {
	Namespace string `json:"namespace"`
	Status    string `json:"status"`
}

type environment struct {
	twins     []Instance
	spec      EnvironmentSpec
	createdAt time.Time
}

// Manager owns the lifecycle of twin environments.
type Manager struct {
	mu      sync.RWMutex
	envs    map[string]*environment
	catalog map[string]CatalogEntry
	log     zerolog.Logger
}

// NewManager creates a manager with the given catalog; a nil catalog uses
// DefaultCatalog.
func NewManager(catalog map[string]CatalogEntry, log zerolog.Logger) *Manager {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Manager{
		envs:    make(map[string]*environment),
		catalog: catalog,
		log:     log,
	}
}

// Provision creates a new environment with the requested twins. Services
// missing from the catalog are skipped with a warning rather than failing
// the whole environment.
func (m *Manager) Provision(spec EnvironmentSpec) ProvisionResult {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	namespace := fmt.Sprintf("dtu-%s", hex[:8])

	m.log.Info().
		Str("namespace", namespace).
		Strs("twins", spec.Twins).
		Str("scenario_id", spec.ScenarioID).
		Msg("twin.provision.start")

	twins := make([]Instance, 0, len(spec.Twins))
	for _, svc := range spec.Twins {
		entry, ok := m.catalog[svc]
		if !ok {
			m.log.Warn().Str("service", svc).Msg("twin.unknown_service")
			continue
		}
		twins = append(twins, Instance{
			TwinID:      fmt.Sprintf("%s-%s", namespace, svc),
			ServiceName: svc,
			Namespace:   namespace,
			Port:        entry.Port,
			Status:      StatusReady,
			Endpoint:    fmt.Sprintf("http://%s.%s.svc:%d", svc, namespace, entry.Port),
		})
	}

	m.mu.Lock()
	m.envs[namespace] = &environment{
		twins:     twins,
		spec:      spec,
		createdAt: time.Now(),
	}
	m.mu.Unlock()

	m.log.Info().Str("namespace", namespace).Int("twins", len(twins)).Msg("twin.provision.done")

	return ProvisionResult{
		Namespace: namespace,
		Twins:     twins,
		Status:    "ready",
	}
}

// Teardown removes an environment. Tearing down an unknown namespace is not
// an error; the result is terminated either way.
func (m *Manager) Teardown(namespace string) TeardownResult {
	m.mu.Lock()
	delete(m.envs, namespace)
	m.mu.Unlock()

	m.log.Info().Str("namespace", namespace).Msg("twin.teardown")
	return TeardownResult{Namespace: namespace, Status: "terminated"}
}

// Status reports one environment, or false when the namespace is unknown.
func (m *Manager) Status(namespace string) (EnvironmentStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	env, ok := m.envs[namespace]
	if !ok {
		return EnvironmentStatus{}, false
	}
	return EnvironmentStatus{
		Namespace:  namespace,
		Twins:      env.twins,
		AgeSeconds: time.Since(env.createdAt).Seconds(),
	}, true
}

// List enumerates all live environments.
func (m *Manager) List() []EnvironmentStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]EnvironmentStatus, 0, len(m.envs))
	for ns, env := range m.envs {
		out = append(out, EnvironmentStatus{
			Namespace:  ns,
			Twins:      env.twins,
			AgeSeconds: time.Since(env.createdAt).Seconds(),
		})
	}
	return out
}
