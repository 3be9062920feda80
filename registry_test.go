package r9y

import (
	"sync"
	"testing"
)

// stubReporter is a fixed-status HealthReporter for registry tests.
type stubReporter struct {
	status PolicyStatus
}

func (s stubReporter) Name() string               { return s.status.Name }
func (s stubReporter) HealthStatus() PolicyStatus { return s.status }

func TestRegistryEmptyIsReady(t *testing.T) {
	reg := NewRegistry()

	status := reg.CheckReadiness()
	if !status.Ready {
		t.Fatal("Ready = false for empty registry, want true")
	}
	if len(status.Policies) != 0 {
		t.Fatalf("got %d policies, want 0", len(status.Policies))
	}
}

func TestRegistryReadyWhileAllHealthy(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubReporter{status: PolicyStatus{
		Name: "a", Healthy: true, State: "healthy",
	}})
	reg.Register(stubReporter{status: PolicyStatus{
		Name: "b", Healthy: true, State: "healthy",
	}})

	status := reg.CheckReadiness()
	if !status.Ready {
		t.Fatal("Ready = false, want true")
	}
	if len(status.Policies) != 2 {
		t.Fatalf("got %d policies, want 2", len(status.Policies))
	}
}

func TestRegistryCriticalUnhealthyBlocksReadiness(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubReporter{status: PolicyStatus{
		Name: "ok", Healthy: true, State: "healthy",
	}})
	reg.Register(stubReporter{status: PolicyStatus{
		Name:        "broken",
		Healthy:     false,
		State:       "circuit_open",
		Criticality: CriticalityCritical,
	}})

	if reg.CheckReadiness().Ready {
		t.Fatal("Ready = true with critical unhealthy policy, want false")
	}
}

func TestRegistryDegradedDoesNotBlockReadiness(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubReporter{status: PolicyStatus{
		Name:        "busy",
		Healthy:     true,
		State:       "bulkhead_full",
		Criticality: CriticalityDegraded,
	}})

	if !reg.CheckReadiness().Ready {
		t.Fatal("Ready = false for degraded-only policy, want true")
	}
}

func TestRegistryConcurrentRegisterAndCheck(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			reg.Register(stubReporter{status: PolicyStatus{
				Name: "p", Healthy: true,
			}})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = reg.CheckReadiness()
		}
	}()
	wg.Wait()

	if got := len(reg.CheckReadiness().Policies); got != 100 {
		t.Fatalf("got %d registered policies, want 100", got)
	}
}

func TestDefaultRegistrySingleton(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Fatal("DefaultRegistry() returned different instances")
	}
}
