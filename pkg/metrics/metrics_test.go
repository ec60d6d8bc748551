package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistryForCachesPerRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()

	a := RegistryFor(reg)
	b := RegistryFor(reg)
	if a != b {
		t.Fatal("RegistryFor should return the same Registry for one registerer")
	}

	other := RegistryFor(prometheus.NewRegistry())
	if other == a {
		t.Fatal("distinct registerers should get distinct registries")
	}
}

func TestNewRegistryDuplicatePanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewRegistry(reg)

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	_ = NewRegistry(reg)
}

func TestRegistryExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := RegistryFor(reg)

	r.Runs.WithLabelValues("s1", "guided").Inc()
	r.Runs.WithLabelValues("s1", "guided").Inc()
	r.ActiveTasks.WithLabelValues("s1").Set(3)

	expected := `
# HELP adaptsched_scheduler_runs_total Total number of runs
# TYPE adaptsched_scheduler_runs_total counter
adaptsched_scheduler_runs_total{policy="guided",scheduler_name="s1"} 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "adaptsched_scheduler_runs_total"); err != nil {
		t.Fatal(err)
	}

	if got := testutil.ToFloat64(r.ActiveTasks.WithLabelValues("s1")); got != 3 {
		t.Errorf("active tasks = %v, want 3", got)
	}
}

func TestConfigResolve(t *testing.T) {
	var c Config
	if c.Resolve() != DefaultRegistry {
		t.Error("nil registerer should resolve to DefaultRegistry")
	}
}
