package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Example_customRegistry demonstrates using a custom Prometheus registry.
func Example_customRegistry() {
	reg := prometheus.NewRegistry()
	config := Config{
		Enabled:  true,
		Registry: reg,
	}

	registry := config.Resolve()
	registry.TasksSubmitted.WithLabelValues("batch").Add(12)
	registry.TasksCompleted.WithLabelValues("batch").Add(12)

	fmt.Printf("submitted: %.0f\n", testutil.ToFloat64(registry.TasksSubmitted.WithLabelValues("batch")))
	fmt.Printf("same registry: %v\n", config.Resolve() == registry)

	// Output:
	// submitted: 12
	// same registry: true
}

// Example_configuration demonstrates the default configuration.
func Example_configuration() {
	defaultConfig := DefaultConfig()
	fmt.Printf("Default enabled: %v\n", defaultConfig.Enabled)
	fmt.Printf("Uses default registry: %v\n", defaultConfig.Resolve() == DefaultRegistry)

	// Output:
	// Default enabled: true
	// Uses default registry: true
}
