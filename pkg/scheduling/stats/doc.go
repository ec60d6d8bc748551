// Package stats implements the scheduler's metrics aggregator.
//
// Workers call Record once per finished task; the update is a handful of
// independent atomic adds on cache-line separated counters. Snapshot copies the
// counters and derives averages, efficiency, throughput and load balance:
//
//	agg := stats.NewAggregator(4)
//	agg.Record(0, 3*time.Millisecond)
//	snap := agg.Snapshot()
//	fmt.Println(snap.AvgExecTime(), snap.LoadBalance().Fairness)
package stats
