// Package metrics exports tile store statistics to Prometheus.
package metrics

import (
	"github.com/eak1mov/go-tilestore/tilestore"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tilestore"

type metric struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	value     func(st *tilestore.Stats) float64
}

// StoreCollector is a prometheus.Collector reading the statistics of one
// store on every scrape.
type StoreCollector struct {
	store   *tilestore.Store
	metrics []metric
}

// NewStoreCollector returns a collector labelling the metrics of s with
// store=name.
func NewStoreCollector(name string, s *tilestore.Store) *StoreCollector {
	labels := prometheus.Labels{"store": name}
	m := func(subsystem, metricName, help string, valueType prometheus.ValueType, value func(st *tilestore.Stats) float64) metric {
		return metric{
			desc:      prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, metricName), help, nil, labels),
			valueType: valueType,
			value:     value,
		}
	}
	return &StoreCollector{
		store: s,
		metrics: []metric{
			m("", "tiles", "Number of stored tiles.", prometheus.GaugeValue,
				func(st *tilestore.Stats) float64 { return float64(st.Tiles) }),
			m("", "tiles_created_total", "Total number of tiles created on lookup.", prometheus.CounterValue,
				func(st *tilestore.Stats) float64 { return float64(st.Created) }),
			m("reclaim", "pending", "Number of removed tiles waiting for readers to unpin.", prometheus.GaugeValue,
				func(st *tilestore.Stats) float64 { return float64(st.ReclaimPending) }),
			m("reclaim", "reclaimed_total", "Total number of removed tiles released by the store.", prometheus.CounterValue,
				func(st *tilestore.Stats) float64 { return float64(st.Reclaimed) }),
			m("map", "capacity", "Number of cells over all map shards.", prometheus.GaugeValue,
				func(st *tilestore.Stats) float64 { return float64(st.Map.Capacity) }),
			m("map", "tombstones", "Number of map cells holding a key without a tile.", prometheus.GaugeValue,
				func(st *tilestore.Stats) float64 { return float64(st.Map.Tombstones) }),
			m("map", "max_probe", "Longest probe distance of a stored key.", prometheus.GaugeValue,
				func(st *tilestore.Stats) float64 { return float64(st.Map.MaxProbe) }),
			m("map", "migrations_total", "Total number of map shard migrations.", prometheus.CounterValue,
				func(st *tilestore.Stats) float64 { return float64(st.Map.Migrations) }),
		},
	}
}

func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

// Collect takes one snapshot of the store statistics per scrape.
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.store.Stats()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.valueType, m.value(&st))
	}
}

// Register registers a collector for s with reg.
func Register(reg prometheus.Registerer, name string, s *tilestore.Store) error {
	return reg.Register(NewStoreCollector(name, s))
}
