package prometheus

import (
	"context"
	"fmt"
	"reflect"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/scitags/go-nflog/nflog"
	"github.com/scitags/go-nflog/types"
)

// Metric labels (note these are **always** strings):
//
//	group: NFLOG group number
var baseLabels = []string{"group"}

// Source is anything exposing NFLOG counters for a group, such as an
// *nflog.Queue.
type Source interface {
	Group() uint16
	Stats() *nflog.Stats
}

type metrics struct {
	Datagrams          *prometheus.Desc
	Bytes              *prometheus.Desc
	Records            *prometheus.Desc
	HandlerFailures    *prometheus.Desc
	ProtocolViolations *prometheus.Desc
	BatchErrors        *prometheus.Desc
}

func newMetrics() *metrics {
	return &metrics{
		Datagrams: prometheus.NewDesc(
			"nflog_datagrams_received_total",
			"Netlink datagrams read from the NFLOG socket",
			baseLabels, nil,
		),
		Bytes: prometheus.NewDesc(
			"nflog_bytes_received_total",
			"Bytes read from the NFLOG socket [B]",
			baseLabels, nil,
		),
		Records: prometheus.NewDesc(
			"nflog_records_delivered_total",
			"Logged packets successfully processed by the handler",
			baseLabels, nil,
		),
		HandlerFailures: prometheus.NewDesc(
			"nflog_handler_failures_total",
			"Handler invocations that failed or panicked",
			baseLabels, nil,
		),
		ProtocolViolations: prometheus.NewDesc(
			"nflog_protocol_violations_total",
			"Callback invocations with unexpected arguments",
			baseLabels, nil,
		),
		BatchErrors: prometheus.NewDesc(
			"nflog_batch_errors_total",
			"Datagrams whose processing stopped before the last record",
			baseLabels, nil,
		),
	}
}

// collector reads the counters straight from the sources on every scrape.
type collector struct {
	m       *metrics
	sources []Source
}

func newCollector(sources ...Source) *collector {
	return &collector{m: newMetrics(), sources: sources}
}

// (Nastily) use reflection to avoid having to manually describe everything.
func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	v := reflect.ValueOf(*c.m)
	for i := 0; i < v.NumField(); i++ {
		d, ok := v.Field(i).Interface().(*prometheus.Desc)
		if !ok {
			panic(fmt.Sprintf("error casting the interface for index %d", i))
		}
		ch <- d
	}
	logger.Log(context.Background(), types.LevelTrace, "described metrics", "n", v.NumField())
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.sources {
		label := strconv.FormatUint(uint64(s.Group()), 10)
		snap := s.Stats().Snapshot()

		for _, cv := range []struct {
			d *prometheus.Desc
			v uint64
		}{
			{c.m.Datagrams, snap.Datagrams},
			{c.m.Bytes, snap.Bytes},
			{c.m.Records, snap.Records},
			{c.m.HandlerFailures, snap.HandlerFailures},
			{c.m.ProtocolViolations, snap.ProtocolViolations},
			{c.m.BatchErrors, snap.BatchErrors},
		} {
			ch <- prometheus.MustNewConstMetric(cv.d, prometheus.CounterValue, float64(cv.v), label)
		}
	}
}
