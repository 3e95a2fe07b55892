// Package metrics records build tool activity for one run and writes it in
// the Prometheus text format, for node_exporter's textfile collector.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vk/ampbuild/internal/buildtool"
)

const namespace = "ampbuild"

// Recorder owns a private registry, so repeated runs in one process never
// collide on registration.
type Recorder struct {
	reg         *prometheus.Registry
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	packedBytes *prometheus.GaugeVec
	failures    *prometheus.CounterVec
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_invocations_total",
			Help:      "Build tool invocations by step and result.",
		}, []string{"step", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Wall time of build tool invocations.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"step"}),
		packedBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "packed_image_bytes",
			Help:      "Size of each packed image written during the run.",
		}, []string{"image"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Failed validation checks by check name.",
		}, []string{"check"}),
	}
	r.reg.MustRegister(r.invocations, r.duration, r.packedBytes, r.failures)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// ObservePacked records the size of a packed image.
func (r *Recorder) ObservePacked(image string, size int64) {
	r.packedBytes.WithLabelValues(image).Set(float64(size))
}

// ValidationFailed counts a failed check.
func (r *Recorder) ValidationFailed(check string) {
	r.failures.WithLabelValues(check).Inc()
}

// WriteFile writes every metric to path atomically.
func (r *Recorder) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}

// WrapTool returns a Tool that records every call before delegating to t.
func (r *Recorder) WrapTool(t buildtool.Tool) buildtool.Tool {
	return &instrumentedTool{next: t, rec: r}
}

type instrumentedTool struct {
	next buildtool.Tool
	rec  *Recorder
}

func (t *instrumentedTool) observe(step string, fn func() error) error {
	start := time.Now()
	err := fn()
	t.rec.duration.WithLabelValues(step).Observe(time.Since(start).Seconds())
	result := "success"
	var toolErr *buildtool.ToolError
	switch {
	case err == nil:
	case errors.As(err, &toolErr):
		result = "failure"
	default:
		result = "error"
	}
	t.rec.invocations.WithLabelValues(step, result).Inc()
	return err
}

func (t *instrumentedTool) Clean(ctx context.Context, dir string) error {
	return t.observe("clean", func() error { return t.next.Clean(ctx, dir) })
}

func (t *instrumentedTool) LoadConfig(ctx context.Context, dir, configName string) error {
	return t.observe("load_kconfig", func() error { return t.next.LoadConfig(ctx, dir, configName) })
}

func (t *instrumentedTool) RegenerateConfig(ctx context.Context, dir string) error {
	return t.observe("gen_kconfig", func() error { return t.next.RegenerateConfig(ctx, dir) })
}

func (t *instrumentedTool) Build(ctx context.Context, req buildtool.BuildRequest) error {
	return t.observe("all", func() error { return t.next.Build(ctx, req) })
}
