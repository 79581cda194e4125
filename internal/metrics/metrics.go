// Package metrics exposes permitflow counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kalambet/permitflow/internal/permit"
)

const namespace = "permitflow"

// Collector owns a private registry so tests and multiple servers in one
// process do not collide on the global one.
type Collector struct {
	registry    *prometheus.Registry
	submissions *prometheus.CounterVec
	projects    prometheus.Counter
	events      *prometheus.CounterVec
}

// New creates a Collector with all permitflow metrics registered, plus the
// Go runtime and process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questionnaire_submissions_total",
			Help:      "Questionnaire submissions by resulting permit requirement and whether the record was created or updated.",
		}, []string{"requirement", "outcome"}),
		projects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projects_created_total",
			Help:      "Projects created.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Classification events by delivery outcome.",
		}, []string{"outcome"}),
	}

	bootTime := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "boot_time",
		Help:      "Server startup time",
	})
	bootTime.Set(float64(time.Now().UnixMilli()))

	c.registry.MustRegister(
		c.submissions,
		c.projects,
		c.events,
		bootTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// SubmissionRecorded counts one stored questionnaire.
func (c *Collector) SubmissionRecorded(req permit.Requirement, created bool) {
	outcome := "updated"
	if created {
		outcome = "created"
	}
	c.submissions.WithLabelValues(string(req), outcome).Inc()
}

// ProjectCreated counts one new project.
func (c *Collector) ProjectCreated() {
	c.projects.Inc()
}

// EventOutcome counts one classification event by what happened to it.
func (c *Collector) EventOutcome(outcome string) {
	c.events.WithLabelValues(outcome).Inc()
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
