package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector counts scheduler and delivery activity for /metrics.
type Collector struct {
	jobsScheduled prometheus.Counter
	jobsCancelled prometheus.Counter
	jobsExecuted  prometheus.Counter
	jobsStale     prometheus.Counter

	remindersSent   prometheus.Counter
	remindersFailed prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		jobsScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "randevu_reminder_jobs_scheduled_total",
			Help: "Reminder jobs scheduled or rescheduled.",
		}),
		jobsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "randevu_reminder_jobs_cancelled_total",
			Help: "Reminder jobs removed before firing.",
		}),
		jobsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "randevu_reminder_jobs_executed_total",
			Help: "Reminder jobs claimed and executed.",
		}),
		jobsStale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "randevu_reminder_jobs_stale_total",
			Help: "Fired jobs dropped because the appointment was gone or no longer scheduled.",
		}),
		remindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "randevu_reminders_sent_total",
			Help: "Reminder SMS attempts reported sent by the provider.",
		}),
		remindersFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "randevu_reminders_failed_total",
			Help: "Reminder SMS attempts that failed.",
		}),
	}

	reg.MustRegister(
		c.jobsScheduled,
		c.jobsCancelled,
		c.jobsExecuted,
		c.jobsStale,
		c.remindersSent,
		c.remindersFailed,
	)
	return c
}

func (c *Collector) JobScheduled()   { c.jobsScheduled.Inc() }
func (c *Collector) JobCancelled()   { c.jobsCancelled.Inc() }
func (c *Collector) JobExecuted()    { c.jobsExecuted.Inc() }
func (c *Collector) JobStale()       { c.jobsStale.Inc() }
func (c *Collector) ReminderSent()   { c.remindersSent.Inc() }
func (c *Collector) ReminderFailed() { c.remindersFailed.Inc() }

// Handler serves the registry at /metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
