package archive

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricRecipientsArchived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recipientbackup_archive_recipients_archived_total",
			Help: "Number of contact recipients written to a backup",
		},
	)
	metricRecipientsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recipientbackup_archive_recipients_skipped_total",
			Help: "Number of contact recipients skipped because they have no identifier",
		},
	)
	metricArchiveErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipientbackup_archive_errors_total",
			Help: "Number of contact recipients that failed to archive",
		},
		[]string{"kind"},
	)
	metricRecipientsRestored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipientbackup_restore_recipients_restored_total",
			Help: "Number of contact recipients restored, by whether a record was inserted or merged",
		},
		[]string{"action"},
	)
	metricRestoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipientbackup_restore_errors_total",
			Help: "Number of contact recipient frames that failed to restore",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(metricRecipientsArchived)
	prometheus.MustRegister(metricRecipientsSkipped)
	prometheus.MustRegister(metricArchiveErrors)
	prometheus.MustRegister(metricRecipientsRestored)
	prometheus.MustRegister(metricRestoreErrors)
}
