package job

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipientbackup_job_runs_total",
			Help: "Number of backup jobs run, by job type and result",
		},
		[]string{"job", "result"},
	)
	metricLastSuccess = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recipientbackup_job_last_success_unix_seconds",
			Help: "UNIX timestamp of the last successful job",
		},
		[]string{"job"},
	)
	metricLastBackupSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "recipientbackup_job_last_backup_size_bytes",
			Help: "Compressed size of the last backup stored",
		},
	)
	metricUnhandledFrames = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recipientbackup_job_unhandled_frames_total",
			Help: "Number of frames skipped on import because they do not hold a contact",
		},
	)
)

func init() {
	prometheus.MustRegister(metricRuns)
	prometheus.MustRegister(metricLastSuccess)
	prometheus.MustRegister(metricLastBackupSize)
	prometheus.MustRegister(metricUnhandledFrames)
}

// WriteMetrics writes all registered metrics in the text exposition format,
// for use with the node_exporter textfile collector.
func WriteMetrics(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
