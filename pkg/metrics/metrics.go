package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dugsihub"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	Uploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "document_uploads_total", Help: "Document upload attempts by result."},
		[]string{"result"},
	)
	UploadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_upload_bytes",
			Help:      "Size of accepted uploads.",
			Buckets:   prometheus.ExponentialBuckets(64*1024, 4, 7),
		},
	)
	Downloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "document_downloads_total", Help: "Document retrievals by result."},
		[]string{"result"},
	)
	PayloadMissing = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "document_payload_missing_total", Help: "Records whose stored bytes could not be found."},
	)
	OrphanBlobs = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "document_orphan_blobs_total", Help: "Blobs left behind because compensation after a failed record write also failed."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(Uploads)
	reg.MustRegister(UploadBytes)
	reg.MustRegister(Downloads)
	reg.MustRegister(PayloadMissing)
	reg.MustRegister(OrphanBlobs)
}
