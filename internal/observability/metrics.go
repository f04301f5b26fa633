package observability

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/amqpdetective/internal/detective"
	"github.com/danmuck/amqpdetective/internal/protocol/field"
	"github.com/danmuck/amqpdetective/internal/protocol/frame"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "amqpdetective"

var (
	registerOnce sync.Once

	decodeFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "frames_total",
			Help:      "Messages decoded from captured streams.",
		},
		[]string{"side", "kind"},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "errors_total",
			Help:      "Captured streams whose decoding stopped on an error.",
		},
		[]string{"side", "reason"},
	)
	analyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_total",
			Help:      "Interleaving analyses by outcome.",
		},
		[]string{"outcome"},
	)
	flaggedMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_flagged_messages_total",
			Help:      "Messages flagged out of order.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(decodeFrames, decodeErrors, analyses, flaggedMessages, httpRequests, httpDuration)
	})
}

// RecordDecode counts the messages of one decoded stream and its terminal
// error, if any.
func RecordDecode(side frame.Source, msgs []frame.Message, err error) {
	RegisterMetrics()
	sideLabel := strings.ToLower(side.String())
	for _, m := range msgs {
		decodeFrames.WithLabelValues(sideLabel, strings.ToLower(m.Kind().String())).Inc()
	}
	if err != nil {
		decodeErrors.WithLabelValues(sideLabel, DecodeErrorReason(err)).Inc()
	}
}

func RecordAnalysis(res detective.Result) {
	RegisterMetrics()
	analyses.WithLabelValues(res.Outcome()).Inc()
	flaggedMessages.Add(float64(res.Flagged))
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

var decodeReasons = []struct {
	err    error
	reason string
}{
	{frame.ErrTruncatedFrame, "truncated_frame"},
	{frame.ErrInvalidFrameEnd, "invalid_frame_end"},
	{frame.ErrUnknownFrameType, "unknown_frame_type"},
	{frame.ErrUnknownMethod, "unknown_method"},
	{field.ErrMalformedContainer, "malformed_container"},
	{field.ErrTruncatedInput, "truncated_input"},
	{field.ErrUnknownTypeTag, "unknown_type_tag"},
	{field.ErrInvalidUTF8, "invalid_utf8"},
	{field.ErrStringTooLong, "string_too_long"},
}

// DecodeErrorReason maps a decode error to a bounded label value.
func DecodeErrorReason(err error) string {
	for _, r := range decodeReasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "other"
}

// WriteTextfile writes every registered metric in the node-exporter
// textfile format.
func WriteTextfile(path string) error {
	RegisterMetrics()
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
