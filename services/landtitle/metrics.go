package landtitle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// attemptsTotal 按操作与结果统计的尝试次数（结果为 Succeeded 或错误码）
	attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "landverify",
			Subsystem: "workflow",
			Name:      "attempts_total",
			Help:      "Total number of submission attempts by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// confirmDuration 从构建到确认的耗时
	confirmDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "landverify",
			Subsystem: "workflow",
			Name:      "confirm_duration_seconds",
			Help:      "Time from build to confirmation for successful attempts",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		},
	)
)
