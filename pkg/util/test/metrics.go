package test

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func GetCounterValue(metric prometheus.Counter) (float64, error) {
	var m = &dto.Metric{}
	err := metric.Write(m)
	if err != nil {
		return 0, err
	}
	return m.Counter.GetValue(), nil
}

func GetCounterVecValue(metric *prometheus.CounterVec, labels ...string) (float64, error) {
	var m = &dto.Metric{}
	if err := metric.WithLabelValues(labels...).Write(m); err != nil {
		return 0, err
	}
	return m.Counter.GetValue(), nil
}

// CounterDelta returns a function reporting how much metric grew since
// CounterDelta was called. Package level counters are shared between tests.
func CounterDelta(metric *prometheus.CounterVec, labels ...string) func() float64 {
	start, _ := GetCounterVecValue(metric, labels...)
	return func() float64 {
		now, _ := GetCounterVecValue(metric, labels...)
		return now - start
	}
}
