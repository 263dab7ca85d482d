package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// StakingMetrics tracks staking ledger operations.
type StakingMetrics struct {
	operations   *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	rewards      *prometheus.CounterVec
	openRecords  prometheus.Gauge
	commitHeight prometheus.Gauge
}

var (
	stakingOnce     sync.Once
	stakingRegistry *StakingMetrics
)

// Staking returns the lazily registered staking metrics.
func Staking() *StakingMetrics {
	stakingOnce.Do(func() {
		stakingRegistry = &StakingMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stakeledger",
				Subsystem: "staking",
				Name:      "operations_total",
				Help:      "Committed ledger operations by transaction type.",
			}, []string{"type"}),
			rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stakeledger",
				Subsystem: "staking",
				Name:      "rejections_total",
				Help:      "Operations rolled back, by transaction type and reason.",
			}, []string{"type", "reason"}),
			rewards: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stakeledger",
				Subsystem: "staking",
				Name:      "rewards_minted_total",
				Help:      "Reward token base units minted by asset class.",
			}, []string{"class"}),
			openRecords: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "stakeledger",
				Subsystem: "staking",
				Name:      "open_records",
				Help:      "Stake records opened minus records released since start.",
			}),
			commitHeight: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "stakeledger",
				Subsystem: "state",
				Name:      "commit_height",
				Help:      "Height of the last committed state root.",
			}),
		}
		prometheus.MustRegister(
			stakingRegistry.operations,
			stakingRegistry.rejections,
			stakingRegistry.rewards,
			stakingRegistry.openRecords,
			stakingRegistry.commitHeight,
		)
	})
	return stakingRegistry
}

// RecordOperation counts a committed operation.
func (m *StakingMetrics) RecordOperation(txType string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(txType).Inc()
}

// RecordRejection counts a rolled back operation.
func (m *StakingMetrics) RecordRejection(txType, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.rejections.WithLabelValues(txType, reason).Inc()
}

// RecordReward adds minted reward units for class.
func (m *StakingMetrics) RecordReward(class string, amount uint64) {
	if m == nil || amount == 0 {
		return
	}
	m.rewards.WithLabelValues(class).Add(float64(amount))
}

// RecordLocked increments the open record gauge.
func (m *StakingMetrics) RecordLocked() {
	if m == nil {
		return
	}
	m.openRecords.Inc()
}

// RecordUnlocked decrements the open record gauge.
func (m *StakingMetrics) RecordUnlocked() {
	if m == nil {
		return
	}
	m.openRecords.Dec()
}

// SetCommitHeight records the latest committed height.
func (m *StakingMetrics) SetCommitHeight(height uint64) {
	if m == nil {
		return
	}
	m.commitHeight.Set(float64(height))
}
