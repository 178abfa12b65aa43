package xbreaker

import "github.com/sony/gobreaker/v2"

type (
	// Counts 统计计数。
	Counts = gobreaker.Counts

	// State 熔断器状态。
	State = gobreaker.State
)

// 熔断器状态。
const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// TripPolicy 决定熔断器何时从 Closed 转为 Open。
type TripPolicy interface {
	ReadyToTrip(counts Counts) bool
}

// TripFunc 将函数适配为 TripPolicy。
type TripFunc func(counts Counts) bool

// ReadyToTrip 实现 TripPolicy。
func (f TripFunc) ReadyToTrip(counts Counts) bool {
	return f(counts)
}

// ConsecutiveFailuresPolicy 连续失败达到阈值时熔断。
type ConsecutiveFailuresPolicy struct {
	threshold uint32
}

// NewConsecutiveFailures 创建连续失败策略，threshold 为 0 时按 1 处理。
func NewConsecutiveFailures(threshold uint32) *ConsecutiveFailuresPolicy {
	return &ConsecutiveFailuresPolicy{threshold: max(threshold, 1)}
}

// ReadyToTrip 实现 TripPolicy。
func (p *ConsecutiveFailuresPolicy) ReadyToTrip(counts Counts) bool {
	return counts.ConsecutiveFailures >= p.threshold
}

// Threshold 返回阈值。
func (p *ConsecutiveFailuresPolicy) Threshold() uint32 {
	return p.threshold
}

// FailureRatioPolicy 请求数达到 minRequests 后，失败率不低于 ratio 时熔断。
type FailureRatioPolicy struct {
	ratio       float64
	minRequests uint32
}

// NewFailureRatio 创建失败率策略，ratio 被限制在 [0, 1]。
func NewFailureRatio(ratio float64, minRequests uint32) *FailureRatioPolicy {
	return &FailureRatioPolicy{ratio: min(max(ratio, 0), 1), minRequests: minRequests}
}

// ReadyToTrip 实现 TripPolicy。
func (p *FailureRatioPolicy) ReadyToTrip(counts Counts) bool {
	if counts.Requests == 0 || counts.Requests < p.minRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= p.ratio
}
