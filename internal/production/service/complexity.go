package service

import (
	"math"
	"time"

	"github.com/canvastack/stencil-sub023/internal/production/entity"
)

// complexityScore 复杂度评分 = 订单金额档(0-3) + 行项数档(0-3) + 交期档(0-3)
func complexityScore(order *entity.Order, now time.Time, cfg PlanningConfig) int {
	score := 0

	switch {
	case order.TotalAmount > cfg.HighValueThreshold:
		score += 3
	case order.TotalAmount > cfg.MediumValueThreshold:
		score += 2
	case order.TotalAmount > cfg.LowValueThreshold:
		score += 1
	}

	switch n := len(order.Items); {
	case n > 20:
		score += 3
	case n > 10:
		score += 2
	case n > 5:
		score += 1
	}

	days := daysUntilDelivery(order, now)
	switch {
	case days < 7:
		score += 3
	case days < 14:
		score += 2
	case days < 30:
		score += 1
	}

	return score
}

// complexityLevel 评分映射为四级复杂度，阈值 3/5/7
func complexityLevel(score int) entity.ComplexityLevel {
	switch {
	case score >= 7:
		return entity.ComplexityVeryHigh
	case score >= 5:
		return entity.ComplexityHigh
	case score >= 3:
		return entity.ComplexityMedium
	default:
		return entity.ComplexityLow
	}
}

// daysUntilDelivery 距交付日剩余天数，向上取整
func daysUntilDelivery(order *entity.Order, now time.Time) int {
	if order.DeliveryDate == nil {
		return 0
	}
	return int(math.Ceil(order.DeliveryDate.Sub(now).Hours() / 24))
}
