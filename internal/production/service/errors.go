package service

import (
	"errors"
)

// ErrInvalidOrder 订单缺少行项或交付日期，无法建计划
var ErrInvalidOrder = errors.New("order is missing items or delivery date")

// ErrValidation 进度值越界
var ErrValidation = errors.New("progress value out of range")

// ErrDependencyViolation 里程碑依赖未满足
var ErrDependencyViolation = errors.New("milestone dependency not completed")
