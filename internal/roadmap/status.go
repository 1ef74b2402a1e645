package roadmap

import (
	"database/sql/driver"
	"fmt"
)

// Status 路线条目状态（封闭枚举）
//
//	Planned → Open → InProgress → {Completed | Failed}
//
// Open 是派生状态：由 EligibilityEvaluator 按需计算，不作为选课判定依据。
type Status string

const (
	StatusPlanned    Status = "Planned"
	StatusOpen       Status = "Open"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
	StatusFailed     Status = "Failed"
)

// AllStatuses 全部合法状态
var AllStatuses = []Status{StatusPlanned, StatusOpen, StatusInProgress, StatusCompleted, StatusFailed}

// ParseStatus 将字符串解析为 Status，未知值返回错误
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("未知的课程状态 %q", s)
	}
	return st, nil
}

// Valid 是否为合法枚举值
func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusOpen, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// Scan 实现 sql.Scanner，拒绝库中出现的未知状态
func (s *Status) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("Status.Scan: unsupported type %T", src)
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Value 实现 driver.Valuer
func (s Status) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("未知的课程状态 %q", string(s))
	}
	return string(s), nil
}

// CanTransition 判断 from → to 是否允许；相同状态视为允许（幂等）
func CanTransition(from, to Status) bool {
	if from == to {
		return from.Valid()
	}
	switch from {
	case StatusPlanned:
		return to == StatusOpen || to == StatusInProgress || to == StatusCompleted || to == StatusFailed
	case StatusOpen:
		return to == StatusPlanned || to == StatusInProgress || to == StatusCompleted || to == StatusFailed
	case StatusInProgress:
		return to == StatusCompleted || to == StatusFailed
	case StatusFailed:
		// 重修、补考或由教务重新规划
		return to == StatusInProgress || to == StatusPlanned || to == StatusCompleted
	case StatusCompleted:
		return false
	}
	return false
}

// Transition 校验状态变更，非法时返回 *TransitionError
func Transition(from, to Status) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}
