package roadmap

import (
	"errors"
	"fmt"
)

// ── 路线引擎错误分类 ──
//
// 不可选课（Ineligible）不是错误，而是 EligibilityResult.Reasons 中的数据。

var (
	// ErrConfiguration 培养方案图不合法（环、先修课越界等），加载阶段即应中止
	ErrConfiguration = errors.New("培养方案配置错误")
	// ErrNotFound 培养方案、课程或学生不存在
	ErrNotFound = errors.New("记录不存在")
	// ErrInvalidTransition 非法的状态回退
	ErrInvalidTransition = errors.New("非法的课程状态变更")
	// ErrNotInRoadmap 学生路线中没有该课程
	ErrNotInRoadmap = errors.New("课程不在学生培养路线中")
)

// ConfigurationError 带上下文的培养方案配置错误
type ConfigurationError struct {
	Curriculum string
	Reason     string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("培养方案 %s 配置错误: %s", e.Curriculum, e.Reason)
}

// Is 使 errors.Is(err, ErrConfiguration) 成立
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErrorf(curriculum, format string, args ...interface{}) error {
	return &ConfigurationError{Curriculum: curriculum, Reason: fmt.Sprintf(format, args...)}
}

// TransitionError 记录被拒绝的状态变更
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("非法的课程状态变更: %s → %s", e.From, e.To)
}

// Is 使 errors.Is(err, ErrInvalidTransition) 成立
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
