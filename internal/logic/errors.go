package logic

import (
	"errors"
)

// 操作失败的分类错误
// 所有失败都是整体拒绝：事务回滚，不产生部分状态变更
var (
	// ErrNotAuthorized 调用者不具备所需角色
	ErrNotAuthorized = errors.New("无权执行此操作")

	// ErrTimeWindow 调用发生在允许的时间范围之外
	ErrTimeWindow = errors.New("不在允许的时间窗口内")

	// ErrInvalidParameter 数值或结构性前置条件不成立
	ErrInvalidParameter = errors.New("参数校验失败")

	// ErrInvalidState 当前生命周期状态不允许该操作
	ErrInvalidState = errors.New("当前状态不允许该操作")

	// ErrPaused 目标处于暂停状态
	ErrPaused = errors.New("已暂停")

	// ErrInsufficientBalance 账户余额不足
	ErrInsufficientBalance = errors.New("余额不足")

	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("记录不存在")
)
