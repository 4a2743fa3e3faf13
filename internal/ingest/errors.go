package ingest

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	ErrStoreFailure   = errors.New("store failure")
	ErrPublishFailure = errors.New("publish failure")
	ErrTimeout        = errors.New("timeout")
)

// Kind 是下单失败的分类。
type Kind int

const (
	KindStoreFailure Kind = iota + 1
	KindPublishFailure
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindStoreFailure:
		return "store_failure"
	case KindPublishFailure:
		return "publish_failure"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Stage 标识失败发生在哪一步。
type Stage string

const (
	StageStore   Stage = "store"
	StagePublish Stage = "publish"
)

// Error 是 SubmitOrder 返回的错误。用 errors.Is 匹配 ErrStoreFailure / ErrPublishFailure / ErrTimeout，
// 用 errors.Unwrap 取底层原因。
type Error struct {
	Kind    Kind
	Stage   Stage
	OrderID string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("submit order %s: %s during %s: %v", e.OrderID, e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrStoreFailure:
		return e.Kind == KindStoreFailure
	case ErrPublishFailure:
		return e.Kind == KindPublishFailure
	case ErrTimeout:
		return e.Kind == KindTimeout
	}
	return false
}

// Stored 表示记录已落库：发布阶段的失败不会回滚存储。
func (e *Error) Stored() bool { return e.Stage == StagePublish }

func newError(stage Stage, orderID string, err error) *Error {
	kind := KindStoreFailure
	if stage == StagePublish {
		kind = KindPublishFailure
	}
	if isTimeout(err) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Stage: stage, OrderID: orderID, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
