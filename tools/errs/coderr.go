package errs

import (
	"errors"
	"strconv"
	"strings"

	pkgerr "github.com/pkg/errors"
)

// CodeError is the error currency of the hub: a stable code, a short
// message, and an optional free-form detail. Codes are compared by Is,
// details are for logs only.
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

// WithDetail returns a copy carrying extra detail; the receiver is not
// mutated so the package-level sentinels stay clean.
func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

// WrapMsg attaches detail and a call stack.
func (e *CodeError) WrapMsg(msg string) error {
	return pkgerr.WithStack(e.WithDetail(msg))
}

func (e *CodeError) Is(err error) bool {
	var ce *CodeError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == e.Code
}

// Wrap annotates err with msg, keeping the chain intact for errors.Is.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return pkgerr.Wrap(err, msg)
}

// Error codes. 1xxx auth, 2xxx client protocol, 3xxx bridge, 4xxx control.
const (
	CodeUnauthenticated       = 1001
	CodeForbidden             = 1003
	CodeUnknownEvent          = 2001
	CodeBridgeDecode          = 3001
	CodeDeliveryTargetMissing = 3002
)

var (
	ErrUnauthenticated = NewCodeError(CodeUnauthenticated, "unauthenticated")
	ErrForbidden       = NewCodeError(CodeForbidden, "forbidden")
	ErrUnknownEvent    = NewCodeError(CodeUnknownEvent, "unknown event")
	ErrBridgeDecode    = NewCodeError(CodeBridgeDecode, "bridge decode failed")

	// Not a failure: delivering to a room or user with no live
	// sessions is a no-op, callers use this only when they need to
	// report the miss upward.
	ErrDeliveryTargetMissing = NewCodeError(CodeDeliveryTargetMissing, "delivery target missing")
)
