package xrun

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrSignal 因收到系统信号而终止，使用 errors.Is 判断。
	ErrSignal = errors.New("received signal")

	// ErrNilFunc 服务函数为 nil。
	ErrNilFunc = errors.New("xrun: nil service func")
)

// SignalError 携带触发终止的信号。
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	if e.Signal == nil {
		return "received signal <nil>"
	}
	return fmt.Sprintf("received signal %s", e.Signal)
}

func (e *SignalError) Unwrap() error {
	return ErrSignal
}
