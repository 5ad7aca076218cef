//go:build !unix

package tools

import (
	"errors"
	"syscall"
)

func isResetErrno(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET)
}
