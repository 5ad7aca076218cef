//go:build unix

package tools

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isResetErrno - broken pipe or connection reset by peer
func isResetErrno(err error) bool {
	return errors.Is(err, unix.EPIPE) || errors.Is(err, unix.ECONNRESET)
}
