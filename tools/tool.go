package tools

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"

	"golang.org/x/term"
)

// ToAddressString - return "$host:$port"
func ToAddressString(host string, port uint16) string {
	return net.JoinHostPort(host, strconv.FormatInt(int64(port), 10))
}

// PathExist - return whether exist of path
func PathExist(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// If - return a if condition else b
func If[T any](condition bool, a, b T) T {
	if condition {
		return a
	}
	return b
}

// NewLogger - structured logger on `output`.
// Text when `output` is a terminal, JSON otherwise; Debug level if `debug`.
func NewLogger(output *os.File, debug bool) *slog.Logger {
	options := &slog.HandlerOptions{Level: If(debug, slog.LevelDebug, slog.LevelInfo)}
	var handler slog.Handler
	if term.IsTerminal(int(output.Fd())) {
		handler = slog.NewTextHandler(output, options)
	} else {
		handler = slog.NewJSONHandler(output, options)
	}
	return slog.New(handler)
}

// IsExpectedCloseError - whether err is a normal connection termination:
// EOF, closed connection, broken pipe or connection reset
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed) {
		return true
	}
	return isResetErrno(err)
}

// LogAndExitIfErr - will log and exit if err != nil
func LogAndExitIfErr(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
