package simpletun

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rectcircle/simpletun/internal/simpletun/protocol"
	"golang.org/x/term"
)

// CredentialsProvider - supplies the client credentials before the handshake
type CredentialsProvider interface {
	Credentials() (protocol.Credentials, error)
}

// CredentialsFunc - adapt a function to CredentialsProvider
type CredentialsFunc func() (protocol.Credentials, error)

// Credentials - call f
func (f CredentialsFunc) Credentials() (protocol.Credentials, error) {
	return f()
}

// Prompt - ask the operator for a username and password.
// The password is read with echo disabled when In is a terminal.
type Prompt struct {
	In  io.Reader
	Out io.Writer
}

// Credentials - prompt on Out, read from In
func (p *Prompt) Credentials() (protocol.Credentials, error) {
	reader := bufio.NewReader(p.In)
	fmt.Fprint(p.Out, "Please enter the Username : ")
	username, err := readLine(reader)
	if err != nil {
		return protocol.Credentials{}, fmt.Errorf("reading username: %w", err)
	}
	fmt.Fprint(p.Out, "Please enter the Password : ")
	var password string
	if fd, ok := terminalFd(p.In); ok {
		passwordBytes, err := term.ReadPassword(fd)
		fmt.Fprintln(p.Out)
		if err != nil {
			return protocol.Credentials{}, fmt.Errorf("reading password: %w", err)
		}
		password = string(passwordBytes)
	} else {
		password, err = readLine(reader)
		if err != nil {
			return protocol.Credentials{}, fmt.Errorf("reading password: %w", err)
		}
	}
	credentials := protocol.Credentials{Username: username, Password: password}
	return credentials, credentials.Validate()
}

func terminalFd(in io.Reader) (int, bool) {
	file, ok := in.(interface{ Fd() uintptr })
	if !ok {
		return 0, false
	}
	fd := int(file.Fd())
	return fd, term.IsTerminal(fd)
}

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
