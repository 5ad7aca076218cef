package protocol

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

const (
	// MessageAck - Responder acknowledges a username or password message
	MessageAck = "Finished"
	// MessageFinish - Initiator asks for the verdict
	MessageFinish = "Finish"
	// MaxMessageSize - the largest handshake message, legacy peers use 256 byte C strings
	MaxMessageSize = 255
)

var (
	// ErrProtocol - the peer sent something the handshake does not expect
	ErrProtocol = errors.New("handshake protocol error")
	// ErrMessageTooLarge - a handshake message exceeds MaxMessageSize
	ErrMessageTooLarge = errors.New("handshake message too large")
)

// HandshakeState - progress of one side of the handshake
type HandshakeState int

const (
	StateStart = HandshakeState(iota)
	StateSendingUsername
	StateAwaitingUsername
	StateSendingPassword
	StateAwaitingPassword
	StateAwaitingVerdict
	StateSendingVerdict
	StateDone
)

var stateNames = [...]string{
	StateStart:            "Start",
	StateSendingUsername:  "SendingUsername",
	StateAwaitingUsername: "AwaitingUsername",
	StateSendingPassword:  "SendingPassword",
	StateAwaitingPassword: "AwaitingPassword",
	StateAwaitingVerdict:  "AwaitingVerdict",
	StateSendingVerdict:   "SendingVerdict",
	StateDone:             "Done",
}

func (s HandshakeState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("HandshakeState(%d)", int(s))
	}
	return stateNames[s]
}

// Credentials - a username and password pair
type Credentials struct {
	Username string
	Password string
}

// Verifier - checks the credentials received by the Responder
type Verifier interface {
	VerifyUsername(username []byte) bool
	VerifyPassword(password []byte) bool
}

// VerifyUsername - byte-for-byte comparison
func (c Credentials) VerifyUsername(username []byte) bool {
	return bytes.Equal([]byte(c.Username), username)
}

// VerifyPassword - byte-for-byte comparison
func (c Credentials) VerifyPassword(password []byte) bool {
	return bytes.Equal([]byte(c.Password), password)
}

// Validate - check the credentials can be carried by handshake messages
func (c Credentials) Validate() error {
	for _, field := range []struct{ name, value string }{
		{"username", c.Username},
		{"password", c.Password},
	} {
		if len(field.value) > MaxMessageSize {
			return fmt.Errorf("%w: %s is %d bytes, max %d", ErrMessageTooLarge, field.name, len(field.value), MaxMessageSize)
		}
		if bytes.IndexByte([]byte(field.value), 0) >= 0 {
			return fmt.Errorf("%s must not contain NUL bytes", field.name)
		}
	}
	return nil
}

// Initiate - run the Initiator (Client) side of the handshake.
// A credential mismatch is reported through the Outcome, not as an error.
func Initiate(ctx context.Context, conn io.ReadWriter, credentials Credentials, options *Options) (Outcome, error) {
	if err := credentials.Validate(); err != nil {
		return 0, err
	}
	h := newHandshake(conn, options, "initiator")
	release, err := bindDeadline(ctx, conn, options.handshakeTimeout(), h.logger)
	if err != nil {
		return 0, h.fail(ctx, "set deadline", err)
	}
	defer release()

	h.transition(StateSendingUsername)
	if err := h.send([]byte(credentials.Username)); err != nil {
		return 0, h.fail(ctx, "send username", err)
	}
	if err := h.expectAck(); err != nil {
		return 0, h.fail(ctx, "username ack", err)
	}

	h.transition(StateSendingPassword)
	if err := h.send([]byte(credentials.Password)); err != nil {
		return 0, h.fail(ctx, "send password", err)
	}
	if err := h.expectAck(); err != nil {
		return 0, h.fail(ctx, "password ack", err)
	}

	h.transition(StateAwaitingVerdict)
	if err := h.send([]byte(MessageFinish)); err != nil {
		return 0, h.fail(ctx, "send finish", err)
	}
	message, err := h.receiveVerdict()
	if err != nil {
		return 0, h.fail(ctx, "receive verdict", err)
	}
	outcome, err := ParseVerdict(message)
	if err != nil {
		return 0, h.fail(ctx, "verdict", err)
	}

	h.transition(StateDone)
	h.logOutcome(outcome)
	return outcome, nil
}

// Respond - run the Responder (Server) side of the handshake and send the verdict.
func Respond(ctx context.Context, conn io.ReadWriter, verifier Verifier, options *Options) (Outcome, error) {
	h := newHandshake(conn, options, "responder")
	release, err := bindDeadline(ctx, conn, options.handshakeTimeout(), h.logger)
	if err != nil {
		return 0, h.fail(ctx, "set deadline", err)
	}
	defer release()

	h.transition(StateAwaitingUsername)
	username, err := h.receive()
	if err != nil {
		return 0, h.fail(ctx, "receive username", err)
	}
	usernameMatched := verifier.VerifyUsername(username)
	if usernameMatched {
		h.logger.Info("username correct")
	} else {
		h.logger.Info("username incorrect", "username", string(username))
	}
	if err := h.send([]byte(MessageAck)); err != nil {
		return 0, h.fail(ctx, "username ack", err)
	}

	h.transition(StateAwaitingPassword)
	password, err := h.receive()
	if err != nil {
		return 0, h.fail(ctx, "receive password", err)
	}
	passwordMatched := verifier.VerifyPassword(password)
	if passwordMatched {
		h.logger.Info("password correct")
	} else {
		h.logger.Info("password incorrect")
	}
	if err := h.send([]byte(MessageAck)); err != nil {
		return 0, h.fail(ctx, "password ack", err)
	}

	h.transition(StateSendingVerdict)
	for {
		message, err := h.receive()
		if err != nil {
			return 0, h.fail(ctx, "receive finish", err)
		}
		if bytes.Equal(message, []byte(MessageFinish)) {
			break
		}
		h.logger.Debug("discard message before finish", "length", len(message))
	}
	outcome := NewOutcome(usernameMatched, passwordMatched)
	if err := h.send([]byte(outcome.Verdict())); err != nil {
		return 0, h.fail(ctx, "send verdict", err)
	}

	h.transition(StateDone)
	h.logOutcome(outcome)
	return outcome, nil
}

type handshake struct {
	conn   io.ReadWriter
	logger *slog.Logger
	role   string
	state  HandshakeState
	buffer []byte
}

func newHandshake(conn io.ReadWriter, options *Options, role string) *handshake {
	return &handshake{
		conn:   conn,
		logger: options.logger().With("role", role),
		role:   role,
		state:  StateStart,
		buffer: make([]byte, MaxMessageSize+1),
	}
}

func (h *handshake) transition(next HandshakeState) {
	h.logger.Debug("handshake state", "from", h.state, "to", next)
	h.state = next
}

// send - write one message. The wire has no delimiter, so an empty message
// travels as a lone NUL byte, which C string peers read as "".
func (h *handshake) send(message []byte) error {
	if len(message) > MaxMessageSize {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(message))
	}
	if len(message) == 0 {
		message = []byte{0}
	}
	return writeAll(h.conn, message)
}

// receive - one blocking read per message, relying on the stream's read boundaries.
// The message is cut at its first NUL byte.
func (h *handshake) receive() ([]byte, error) {
	for empty := 0; empty < maxEmptyReads; empty++ {
		n, err := h.conn.Read(h.buffer)
		if n > MaxMessageSize {
			return nil, fmt.Errorf("%w: more than %d bytes", ErrMessageTooLarge, MaxMessageSize)
		}
		if n > 0 {
			message := h.buffer[:n]
			if i := bytes.IndexByte(message, 0); i >= 0 {
				message = message[:i]
			}
			return append([]byte(nil), message...), nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrPeerClosed
			}
			return nil, err
		}
	}
	return nil, io.ErrNoProgress
}

// receiveVerdict - read exactly one verdict. Frames may follow it in the same
// segment, so nothing past the verdict is consumed.
func (h *handshake) receiveVerdict() ([]byte, error) {
	verdict := make([]byte, verdictLength)
	n, err := readExact(h.conn, verdict)
	if err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return nil, ErrPeerClosed
		}
		return nil, truncated(err)
	}
	return verdict, nil
}

func (h *handshake) expectAck() error {
	message, err := h.receive()
	if err != nil {
		return err
	}
	if !bytes.Equal(message, []byte(MessageAck)) {
		return fmt.Errorf("%w: unexpected acknowledgment %q", ErrProtocol, message)
	}
	return nil
}

func (h *handshake) fail(ctx context.Context, step string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	h.logger.Debug("handshake failed", "state", h.state, "step", step, "error", err)
	return fmt.Errorf("%s %s: %w", h.role, step, err)
}

func (h *handshake) logOutcome(outcome Outcome) {
	h.logger.Info("handshake done", "verdict", outcome.Verdict(), "outcome", outcome.String())
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

// bindDeadline - apply the handshake timeout and ctx cancellation to conn if it supports deadlines.
// The returned function clears the deadline.
func bindDeadline(ctx context.Context, conn io.ReadWriter, timeout time.Duration, logger *slog.Logger) (func(), error) {
	d, ok := conn.(deadliner)
	if !ok {
		return func() {}, nil
	}
	if timeout > 0 {
		if err := d.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, err
		}
	}
	stop := context.AfterFunc(ctx, func() {
		if err := d.SetDeadline(time.Unix(1, 0)); err != nil {
			logger.Debug("interrupt handshake", "error", err)
		}
	})
	return func() {
		stop()
		if err := d.SetDeadline(time.Time{}); err != nil {
			logger.Debug("clear handshake deadline", "error", err)
		}
	}, nil
}
