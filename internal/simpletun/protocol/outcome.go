package protocol

import (
	"bytes"
	"fmt"
)

// Outcome - the verdict of a handshake.
// Bit 1 is set when the username matched, bit 0 when the password matched.
type Outcome uint8

const (
	// OutcomeNoneMatched - username and password incorrect
	OutcomeNoneMatched = Outcome(iota)
	// OutcomePasswordOnly - username incorrect
	OutcomePasswordOnly
	// OutcomeUsernameOnly - password incorrect
	OutcomeUsernameOnly
	// OutcomePass - all correct
	OutcomePass
)

// verdictLength - every verdict is sent without a terminator and has this length
const verdictLength = 3

// verdicts - wire string of each Outcome, indexed by code
var verdicts = [...]string{
	OutcomeNoneMatched:  "R00",
	OutcomePasswordOnly: "R01",
	OutcomeUsernameOnly: "R02",
	OutcomePass:         "R03",
}

// NewOutcome - build an Outcome from the two comparison results
func NewOutcome(usernameMatched, passwordMatched bool) Outcome {
	var o Outcome
	if usernameMatched {
		o |= 0b10
	}
	if passwordMatched {
		o |= 0b01
	}
	return o
}

// ParseVerdict - decode a verdict message. Only the four exact strings are accepted.
func ParseVerdict(message []byte) (Outcome, error) {
	for code, verdict := range verdicts {
		if bytes.Equal(message, []byte(verdict)) {
			return Outcome(code), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown verdict %q", ErrProtocol, message)
}

// UsernameMatched - whether the username was accepted
func (o Outcome) UsernameMatched() bool { return o&0b10 != 0 }

// PasswordMatched - whether the password was accepted
func (o Outcome) PasswordMatched() bool { return o&0b01 != 0 }

// Passed - whether both credentials were accepted
func (o Outcome) Passed() bool { return o == OutcomePass }

// Verdict - the wire string of the Outcome
func (o Outcome) Verdict() string {
	if int(o) >= len(verdicts) {
		return fmt.Sprintf("R?%d", o)
	}
	return verdicts[o]
}

func (o Outcome) String() string {
	switch o {
	case OutcomeNoneMatched:
		return "both username and password incorrect"
	case OutcomePasswordOnly:
		return "username incorrect"
	case OutcomeUsernameOnly:
		return "password incorrect"
	case OutcomePass:
		return "all correct"
	}
	return fmt.Sprintf("Outcome(%d)", uint8(o))
}
