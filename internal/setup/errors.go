package setup

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrAuthFailed indicates the device rejected every offered credential.
var ErrAuthFailed = errors.New("ssh authentication failed")

// ErrTimeout indicates the device did not answer within the dial timeout.
var ErrTimeout = errors.New("ssh connection timed out")

// ValidationError reports an invalid setup configuration before any network
// activity happens.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// CommandError reports a remote command that ran but exited non-zero.
type CommandError struct {
	Host    string
	Command string
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed on %s: %v", e.Command, e.Host, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// classifyDialError maps an ssh.Dial failure onto the package's sentinel
// errors so callers can branch on auth-vs-reachability without string
// matching.
func classifyDialError(addr string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: %w", addr, ErrTimeout)
	}
	// x/crypto/ssh does not export a typed client auth error.
	if strings.Contains(err.Error(), "unable to authenticate") {
		return fmt.Errorf("%s: %w", addr, ErrAuthFailed)
	}
	return fmt.Errorf("ssh dial %s: %w", addr, err)
}
