package setup

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/zgxtoolkit/zgxctl/internal/logging"
)

// DefaultSSHTimeout bounds the TCP+handshake phase of a connection.
const DefaultSSHTimeout = 15 * time.Second

// Config describes how to reach a device over SSH. Password and
// PrivateKeyPath are both optional; at least one must be set.
type Config struct {
	Host           string
	Port           int
	User           string
	Password       string
	PrivateKeyPath string
	Timeout        time.Duration
}

// Executor runs a shell command on a device and returns its combined output.
// Runner implements it over SSH; tests substitute fakes.
type Executor interface {
	Run(command string) (string, error)
}

// Runner executes setup and install commands on a device over one SSH
// connection. Each command runs in its own session.
type Runner struct {
	client *ssh.Client
	host   string
}

// Dial connects to the device described by cfg.
func Dial(cfg Config) (*Runner, error) {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSSHTimeout
	}

	var auth []ssh.AuthMethod
	if cfg.PrivateKeyPath != "" {
		key, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}
	if len(auth) == 0 {
		return nil, NewValidationError("no SSH credentials provided")
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	clientConfig := &ssh.ClientConfig{
		User: cfg.User,
		Auth: auth,
		// Devices are provisioned fresh on the local network; their host
		// keys are not known ahead of time.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         cfg.Timeout,
	}

	client, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		return nil, classifyDialError(addr, err)
	}

	logging.Debug("SSH connection established", zap.String("addr", addr), zap.String("user", cfg.User))
	return &Runner{client: client, host: cfg.Host}, nil
}

// Run executes a single command on the device and returns its combined
// stdout and stderr.
func (r *Runner) Run(command string) (string, error) {
	session, err := r.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to open SSH session: %w", err)
	}
	defer session.Close()

	output, err := session.CombinedOutput(command)
	if err != nil {
		return string(output), &CommandError{
			Host:    r.host,
			Command: command,
			Output:  string(output),
			Err:     err,
		}
	}
	return string(output), nil
}

// TestConnection verifies that the device accepts commands.
func (r *Runner) TestConnection() error {
	_, err := r.Run("true")
	return err
}

// Close terminates the SSH connection.
func (r *Runner) Close() error {
	return r.client.Close()
}

// IsInstalled reports whether the app's check command succeeds on the
// device.
func IsInstalled(exec Executor, app App) bool {
	_, err := exec.Run(app.CheckCommand)
	return err == nil
}

// Install runs the app's install command sequence. Apps already present are
// skipped. The first failing command aborts the sequence.
func Install(exec Executor, app App) error {
	if IsInstalled(exec, app) {
		logging.Info("app already installed", zap.String("app", app.ID))
		return nil
	}

	for _, command := range app.InstallCommands {
		logging.Info("running install command",
			zap.String("app", app.ID),
			zap.String("command", command),
		)
		if _, err := exec.Run(command); err != nil {
			return fmt.Errorf("installing %s: %w", app.ID, err)
		}
	}
	return nil
}
