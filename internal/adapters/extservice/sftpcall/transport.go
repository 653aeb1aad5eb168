package sftpcall

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"3tcapital/ms_external_services/internal/core/extservice"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SSHDialer implements extservice.Dialer over SSH with password
// authentication. The host-key trust policy is caller-supplied; the zero
// value of the policy falls back to accepting any host key, matching the
// historical default, but deployers should pin a real callback
// (ssh.FixedHostKey or knownhosts) in production.
type SSHDialer struct {
	hostKey ssh.HostKeyCallback
}

// NewSSHDialer builds a dialer with the given host-key trust policy.
// Passing nil selects the auto-accept policy.
func NewSSHDialer(hostKey ssh.HostKeyCallback) *SSHDialer {
	if hostKey == nil {
		hostKey = ssh.InsecureIgnoreHostKey()
	}
	return &SSHDialer{hostKey: hostKey}
}

// Dial opens an SSH connection to host:port within timeout.
func (d *SSHDialer) Dial(host string, port int, username, password string, timeout time.Duration) (extservice.Session, error) {
	config := &ssh.ClientConfig{
		User:            username,
		Auth:            []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: d.hostKey,
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &sshSession{conn: conn}, nil
}

type sshSession struct {
	conn *ssh.Client
}

func (s *sshSession) OpenChannel() (extservice.Channel, error) {
	client, err := sftp.NewClient(s.conn)
	if err != nil {
		return nil, fmt.Errorf("open sftp subsystem: %w", err)
	}
	return &sftpChannel{client: client}, nil
}

func (s *sshSession) Close() error {
	return s.conn.Close()
}

type sftpChannel struct {
	client *sftp.Client
}

func (ch *sftpChannel) ListDir(path string) ([]string, error) {
	infos, err := ch.client.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}

func (ch *sftpChannel) OpenFile(path string) (io.WriteCloser, error) {
	return ch.client.Create(path)
}

func (ch *sftpChannel) ReadFile(path string) (io.ReadCloser, error) {
	return ch.client.Open(path)
}

func (ch *sftpChannel) Close() error {
	return ch.client.Close()
}
