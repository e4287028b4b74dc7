package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	nut "github.com/robbiet480/go.nut"
)

const DefaultNUTPort = 3493

type NUTConfig struct {
	Host     string
	Port     int
	Username string
	// Password is read on every dial so a rotated secret applies to the
	// next session.
	Password func() string
	// Timeout bounds connecting, logging in and each variable read.
	Timeout time.Duration
}

func (c NUTConfig) password() string {
	if c.Password == nil {
		return ""
	}
	return c.Password()
}

// nutClient is the part of *nut.Client a session uses.
type nutClient interface {
	SendCommand(cmd string) ([]string, error)
	Disconnect() (bool, error)
}

type nutSource struct {
	client  nutClient
	timeout time.Duration
	// stalled is set once a command outlives the timeout; the client is
	// then still busy and must not be reused.
	stalled bool
}

// NUTDialer returns a DialFunc opening sessions to a NUT upsd server.
func NUTDialer(cfg NUTConfig) DialFunc {
	if cfg.Port == 0 {
		cfg.Port = DefaultNUTPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	return func(ctx context.Context) (VarSource, error) {
		ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		type result struct {
			source *nutSource
			err    error
		}
		done := make(chan result, 1)

		go func() {
			client, err := nut.Connect(cfg.Host, cfg.Port)
			if err != nil {
				done <- result{err: fmt.Errorf("connect %s:%d: %w", cfg.Host, cfg.Port, err)}
				return
			}
			if cfg.Username != "" {
				if _, err := client.Authenticate(cfg.Username, cfg.password()); err != nil {
					client.Disconnect()
					done <- result{err: fmt.Errorf("authenticate as %s: %w", cfg.Username, err)}
					return
				}
			}
			done <- result{source: newNUTSource(&client, cfg.Timeout)}
		}()

		select {
		case r := <-done:
			if r.err != nil {
				return nil, r.err
			}
			return r.source, nil
		case <-ctx.Done():
			// drain the late session so its socket is released
			go func() {
				if r := <-done; r.source != nil {
					r.source.Close()
				}
			}()
			return nil, ctx.Err()
		}
	}
}

func newNUTSource(client nutClient, timeout time.Duration) *nutSource {
	return &nutSource{client: client, timeout: timeout}
}

func (s *nutSource) Var(ctx context.Context, ups, name string) (string, error) {
	if s.stalled {
		return "", errors.New("session stalled")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		lines []string
		err   error
	}
	done := make(chan result, 1)
	go func() {
		lines, err := s.client.SendCommand(fmt.Sprintf("GET VAR %s %s", ups, name))
		done <- result{lines: lines, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", r.err
		}
		return parseVarResponse(r.lines, ups, name)
	case <-ctx.Done():
		s.stalled = true
		return "", fmt.Errorf("GET VAR %s: %w", name, ctx.Err())
	}
}

func (s *nutSource) Close() error {
	if s.stalled {
		// the pending command holds the connection; disconnect behind it
		go s.client.Disconnect()
		return nil
	}
	_, err := s.client.Disconnect()
	return err
}

// parseVarResponse extracts the value from a `VAR <ups> <name> "<value>"`
// reply.
func parseVarResponse(lines []string, ups, name string) (string, error) {
	prefix := fmt.Sprintf("VAR %s %s ", ups, name)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERR") {
			return "", fmt.Errorf("upsd: %s", line)
		}
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		return unquote(strings.TrimPrefix(line, prefix)), nil
	}
	return "", errors.New("no VAR line in response")
}

func unquote(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		value = value[1 : len(value)-1]
	}
	return strings.NewReplacer(`\"`, `"`, `\\`, `\`).Replace(value)
}
