// Package console provides the interactive command line of redial-client.
package console

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/redial-io/redial-go/pkg/socket"
	"github.com/redial-io/redial-go/pkg/transport"
)

// Transport is the part of *transport.Transport the console drives.
type Transport interface {
	Connect(ctx context.Context) error
	Reconnect(ctx context.Context) error
	Close() error
	Send(payload []byte) error
	SendMessage(msg socket.Message) error
	State() transport.State
	Endpoint() string
	ConnectionID() string
	Episodes() int
}

var _ Transport = (*transport.Transport)(nil)

// Console executes console commands against a transport.
type Console struct {
	tr      Transport
	out     io.Writer
	timeout time.Duration
	rl      *readline.Instance
}

// New creates a console that writes to out. timeout bounds connect and
// reconnect commands.
func New(tr Transport, out io.Writer, timeout time.Duration) *Console {
	return &Console{tr: tr, out: out, timeout: timeout}
}

// NewInteractive creates a console reading from the terminal. tr may be
// nil and attached later.
func NewInteractive(tr Transport, timeout time.Duration) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "redial> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	c := New(tr, rl.Stdout(), timeout)
	c.rl = rl
	return c, nil
}

// Attach sets the transport the console drives.
func (c *Console) Attach(tr Transport) {
	c.tr = tr
}

// Stdout returns a writer that coordinates with the prompt.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Run reads commands until quit, EOF or ctx ends.
func (c *Console) Run(ctx context.Context) {
	if c.rl == nil {
		return
	}
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			return
		}

		if quit := c.Execute(ctx, line); quit {
			return
		}
	}
}

// Execute runs one command line and reports whether the console should exit.
func (c *Console) Execute(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	cmd, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "help", "?":
		c.printHelp()

	case "send", "s":
		c.cmdSend(rest, socket.ModeUnset)

	case "text":
		c.cmdSend(rest, socket.ModeText)

	case "hex":
		c.cmdSendHex(rest)

	case "connect":
		c.cmdConnect(ctx)

	case "reconnect":
		c.cmdReconnect(ctx)

	case "close":
		if err := c.tr.Close(); err != nil {
			fmt.Fprintf(c.out, "Close failed: %v\n", err)
			return false
		}
		fmt.Fprintln(c.out, "Closing")

	case "status", "st":
		c.cmdStatus()

	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return true

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) cmdSend(payload string, mode socket.Mode) {
	if payload == "" {
		fmt.Fprintln(c.out, "Usage: send <payload>")
		return
	}
	var err error
	if mode == socket.ModeUnset {
		err = c.tr.Send([]byte(payload))
	} else {
		err = c.tr.SendMessage(socket.Message{Mode: mode, Data: []byte(payload)})
	}
	if err != nil {
		fmt.Fprintf(c.out, "Send failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Sent %d bytes\n", len(payload))
}

func (c *Console) cmdSendHex(arg string) {
	data, err := hex.DecodeString(strings.ReplaceAll(arg, " ", ""))
	if err != nil || len(data) == 0 {
		fmt.Fprintln(c.out, "Usage: hex <hex bytes>")
		fmt.Fprintln(c.out, "  Example: hex a1 01 02")
		return
	}
	if err := c.tr.SendMessage(socket.Message{Mode: socket.ModeBinary, Data: data}); err != nil {
		fmt.Fprintf(c.out, "Send failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Sent %d bytes\n", len(data))
}

func (c *Console) cmdConnect(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.tr.Connect(ctx); err != nil {
		fmt.Fprintf(c.out, "Connect failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Connected to %s\n", c.tr.Endpoint())
}

func (c *Console) cmdReconnect(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.tr.Reconnect(ctx); err != nil {
		fmt.Fprintf(c.out, "Reconnect failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Reconnect finished (state: %s)\n", c.tr.State())
}

func (c *Console) cmdStatus() {
	id := c.tr.ConnectionID()
	if id == "" {
		id = "-"
	}
	fmt.Fprintf(c.out, "Endpoint:   %s\n", c.tr.Endpoint())
	fmt.Fprintf(c.out, "State:      %s\n", c.tr.State())
	fmt.Fprintf(c.out, "Connection: %s\n", id)
	fmt.Fprintf(c.out, "Episodes:   %d\n", c.tr.Episodes())
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Redial Client Commands:
  Messages:
    send <payload>     - Send payload in the configured mode
    text <payload>     - Send payload as a text frame
    hex <bytes>        - Send hex-encoded bytes as a binary frame

  Connection:
    connect            - Open the connection
    reconnect          - Start a reconnect episode
    close              - Close the connection (no reconnect)
    status             - Show connection state

  Other:
    help               - Show this help
    quit               - Exit`)
}
