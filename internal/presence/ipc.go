package presence

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Discord IPC opcodes.
const (
	opHandshake uint32 = 0
	opFrame     uint32 = 1
	opClose     uint32 = 2
)

const maxFrameSize = 64 * 1024

// ErrNotConnected is returned when activity is set without a connection.
var ErrNotConnected = errors.New("discord ipc not connected")

// Client talks to the local Discord client.
type Client interface {
	Connect(ctx context.Context) error
	SetActivity(ctx context.Context, activity Activity) error
	Close() error
}

// Activity is the subset of Rich Presence fields the launcher reports.
type Activity struct {
	Details string `json:"details,omitempty"`
	State   string `json:"state,omitempty"`
}

// IPCClient speaks Discord's local IPC framing: a little-endian opcode and
// payload length followed by a JSON body.
type IPCClient struct {
	appID      string
	socketPath string
	dialer     net.Dialer

	mu   sync.Mutex
	conn net.Conn
}

// NewIPCClient returns a client for appID. An empty socketPath selects the
// default discord-ipc-0 location.
func NewIPCClient(appID, socketPath string) *IPCClient {
	if socketPath == "" {
		socketPath = DefaultSocketPath()
	}
	return &IPCClient{appID: appID, socketPath: socketPath}
}

// DefaultSocketPath locates discord-ipc-0 under the runtime directory.
func DefaultSocketPath() string {
	for _, env := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if dir := os.Getenv(env); dir != "" {
			return filepath.Join(dir, "discord-ipc-0")
		}
	}
	return filepath.Join("/tmp", "discord-ipc-0")
}

// Connect dials the socket and performs the handshake.
func (c *IPCClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	conn, err := c.dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("dial discord ipc: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
		defer func() { _ = conn.SetDeadline(time.Time{}) }()
	}

	if err := writeFrame(conn, opHandshake, map[string]any{"v": 1, "client_id": c.appID}); err != nil {
		_ = conn.Close()
		return fmt.Errorf("discord handshake: %w", err)
	}
	if _, _, err := readFrame(conn); err != nil {
		_ = conn.Close()
		return fmt.Errorf("discord handshake reply: %w", err)
	}
	c.conn = conn
	return nil
}

// SetActivity publishes activity for the current process.
func (c *IPCClient) SetActivity(ctx context.Context, activity Activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	conn := c.conn
	if conn == nil {
		return ErrNotConnected
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
		defer func() { _ = conn.SetDeadline(time.Time{}) }()
	}

	payload := map[string]any{
		"cmd":   "SET_ACTIVITY",
		"nonce": uuid.NewString(),
		"args": map[string]any{
			"pid":      os.Getpid(),
			"activity": activity,
		},
	}
	if err := writeFrame(conn, opFrame, payload); err != nil {
		return fmt.Errorf("send activity: %w", err)
	}
	op, _, err := readFrame(conn)
	if err != nil {
		return fmt.Errorf("read activity reply: %w", err)
	}
	if op == opClose {
		_ = conn.Close()
		c.conn = nil
		return errors.New("discord closed the connection")
	}
	return nil
}

// Close sends a close frame and drops the connection.
func (c *IPCClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = writeFrame(c.conn, opClose, map[string]any{})
	err := c.conn.Close()
	c.conn = nil
	return err
}

func writeFrame(w io.Writer, op uint32, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], op)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(body)))
	if _, err := w.Write(append(header, body...)); err != nil {
		return err
	}
	return nil
}

func readFrame(r io.Reader) (uint32, []byte, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}
	op := binary.LittleEndian.Uint32(header[0:4])
	size := binary.LittleEndian.Uint32(header[4:8])
	if size > maxFrameSize {
		return 0, nil, fmt.Errorf("frame too large: %d bytes", size)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, err
	}
	return op, body, nil
}

// NoopClient is used when no Discord application id is configured.
type NoopClient struct{}

func (NoopClient) Connect(context.Context) error               { return nil }
func (NoopClient) SetActivity(context.Context, Activity) error { return nil }
func (NoopClient) Close() error                                { return nil }
