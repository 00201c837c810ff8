package bridge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/coder/websocket"
)

// brotliThreshold is the frame size, in bytes, above which
// WebSocketTransport compresses a frame before writing it. Small frames
// (the common case — most calls carry a handful of scalar arguments)
// aren't worth the compression overhead.
const brotliThreshold = 4096

// WebSocketTransport is an out-of-process core.Transport for a bridge
// whose JS peer lives behind a websocket — a remote devtools-style
// connection rather than an embedded engine in the same process. Unlike
// InProcessTransport it is inherently asynchronous: SendToJS never blocks
// for a reply itself, relying on the handler installed via
// SetMessageHandler to deliver whatever the peer eventually sends back.
type WebSocketTransport struct {
	conn    *websocket.Conn
	handler func([]byte)
	pingFor time.Duration
}

// DialWebSocketTransport connects to url and starts the transport's
// background read loop. Call SetMessageHandler before any frame the peer
// sends can be routed anywhere.
func DialWebSocketTransport(ctx context.Context, url string) (*WebSocketTransport, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("bridge: dialing websocket transport: %w", err)
	}
	t := &WebSocketTransport{conn: conn, pingFor: 30 * time.Second}
	go t.readLoop()
	go t.pingLoop()
	return t, nil
}

// NewWebSocketTransport wraps an already-accepted server-side connection
// (the devtools-host side of the bridge, as opposed to the embedding
// application dialing out).
func NewWebSocketTransport(conn *websocket.Conn) *WebSocketTransport {
	t := &WebSocketTransport{conn: conn, pingFor: 30 * time.Second}
	go t.readLoop()
	go t.pingLoop()
	return t
}

// SetMessageHandler installs the callback invoked for every frame the
// peer sends — both Evaluate calls it initiates and Respond replies to
// calls this side sent.
func (t *WebSocketTransport) SetMessageHandler(handler func([]byte)) {
	t.handler = handler
}

// SendToJS writes frame to the peer and returns immediately with a nil
// reply: this transport never answers synchronously, so the matching
// Respond (if any) arrives later through the installed message handler,
// per core.Transport's asynchronous-transport contract.
func (t *WebSocketTransport) SendToJS(frame []byte) ([]byte, error) {
	return nil, t.Send(frame)
}

// Send writes frame to the peer, brotli-compressing it first when it's
// larger than brotliThreshold.
func (t *WebSocketTransport) Send(frame []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if len(frame) <= brotliThreshold {
		return t.conn.Write(ctx, websocket.MessageBinary, append([]byte{0}, frame...))
	}

	var buf bytes.Buffer
	buf.WriteByte(1)
	w := brotli.NewWriter(&buf)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("bridge: compressing frame: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("bridge: compressing frame: %w", err)
	}
	return t.conn.Write(ctx, websocket.MessageBinary, buf.Bytes())
}

// readLoop mirrors the teacher's WebSocketHandler.Bridge read loop:
// block on the next incoming message, decompress if flagged, hand it to
// the installed handler, repeat until the connection closes.
func (t *WebSocketTransport) readLoop() {
	for {
		_, data, err := t.conn.Read(context.Background())
		if err != nil {
			return
		}
		if len(data) == 0 {
			continue
		}
		frame, err := t.decodeIncoming(data)
		if err != nil {
			log.Printf("bridge: websocket transport: %v", err)
			continue
		}
		if t.handler != nil {
			t.handler(frame)
		}
	}
}

func (t *WebSocketTransport) decodeIncoming(data []byte) ([]byte, error) {
	flag, payload := data[0], data[1:]
	switch flag {
	case 0:
		return payload, nil
	case 1:
		out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(payload)))
		if err != nil {
			return nil, fmt.Errorf("decompressing frame: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown frame compression flag %d", flag)
	}
}

// pingLoop keeps the connection alive, matching the teacher's 30-second
// ping cadence in WebSocketHandler.Bridge.
func (t *WebSocketTransport) pingLoop() {
	ticker := time.NewTicker(t.pingFor)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := t.conn.Ping(ctx)
		cancel()
		if err != nil {
			return
		}
	}
}

// Close closes the underlying websocket connection.
func (t *WebSocketTransport) Close() error {
	return t.conn.Close(websocket.StatusNormalClosure, "")
}
