package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-replica/common/types"
	"github.com/spacemeshos/go-replica/log"
	"github.com/spacemeshos/go-replica/p2p"
)

// Client implements p2p.Host for a peer connected to a Server.
// The only remote peer of a client is the server peer.
type Client struct {
	logger  *zap.Logger
	local   types.PeerID
	conn    *conn
	packets chan p2p.Packet
	events  chan p2p.Event
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

// Dial connects to a server at url and waits for the assigned peer id.
func Dial(ctx context.Context, url string, opts ...Opt) (*Client, error) {
	o := newOptions(opts)
	dialer := websocket.Dialer{HandshakeTimeout: o.cfg.HandshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	peer, err := handshake(ws, o.cfg.HandshakeTimeout)
	if err != nil {
		ws.Close()
		return nil, err
	}
	logger := o.logger.With(zap.Stringer("local", peer))
	c := &Client{
		logger:  logger,
		local:   peer,
		conn:    newConn(logger, o.cfg, p2p.NewTracker("ws"), ws, types.ServerPeer),
		packets: make(chan p2p.Packet, o.cfg.QueueSize),
		events:  make(chan p2p.Event, 2),
		done:    make(chan struct{}),
	}
	c.events <- p2p.Event{Peer: types.ServerPeer, Connected: true}
	logger.Info("connected", zap.String("url", url))
	go c.run()
	return c, nil
}

func handshake(ws *websocket.Conn, timeout time.Duration) (types.PeerID, error) {
	if err := ws.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}
	_, msg, err := ws.ReadMessage()
	if err != nil {
		return 0, fmt.Errorf("read welcome: %w", err)
	}
	peer, err := parseWelcome(msg)
	if err != nil {
		return 0, err
	}
	return peer, ws.SetReadDeadline(time.Time{})
}

func (c *Client) run() {
	defer close(c.done)
	if err := c.conn.run(context.Background(), c.deliver); err != nil {
		c.logger.Debug("connection failed", log.Peer(types.ServerPeer), zap.Error(err))
	}
	c.logger.Info("disconnected")
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.events <- p2p.Event{Peer: types.ServerPeer}
	close(c.packets)
	close(c.events)
}

func (c *Client) deliver(ctx context.Context, pkt p2p.Packet) bool {
	if pkt.Reliable {
		select {
		case c.packets <- pkt:
			return true
		case <-ctx.Done():
			return false
		}
	}
	select {
	case c.packets <- pkt:
	default:
		c.conn.tracker.Dropped("queue")
	}
	return true
}

func (c *Client) LocalPeer() types.PeerID {
	return c.local
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Send accepts the server peer and BroadcastPeer, which both address the server.
func (c *Client) Send(peer types.PeerID, data []byte, reliable bool) error {
	if peer != types.ServerPeer && peer != types.BroadcastPeer {
		return fmt.Errorf("%w: %v", p2p.ErrNotConnected, peer)
	}
	if !c.Connected() {
		return p2p.ErrClosed
	}
	return c.conn.send(data, reliable)
}

func (c *Client) Packets() <-chan p2p.Packet {
	return c.packets
}

func (c *Client) Events() <-chan p2p.Event {
	return c.events
}

// Close disconnects from the server and waits until the connection stopped.
func (c *Client) Close() error {
	c.conn.close()
	<-c.done
	return nil
}
