package ws

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/spacemeshos/go-replica/common/types"
	"github.com/spacemeshos/go-replica/log"
	"github.com/spacemeshos/go-replica/p2p"
)

// Every binary message starts with a channel byte.
const (
	channelControl    byte = 0
	channelReliable   byte = 1
	channelUnreliable byte = 2
)

var errMalformed = errors.New("malformed frame")

func channelByte(reliable bool) byte {
	if reliable {
		return channelReliable
	}
	return channelUnreliable
}

func frame(channel byte, data []byte) []byte {
	buf := make([]byte, 0, 1+len(data))
	buf = append(buf, channel)
	return append(buf, data...)
}

// welcome assigns the peer id of a client.
func welcome(peer types.PeerID) []byte {
	return binary.LittleEndian.AppendUint32([]byte{channelControl}, uint32(peer))
}

func parseWelcome(msg []byte) (types.PeerID, error) {
	if len(msg) != 5 || msg[0] != channelControl {
		return 0, fmt.Errorf("%w: welcome of %d bytes", errMalformed, len(msg))
	}
	peer := types.PeerID(binary.LittleEndian.Uint32(msg[1:]))
	if peer <= types.ServerPeer {
		return 0, fmt.Errorf("%w: assigned peer %v", errMalformed, peer)
	}
	return peer, nil
}

// conn pumps frames of one websocket connection. The remote side is peer.
type conn struct {
	logger  *zap.Logger
	cfg     Config
	tracker p2p.Tracker
	ws      *websocket.Conn
	peer    types.PeerID
	limiter *rate.Limiter

	out     chan []byte
	closing chan struct{}
	once    sync.Once
}

func newConn(logger *zap.Logger, cfg Config, tracker p2p.Tracker, ws *websocket.Conn, peer types.PeerID) *conn {
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	ws.SetReadLimit(int64(cfg.MaxPacketSize) + 1)
	return &conn{
		logger:  logger.With(log.Peer(peer)),
		cfg:     cfg,
		tracker: tracker,
		ws:      ws,
		peer:    peer,
		limiter: rate.NewLimiter(limit, max(cfg.Burst, 1)),
		out:     make(chan []byte, cfg.QueueSize),
		closing: make(chan struct{}),
	}
}

func (c *conn) close() {
	c.once.Do(func() { close(c.closing) })
}

// send queues a frame. A full queue drops unreliable packets. For reliable
// packets it is an error and the connection is closed, since the packet can
// not be delivered anymore.
func (c *conn) send(data []byte, reliable bool) error {
	if len(data) > c.cfg.MaxPacketSize {
		return fmt.Errorf("%w: %d bytes", p2p.ErrTooLarge, len(data))
	}
	select {
	case <-c.closing:
		return fmt.Errorf("%w: %v", p2p.ErrNotConnected, c.peer)
	default:
	}
	select {
	case c.out <- frame(channelByte(reliable), data):
		c.tracker.Sent(reliable, len(data))
		return nil
	default:
	}
	c.tracker.Dropped("queue")
	if !reliable {
		return nil
	}
	c.logger.Warn("outbound queue full, closing connection")
	c.close()
	return fmt.Errorf("reliable to %v: %w", c.peer, p2p.ErrQueueFull)
}

// run pumps the connection until it fails or is closed. Packets are passed to deliver,
// which returns false if they can not be accepted anymore.
func (c *conn) run(ctx context.Context, deliver func(context.Context, p2p.Packet) bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var eg errgroup.Group
	eg.Go(func() error {
		defer cancel()
		defer c.ws.Close()
		return c.writeLoop(ctx)
	})
	eg.Go(func() error {
		defer c.close()
		return c.readLoop(ctx, deliver)
	})
	err := eg.Wait()
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil
	}
	return err
}

func (c *conn) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.goodbye()
			return nil
		case <-c.closing:
			c.goodbye()
			return nil
		case msg := <-c.out:
			if err := c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
				return err
			}
			if err := c.ws.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				return fmt.Errorf("write to %v: %w", c.peer, err)
			}
		}
	}
}

func (c *conn) goodbye() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	deadline := time.Now().Add(c.cfg.WriteTimeout)
	if err := c.ws.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		c.logger.Debug("close message not sent", zap.Error(err))
	}
}

func (c *conn) readLoop(ctx context.Context, deliver func(context.Context, p2p.Packet) bool) error {
	for {
		kind, msg, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.closing:
				return nil
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		if kind != websocket.BinaryMessage || len(msg) == 0 {
			c.tracker.Dropped("malformed")
			continue
		}
		var reliable bool
		switch msg[0] {
		case channelReliable:
			reliable = true
		case channelUnreliable:
		default:
			c.tracker.Dropped("malformed")
			c.logger.Debug("unexpected channel", zap.Uint8("channel", msg[0]))
			continue
		}
		if len(msg)-1 > c.cfg.MaxPacketSize {
			c.tracker.Dropped("too large")
			continue
		}
		if reliable {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil
			}
		} else if !c.limiter.Allow() {
			c.tracker.Dropped("rate")
			continue
		}
		c.tracker.Received(reliable, len(msg)-1)
		if !deliver(ctx, p2p.Packet{From: c.peer, Data: msg[1:], Reliable: reliable}) {
			return nil
		}
	}
}
