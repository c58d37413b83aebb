package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"gqlbridge/internal/bridge"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 * 1024 * 1024 // 1MB
)

// Client represents one WebSocket connection and the bridge service bound to
// it. All boundary calls run on the read pump goroutine, which gives the
// service the single-threaded invocation it assumes; deliveries arrive on
// backend goroutines and are funneled through sendChan to the write pump.
type Client struct {
	conn    *websocket.Conn
	svc     *bridge.Service
	maxSubs int
	logger  zerolog.Logger

	sendChan  chan []byte
	closeChan chan struct{}
	closeOnce sync.Once
}

// NewClient creates a new WebSocket client around a per-connection service
func NewClient(conn *websocket.Conn, svc *bridge.Service, maxSubs int, logger zerolog.Logger) *Client {
	return &Client{
		conn:      conn,
		svc:       svc,
		maxSubs:   maxSubs,
		logger:    logger,
		sendChan:  make(chan []byte, 256),
		closeChan: make(chan struct{}),
	}
}

// Run starts the client read and write loops
func (c *Client) Run(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.writePump(ctx)

	c.readPump(ctx)

	// The connection is gone: tear down the session so every live
	// subscription gets its completion before the service is dropped.
	c.svc.Stop()
}

// readPump reads messages from the WebSocket connection
func (c *Client) readPump(ctx context.Context) {
	defer c.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closeChan:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug().Err(err).Msg("read error")
			}
			return
		}

		c.handleMessage(ctx, data)
	}
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closeChan:
			return
		case data := <-c.sendChan:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug().Err(err).Msg("write error")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming frame
func (c *Client) handleMessage(ctx context.Context, data []byte) {
	var frame clientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.send(errorFrame(0, "malformed frame"))
		return
	}

	switch frame.Type {
	case typeStart:
		c.svc.Start(frame.UseDefaultProfile)
		c.send(startedFrame(c.svc.Started()))
	case typeStop:
		c.svc.Stop()
		c.send(stoppedFrame())
	case typeParse:
		c.handleParse(frame)
	case typeDiscard:
		c.svc.DiscardQuery(frame.QueryID)
	case typeSubscribe:
		c.handleSubscribe(ctx, frame)
	case typeUnsubscribe:
		c.svc.Unsubscribe(frame.SubscriptionID)
	default:
		c.send(errorFrame(frame.ID, "unknown frame type"))
	}
}

// handleParse retains a parsed query for later registrations
func (c *Client) handleParse(frame clientFrame) {
	queryID, err := c.svc.ParseQuery(frame.Query)
	if err != nil {
		c.send(errorFrame(frame.ID, err.Error()))
		return
	}
	c.send(parsedFrame(frame.ID, queryID))
}

// handleSubscribe registers a one-shot or standing subscription. Deliveries
// are tagged with the subscribe frame's correlation id: one-shot results are
// delivered before a subscription id even exists, so the caller correlates
// next/complete by its own id and keeps the subscription id only for
// unsubscribing.
func (c *Client) handleSubscribe(ctx context.Context, frame clientFrame) {
	if c.maxSubs > 0 && c.svc.SubscriptionCount() >= c.maxSubs {
		c.send(errorFrame(frame.ID, "maximum subscriptions reached"))
		return
	}

	next := func(nctx bridge.NextContext, payload string) bridge.NextContext {
		id := nctx.(int64)
		c.send(nextFrame(id, payload))
		return id
	}
	complete := func(cctx bridge.CompleteContext) {
		c.send(completeFrame(cctx.(int64)))
	}

	subID, err := c.svc.Subscribe(ctx, frame.QueryID, frame.OperationName, variablesText(frame.Variables),
		bridge.NextContext(frame.ID), next, bridge.CompleteContext(frame.ID), complete)
	if err != nil {
		c.send(errorFrame(frame.ID, err.Error()))
		return
	}

	c.send(subscribedFrame(frame.ID, subID))
}

// send queues one frame for the write pump; frames for a closed client are
// dropped.
func (c *Client) send(data []byte) {
	select {
	case c.sendChan <- data:
	case <-c.closeChan:
	}
}

// Close closes the client connection
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closeChan)
		c.conn.Close()
	})
}

// variablesText converts the optional raw variables object into the
// boundary's text form; an absent field means an empty map.
func variablesText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	return string(raw)
}
