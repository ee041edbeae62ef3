package gridsim

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/internal/protocol/rpc"
)

// conn serves the requests of one client connection in order.
type conn struct {
	server  *Server
	conn    net.Conn
	cursors *Cursors
}

func newConn(server *Server, c net.Conn) *conn {
	return &conn{server: server, conn: c, cursors: NewCursors()}
}

func (c *conn) serve(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in connection handler from %s: %v", c.conn.RemoteAddr(), r)
		}
		_ = c.conn.Close()
	}()

	done := make(chan struct{})
	defer close(done)

	// Unblock the read when the server stops.
	go func() {
		select {
		case <-ctx.Done():
		case <-c.server.shutdown:
		case <-done:
			return
		}
		_ = c.conn.SetReadDeadline(time.Now())
	}()

	clientAddr := c.conn.RemoteAddr().String()

	for {
		if idle := c.server.config.IdleTimeout; idle > 0 {
			if err := c.conn.SetReadDeadline(time.Now().Add(idle)); err != nil {
				logger.Warn("Failed to set deadline for %s: %v", clientAddr, err)
			}
		}

		select {
		case <-c.server.shutdown:
			return
		default:
		}

		if err := c.handleRequest(ctx); err != nil {
			var netErr net.Error
			switch {
			case errors.Is(err, io.EOF):
				logger.Debug("Connection from %s closed by client", clientAddr)
			case errors.As(err, &netErr) && netErr.Timeout():
				logger.Debug("Connection from %s timed out", clientAddr)
			default:
				logger.Debug("Error handling request from %s: %v", clientAddr, err)
			}
			return
		}
	}
}

func (c *conn) handleRequest(ctx context.Context) error {
	msg, err := rpc.ReadMessage(c.conn)
	if err != nil {
		return err
	}

	api := rpc.APIName(msg.Header.APINumber)
	logger.Debug("Request: XID=0x%x API=%s", msg.Header.XID, api)

	start := time.Now()
	body, status := c.server.handler.Handle(ctx, c.cursors, msg)
	c.server.metrics.RecordRequest(api, time.Since(start), status)

	reply := rpc.MessageHeader{
		XID:       msg.Header.XID,
		APINumber: msg.Header.APINumber,
		Status:    status,
	}
	return rpc.WriteMessage(c.conn, reply, body)
}
