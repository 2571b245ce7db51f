// Package operatorconsole implements a local Unix-socket control plane
// that lets an operator pin/unpin a baseline lock or force-clear a
// category cooldown, newline-delimited JSON over a Unix domain socket,
// adapted from the teacher's operator override server.
package operatorconsole

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ashton-dyke/sairen-os/internal/ticket"
)

const (
	maxConcurrentConns = 4
	maxRequestBytes    = 4096
	connTimeout        = 10 * time.Second
)

// Registry is the interface the console uses to mutate live agent state.
type Registry interface {
	// LockBaseline forces the named (equipment, metric) baseline to lock
	// immediately with whatever samples it has.
	LockBaseline(equipment, metric string) error
	// DowngradeBaseline reopens a locked baseline's accumulation window.
	DowngradeBaseline(equipment, metric string)
	// ClearCooldown force-clears the tactical agent's per-category
	// cooldown timer.
	ClearCooldown(category ticket.Category)
	// Status returns a snapshot of operator-visible state.
	Status() map[string]any
}

// Request is the JSON structure for operator console commands.
type Request struct {
	Cmd       string `json:"cmd"` // lock_baseline | downgrade_baseline | clear_cooldown | status
	Equipment string `json:"equipment,omitempty"`
	Metric    string `json:"metric,omitempty"`
	Category  string `json:"category,omitempty"`
}

// Response is the JSON structure for operator console responses.
type Response struct {
	OK     bool           `json:"ok"`
	Error  string         `json:"error,omitempty"`
	Status map[string]any `json:"status,omitempty"`
}

// Server is the operator console's Unix domain socket server.
type Server struct {
	socketPath string
	registry   Registry
	log        *zap.Logger
	sem        chan struct{}
}

// NewServer creates a Server bound to socketPath once ListenAndServe runs.
func NewServer(socketPath string, registry Registry, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{socketPath: socketPath, registry: registry, log: log, sem: make(chan struct{}, maxConcurrentConns)}
}

// ListenAndServe binds the Unix socket and serves connections until ctx
// is cancelled. Any stale socket file is removed first.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("operatorconsole: remove stale socket %q: %w", s.socketPath, err)
	}

	lis, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("operatorconsole: listen %q: %w", s.socketPath, err)
	}
	defer lis.Close()

	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		return fmt.Errorf("operatorconsole: chmod %q: %w", s.socketPath, err)
	}

	s.log.Info("operator console listening", zap.String("path", s.socketPath))

	go func() {
		<-ctx.Done()
		lis.Close()
	}()

	for {
		conn, err := lis.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				s.log.Error("operatorconsole: accept error", zap.Error(err))
				continue
			}
		}

		select {
		case s.sem <- struct{}{}:
		default:
			s.log.Warn("operatorconsole: max connections reached, rejecting")
			_ = conn.Close()
			continue
		}

		go func(c net.Conn) {
			defer func() { <-s.sem }()
			defer c.Close()
			s.handleConn(c)
		}(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	_ = conn.SetDeadline(time.Now().Add(connTimeout))
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, maxRequestBytes), maxRequestBytes)

	for scanner.Scan() {
		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			s.writeResponse(conn, Response{OK: false, Error: "invalid JSON: " + err.Error()})
			continue
		}
		s.writeResponse(conn, s.dispatch(req))
		_ = conn.SetDeadline(time.Now().Add(connTimeout))
	}
}

func (s *Server) dispatch(req Request) Response {
	switch req.Cmd {
	case "lock_baseline":
		if err := s.registry.LockBaseline(req.Equipment, req.Metric); err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true}
	case "downgrade_baseline":
		s.registry.DowngradeBaseline(req.Equipment, req.Metric)
		return Response{OK: true}
	case "clear_cooldown":
		cat, err := parseCategory(req.Category)
		if err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		s.registry.ClearCooldown(cat)
		return Response{OK: true}
	case "status":
		return Response{OK: true, Status: s.registry.Status()}
	default:
		return Response{OK: false, Error: fmt.Sprintf("unknown command %q", req.Cmd)}
	}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, _ := json.Marshal(resp)
	data = append(data, '\n')
	_, _ = conn.Write(data)
}

func parseCategory(name string) (ticket.Category, error) {
	switch name {
	case "WellControl":
		return ticket.WellControl, nil
	case "Hydraulics":
		return ticket.Hydraulics, nil
	case "Mechanical":
		return ticket.Mechanical, nil
	case "DrillingEfficiency":
		return ticket.DrillingEfficiency, nil
	case "Formation":
		return ticket.Formation, nil
	default:
		return ticket.None, fmt.Errorf("unknown category %q", name)
	}
}

// Client is a thin newline-delimited JSON client for operatorconsole,
// used by a CLI or test harness.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
}

// Dial connects to a running console socket.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("operatorconsole: dial %q: %w", socketPath, err)
	}
	return &Client{conn: conn}, nil
}

// Send issues one request and waits for its response.
func (c *Client) Send(req Request) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(req)
	if err != nil {
		return Response{}, err
	}
	data = append(data, '\n')
	if _, err := c.conn.Write(data); err != nil {
		return Response{}, err
	}

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, maxRequestBytes), maxRequestBytes)
	if !scanner.Scan() {
		return Response{}, fmt.Errorf("operatorconsole: no response")
	}
	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }
