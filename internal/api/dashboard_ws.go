package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/survey-admin/internal/dashboard"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const maxActionSize = 4096

// DashboardMessage is a server-to-client websocket message
type DashboardMessage struct {
	Type  string          `json:"type"`
	View  *dashboard.View `json:"view,omitempty"`
	Error string          `json:"error,omitempty"`
}

// dashboardConn serialises writes to one websocket
type dashboardConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *dashboardConn) send(msg DashboardMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal dashboard message", "error", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send dashboard message", "error", err)
		return err
	}
	return nil
}

func (c *dashboardConn) sendView(v dashboard.View) error {
	return c.send(DashboardMessage{Type: "view", View: &v})
}

// handleDashboardWS serves a live dashboard. Every connection owns its own
// controller; actions are reduced in arrival order and fetches run in the
// background so a newer action supersedes an older fetch.
func (s *Server) handleDashboardWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxActionSize)

	slog.Info("dashboard websocket connected", "remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := dashboard.NewController(s.fetcher, dashboard.NewState(s.pageSize))
	defer ctrl.Close()

	out := &dashboardConn{conn: conn}
	var wg sync.WaitGroup

	refresh := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ctrl.Refresh(ctx)
			if errors.Is(err, dashboard.ErrSuperseded) || ctx.Err() != nil {
				return
			}
			out.sendView(ctrl.View())
		}()
	}

	if _, fetch, _ := ctrl.Apply(dashboard.Action{Type: dashboard.ActionRefresh}); fetch {
		refresh()
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "error", err)
			}
			break
		}

		var action dashboard.Action
		if err := json.Unmarshal(message, &action); err != nil {
			out.send(DashboardMessage{Type: "error", Error: "invalid message format"})
			continue
		}

		view, fetch, err := ctrl.Apply(action)
		if err != nil {
			out.send(DashboardMessage{Type: "error", Error: err.Error(), View: &view})
			continue
		}
		if err := out.sendView(view); err != nil {
			break
		}
		if fetch {
			refresh()
		}
	}

	cancel()
	ctrl.Close()
	wg.Wait()
	slog.Info("dashboard websocket disconnected", "remote_addr", r.RemoteAddr)
}
