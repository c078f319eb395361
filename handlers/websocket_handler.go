package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/esports-arena/live"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Live streams are public.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub    *live.Hub
	logger *slog.Logger
}

func NewWebSocketHandler(hub *live.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

// ServeTournament streams updates of one tournament. Clients connect to /ws/tournaments/{tournamentID}.
func (h *WebSocketHandler) ServeTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.serve(w, r, live.TournamentRoom(tournamentID))
}

// ServeLeaderboard streams leaderboard changes of one game. Clients connect to /ws/leaderboards/{game}.
func (h *WebSocketHandler) ServeLeaderboard(w http.ResponseWriter, r *http.Request) {
	game := chi.URLParam(r, "game")
	if game == "" {
		notFoundResponse(w, r, "")
		return
	}
	h.serve(w, r, live.LeaderboardRoom(normalizeGameParam(game)))
}

func (h *WebSocketHandler) serve(w http.ResponseWriter, r *http.Request, roomID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		h.logger.Warn("failed to upgrade websocket connection", slog.String("room", roomID), slog.Any("error", err))
		return
	}

	client := live.NewClient(h.hub, conn, roomID)
	if !h.hub.Join(client) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	h.logger.Debug("websocket client joined", slog.String("room", roomID))
}
