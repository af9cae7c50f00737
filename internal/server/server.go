package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/signaling"
)

// Configure the websocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// Browsers and the CLI both connect here; origin enforcement belongs
	// to the deployment fronting this server.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewRouter builds the HTTP surface: a health probe and the websocket
// endpoint participants attach to.
func NewRouter(hub *signaling.Hub, log zerolog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok, %d rooms\n", hub.Registry().RoomCount())
	})

	r.Get("/ws", serveWS(hub, log))

	return r
}

// serveWS upgrades the HTTP connection and hands it to the hub.
func serveWS(hub *signaling.Hub, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("failed to upgrade connection")
			return
		}

		client := signaling.NewClient(hub, conn, log)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}
