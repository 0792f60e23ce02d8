package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/sweepy/internal/auth"
)

// HandleWebSocket upgrades authenticated requests and subscribes the
// connection to its household's messages.
func (h *Hub) HandleWebSocket(originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		householdID := auth.HouseholdID(r.Context())
		if householdID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns:     originPatterns,
			InsecureSkipVerify: len(originPatterns) == 0,
		})
		if err != nil {
			h.logger.Warn("accept websocket", "error", err, "household_id", householdID)
			return
		}

		h.logger.Debug("client connected", "household_id", householdID)
		NewClient(h, conn, householdID).Run(r.Context())
		h.logger.Debug("client disconnected", "household_id", householdID)
	}
}
