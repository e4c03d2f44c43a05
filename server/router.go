// server/router.go
package main

import (
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"track-duel/server/store"
)

// embed the /web directory so the rating page ships in the binary
//
//go:embed web/*
var webFS embed.FS

func Router(db *store.DB, sess *Session) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Static files under /web/ and root redirect to the rating page
	sub, _ := fs.Sub(webFS, "web")
	r.Handle("/web/*", http.StripPrefix("/web/", http.FileServer(http.FS(sub))))
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/web/rate.html", http.StatusFound)
	})

	// Health
	r.Get("/api/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{"ok": true})
	})

	// Next pair to judge. done=true means the strategy is exhausted.
	r.Get("/api/next-pair", func(w http.ResponseWriter, req *http.Request) {
		left, right, err := sess.NextPair(req.Context())
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if left == nil || right == nil {
			writeJSON(w, map[string]any{"done": true})
			return
		}
		writeJSON(w, map[string]any{
			"left":  left,
			"right": right,
		})
	})

	// Verdict on the pending pair.
	r.Post("/api/rate", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			WinnerID int64 `json:"winner_id"`
			Draw     bool  `json:"draw"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, "bad body", 400)
			return
		}
		if err := sess.RateWinner(req.Context(), body.WinnerID, body.Draw); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		writeJSON(w, map[string]any{"ok": true, "rounds": sess.Rounds})
	})

	// Abandon the pending pair without a verdict.
	r.Post("/api/skip", func(w http.ResponseWriter, req *http.Request) {
		sess.Skip()
		writeJSON(w, map[string]any{"ok": true})
	})

	// Session stats
	r.Get("/api/session", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{
			"session_id": sess.ID,
			"strategy":   sess.Strategy(),
			"rounds":     sess.Rounds,
			"draws":      sess.Draws,
			"started_at": sess.Started,
		})
	})

	// Leaderboard: top tracks by score, with win-rate confidence intervals
	r.Get("/api/leaderboard", func(w http.ResponseWriter, req *http.Request) {
		limit := atoiDef(req.URL.Query().Get("limit"), 50)
		rows, err := db.Leaderboard(req.Context(), limit)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		type Row struct {
			store.LeaderboardRow
			WinRateLow  float64 `json:"win_rate_low"`
			WinRateHigh float64 `json:"win_rate_high"`
		}
		out := make([]Row, 0, len(rows))
		for _, lr := range rows {
			low, high := WilsonCI95(lr.Wins, lr.Draws, lr.Wins+lr.Losses+lr.Draws)
			out = append(out, Row{LeaderboardRow: lr, WinRateLow: low, WinRateHigh: high})
		}
		writeJSON(w, map[string]any{"rows": out})
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
