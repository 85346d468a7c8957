package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"StochWatch/internal/model"
	"StochWatch/internal/notifier"
	"StochWatch/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type pageRow struct {
	Symbol, Price, Stoch, Delta, Trend string
}

type pageData struct {
	Headers []string
	Rows    []pageRow
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	symbols, err := s.Store.Load(r.Context())
	if err != nil {
		log.Printf("[ERROR] load symbols: %v", err)
		http.Error(w, "failed to load symbols", http.StatusInternalServerError)
		return
	}

	snaps := s.Collector.SnapshotAll(r.Context(), symbols)
	data := pageData{Headers: notifier.TableHeaders, Rows: make([]pageRow, len(snaps))}
	for i, snap := range snaps {
		cells := notifier.FormatRow(snap)
		data.Rows[i] = pageRow{
			Symbol: cells[0],
			Price:  cells[1],
			Stoch:  cells[2],
			Delta:  cells[3],
			Trend:  trend(snap.SlowKDelta),
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		log.Printf("[ERROR] render index: %v", err)
	}
}

func trend(v model.Value) string {
	d, ok := v.Get()
	switch {
	case !ok:
		return ""
	case d > 0:
		return "up"
	case d < 0:
		return "down"
	}
	return ""
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	symbol := store.Clean(r.FormValue("symbol"))
	if symbol != "" {
		if err := s.update(r, func(list []string) ([]string, bool) { return store.Add(list, symbol) }); err != nil {
			log.Printf("[ERROR] add %s: %v", symbol, err)
			http.Error(w, "failed to save symbols", http.StatusInternalServerError)
			return
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if err := s.update(r, func(list []string) ([]string, bool) { return store.Remove(list, symbol) }); err != nil {
		log.Printf("[ERROR] delete %s: %v", symbol, err)
		http.Error(w, "failed to save symbols", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// update applies op to the stored watchlist and saves it if it changed.
func (s *Server) update(r *http.Request, op func([]string) ([]string, bool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	symbols, err := s.Store.Load(r.Context())
	if err != nil {
		return err
	}
	symbols, changed := op(symbols)
	if !changed {
		return nil
	}
	return s.Store.Save(r.Context(), symbols)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	symbols, err := s.Store.Load(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load symbols")
		return
	}
	if q := r.URL.Query().Get("symbols"); q != "" {
		symbols = store.Dedupe(strings.Split(q, ","))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Collector.SnapshotAll(r.Context(), symbols))
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := s.Store.Load(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load symbols")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(symbols)
}

type wsMessage struct {
	Index    int            `json:"index"`
	Total    int            `json:"total"`
	Snapshot model.Snapshot `json:"snapshot"`
	Cells    []string       `json:"cells"`
}

// handleWS streams one message per watchlist symbol as soon as its snapshot
// is ready, then closes the connection.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	symbols, err := s.Store.Load(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load symbols")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WARN] ws upgrade: %v", err)
		return
	}
	defer conn.Close()

	if err := s.stream(r.Context(), conn, symbols); err != nil {
		log.Printf("[WARN] ws write: %v", err)
		return
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
}

type jsonWriter interface {
	WriteJSON(v interface{}) error
}

// stream writes one message per symbol. The first failed write cancels the
// remaining fetches and is returned.
func (s *Server) stream(ctx context.Context, conn jsonWriter, symbols []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var werr error
	s.Collector.SnapshotEach(ctx, symbols, func(i int, snap model.Snapshot) {
		if werr != nil {
			return
		}
		msg := wsMessage{Index: i, Total: len(symbols), Snapshot: snap, Cells: notifier.FormatRow(snap)}
		if err := conn.WriteJSON(msg); err != nil {
			werr = err
			cancel()
		}
	})
	return werr
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
