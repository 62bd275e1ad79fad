package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/scythe504/kartquiz-backend/internal"
	"github.com/scythe504/kartquiz-backend/internal/utils"
)

const (
	qrSize         = 256
	healthTimeout  = 2 * time.Second
	statusOK       = "ok"
	statusDegraded = "degraded"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	r.Use(s.recoverMiddleware)
	r.Use(s.corsMiddleware)

	r.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet, http.MethodOptions)
	r.Handle("/ws", s.ws)

	r.HandleFunc("/rooms", s.ListRoomsHandler).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/rooms/{code}", s.GetRoomHandler).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/rooms/{code}/qr.png", s.RoomQRHandler).Methods(http.MethodGet, http.MethodOptions)

	return r
}

// CORS middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the upgrader runs its own origin check
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}

		origin := r.Header.Get("Origin")
		if origin != "" && utils.OriginAllowed(s.cfg.AllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")
			w.Header().Add("Vary", "Origin")
		}

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("http handler panicked",
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.Stack("stack"),
				)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// HANDLERS
// =============================================================================

type healthResponse struct {
	Status    string            `json:"status"`
	Rooms     int               `json:"rooms"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    statusOK,
		Rooms:     s.registry.Count(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	code := http.StatusOK
	if len(s.checks) > 0 {
		resp.Checks = make(map[string]string, len(s.checks))
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		for name, check := range s.checks {
			if err := check(ctx); err != nil {
				s.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
				resp.Checks[name] = err.Error()
				resp.Status = statusDegraded
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = statusOK
		}
	}

	s.writeJSON(w, code, resp)
}

func (s *Server) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	rooms := s.registry.All()
	summaries := make([]internal.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		if summary, ok := s.registry.Summary(room.Code); ok {
			summaries = append(summaries, summary)
		}
	}

	s.writeResponse(w, internal.Response{
		StatusCode:    http.StatusOK,
		RespStartTime: startTime,
		Data:          summaries,
	})
}

func (s *Server) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	code := utils.NormalizeRoomCode(mux.Vars(r)["code"])

	var resp internal.Response
	if summary, ok := s.registry.Summary(code); ok {
		resp = internal.Response{
			StatusCode:    http.StatusOK,
			RespStartTime: startTime,
			Data:          summary,
		}
	} else {
		resp = internal.Response{
			StatusCode:    http.StatusNotFound,
			RespStartTime: startTime,
			Data:          "Room not found",
		}
	}

	s.writeResponse(w, resp)
}

// RoomQRHandler renders a PNG QR code pointing players at the join page for
// a room.
func (s *Server) RoomQRHandler(w http.ResponseWriter, r *http.Request) {
	code := utils.NormalizeRoomCode(mux.Vars(r)["code"])
	if _, ok := s.registry.Get(code); !ok {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}

	png, err := qrcode.Encode(JoinURL(s.cfg.PublicURL, code), qrcode.Medium, qrSize)
	if err != nil {
		s.logger.Error("encoding room qr code", zap.String("room", code), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

// JoinURL appends room=<code> to base, keeping any query it already has.
func JoinURL(base, code string) string {
	u, err := url.Parse(base)
	if err != nil || base == "" {
		return "?room=" + url.QueryEscape(code)
	}
	q := u.Query()
	q.Set("room", code)
	u.RawQuery = q.Encode()
	return u.String()
}

// writeResponse stamps the end time on resp and writes it with its status
// code.
func (s *Server) writeResponse(w http.ResponseWriter, resp internal.Response) {
	endTime := time.Now().UnixMilli()
	resp.RespEndTime = endTime
	resp.NetRespTime = endTime - resp.RespStartTime

	s.writeJSON(w, resp.StatusCode, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encoding response", zap.Error(err))
	}
}
