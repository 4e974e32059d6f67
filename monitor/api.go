package monitor

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ardnew/softtwi/master"
	"github.com/ardnew/softtwi/pkg"
	"github.com/ardnew/softtwi/pkg/prof"
	"github.com/ardnew/softtwi/slave"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

// PingInterval is the WebSocket keepalive period.
const PingInterval = 20 * time.Second

// Config holds the dependencies of the API server.
type Config struct {
	Slave      *slave.Slave
	Transactor *master.Transactor
	Address    master.Addr7

	// Foreground runs slave buffer and state access serialized with the
	// interrupt handler, for example sim.Peripheral.Run. Nil runs the
	// function directly.
	Foreground func(func())

	Store    *Store    // Optional journal
	Bus      *EventBus // Optional event stream
	Recorder *Recorder // Optional, for status
	Logger   *zap.Logger
}

type server struct {
	Config
	started time.Time
}

// NewRouter wires the /api/v1 routes.
func NewRouter(cfg Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Foreground == nil {
		cfg.Foreground = func(fn func()) { fn() }
	}
	s := &server{Config: cfg, started: time.Now()}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/status", s.status)
	mux.HandleFunc("GET /api/v1/buffer/{name}", s.buffer)

	// Bus master
	mux.HandleFunc("POST /api/v1/write", s.write)
	mux.HandleFunc("POST /api/v1/read", s.read)
	mux.HandleFunc("POST /api/v1/address", s.setAddress)

	// Journal and live stream
	mux.HandleFunc("GET /api/v1/transactions", s.transactions)
	mux.HandleFunc("GET /api/v1/events", s.eventStream)

	// Runtime profiles, with the profile build tag
	prof.Register(mux)

	return withLogging(cfg.Logger, mux)
}

// ── Status ────────────────────────────────────────────────────────────────

func (s *server) status(w http.ResponseWriter, r *http.Request) {
	var (
		state  slave.State
		cursor int
		set    bool
	)
	s.Foreground(func() {
		state = s.Slave.State()
		cursor, set = s.Slave.Cursor()
	})

	addr, gc, _ := s.Slave.Address()
	cfg := s.Slave.Config()
	resp := map[string]any{
		"status":       "ok",
		"time":         time.Now().UTC().Format(time.RFC3339),
		"uptime":       time.Since(s.started).Round(time.Second).String(),
		"address":      addr,
		"general_call": gc,
		"size":         cfg.Size,
		"layout":       cfg.Layout.String(),
		"state":        state.String(),
		"cursor":       nil,
	}
	if set {
		resp["cursor"] = cursor
	}
	if s.Bus != nil {
		resp["subscribers"] = s.Bus.Len()
	}
	if s.Recorder != nil {
		resp["recorder"] = s.Recorder.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}

// ── Buffers ───────────────────────────────────────────────────────────────

func (s *server) buffer(w http.ResponseWriter, r *http.Request) {
	var b *slave.Buffer
	switch name := r.PathValue("name"); name {
	case "rx":
		b = s.Slave.RX()
	case "tx":
		b = s.Slave.TX()
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("buffer %q: must be rx or tx", name))
		return
	}

	var data []byte
	s.Foreground(func() {
		data = b.Snapshot()
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"buffer": r.PathValue("name"),
		"size":   len(data),
		"data":   HexBytes(data),
	})
}

// ── Bus master ────────────────────────────────────────────────────────────

type writeRequest struct {
	Address *int  `json:"address"`
	Data    []int `json:"data"`
}

func (s *server) write(w http.ResponseWriter, r *http.Request) {
	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}
	reg, err := register(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Data) == 0 || len(req.Data) > 0xFF {
		writeError(w, http.StatusBadRequest, errors.New("data must hold 1-255 bytes"))
		return
	}
	data := make([]byte, len(req.Data))
	for i, v := range req.Data {
		if v < 0 || v > 0xFF {
			writeError(w, http.StatusBadRequest, fmt.Errorf("data[%d] = %d is not a byte", i, v))
			return
		}
		data[i] = byte(v)
	}

	n, err := s.Transactor.Write(s.Address, reg, data)
	resp := map[string]any{"address": reg, "written": n}
	if err != nil {
		s.Logger.Info("api: write", zap.Uint8("address", reg), zap.Int("written", n), zap.Error(err))
		resp["error"] = err.Error()
		writeJSON(w, httpStatus(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type readRequest struct {
	Address *int `json:"address"`
	Count   int  `json:"count"`
}

func (s *server) read(w http.ResponseWriter, r *http.Request) {
	var req readRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}
	if req.Count < 1 || req.Count > 0xFF {
		writeError(w, http.StatusBadRequest, errors.New("count must be 1-255"))
		return
	}

	buf := make([]byte, req.Count)
	var (
		n   int
		err error
	)
	if req.Address == nil {
		n, err = s.Transactor.ReadCurrent(s.Address, buf)
	} else {
		reg, rerr := register(req.Address)
		if rerr != nil {
			writeError(w, http.StatusBadRequest, rerr)
			return
		}
		n, err = s.Transactor.Read(s.Address, reg, buf)
	}
	if err != nil {
		s.Logger.Info("api: read", zap.Int("read", n), zap.Error(err))
		writeError(w, httpStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": n,
		"data":  HexBytes(buf[:n]),
	})
}

type addressRequest struct {
	Address *int `json:"address"`
}

func (s *server) setAddress(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}
	reg, err := register(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.Transactor.SetAddress(s.Address, reg); err != nil {
		writeError(w, httpStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": reg})
}

// ── Journal ───────────────────────────────────────────────────────────────

func (s *server) transactions(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("journal disabled"))
		return
	}
	limit, err := queryInt(r, "limit", 50, 1, 500)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	records, err := s.Store.Recent(r.Context(), limit)
	if err != nil {
		s.Logger.Error("api: list transactions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": records,
		"count":        len(records),
	})
}

// ── WebSocket event stream ────────────────────────────────────────────────

func (s *server) eventStream(w http.ResponseWriter, r *http.Request) {
	if s.Bus == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("event stream disabled"))
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn("api: ws upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	ch, unsub := s.Bus.Subscribe()
	defer unsub()

	ping := time.NewTicker(PingInterval)
	defer ping.Stop()

	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				s.Logger.Debug("api: ws write", zap.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

// ── Middleware ────────────────────────────────────────────────────────────

func withLogging(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rw, r)
		log.Debug("api",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.code),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	code int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.code = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker for the WebSocket upgrade.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer cannot hijack")
	}
	rw.code = http.StatusSwitchingProtocols
	return h.Hijack()
}

// ── helpers ───────────────────────────────────────────────────────────────

// register validates a buffer address from a request.
func register(address *int) (uint8, error) {
	if address == nil {
		return 0, errors.New("address required")
	}
	if *address < 0 || *address > 0xFF {
		return 0, fmt.Errorf("address %d is not a byte", *address)
	}
	return uint8(*address), nil
}

// httpStatus maps bus errors to response codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, pkg.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, pkg.ErrNoDevice):
		return http.StatusBadGateway
	case errors.Is(err, pkg.ErrNACK), errors.Is(err, pkg.ErrInvalidAddress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def, min, max int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("%s must be %d-%d", key, min, max)
	}
	return n, nil
}
