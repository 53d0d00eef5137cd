// Package admin is the operator HTTP surface over the lobby.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/decred/slog"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"holdem-arena/internal/lobby"
	"holdem-arena/internal/table"
	"holdem-arena/internal/tournament"
)

// Lobby is the part of lobby.Lobby the admin surface reads.
type Lobby interface {
	ListTables() []string
	GetTable(tableID string) (*table.Table, error)
	Scheduler(tableID string) (*tournament.Scheduler, bool)
	Alerts() []table.Alert
	CreateTournament(spec lobby.TournamentSpec) (*table.Table, error)
}

// LevelSetter adjusts log levels at runtime.
type LevelSetter interface {
	SetLevel(level string) error
	SetSubsystemLevel(subsystem, level string) error
	Levels() map[string]string
}

type Config struct {
	Lobby  Lobby
	Levels LevelSetter
	Log    slog.Logger
}

type Server struct {
	lobby  Lobby
	levels LevelSetter
	log    slog.Logger
	router chi.Router
}

func New(cfg Config) *Server {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	s := &Server{lobby: cfg.Lobby, levels: cfg.Levels, log: cfg.Log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/alerts", s.handleAlerts)
	r.Post("/tournaments", s.handleCreateTournament)
	r.Route("/tables", func(r chi.Router) {
		r.Get("/", s.handleListTables)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleTable)
			r.Get("/pots", s.handlePots)
			r.Get("/result", s.handleResult)
			r.Get("/level", s.handleLevel)
			r.Post("/close", s.handleClose)
			r.Post("/resume", s.handleResume)
		})
	})
	if s.levels != nil {
		r.Get("/loglevel", s.handleGetLevels)
		r.Put("/loglevel", s.handleSetLevel)
	}
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Infof("admin listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debugf("%s %s %d %v", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "tables": len(s.lobby.ListTables())})
}

func (s *Server) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	alerts := s.lobby.Alerts()
	out := make([]alertView, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, newAlertView(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListTables(w http.ResponseWriter, _ *http.Request) {
	ids := s.lobby.ListTables()
	out := make([]tableSummary, 0, len(ids))
	for _, id := range ids {
		t, err := s.lobby.GetTable(id)
		if err != nil {
			continue
		}
		st, err := t.Status()
		if err != nil {
			continue
		}
		out = append(out, newTableSummary(st))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) table(w http.ResponseWriter, r *http.Request) (*table.Table, bool) {
	t, err := s.lobby.GetTable(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return t, true
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	t, ok := s.table(w, r)
	if !ok {
		return
	}
	st, err := t.Status()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTableView(st))
}

func (s *Server) handlePots(w http.ResponseWriter, r *http.Request) {
	t, ok := s.table(w, r)
	if !ok {
		return
	}
	pots, err := t.SidePots()
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]potView, 0, len(pots))
	for _, p := range pots {
		out = append(out, potView{Amount: p.Amount, Eligible: nonNil(p.Eligible)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	t, ok := s.table(w, r)
	if !ok {
		return
	}
	res, err := t.HandResult()
	if err != nil {
		writeError(w, err)
		return
	}
	if res == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no completed hand"})
		return
	}
	writeJSON(w, http.StatusOK, newResultView(res))
}

func (s *Server) handleLevel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.table(w, r); !ok {
		return
	}
	sched, ok := s.lobby.Scheduler(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not a tournament table"})
		return
	}
	lvl, remaining := sched.Level()
	writeJSON(w, http.StatusOK, levelView{
		Kind:       lvl.Kind.String(),
		SmallBlind: lvl.SmallBlind,
		BigBlind:   lvl.BigBlind,
		Ante:       lvl.Ante,
		Start:      lvl.Start,
		End:        lvl.End(),
		Remaining:  remaining.String(),
		Finished:   sched.Finished(),
	})
}

type blindsRequest struct {
	Small int64 `json:"small"`
	Big   int64 `json:"big"`
	Ante  int64 `json:"ante"`
}

type tournamentRequest struct {
	TableID       string          `json:"table_id"`
	TournamentID  string          `json:"tournament_id"`
	Start         time.Time       `json:"start"`
	LevelMinutes  int             `json:"level_minutes"`
	FinalMinutes  int             `json:"final_minutes"`
	Levels        []blindsRequest `json:"levels"`
	BreakMinute   int             `json:"break_minute"`
	BreakMinutes  int             `json:"break_minutes"`
	StartingStack int64           `json:"starting_stack"`
	MaxSeats      int             `json:"max_seats"`
}

func (req tournamentRequest) spec(now time.Time) (lobby.TournamentSpec, error) {
	if req.TournamentID == "" {
		return lobby.TournamentSpec{}, errors.New("tournament_id required")
	}
	if len(req.Levels) == 0 || req.LevelMinutes <= 0 {
		return lobby.TournamentSpec{}, errors.New("levels and level_minutes required")
	}
	start := req.Start
	if start.IsZero() {
		start = now
	}
	level := time.Duration(req.LevelMinutes) * time.Minute
	final := level
	if req.FinalMinutes > 0 {
		final = time.Duration(req.FinalMinutes) * time.Minute
	}
	entries := make([]tournament.Entry, 0, len(req.Levels))
	for i, l := range req.Levels {
		entries = append(entries, tournament.Entry{
			Start:      start.Add(time.Duration(i) * level),
			SmallBlind: l.Small,
			BigBlind:   l.Big,
			Ante:       l.Ante,
		})
	}
	return lobby.TournamentSpec{
		ID:            req.TableID,
		TournamentID:  req.TournamentID,
		Entries:       entries,
		FinalDuration: final,
		Break:         tournament.BreakRule{MinutePastHour: req.BreakMinute, Length: time.Duration(req.BreakMinutes) * time.Minute},
		StartingStack: req.StartingStack,
		MaxSeats:      req.MaxSeats,
	}, nil
}

func (s *Server) handleCreateTournament(w http.ResponseWriter, r *http.Request) {
	var req tournamentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return
	}
	spec, err := req.spec(time.Now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	t, err := s.lobby.CreateTournament(spec)
	switch {
	case errors.Is(err, lobby.ErrTableExists):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
		return
	case errors.Is(err, lobby.ErrClosed):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	st, err := t.Status()
	if err != nil {
		writeError(w, err)
		return
	}
	s.log.Infof("tournament %s opened on table %s", spec.TournamentID, t.ID())
	writeJSON(w, http.StatusCreated, newTableSummary(st))
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	t, ok := s.table(w, r)
	if !ok {
		return
	}
	if err := t.Close(); err != nil {
		writeError(w, err)
		return
	}
	s.log.Infof("table %s closing by operator request", t.ID())
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "closing"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	t, ok := s.table(w, r)
	if !ok {
		return
	}
	if err := t.Resume(); err != nil {
		writeError(w, err)
		return
	}
	s.log.Infof("table %s resumed by operator request", t.ID())
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "resumed"})
}

func (s *Server) handleGetLevels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.levels.Levels())
}

type levelRequest struct {
	Subsystem string `json:"subsystem"`
	Level     string `json:"level"`
}

func (s *Server) handleSetLevel(w http.ResponseWriter, r *http.Request) {
	var req levelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return
	}
	var err error
	if req.Subsystem == "" {
		err = s.levels.SetLevel(req.Level)
	} else {
		err = s.levels.SetSubsystemLevel(req.Subsystem, req.Level)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.levels.Levels())
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, lobby.ErrTableNotFound):
		status = http.StatusNotFound
	case errors.Is(err, table.ErrTableClosed):
		status = http.StatusGone
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
