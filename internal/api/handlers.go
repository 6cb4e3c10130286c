package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cargroup/internal/buildinfo"
	"cargroup/internal/integrations/table"
	"cargroup/internal/metrics"
	"cargroup/internal/model"
	"cargroup/internal/opt"
	"cargroup/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	eventProgress = "grouping.progress"
	eventFinished = "grouping.finished"
)

// GroupingsHandler handles POST/GET /v1/groupings
func (s *Server) GroupingsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/groupings" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodPost:
		s.createGrouping(w, r)
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListGroupings(r.Context(), cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List groupings failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) createGrouping(w http.ResponseWriter, r *http.Request) {
	if !s.Limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "grouping rate limit exceeded", r.URL.Path)
		return
	}
	var req model.GroupingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateGroupingRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid grouping request", err.Error(), r.URL.Path)
		return
	}
	p, err := buildProblem(req)
	if err != nil {
		writeError(w, r, "Invalid input tables", err)
		return
	}
	solver := s.Config.Solver
	if req.Config != nil {
		solver = solver.Overlay(*req.Config)
	}
	cfg := solver.Engine()

	g := model.Grouping{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Status:    model.StatusRunning,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Store.CreateGrouping(r.Context(), g); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Store unavailable", err.Error(), r.URL.Path)
		return
	}
	if req.Async {
		s.runs.Add(1)
		go func() {
			defer s.runs.Done()
			_, _ = s.runGrouping(s.ctx, g, p, cfg)
		}()
		w.Header().Set("Location", "/v1/groupings/"+g.ID)
		writeJSON(w, http.StatusAccepted, map[string]string{"id": g.ID, "status": g.Status})
		return
	}
	g, err = s.runGrouping(r.Context(), g, p, cfg)
	if err != nil {
		writeError(w, r, "Grouping failed", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func buildProblem(req model.GroupingRequest) (*opt.Problem, error) {
	students, err := table.Students(table.FromRecords("students", req.Students))
	if err != nil {
		return nil, err
	}
	cars, err := table.Cars(table.FromRecords("cars", req.Cars))
	if err != nil {
		return nil, err
	}
	return opt.NewProblem(students, cars)
}

// runGrouping solves p and stores the finished grouping. A failed run is
// stored too; err is returned alongside it.
func (s *Server) runGrouping(ctx context.Context, g model.Grouping, p *opt.Problem, cfg opt.Config) (model.Grouping, error) {
	log := s.Log.With(zap.String("grouping", g.ID))
	eng, err := opt.NewEngine(p, cfg,
		opt.WithLogger(log),
		opt.WithObserver(func(pr opt.Progress) {
			if pr.State == opt.StateTerminated {
				return
			}
			s.Broker.Publish(g.ID, SSEEvent{Type: eventProgress, Data: map[string]any{
				"id":          g.ID,
				"run":         pr.Run,
				"iteration":   pr.Iteration,
				"temperature": pr.Temperature,
				"hard":        pr.Best.Hard,
				"soft":        pr.Best.Soft,
			}})
		}))
	var res *opt.Result
	if err == nil {
		res, err = eng.Solve(ctx)
	}
	now := time.Now().UTC()
	g.FinishedAt = &now
	if err != nil {
		log.Error("grouping failed", zap.Error(err))
		g.Status = model.StatusFailed
		g.Error = err.Error()
		metrics.ObserveRun("error", now.Sub(g.CreatedAt), 0, 0)
	} else {
		g.Status = model.StatusSucceeded
		outcome := "feasible"
		if res.Partial {
			g.Status = model.StatusPartial
			outcome = "partial"
			g.Warning = &model.Warning{
				Message:    res.Warning.Error(),
				Violations: res.Warning.Violations,
				Cars:       res.Warning.Cars,
			}
		}
		score := res.Score
		g.Score = &score
		g.Rows = opt.Export(p, res.Assignment)
		sum := opt.Summarize(p, res.Assignment, opt.NewEvaluator(p, eng.Config().Objective))
		g.Summary = &sum
		m := res.Metrics
		opt.RecordMetrics(g.ID, m)
		m.Snapshots = nil
		g.Metrics = &m
		metrics.ObserveRun(outcome, res.Metrics.Duration, res.Metrics.Iterations, res.Score.Soft)
	}
	if serr := s.Store.SaveGrouping(context.WithoutCancel(ctx), g); serr != nil {
		log.Warn("save grouping", zap.Error(serr))
	}
	s.Broker.Publish(g.ID, SSEEvent{Type: eventFinished, Data: finishedData(g)})
	return g, err
}

func finishedData(g model.Grouping) map[string]any {
	data := map[string]any{"id": g.ID, "status": g.Status}
	if g.Score != nil {
		data["hard"] = g.Score.Hard
		data["soft"] = g.Score.Soft
	}
	if g.Error != "" {
		data["error"] = g.Error
	}
	return data
}

// GroupingByIDHandler handles GET /v1/groupings/{id} and its table.csv and
// events subresources.
func (s *Server) GroupingByIDHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	rest := strings.TrimPrefix(path, "/v1/groupings/")
	if rest == path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	switch {
	case len(parts) == 1:
		g, err := s.Store.GetGrouping(r.Context(), id)
		if err != nil {
			s.notFound(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	case len(parts) == 2 && parts[1] == "table.csv":
		s.groupingCSV(w, r, id)
	case len(parts) == 3 && parts[1] == "events" && parts[2] == "stream":
		s.groupingEventsSSE(w, r, id)
	case len(parts) == 3 && parts[1] == "events" && parts[2] == "ws":
		s.groupingEventsWS(w, r, id)
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "", path)
	}
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Grouping not found", err.Error(), r.URL.Path)
		return
	}
	writeProblem(w, http.StatusInternalServerError, "Get grouping failed", err.Error(), r.URL.Path)
}

func (s *Server) groupingCSV(w http.ResponseWriter, r *http.Request, id string) {
	g, err := s.Store.GetGrouping(r.Context(), id)
	if err != nil {
		s.notFound(w, r, err)
		return
	}
	if g.Status == model.StatusRunning || g.Status == model.StatusFailed {
		writeProblem(w, http.StatusConflict, "No table", "grouping is "+g.Status, r.URL.Path)
		return
	}
	name := "solution.csv"
	if g.Name != "" {
		name = table.SanitizeFilename(g.Name) + "_solution.csv"
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := table.WriteCSV(w, g.Rows); err != nil {
		s.Log.Warn("write csv", zap.String("grouping", id), zap.Error(err))
	}
}

// groupingEventsSSE streams progress as server-sent events until the grouping
// finishes or the client goes away.
func (s *Server) groupingEventsSSE(w http.ResponseWriter, r *http.Request, id string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path)
		return
	}
	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)
	g, err := s.Store.GetGrouping(r.Context(), id)
	if err != nil {
		s.notFound(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	send := func(evt SSEEvent) {
		b, _ := json.Marshal(evt.Data)
		fmt.Fprintf(w, "event: %s\n", evt.Type)
		fmt.Fprintf(w, "data: %s\n\n", string(b))
		flusher.Flush()
	}
	heartbeat := func() {
		send(SSEEvent{Type: "heartbeat", Data: map[string]any{"id": id, "ts": time.Now().UTC().Format(time.RFC3339)}})
	}
	if g.Done() {
		send(SSEEvent{Type: eventFinished, Data: finishedData(g)})
		return
	}
	heartbeat()
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			send(evt)
			if evt.Type == eventFinished {
				return
			}
		case <-ticker.C:
			heartbeat()
		}
	}
}

// OptimizerConfigHandler returns default solver configuration
func (s *Server) OptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/optimizer/config" || r.Method != http.MethodGet {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	writeJSON(w, 200, map[string]any{"defaults": s.Config.Solver})
}

// RunMetricsHandler handles GET /v1/admin/run-metrics?id=
func (s *Server) RunMetricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/run-metrics" || r.Method != http.MethodGet {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	if id := r.URL.Query().Get("id"); id != "" {
		m, ok := opt.GetMetrics(id)
		if !ok {
			writeProblem(w, 404, "Metrics not found", "no finished run with id "+id, r.URL.Path)
			return
		}
		writeJSON(w, 200, map[string]any{"id": id, "metrics": m})
		return
	}
	items := []map[string]any{}
	for id, m := range opt.ListMetrics() {
		items = append(items, map[string]any{
			"id":           id,
			"iterations":   m.Iterations,
			"improvements": m.Improvements,
			"bestScore":    m.BestScore,
			"stopReason":   m.StopReason,
		})
	}
	writeJSON(w, 200, map[string]any{"items": items})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]any{"status": "ok", "build": buildinfo.Info()})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check Redis connectivity when using the Redis broker
	type pinger interface{ Ping(ctx context.Context) error }
	if p, ok := s.Broker.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}
