package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"watersupply/internal/flow"
	"watersupply/internal/loader"
	"watersupply/internal/report"
	"watersupply/internal/resilience"
	"watersupply/pkg/apperror"
	"watersupply/pkg/cache"
	"watersupply/pkg/domain"
	"watersupply/pkg/logger"
)

// networkPayload is the wire form of a network. When source and sink are
// omitted the virtual super source and sink are attached and used.
type networkPayload struct {
	Stations []stationPayload `json:"stations"`
	Pipes    []pipePayload    `json:"pipes"`
}

type stationPayload struct {
	Code         string  `json:"code"`
	Name         string  `json:"name,omitempty"`
	Type         string  `json:"type"` // reservoir, pumping, delivery
	Municipality string  `json:"municipality,omitempty"`
	MaxDelivery  float64 `json:"max_delivery,omitempty"`
	Demand       float64 `json:"demand,omitempty"`
	Population   int64   `json:"population,omitempty"`
}

type pipePayload struct {
	From          string  `json:"from"`
	To            string  `json:"to"`
	Capacity      float64 `json:"capacity"`
	Bidirectional bool    `json:"bidirectional,omitempty"`
}

type solveRequest struct {
	Network networkPayload `json:"network"`
	Source  string         `json:"source,omitempty"`
	Sink    string         `json:"sink,omitempty"`

	// Station outage
	Station string `json:"station,omitempty"`

	// Pipe outage
	PipeA    string `json:"pipe_a,omitempty"`
	PipeB    string `json:"pipe_b,omitempty"`
	Directed bool   `json:"directed,omitempty"`
}

type reportRequest struct {
	solveRequest
	Format string `json:"format,omitempty"`
	Kind   string `json:"kind,omitempty"` // flow (default) or sweep target
}

type pipeFlowPayload struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	Capacity    float64 `json:"capacity"`
	Flow        float64 `json:"flow"`
	Utilization float64 `json:"utilization"`
}

type deliveryPayload struct {
	Code      string  `json:"code"`
	Name      string  `json:"name,omitempty"`
	Demand    float64 `json:"demand"`
	Delivered float64 `json:"delivered"`
	Deficit   float64 `json:"deficit"`
	Satisfied bool    `json:"satisfied"`
}

type solveResponse struct {
	RequestID  string            `json:"request_id,omitempty"`
	MaxFlow    float64           `json:"max_flow"`
	Iterations int               `json:"iterations"`
	DurationMs float64           `json:"duration_ms"`
	Canceled   bool              `json:"canceled,omitempty"`
	Cached     bool              `json:"cached,omitempty"`
	Pipes      []pipeFlowPayload `json:"pipes,omitempty"`
	Deliveries []deliveryPayload `json:"deliveries,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func parseStationType(s string) (domain.StationType, error) {
	switch strings.ToLower(s) {
	case "reservoir":
		return domain.StationTypeReservoir, nil
	case "pumping", "station":
		return domain.StationTypePumping, nil
	case "delivery", "city", "site":
		return domain.StationTypeDelivery, nil
	default:
		return domain.StationTypeUnspecified, apperror.NewWithField(
			apperror.CodeInvalidArgument,
			fmt.Sprintf("unknown station type %q", s),
			"type",
		)
	}
}

// buildNetwork constructs a domain network from the payload. Returns the
// network plus the source and sink codes to solve between.
func buildNetwork(req *solveRequest) (*domain.Network, string, string, error) {
	n := domain.NewNetwork()

	for _, sp := range req.Network.Stations {
		st, err := parseStationType(sp.Type)
		if err != nil {
			return nil, "", "", err
		}
		if err := n.AddStation(&domain.Station{
			Code:         sp.Code,
			Name:         sp.Name,
			Type:         st,
			Municipality: sp.Municipality,
			MaxDelivery:  sp.MaxDelivery,
			Demand:       sp.Demand,
			Population:   sp.Population,
		}); err != nil {
			return nil, "", "", apperror.Wrap(apperror.CodeInvalidNetwork, "invalid station", err)
		}
	}

	for _, pp := range req.Network.Pipes {
		add := func(from, to string) error {
			return n.AddPipe(&domain.Pipe{
				From:          from,
				To:            to,
				Capacity:      pp.Capacity,
				Bidirectional: pp.Bidirectional,
			})
		}
		if err := add(pp.From, pp.To); err != nil {
			return nil, "", "", apperror.Wrap(apperror.CodeInvalidNetwork, "invalid pipe", err)
		}
		if pp.Bidirectional {
			if err := add(pp.To, pp.From); err != nil {
				return nil, "", "", apperror.Wrap(apperror.CodeInvalidNetwork, "invalid pipe", err)
			}
		}
	}

	source, sink := req.Source, req.Sink
	if source == "" && sink == "" {
		if err := loader.AttachSuperNodes(n); err != nil {
			return nil, "", "", err
		}
		source, sink = domain.SuperSourceCode, domain.SuperSinkCode
	}

	return n, source, sink, nil
}

// engineFor returns the shared super-node engine, or a one-off engine when
// the request names an explicit source and sink.
func (s *Server) engineFor(source, sink string) *resilience.Engine {
	if source == domain.SuperSourceCode && sink == domain.SuperSinkCode {
		return s.engine
	}
	return resilience.NewEngine(source, sink, s.solveOpts)
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, s.cfg.HTTP.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		s.writeError(w, r, apperror.Wrap(apperror.CodeInvalidArgument, "invalid request body", err))
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.FromError(err)

	// Map engine sentinels onto stable codes.
	switch {
	case errors.Is(err, flow.ErrStationNotFound):
		appErr = apperror.Wrap(apperror.CodeStationNotFound, err.Error(), err)
	case errors.Is(err, flow.ErrPipeNotFound):
		appErr = apperror.Wrap(apperror.CodePipeNotFound, err.Error(), err)
	case errors.Is(err, flow.ErrSourceNotFound):
		appErr = apperror.Wrap(apperror.CodeInvalidSource, err.Error(), err)
	case errors.Is(err, flow.ErrSinkNotFound):
		appErr = apperror.Wrap(apperror.CodeInvalidSink, err.Error(), err)
	case errors.Is(err, flow.ErrSourceEqualsSink):
		appErr = apperror.Wrap(apperror.CodeSourceEqualsSink, err.Error(), err)
	case errors.Is(err, flow.ErrNegativeCapacity):
		appErr = apperror.Wrap(apperror.CodeNegativeCapacity, err.Error(), err)
	case errors.Is(err, flow.ErrNilNetwork):
		appErr = apperror.Wrap(apperror.CodeNilInput, err.Error(), err)
	}

	s.writeJSON(w, appErr.HTTPStatus(), errorResponse{
		Error:     appErr.Message,
		Code:      string(appErr.Code),
		RequestID: RequestID(r.Context()),
	})
}

func (s *Server) buildSolveResponse(r *http.Request, n *domain.Network, res *flow.Result) solveResponse {
	resp := solveResponse{
		RequestID:  RequestID(r.Context()),
		MaxFlow:    res.MaxFlow,
		Iterations: res.Iterations,
		DurationMs: float64(res.Duration.Microseconds()) / 1000,
		Canceled:   res.Canceled,
	}

	for _, p := range n.Pipes() {
		if p.From == domain.SuperSourceCode || p.To == domain.SuperSinkCode {
			continue
		}
		resp.Pipes = append(resp.Pipes, pipeFlowPayload{
			From:        p.From,
			To:          p.To,
			Capacity:    p.Capacity,
			Flow:        p.CurrentFlow,
			Utilization: p.Utilization(),
		})
	}

	for _, d := range domain.ComputeDeliveries(n) {
		resp.Deliveries = append(resp.Deliveries, deliveryPayload{
			Code:      d.Code,
			Name:      d.Name,
			Demand:    d.Demand,
			Delivered: d.Delivered,
			Deficit:   d.Deficit,
			Satisfied: d.Satisfied(),
		})
	}

	return resp
}

func (s *Server) handleMaxFlow(w http.ResponseWriter, r *http.Request) {
	var req solveRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	n, source, sink, err := buildNetwork(&req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.metrics.RecordNetworkSize("maxflow", n.StationCount(), n.PipeCount())

	if s.solveCache != nil {
		if cached, found, cErr := s.solveCache.Get(r.Context(), n, source, sink, "maxflow", ""); cErr == nil && found {
			s.metrics.RecordCacheOp("get", "hit")
			cache.ApplyPipeFlows(n, cached.PipeFlows)
			resp := s.buildSolveResponse(r, n, &flow.Result{
				MaxFlow:    cached.MaxFlow,
				Iterations: cached.Iterations,
				Duration:   time.Duration(cached.DurationMs * float64(time.Millisecond)),
			})
			resp.Cached = true
			s.writeJSON(w, http.StatusOK, resp)
			return
		}
		s.metrics.RecordCacheOp("get", "miss")
	}

	res, err := flow.Solve(r.Context(), n, source, sink, s.solveOpts)
	if err != nil {
		s.metrics.RecordSolve("maxflow", false, 0, 0, 0)
		s.writeError(w, r, err)
		return
	}
	s.metrics.RecordSolve("maxflow", true, res.Duration, res.Iterations, res.MaxFlow)

	if s.solveCache != nil && !res.Canceled {
		cached := &cache.CachedSolveResult{
			MaxFlow:    res.MaxFlow,
			Iterations: res.Iterations,
			DurationMs: float64(res.Duration.Microseconds()) / 1000,
			PipeFlows:  cache.SnapshotPipeFlows(n),
		}
		if err := s.solveCache.Set(r.Context(), n, source, sink, "maxflow", "", cached, 0); err != nil {
			s.metrics.RecordCacheOp("set", "error")
			logger.Warn("failed to cache solve result", "error", err)
		} else {
			s.metrics.RecordCacheOp("set", "ok")
		}
	}

	s.writeJSON(w, http.StatusOK, s.buildSolveResponse(r, n, res))
}

func (s *Server) handleStationOutage(w http.ResponseWriter, r *http.Request) {
	var req solveRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	if req.Station == "" {
		s.writeError(w, r, apperror.NewWithField(apperror.CodeInvalidArgument, "station is required", "station"))
		return
	}

	n, source, sink, err := buildNetwork(&req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	impact, err := s.engineFor(source, sink).StationOutage(r.Context(), n, req.Station)
	if err != nil {
		s.metrics.RecordOutage("station", false)
		s.writeError(w, r, err)
		return
	}
	s.metrics.RecordOutage("station", true)

	s.writeJSON(w, http.StatusOK, impact)
}

func (s *Server) handlePipeOutage(w http.ResponseWriter, r *http.Request) {
	var req solveRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	if req.PipeA == "" || req.PipeB == "" {
		s.writeError(w, r, apperror.NewWithField(apperror.CodeInvalidArgument, "pipe_a and pipe_b are required", "pipe_a"))
		return
	}

	n, source, sink, err := buildNetwork(&req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	impact, err := s.engineFor(source, sink).PipeOutage(r.Context(), n, req.PipeA, req.PipeB, req.Directed)
	if err != nil {
		s.metrics.RecordOutage("pipe", false)
		s.writeError(w, r, err)
		return
	}
	s.metrics.RecordOutage("pipe", true)

	s.writeJSON(w, http.StatusOK, impact)
}

func (s *Server) handleSweepStations(w http.ResponseWriter, r *http.Request) {
	var req solveRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	n, source, sink, err := buildNetwork(&req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	start := time.Now()
	sweep, err := s.engineFor(source, sink).SweepStations(r.Context(), n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.RecordSweep("station", sweep.CriticalCount, time.Since(start))

	s.writeJSON(w, http.StatusOK, sweep)
}

func (s *Server) handleSweepPipes(w http.ResponseWriter, r *http.Request) {
	var req solveRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	n, source, sink, err := buildNetwork(&req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	start := time.Now()
	sweep, err := s.engineFor(source, sink).SweepPipes(r.Context(), n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.RecordSweep("pipe", sweep.CriticalCount, time.Since(start))

	s.writeJSON(w, http.StatusOK, sweep)
}

var reportContentTypes = map[report.Format]string{
	report.FormatCSV:   "text/csv",
	report.FormatJSON:  "application/json",
	report.FormatExcel: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	report.FormatPDF:   "application/pdf",
}

// handleReport solves the network and renders the outcome as a document.
// kind "flow" (default) reports the max-flow result; "stations" or
// "pipes" runs the corresponding outage sweep.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	format := report.Format(req.Format)
	if req.Format == "" {
		format = report.Format(s.cfg.Report.DefaultFormat)
	}

	gen, err := report.ForFormat(format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	n, source, sink, err := buildNetwork(&req.solveRequest)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data := &report.Data{
		Network:      n,
		IncludeSuper: s.cfg.Report.IncludeSuper,
	}

	switch req.Kind {
	case "", "flow":
		res, err := flow.Solve(r.Context(), n, source, sink, s.solveOpts)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		data.Kind = report.KindFlow
		data.MaxFlow = res.MaxFlow
		data.Iterations = res.Iterations
		data.Statistics = domain.ComputeStatistics(n)

	case "stations":
		sweep, err := s.engineFor(source, sink).SweepStations(r.Context(), n)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		data.Kind = report.KindSweep
		data.Sweep = sweep

	case "pipes":
		sweep, err := s.engineFor(source, sink).SweepPipes(r.Context(), n)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		data.Kind = report.KindSweep
		data.Sweep = sweep

	default:
		s.writeError(w, r, apperror.NewWithField(
			apperror.CodeInvalidArgument,
			fmt.Sprintf("unknown report kind %q", req.Kind),
			"kind",
		))
		return
	}

	out, err := gen.Generate(r.Context(), data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", reportContentTypes[format])
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		logger.Error("failed to write report", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.cfg.App.Version,
	})
}
