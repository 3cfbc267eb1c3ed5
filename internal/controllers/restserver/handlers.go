package restserver

import (
	"bytes"
	"context"
	"errors"
	htmltemplate "html/template"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/chrissnell/forecastview/internal/constants"
	"github.com/chrissnell/forecastview/internal/dataset"
	"github.com/chrissnell/forecastview/internal/forecast"
	"github.com/chrissnell/forecastview/internal/log"
	"github.com/chrissnell/forecastview/pkg/responseformat"
)

const tableTimestampLayout = "2006-01-02 15:04:05"

var templateFuncs = htmltemplate.FuncMap{
	"formatTimestamp": func(t time.Time) string {
		return t.Format(tableTimestampLayout)
	},
	"formatFill": func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	},
}

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// SelectedFilters echoes the effective filter values back to the client,
// with defaults filled in
type SelectedFilters struct {
	BinID     string `json:"bin_id"`
	RiskLevel string `json:"risk_level"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// OptionsResponse holds the values for populating the filter dropdowns
type OptionsResponse struct {
	BinIDs     []string `json:"bin_ids"`
	RiskLevels []string `json:"risk_levels"`
	MinDate    string   `json:"min_date"`
	MaxDate    string   `json:"max_date"`
}

// ViewResponse is the payload of /api/view
type ViewResponse struct {
	Filters SelectedFilters     `json:"filters"`
	Options OptionsResponse     `json:"options"`
	View    forecast.ViewResult `json:"view"`
}

func filterParams(req *http.Request) forecast.FilterParams {
	q := req.URL.Query()
	return forecast.FilterParams{
		BinID:     q.Get("bin_id"),
		RiskLevel: q.Get("risk_level"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}
}

func selectedFilters(params forecast.FilterParams, opts forecast.Options) SelectedFilters {
	sel := SelectedFilters{
		BinID:     params.BinID,
		RiskLevel: params.RiskLevel,
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
	}
	if sel.BinID == "" {
		sel.BinID = forecast.AllSentinel
	}
	if sel.RiskLevel == "" {
		sel.RiskLevel = forecast.AllSentinel
	}
	if sel.StartDate == "" {
		sel.StartDate = opts.MinDateString()
	}
	if sel.EndDate == "" {
		sel.EndDate = opts.MaxDateString()
	}
	return sel
}

func optionsResponse(opts forecast.Options) OptionsResponse {
	levels := forecast.RiskLevels()
	names := make([]string, len(levels))
	for i, level := range levels {
		names[i] = level.String()
	}
	return OptionsResponse{
		BinIDs:     opts.BinIDs,
		RiskLevels: names,
		MinDate:    opts.MinDateString(),
		MaxDate:    opts.MaxDateString(),
	}
}

// buildView loads the dataset and runs the pipeline for the request's filters
func (h *Handlers) buildView(ctx context.Context, params forecast.FilterParams) (*ViewResponse, error) {
	ds, err := h.controller.cache.Dataset(ctx)
	if err != nil {
		return nil, err
	}

	opts := ds.Options()
	resp := &ViewResponse{
		Filters: selectedFilters(params, opts),
		Options: optionsResponse(opts),
	}

	spec, err := forecast.ParseFilter(params, opts)
	if err != nil {
		return resp, err
	}

	resp.View = forecast.Compute(ds, spec)
	return resp, nil
}

// GetView returns the computed view for the requested filters
func (h *Handlers) GetView(w http.ResponseWriter, req *http.Request) {
	resp, err := h.buildView(req.Context(), filterParams(req))
	if err != nil {
		var ife *forecast.InvalidFilterError
		if errors.As(err, &ife) {
			h.formatter.WriteError(w, req, http.StatusBadRequest, "invalid filter", ife.Error())
			return
		}
		h.logLoadError(req, err)
		h.formatter.WriteError(w, req, http.StatusServiceUnavailable, "dataset unavailable", "the forecast dataset could not be loaded")
		return
	}

	err = h.formatter.WriteResponse(w, req, resp, map[string]string{"Cache-Control": "no-cache"})
	if err != nil {
		log.Error("error encoding view response:", err)
	}
}

// GetOptions returns the dropdown values derived from the unfiltered dataset
func (h *Handlers) GetOptions(w http.ResponseWriter, req *http.Request) {
	ds, err := h.controller.cache.Dataset(req.Context())
	if err != nil {
		h.logLoadError(req, err)
		h.formatter.WriteError(w, req, http.StatusServiceUnavailable, "dataset unavailable", "the forecast dataset could not be loaded")
		return
	}

	if err := h.formatter.WriteResponse(w, req, optionsResponse(ds.Options()), nil); err != nil {
		log.Error("error encoding options response:", err)
	}
}

// GetHealth reports liveness and the size of the cached dataset
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	status := map[string]any{
		"status":  "ok",
		"version": constants.Version,
	}

	if ds, err := h.controller.cache.Dataset(req.Context()); err != nil {
		status["status"] = "degraded"
		status["error"] = err.Error()
	} else {
		status["records"] = ds.Len()
		status["loaded_at"] = h.controller.cache.LoadedAt().Format(time.RFC3339)
	}

	if err := h.formatter.WriteResponse(w, req, status, nil); err != nil {
		h.controller.logger.Errorw("error encoding health response",
			"request_id", requestIDFromContext(req.Context()),
			"error", err)
	}
}

// DownloadDataset streams the raw source file as an attachment without
// running it through the pipeline
func (h *Handlers) DownloadDataset(w http.ResponseWriter, req *http.Request) {
	src, ok := h.controller.cache.Loader().(dataset.FileSource)
	if !ok {
		http.Error(w, "download is only available for file-backed datasets", http.StatusNotFound)
		return
	}

	path := src.FilePath()
	f, err := os.Open(path)
	if err != nil {
		log.Errorf("error opening dataset for download: %v", err)
		http.Error(w, "dataset file not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		log.Errorf("error reading dataset file info: %v", err)
		http.Error(w, "error reading dataset file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeContent(w, req, info.Name(), info.ModTime(), f)
}

// dashboardData is what index.html.tmpl renders
type dashboardData struct {
	PageTitle string
	Version   string
	Error     string
	Filters   SelectedFilters
	Options   OptionsResponse
	View      forecast.ViewResult
}

// ServeDashboard renders the HTML dashboard
func (h *Handlers) ServeDashboard(w http.ResponseWriter, req *http.Request) {
	data := dashboardData{
		PageTitle: h.controller.restConfig.PageTitle,
		Version:   constants.Version,
	}
	status := http.StatusOK

	resp, err := h.buildView(req.Context(), filterParams(req))
	var ife *forecast.InvalidFilterError
	switch {
	case err == nil:
		data.Filters = resp.Filters
		data.Options = resp.Options
		data.View = resp.View
	case errors.As(err, &ife):
		status = http.StatusBadRequest
		data.Error = ife.Error()
		data.Filters = resp.Filters
		data.Options = resp.Options
		data.View = forecast.Compute(nil, forecast.FilterSpec{})
	default:
		h.logLoadError(req, err)
		http.Error(w, "the forecast dataset could not be loaded", http.StatusServiceUnavailable)
		return
	}

	// Render into a buffer so a template failure doesn't leave a half-written page
	var buf bytes.Buffer
	if err := h.controller.dashboard.Execute(&buf, data); err != nil {
		log.Error("error executing dashboard template:", err)
		http.Error(w, "error rendering dashboard", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (h *Handlers) logLoadError(req *http.Request, err error) {
	h.controller.logger.Errorw("could not load dataset",
		"request_id", requestIDFromContext(req.Context()),
		"path", req.URL.Path,
		"error", err)
}
