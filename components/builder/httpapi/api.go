package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	gocommand "github.com/goliatone/go-command"
	builder "github.com/goliatone/go-dashboard-builder/components/builder"
	"github.com/goliatone/go-dashboard-builder/components/builder/commands"
	"github.com/goliatone/go-dashboard-builder/components/builder/queries"
)

// SessionHeader carries the builder session id. The "session" query
// parameter is accepted as well.
const SessionHeader = "X-Builder-Session"

// Handlers exposes HTTP endpoints backed by shared commands and queries.
type Handlers struct {
	API        Executor
	Dashboard  gocommand.Querier[queries.DashboardInput, queries.DashboardView]
	Charts     gocommand.Querier[queries.ChartCatalogInput, []queries.ChartGroup]
	Indicators gocommand.Querier[queries.IndicatorSearchInput, []builder.Indicator]
}

// Mount registers every handler on mux under prefix.
func (h *Handlers) Mount(mux *http.ServeMux, prefix string) {
	prefix = strings.TrimSuffix(prefix, "/")
	mux.HandleFunc("GET "+prefix+"/dashboard", h.HandleDashboard)
	mux.HandleFunc("GET "+prefix+"/charts", h.HandleChartCatalog)
	mux.HandleFunc("GET "+prefix+"/indicators", h.HandleIndicators)
	mux.HandleFunc("POST "+prefix+"/panels", h.HandleAddPanel)
	mux.HandleFunc("POST "+prefix+"/panels/reorder", h.HandleReorderPanels)
	mux.HandleFunc("POST "+prefix+"/panels/move", h.HandleMovePanel)
	mux.HandleFunc("DELETE "+prefix+"/panels/{id}", h.withPanelID(h.HandleRemovePanel))
	mux.HandleFunc("POST "+prefix+"/panels/{id}/size", h.withPanelID(h.HandleResizePanel))
	mux.HandleFunc("POST "+prefix+"/panels/{id}/indicators", h.withPanelID(h.HandleAssignIndicators))
	mux.HandleFunc("POST "+prefix+"/panels/{id}/chart", h.withPanelID(h.HandleSetChartType))
	mux.HandleFunc("POST "+prefix+"/panels/{id}/styling", h.withPanelID(h.HandleUpdateStyling))
	mux.HandleFunc("POST "+prefix+"/panels/{id}/years", h.withPanelID(h.HandleSetYearRange))
	mux.HandleFunc("POST "+prefix+"/undo", h.historyStep(commands.HistoryUndo))
	mux.HandleFunc("POST "+prefix+"/redo", h.historyStep(commands.HistoryRedo))
	mux.HandleFunc("POST "+prefix+"/reset", h.HandleReset)
	mux.HandleFunc("POST "+prefix+"/presets", h.HandleApplyPreset)
}

func (h *Handlers) withPanelID(next func(http.ResponseWriter, *http.Request, int)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("panel id must be an integer"))
			return
		}
		next(w, r, id)
	}
}

func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if h.Dashboard == nil {
		writeError(w, http.StatusNotImplemented, errCommandMissing)
		return
	}
	view, err := h.Dashboard.Query(r.Context(), queries.DashboardInput{SessionID: SessionFromRequest(r)})
	if err != nil {
		writeError(w, StatusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handlers) HandleChartCatalog(w http.ResponseWriter, r *http.Request) {
	if h.Charts == nil {
		writeError(w, http.StatusNotImplemented, errCommandMissing)
		return
	}
	locale := r.URL.Query().Get("locale")
	if locale == "" {
		locale = ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	}
	groups, err := h.Charts.Query(r.Context(), queries.ChartCatalogInput{Locale: locale})
	if err != nil {
		writeError(w, StatusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *Handlers) HandleIndicators(w http.ResponseWriter, r *http.Request) {
	if h.Indicators == nil {
		writeError(w, http.StatusNotImplemented, errCommandMissing)
		return
	}
	input := queries.IndicatorSearchInput{Query: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("limit must be an integer"))
			return
		}
		input.Limit = limit
	}
	out, err := h.Indicators.Query(r.Context(), input)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) HandleAddPanel(w http.ResponseWriter, r *http.Request) {
	var cfg builder.PanelConfig
	if !decode(w, r, &cfg) {
		return
	}
	var panel builder.Panel
	input := commands.AddPanelInput{SessionID: SessionFromRequest(r), Config: cfg, Result: &panel}
	if err := h.API.AddPanel(r.Context(), input); err != nil {
		writeError(w, StatusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"status": "created", "panel_id": panel.ID})
}

func (h *Handlers) HandleRemovePanel(w http.ResponseWriter, r *http.Request, panelID int) {
	input := commands.RemovePanelInput{SessionID: SessionFromRequest(r), PanelID: panelID}
	h.respond(w, h.API.RemovePanel(r.Context(), input), "removed")
}

func (h *Handlers) HandleResizePanel(w http.ResponseWriter, r *http.Request, panelID int) {
	var input commands.ResizePanelInput
	if !decode(w, r, &input) {
		return
	}
	input.SessionID, input.PanelID = SessionFromRequest(r), panelID
	h.respond(w, h.API.ResizePanel(r.Context(), input), "resized")
}

func (h *Handlers) HandleAssignIndicators(w http.ResponseWriter, r *http.Request, panelID int) {
	var input commands.AssignIndicatorsInput
	if !decode(w, r, &input) {
		return
	}
	input.SessionID, input.PanelID = SessionFromRequest(r), panelID
	h.respond(w, h.API.AssignIndicators(r.Context(), input), "assigned")
}

func (h *Handlers) HandleSetChartType(w http.ResponseWriter, r *http.Request, panelID int) {
	var input commands.SetChartTypeInput
	if !decode(w, r, &input) {
		return
	}
	input.SessionID, input.PanelID = SessionFromRequest(r), panelID
	h.respond(w, h.API.SetChartType(r.Context(), input), "updated")
}

func (h *Handlers) HandleUpdateStyling(w http.ResponseWriter, r *http.Request, panelID int) {
	var patch builder.StylingPatch
	if !decode(w, r, &patch) {
		return
	}
	input := commands.UpdateStylingInput{SessionID: SessionFromRequest(r), PanelID: panelID, Patch: patch}
	h.respond(w, h.API.UpdateStyling(r.Context(), input), "updated")
}

func (h *Handlers) HandleSetYearRange(w http.ResponseWriter, r *http.Request, panelID int) {
	var input commands.SetYearRangeInput
	if !decode(w, r, &input) {
		return
	}
	input.SessionID, input.PanelID = SessionFromRequest(r), panelID
	h.respond(w, h.API.SetYearRange(r.Context(), input), "updated")
}

func (h *Handlers) HandleMovePanel(w http.ResponseWriter, r *http.Request) {
	var input commands.MovePanelInput
	if !decode(w, r, &input) {
		return
	}
	input.SessionID = SessionFromRequest(r)
	h.respond(w, h.API.MovePanel(r.Context(), input), "moved")
}

func (h *Handlers) HandleReorderPanels(w http.ResponseWriter, r *http.Request) {
	var input commands.ReorderPanelsInput
	if !decode(w, r, &input) {
		return
	}
	input.SessionID = SessionFromRequest(r)
	h.respond(w, h.API.ReorderPanels(r.Context(), input), "reordered")
}

func (h *Handlers) historyStep(direction commands.HistoryDirection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var moved bool
		input := commands.HistoryStepInput{SessionID: SessionFromRequest(r), Direction: direction, Moved: &moved}
		if err := h.API.HistoryStep(r.Context(), input); err != nil {
			writeError(w, StatusFor(err), err)
			return
		}
		status := string(direction)
		if !moved {
			status = "noop"
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": status, "moved": moved})
	}
}

func (h *Handlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.API.Reset(r.Context(), commands.ResetInput{SessionID: SessionFromRequest(r)}), "reset")
}

func (h *Handlers) HandleApplyPreset(w http.ResponseWriter, r *http.Request) {
	var input commands.ApplyPresetInput
	if !decode(w, r, &input) {
		return
	}
	input.SessionID = SessionFromRequest(r)
	if err := h.API.ApplyPreset(r.Context(), input); err != nil {
		writeError(w, StatusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "applied"})
}

// respond answers 200 with status, or "noop" when the targeted panel is gone.
func (h *Handlers) respond(w http.ResponseWriter, err error, status string) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": status})
	case builder.IsNotFound(err):
		writeJSON(w, http.StatusOK, map[string]string{"status": "noop"})
	default:
		writeError(w, StatusFor(err), err)
	}
}

// StatusFor maps builder errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case builder.IsNotFound(err), errors.Is(err, builder.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, builder.ErrUnknownChartType),
		errors.Is(err, builder.ErrInvalidColSpan),
		errors.Is(err, builder.ErrInvalidRowSpan),
		errors.Is(err, builder.ErrUnknownPalette),
		errors.Is(err, builder.ErrInvalidFontSize):
		return http.StatusBadRequest
	case errors.Is(err, errCommandMissing):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// SessionFromRequest reads the session id from the header or query string.
func SessionFromRequest(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(SessionHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get("session"))
}

// ParseAcceptLanguage returns the first language tag of an Accept-Language header.
func ParseAcceptLanguage(header string) string {
	for _, token := range strings.Split(header, ",") {
		token = strings.TrimSpace(token)
		if idx := strings.Index(token, ";"); idx >= 0 {
			token = token[:idx]
		}
		if token != "" {
			return strings.ToLower(token)
		}
	}
	return ""
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
