package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cafeteria/internal/claims/models"
	"cafeteria/internal/platform/config"
	"cafeteria/internal/schedule"
	"cafeteria/pkg/platform/httputil"
	"cafeteria/pkg/requestcontext"
)

// Service defines the interface for claim operations.
type Service interface {
	SubmitClaim(ctx context.Context, code string) (*models.Result, error)
}

// Handler handles claim-related endpoints.
type Handler struct {
	service  Service
	schedule *schedule.Schedule
	printer  config.Printer
	logger   *slog.Logger
}

// New creates a new claims Handler.
func New(service Service, sched *schedule.Schedule, printer config.Printer, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		schedule: sched,
		printer:  printer,
		logger:   logger,
	}
}

// Register mounts claim endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verificar", h.HandleVerify)
	r.Get("/current_service", h.HandleCurrentService)
	r.Get("/", h.HandleStatus)
}

type verifyRequest struct {
	Codigo string `json:"codigo"`
}

type verifyAccepted struct {
	Success          bool   `json:"success"`
	ServiceClaimed   string `json:"service_claimed"`
	Codigo           string `json:"codigo_estudiante"`
	Nombre           string `json:"nombre"`
	Grado            string `json:"grado"`
	TipoAlimentacion string `json:"tipo_alimentacion"`
}

type verifyRejected struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// HandleVerify handles POST /verificar requests. Acceptance means the claim
// was queued for fulfillment; the response never waits on the printer or on
// persistence.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[verifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.SubmitClaim(ctx, req.Codigo)
	if err != nil {
		h.logger.WarnContext(ctx, "claim submission failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	if !result.Accepted {
		httputil.WriteJSON(w, http.StatusForbidden, verifyRejected{
			Success: false,
			Error:   string(result.Reason),
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, verifyAccepted{
		Success:          true,
		ServiceClaimed:   string(result.Service),
		Codigo:           result.Student.Code,
		Nombre:           result.Student.Name,
		Grado:            result.Student.Homeroom,
		TipoAlimentacion: result.Student.FoodPlan,
	})
}

type windowInfo struct {
	Service string `json:"service"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type currentServiceResponse struct {
	CurrentService string       `json:"current_service"`
	Windows        []windowInfo `json:"windows"`
}

// HandleCurrentService reports the active window and the configured
// boundaries. Diagnostic.
func (h *Handler) HandleCurrentService(w http.ResponseWriter, r *http.Request) {
	now := requestcontext.Now(r.Context())

	windows := h.schedule.Windows()
	infos := make([]windowInfo, 0, len(windows))
	for _, win := range windows {
		start, end := win.Clock()
		infos = append(infos, windowInfo{Service: string(win.Service), Start: start, End: end})
	}

	httputil.WriteJSON(w, http.StatusOK, currentServiceResponse{
		CurrentService: string(h.schedule.Active(now)),
		Windows:        infos,
	})
}

// HandleStatus is a cheap liveness probe mirroring the printer service's own
// root endpoint.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	mode := "PRODUCTION"
	if h.printer.TestMode {
		mode = "TEST MODE (not printing)"
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "Online",
		"mode":    mode,
		"printer": h.printer.Endpoint,
	})
}
