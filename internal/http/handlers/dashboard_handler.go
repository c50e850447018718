package handlers

import (
	"bytes"
	"context"
	"embed"
	"html/template"

	"github.com/gofiber/fiber/v2"
	"github.com/modrelay/backend/internal/http/dto"
	"github.com/modrelay/backend/internal/middleware"
	"github.com/modrelay/backend/internal/models"
	"github.com/modrelay/backend/internal/services"
	"go.uber.org/zap"
)

//go:embed templates/dashboard.html
var templatesFS embed.FS

var dashboardTmpl = template.Must(
	template.New("dashboard.html").
		Funcs(template.FuncMap{"tagClass": tagClass}).
		ParseFS(templatesFS, "templates/dashboard.html"),
)

func tagClass(a models.Action) string {
	switch a {
	case models.ActionBan:
		return "is-danger"
	case models.ActionKick:
		return "is-warning"
	case models.ActionAutomod:
		return "is-dark"
	default:
		return "is-info"
	}
}

// DashboardReader is the read path the handlers need.
type DashboardReader interface {
	View(ctx context.Context) (*services.DashboardView, error)
	Recent(ctx context.Context, limit int) ([]models.AuditRecord, error)
	Status() services.ConnectionStatus
}

type DashboardHandler struct {
	dashboard DashboardReader
	log       *zap.Logger
}

func NewDashboardHandler(dashboard DashboardReader, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, log: log}
}

// Home renders the HTML dashboard.
func (h *DashboardHandler) Home(c *fiber.Ctx) error {
	view, err := h.dashboard.View(c.UserContext())
	if err != nil {
		h.log.Error("failed to load dashboard", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).SendString("failed to load audit log")
	}

	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, view); err != nil {
		h.log.Error("failed to render dashboard", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).SendString("failed to render dashboard")
	}

	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

func (h *DashboardHandler) Logs(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", services.DashboardRecentLimit)
	if limit <= 0 || limit > services.DashboardRecentLimit {
		limit = services.DashboardRecentLimit
	}

	records, err := h.dashboard.Recent(c.UserContext(), limit)
	if err != nil {
		h.log.Error("failed to query audit log", zap.Error(err))
		reqID, _ := c.Locals(middleware.CtxRequestID).(string)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error:     "failed to query audit log",
			RequestID: reqID,
		})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.LogsResponse{Records: records, Limit: limit}})
}

func (h *DashboardHandler) Status(c *fiber.Ctx) error {
	st := h.dashboard.Status()
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.StatusResponse{
		GuildCount: st.GuildCount,
		LatencyMS:  st.LatencyMS,
	}})
}
