package webhook

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/partnerhub/core/internal/pkg/pagination"
	"github.com/partnerhub/core/internal/pkg/response"
)

// Handler wires the admin webhook endpoints.
type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// RegisterRoutes mounts the endpoints under /webhooks. manualMW runs in front
// of the endpoints that trigger an immediate delivery.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc, manualMW ...gin.HandlerFunc) {
	manual := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, manualMW...), handler)
	}

	g := rg.Group("/webhooks", authMW)
	g.GET("/events", h.listEvents)
	g.GET("/logs", h.listLogs)
	g.GET("/logs/:logId", h.getLog)
	g.POST("/logs/:logId/redispatch", manual(h.redispatch)...)

	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/toggle", h.toggle)
	g.POST("/:id/secret", h.regenerateSecret)
	g.POST("/:id/test", manual(h.test)...)
}

func (h *Handler) listEvents(c *gin.Context) {
	response.OK(c, eventsResponse{Events: EventTypes(), Categories: EventCategories()})
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.ListAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]subscriptionResponse, len(items))
	for i := range items {
		out[i] = toResponse(&items[i], false)
	}
	response.OK(c, out)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateSubscriptionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	sub, err := h.svc.Create(c.Request.Context(), dto.input())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, toResponse(sub, true))
}

func (h *Handler) get(c *gin.Context) {
	ctx := c.Request.Context()
	sub, err := h.svc.Get(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := toResponse(sub, true)
	if n, err := h.svc.DeliveryCount(ctx, sub.ID); err == nil {
		out.DeliveryCount = &n
	}
	response.OK(c, out)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateSubscriptionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	sub, err := h.svc.Update(c.Request.Context(), c.Param("id"), dto.input())
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, toResponse(sub, false))
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) toggle(c *gin.Context) {
	sub, err := h.svc.ToggleActive(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, toResponse(sub, false))
}

func (h *Handler) regenerateSecret(c *gin.Context) {
	id := c.Param("id")
	secret, err := h.svc.RegenerateSecret(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, secretResponse{ID: id, Secret: secret})
}

func (h *Handler) test(c *gin.Context) {
	res, err := h.svc.Test(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, res)
}

func (h *Handler) listLogs(c *gin.Context) {
	f := LogFilter{
		SubscriptionID: c.Query("subscriptionId"),
		EventType:      c.Query("eventType"),
	}
	if raw := c.Query("success"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(c, "success must be true or false")
			return
		}
		f.Success = &v
	}
	items, pag, err := h.svc.QueryLogs(c.Request.Context(), f, pagination.FromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]deliveryLogResponse, len(items))
	for i := range items {
		out[i] = toLogResponse(items[i])
	}
	response.Paged(c, out, pag)
}

func (h *Handler) getLog(c *gin.Context) {
	entry, err := h.svc.GetLog(c.Request.Context(), c.Param("logId"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, toLogResponse(*entry))
}

func (h *Handler) redispatch(c *gin.Context) {
	res, err := h.svc.Redispatch(c.Request.Context(), c.Param("logId"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, res)
}

func writeError(c *gin.Context, err error) {
	var ve *ValidationError
	var nf *NotFoundError
	switch {
	case errors.As(err, &ve):
		response.UnprocessableEntity(c, ve.Error())
	case errors.As(err, &nf):
		response.NotFoundMsg(c, nf.Error())
	default:
		response.InternalError(c, err)
	}
}
