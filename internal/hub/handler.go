package hub

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"alarmhub/internal/auth"
	"alarmhub/internal/events"
	"alarmhub/internal/incidents"
)

// Handler exposes the hub over plain REST for tools that do not keep a
// websocket open. Every write goes through the same apply path as
// websocket requests, so connected viewers see it immediately.
type Handler struct {
	Hub    *Hub
	Logger *slog.Logger
	// DefaultAssignee owns incidents moved into an owned bucket without one.
	DefaultAssignee string
}

type moveRequest struct {
	Target   string `json:"target" binding:"required"`
	Assignee string `json:"assignee"`
}

// Register mounts the incident and catalog routes on g.
func (h *Handler) Register(g gin.IRoutes) {
	g.GET("/incidents", h.List)
	g.GET("/incidents/board", h.Board)
	g.POST("/incidents", h.Create)
	g.GET("/incidents/:id", h.Get)
	g.PATCH("/incidents/:id", h.Move)
	g.GET("/catalog", h.Catalog)
}

// List returns the incidents passing the filter. With ?bucket= it returns
// that column only.
func (h *Handler) List(c *gin.Context) {
	f := filterFromQuery(c)
	all := h.Hub.Snapshot()

	if name := c.Query("bucket"); name != "" {
		b, err := incidents.ParseBucket(name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, incidents.Classify(all, b, f))
		return
	}

	out := make([]incidents.Incident, 0, len(all))
	for _, inc := range all {
		if f.Matches(inc) {
			out = append(out, inc)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Board(c *gin.Context) {
	c.JSON(http.StatusOK, incidents.ClassifyAll(h.Hub.Snapshot(), filterFromQuery(c)))
}

func (h *Handler) Get(c *gin.Context) {
	inc, ok := h.Hub.Incident(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, inc)
}

func (h *Handler) Create(c *gin.Context) {
	var inc incidents.Incident
	if err := c.ShouldBindJSON(&inc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := events.ValidateIncident(inc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, exists := h.Hub.Incident(inc.IncidentID); exists {
		c.JSON(http.StatusConflict, gin.H{"error": "incident already exists"})
		return
	}
	stored := h.Hub.Add(inc)
	c.JSON(http.StatusCreated, stored)
}

// Move applies a board drop: {"target":"active","assignee":"user-3"}.
// Without an assignee the logged-in operator takes the incident, or
// DefaultAssignee when authentication is off.
func (h *Handler) Move(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	target, err := incidents.ParseBucket(req.Target)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	assignee := strings.TrimSpace(req.Assignee)
	if assignee == "" {
		assignee = h.DefaultAssignee
		if u, ok := auth.UserFromContext(c.Request.Context()); ok {
			assignee = u.AssigneeID()
		}
	}

	inc, err := h.Hub.Move(c.Param("id"), target, assignee)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.Logger.Error("move incident", "id", c.Param("id"), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, inc)
}

func (h *Handler) Catalog(c *gin.Context) {
	c.JSON(http.StatusOK, h.Hub.Catalog())
}

// filterFromQuery reads ?escalation= and any number of ?tag= values. Tags
// may also be comma separated.
func filterFromQuery(c *gin.Context) incidents.Filter {
	f := incidents.Filter{EscalationLevelID: c.Query("escalation")}
	for _, raw := range c.QueryArray("tag") {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.Tags = append(f.Tags, t)
			}
		}
	}
	return f
}
