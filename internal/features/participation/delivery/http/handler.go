package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"giveaway-miniapp/internal/common/errors"
	"giveaway-miniapp/internal/common/logger"
	"giveaway-miniapp/internal/common/middleware"
	"giveaway-miniapp/internal/common/validation"
	catalogmodels "giveaway-miniapp/internal/features/catalog/models"
	catalogservice "giveaway-miniapp/internal/features/catalog/service"
	"giveaway-miniapp/internal/features/events"
	"giveaway-miniapp/internal/features/export"
	"giveaway-miniapp/internal/features/identity"
	"giveaway-miniapp/internal/features/ledger/repository"
	participation "giveaway-miniapp/internal/features/participation/service"
	"giveaway-miniapp/internal/features/participation/session"
)

const (
	sseBuffer    = 64
	sseKeepAlive = 25 * time.Second
)

// PendingCounter reports the outbox depth.
type PendingCounter interface {
	Pending(ctx context.Context) (int, error)
}

type Config struct {
	BotUsername string
	IsAdmin     func(userID string) bool
}

type ParticipationHandler struct {
	coordinator *participation.Coordinator
	catalog     catalogservice.CatalogService
	ledger      repository.Ledger
	bus         *events.Bus
	outbox      PendingCounter
	cfg         Config
	now         func() time.Time
	logger      zerolog.Logger
}

func NewParticipationHandler(
	coordinator *participation.Coordinator,
	catalog catalogservice.CatalogService,
	ledger repository.Ledger,
	bus *events.Bus,
	outbox PendingCounter,
	cfg Config,
) *ParticipationHandler {
	if cfg.IsAdmin == nil {
		cfg.IsAdmin = func(string) bool { return false }
	}
	return &ParticipationHandler{
		coordinator: coordinator,
		catalog:     catalog,
		ledger:      ledger,
		bus:         bus,
		outbox:      outbox,
		cfg:         cfg,
		now:         time.Now,
		logger:      logger.With("participation_http"),
	}
}

// RegisterRoutes expects router to already carry init data and session middleware.
func (h *ParticipationHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/me", h.me)
	router.GET("/events", h.stream)

	giveaways := router.Group("/giveaways")
	{
		giveaways.GET("", h.list)
		giveaways.GET("/:id", h.get)
		giveaways.POST("/:id/open", h.open)
		giveaways.POST("/:id/tasks/:kind", h.startTask)
		giveaways.GET("/:id/eligibility", h.eligibility)
		giveaways.POST("/:id/join", h.join)
	}

	admin := router.Group("/admin", middleware.RequireAdmin(h.cfg.IsAdmin))
	{
		admin.PUT("/giveaways/:id", h.saveGiveaway)
		admin.GET("/giveaways/:id/entries", h.entries)
		admin.GET("/giveaways/:id/entries/export", h.exportEntries)
		admin.GET("/outbox", h.outboxStatus)
	}
}

func (h *ParticipationHandler) currentSession(c *gin.Context) (*session.UserSession, bool) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		_ = c.Error(errors.NewUnauthorizedError("no user session"))
		return nil, false
	}
	return sess, true
}

// @Summary Get current user
// @Description Returns the profile (tickets, invites, joined giveaways) and the referral link
// @Tags users
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} MeResponse
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized"
// @Router /me [get]
func (h *ParticipationHandler) me(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, MeResponse{
		Profile:      sess.Profile(),
		ReferralLink: identity.ReferralLink(h.cfg.BotUsername, sess.Identity.ID),
		Persisted:    sess.Persisted(),
	})
}

// @Summary List giveaways
// @Description Giveaways in one phase, optionally filtered by a case-insensitive title substring
// @Tags giveaways
// @Produce json
// @Security TelegramInitData
// @Param status query string false "Phase" Enums(active, upcoming, past) default(active)
// @Param q query string false "Title filter"
// @Success 200 {object} GiveawaysResponse
// @Failure 400 {object} middleware.ErrorResponse "Unknown phase"
// @Router /giveaways [get]
func (h *ParticipationHandler) list(c *gin.Context) {
	phase, err := catalogmodels.ParsePhase(c.Query("status"))
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}

	items, err := h.catalog.List(c.Request.Context(), phase, c.Query("q"))
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}

	resp := GiveawaysResponse{Items: make([]GiveawayResponse, 0, len(items)), Total: len(items)}
	for _, g := range items {
		resp.Items = append(resp.Items, GiveawayResponse{Giveaway: g, Phase: phase})
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Get giveaway
// @Tags giveaways
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Success 200 {object} GiveawayResponse
// @Failure 404 {object} middleware.ErrorResponse "Giveaway not found"
// @Router /giveaways/{id} [get]
func (h *ParticipationHandler) get(c *gin.Context) {
	g, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, GiveawayResponse{Giveaway: g, Phase: g.PhaseAt(h.now())})
}

// @Summary Open giveaway
// @Description Starts a fresh task verification session for the giveaway. Progress from a previous session is discarded.
// @Tags participation
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Success 200 {object} EligibilityResponse
// @Failure 404 {object} middleware.ErrorResponse "Giveaway not found"
// @Router /giveaways/{id}/open [post]
func (h *ParticipationHandler) open(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	giveawayID := c.Param("id")
	if err := h.requireGiveaway(c.Request.Context(), giveawayID); err != nil {
		_ = c.Error(err)
		return
	}

	snap := sess.Tracker.ResetSession(giveawayID)
	state := participation.EvaluateJoinEligibility(sess.Profile(), giveawayID, gateFor(sess, giveawayID))
	h.bus.Publish(events.JoinStateChanged(sess.Identity.ID, giveawayID, string(state)))

	c.JSON(http.StatusOK, EligibilityResponse{
		GiveawayID: giveawayID,
		State:      string(state),
		Tasks:      snap.Tasks,
	})
}

// @Summary Start task
// @Description Returns the link the mini-app should open. The task is marked complete after a fixed delay.
// @Tags participation
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Param kind path string true "Task kind" Enums(tg, tw, yt)
// @Param input body StartTaskRequest true "External link"
// @Success 200 {object} StartTaskResponse
// @Failure 400 {object} middleware.ErrorResponse "Unknown task kind or bad link"
// @Failure 409 {object} middleware.ErrorResponse "Giveaway is not open"
// @Router /giveaways/{id}/tasks/{kind} [post]
func (h *ParticipationHandler) startTask(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}

	var uri taskURI
	if err := c.ShouldBindUri(&uri); err != nil {
		_ = c.Error(bindingError(err))
		return
	}
	var input StartTaskRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		_ = c.Error(bindingError(err))
		return
	}
	if err := validation.ValidateTaskLink(input.Link); err != nil {
		_ = c.Error(errors.NewValidationError("link", err.Error()))
		return
	}
	if sess.Tracker.GiveawayID() != uri.ID {
		_ = c.Error(errors.New(errors.ErrCodeNoSession, "open the giveaway first").WithDetail("giveaway_id", uri.ID))
		return
	}

	started, err := sess.Tracker.StartTask(uri.Kind, input.Link)
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}

	resp := StartTaskResponse{Started: started, Tasks: sess.Tracker.Snapshot().Tasks}
	if started {
		resp.OpenLink = input.Link
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Join eligibility
// @Tags participation
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Success 200 {object} EligibilityResponse
// @Router /giveaways/{id}/eligibility [get]
func (h *ParticipationHandler) eligibility(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	giveawayID := c.Param("id")

	tasks := map[string]bool{}
	if snap := sess.Tracker.Snapshot(); snap.GiveawayID == giveawayID {
		tasks = snap.Tasks
	}
	state := participation.EvaluateJoinEligibility(sess.Profile(), giveawayID, gateFor(sess, giveawayID))
	c.JSON(http.StatusOK, EligibilityResponse{GiveawayID: giveawayID, State: string(state), Tasks: tasks})
}

// @Summary Join giveaway
// @Description Adds one ticket and records the entry. Ledger failures are reported as warnings, the join still succeeds.
// @Tags participation
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Success 200 {object} JoinResponse
// @Failure 404 {object} middleware.ErrorResponse "Giveaway not found"
// @Failure 409 {object} middleware.ErrorResponse "Tasks not complete or join already in progress"
// @Router /giveaways/{id}/join [post]
func (h *ParticipationHandler) join(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	giveawayID := c.Param("id")

	res, err := h.coordinator.Join(c.Request.Context(), sess.Local(), giveawayID, gateFor(sess, giveawayID))
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	if !res.AlreadyJoined {
		sess.Tracker.Close()
	}

	resp := JoinResponse{
		Profile:       res.Profile,
		AlreadyJoined: res.AlreadyJoined,
		Queued:        res.Queued,
	}
	for _, w := range res.Warnings {
		resp.Warnings = append(resp.Warnings, w.Error())
		resp.WarningCodes = append(resp.WarningCodes, string(toAppError(w).Code))
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Event stream
// @Description Server-sent events for the current user: profileUpdated, joinStateChanged, taskStateChanged, joinSucceeded, joinFailed, ledgerUnreachable, entryRecordWriteFailed
// @Tags participation
// @Produce text/event-stream
// @Security TelegramInitData
// @Success 200 {object} events.Event
// @Router /events [get]
func (h *ParticipationHandler) stream(c *gin.Context) {
	user, ok := middleware.CurrentIdentity(c)
	if !ok {
		_ = c.Error(errors.NewUnauthorizedError("Telegram Init Data required"))
		return
	}

	ch := make(chan events.Event, sseBuffer)
	unsubscribe := h.bus.Subscribe(func(e events.Event) {
		if e.UserID != user.ID {
			return
		}
		select {
		case ch <- e:
		default:
			// медленный клиент, событие теряется
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e := <-ch:
			c.SSEvent(string(e.Kind), e)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"at": h.now().UTC()})
			return true
		}
	})
}

// @Summary Save giveaway
// @Description Creates or replaces a catalog entry
// @Tags admin
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Param input body SaveGiveawayRequest true "Descriptor"
// @Success 200 {object} GiveawayResponse
// @Failure 400 {object} middleware.ErrorResponse "Validation error"
// @Failure 403 {object} middleware.ErrorResponse "Not an admin"
// @Router /admin/giveaways/{id} [put]
func (h *ParticipationHandler) saveGiveaway(c *gin.Context) {
	var input SaveGiveawayRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		_ = c.Error(bindingError(err))
		return
	}

	g := &catalogmodels.Giveaway{
		ID:       c.Param("id"),
		Title:    input.Title,
		Winners:  input.Winners,
		EndsAt:   input.EndsAt,
		StartsAt: input.StartsAt,
		Ended:    input.Ended,
	}
	if err := validation.ValidateGiveawayID(g.ID); err != nil {
		_ = c.Error(errors.NewValidationError("id", err.Error()))
		return
	}
	if err := validation.ValidateTitle(g.Title); err != nil {
		_ = c.Error(errors.NewValidationError("title", err.Error()))
		return
	}
	if err := h.catalog.Save(c.Request.Context(), g); err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, GiveawayResponse{Giveaway: g, Phase: g.PhaseAt(h.now())})
}

// @Summary Giveaway entries
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Success 200 {object} EntriesResponse
// @Failure 403 {object} middleware.ErrorResponse "Not an admin"
// @Router /admin/giveaways/{id}/entries [get]
func (h *ParticipationHandler) entries(c *gin.Context) {
	giveawayID := c.Param("id")
	items, err := h.ledger.ListEntries(c.Request.Context(), giveawayID)
	if err != nil {
		_ = c.Error(errors.Wrapf(err, errors.ErrCodeLedgerUnreachable, "failed to list entries of %s", giveawayID))
		return
	}
	c.JSON(http.StatusOK, EntriesResponse{Items: items, Total: len(items)})
}

// @Summary Export giveaway entries
// @Description Entries as an xlsx workbook, in join order
// @Tags admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Success 200 {file} file
// @Failure 403 {object} middleware.ErrorResponse "Not an admin"
// @Router /admin/giveaways/{id}/entries/export [get]
func (h *ParticipationHandler) exportEntries(c *gin.Context) {
	giveawayID := c.Param("id")
	items, err := h.ledger.ListEntries(c.Request.Context(), giveawayID)
	if err != nil {
		_ = c.Error(errors.Wrapf(err, errors.ErrCodeLedgerUnreachable, "failed to list entries of %s", giveawayID))
		return
	}

	f, err := export.Workbook(giveawayID, items)
	if err != nil {
		_ = c.Error(errors.Wrap(err, errors.ErrCodeInternal, "failed to build workbook"))
		return
	}
	defer f.Close()

	c.Header("Content-Type", export.ContentType)
	c.Header("Content-Disposition", "attachment; filename="+export.FileName(giveawayID, h.now()))
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		h.logger.Error().Err(err).Str("giveaway_id", giveawayID).Msg("Failed to write workbook")
	}
}

// @Summary Outbox depth
// @Description Number of ledger writes waiting for replay
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} OutboxResponse
// @Router /admin/outbox [get]
func (h *ParticipationHandler) outboxStatus(c *gin.Context) {
	if h.outbox == nil {
		c.JSON(http.StatusOK, OutboxResponse{})
		return
	}
	n, err := h.outbox.Pending(c.Request.Context())
	if err != nil {
		_ = c.Error(errors.Wrap(err, errors.ErrCodeInternal, "failed to read outbox"))
		return
	}
	c.JSON(http.StatusOK, OutboxResponse{Pending: n})
}

func (h *ParticipationHandler) requireGiveaway(ctx context.Context, giveawayID string) *errors.AppError {
	ok, err := h.catalog.Exists(ctx, giveawayID)
	if err != nil {
		return toAppError(err)
	}
	if !ok {
		return errors.New(errors.ErrCodeInvalidGiveawayID, "giveaway not found").WithDetail("giveaway_id", giveawayID)
	}
	return nil
}

type sessionGate struct {
	sess       *session.UserSession
	giveawayID string
}

func (g sessionGate) AllTasksComplete() bool {
	return g.sess.Tracker.AllTasksCompleteFor(g.giveawayID)
}

func gateFor(sess *session.UserSession, giveawayID string) participation.TaskGate {
	return sessionGate{sess: sess, giveawayID: giveawayID}
}
