package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"giveaway-miniapp/internal/common/middleware"
	catalogmemory "giveaway-miniapp/internal/features/catalog/repository/memory"
	catalogservice "giveaway-miniapp/internal/features/catalog/service"
	"giveaway-miniapp/internal/features/events"
	"giveaway-miniapp/internal/features/export"
	"giveaway-miniapp/internal/features/identity"
	"giveaway-miniapp/internal/features/ledger/models"
	ledgermemory "giveaway-miniapp/internal/features/ledger/repository/memory"
	participation "giveaway-miniapp/internal/features/participation/service"
	"giveaway-miniapp/internal/features/participation/session"
	userservice "giveaway-miniapp/internal/features/user/service"
)

var taskKinds = []string{"tg", "tw", "yt"}

type manualScheduler struct {
	mu  sync.Mutex
	fns []func()
}

func (s *manualScheduler) AfterFunc(_ time.Duration, f func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := len(s.fns)
	s.fns = append(s.fns, f)
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		pending := s.fns[idx] != nil
		s.fns[idx] = nil
		return pending
	}
}

func (s *manualScheduler) fire() {
	s.mu.Lock()
	fns := s.fns
	s.fns = make([]func(), len(fns))
	s.mu.Unlock()
	for _, f := range fns {
		if f != nil {
			f()
		}
	}
}

type testServer struct {
	router *gin.Engine
	sched  *manualScheduler
	ledger *ledgermemory.Ledger
	bus    *events.Bus
}

func newTestServer(t *testing.T, allowFallback, admin bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators(taskKinds))

	ledger := ledgermemory.NewLedger()
	catalog := catalogservice.NewCatalogService(catalogmemory.NewRepository())
	bus := events.NewBus()
	sched := &manualScheduler{}
	registry := session.NewRegistry(userservice.NewProfileService(ledger), bus, session.Config{
		TaskKinds:         taskKinds,
		VerificationDelay: 15 * time.Second,
		IdleTTL:           time.Hour,
		Scheduler:         sched,
	})
	coordinator := participation.NewCoordinator(ledger, catalog, bus,
		participation.WithRetryPolicy(participation.RetryPolicy{Attempts: 1}))

	h := NewParticipationHandler(coordinator, catalog, ledger, bus, nil, Config{
		BotUsername: "GiveawayProBot",
		IsAdmin:     func(string) bool { return admin },
	})

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.ErrorHandler(), middleware.Errors())
	api := router.Group("/api/v1",
		middleware.TelegramInitData("", 0, allowFallback),
		middleware.LoadSession(registry),
	)
	h.RegisterRoutes(api)

	return &testServer{router: router, sched: sched, ledger: ledger, bus: bus}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error.Code
}

func (s *testServer) seed(t *testing.T, id, title string) {
	t.Helper()
	ends := time.Now().Add(12 * time.Hour)
	w := s.do(t, http.MethodPut, "/api/v1/admin/giveaways/"+id, SaveGiveawayRequest{Title: title, Winners: 1, EndsAt: &ends})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestParticipationFlow(t *testing.T) {
	s := newTestServer(t, true, true)
	s.seed(t, "g1", "iPhone 15 Pro Max Drop")
	s.seed(t, "g2", "$500 USDT Reward Pool")

	var mu sync.Mutex
	var kinds []events.Kind
	unsubscribe := s.bus.Subscribe(func(e events.Event) {
		mu.Lock()
		kinds = append(kinds, e.Kind)
		mu.Unlock()
	})
	defer unsubscribe()

	w := s.do(t, http.MethodGet, "/api/v1/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[MeResponse](t, w)
	assert.Equal(t, identity.Fallback.ID, me.Profile.ID)
	assert.Zero(t, me.Profile.Tickets)
	assert.True(t, me.Persisted)
	assert.Equal(t, "https://t.me/GiveawayProBot?start=ref_123456789", me.ReferralLink)

	w = s.do(t, http.MethodGet, "/api/v1/giveaways?status=active&q=iphone", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[GiveawaysResponse](t, w)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "g1", list.Items[0].ID)

	w = s.do(t, http.MethodPost, "/api/v1/giveaways/g1/open", nil)
	require.Equal(t, http.StatusOK, w.Code)
	el := decode[EligibilityResponse](t, w)
	assert.Equal(t, string(participation.PendingTasks), el.State)
	assert.Equal(t, map[string]bool{"tg": false, "tw": false, "yt": false}, el.Tasks)

	for _, k := range taskKinds {
		w = s.do(t, http.MethodPost, "/api/v1/giveaways/g1/tasks/"+k, StartTaskRequest{Link: "https://t.me/channel"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		st := decode[StartTaskResponse](t, w)
		assert.True(t, st.Started)
		assert.Equal(t, "https://t.me/channel", st.OpenLink)
	}

	w = s.do(t, http.MethodGet, "/api/v1/giveaways/g1/eligibility", nil)
	assert.Equal(t, string(participation.PendingTasks), decode[EligibilityResponse](t, w).State)

	s.sched.fire()

	w = s.do(t, http.MethodGet, "/api/v1/giveaways/g1/eligibility", nil)
	assert.Equal(t, string(participation.ReadyToJoin), decode[EligibilityResponse](t, w).State)

	w = s.do(t, http.MethodPost, "/api/v1/giveaways/g1/join", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	joined := decode[JoinResponse](t, w)
	assert.False(t, joined.AlreadyJoined)
	assert.Empty(t, joined.Warnings)
	assert.Equal(t, int64(1), joined.Profile.Tickets)
	assert.Equal(t, []string{"g1"}, joined.Profile.JoinedGiveaways)

	w = s.do(t, http.MethodPost, "/api/v1/giveaways/g1/join", nil)
	require.Equal(t, http.StatusOK, w.Code)
	again := decode[JoinResponse](t, w)
	assert.True(t, again.AlreadyJoined)
	assert.Equal(t, int64(1), again.Profile.Tickets)

	w = s.do(t, http.MethodGet, "/api/v1/giveaways/g1/eligibility", nil)
	assert.Equal(t, string(participation.AlreadyJoined), decode[EligibilityResponse](t, w).State)

	w = s.do(t, http.MethodGet, "/api/v1/admin/giveaways/g1/entries", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[EntriesResponse](t, w)
	require.Equal(t, 1, entries.Total)
	assert.Equal(t, identity.Fallback.ID, entries.Items[0].UserID)

	stored, err := s.ledger.GetProfile(context.Background(), identity.Fallback.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Tickets)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, kinds, events.KindTaskStateChanged)
	assert.Contains(t, kinds, events.KindJoinSucceeded)
	assert.Contains(t, kinds, events.KindProfileUpdated)
}

func TestJoinWithPendingTasks(t *testing.T) {
	s := newTestServer(t, true, true)
	s.seed(t, "g1", "Drop")

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/giveaways/g1/open", nil).Code)
	w := s.do(t, http.MethodPost, "/api/v1/giveaways/g1/join", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DOUBLE_JOIN_ATTEMPTED", errorCode(t, w))

	w = s.do(t, http.MethodGet, "/api/v1/me", nil)
	assert.Zero(t, decode[MeResponse](t, w).Profile.Tickets)
}

func TestReopenResetsTasks(t *testing.T) {
	s := newTestServer(t, true, true)
	s.seed(t, "g1", "Drop")

	s.do(t, http.MethodPost, "/api/v1/giveaways/g1/open", nil)
	s.do(t, http.MethodPost, "/api/v1/giveaways/g1/tasks/tg", StartTaskRequest{Link: "https://t.me/c"})
	s.do(t, http.MethodPost, "/api/v1/giveaways/g1/open", nil)
	s.sched.fire()

	w := s.do(t, http.MethodGet, "/api/v1/giveaways/g1/eligibility", nil)
	el := decode[EligibilityResponse](t, w)
	assert.False(t, el.Tasks["tg"])
}

func TestStartTaskErrors(t *testing.T) {
	s := newTestServer(t, true, true)
	s.seed(t, "g1", "Drop")

	w := s.do(t, http.MethodPost, "/api/v1/giveaways/g1/tasks/tg", StartTaskRequest{Link: "https://t.me/c"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NO_SESSION", errorCode(t, w))

	s.do(t, http.MethodPost, "/api/v1/giveaways/g1/open", nil)

	w = s.do(t, http.MethodPost, "/api/v1/giveaways/g1/tasks/ig", StartTaskRequest{Link: "https://t.me/c"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_TASK_KIND", errorCode(t, w))

	w = s.do(t, http.MethodPost, "/api/v1/giveaways/g1/tasks/tg", StartTaskRequest{Link: "javascript:alert(1)"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))

	w = s.do(t, http.MethodPost, "/api/v1/giveaways/g1/tasks/tg", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnknownGiveaway(t *testing.T) {
	s := newTestServer(t, true, true)

	w := s.do(t, http.MethodPost, "/api/v1/giveaways/nope/open", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "INVALID_GIVEAWAY_ID", errorCode(t, w))

	w = s.do(t, http.MethodGet, "/api/v1/giveaways/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListBadStatus(t *testing.T) {
	s := newTestServer(t, true, true)
	w := s.do(t, http.MethodGet, "/api/v1/giveaways?status=finished", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestAuthAndAdmin(t *testing.T) {
	strict := newTestServer(t, false, true)
	w := strict.do(t, http.MethodGet, "/api/v1/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))

	user := newTestServer(t, true, false)
	ends := time.Now().Add(time.Hour)
	w = user.do(t, http.MethodPut, "/api/v1/admin/giveaways/g1", SaveGiveawayRequest{Title: "x", Winners: 1, EndsAt: &ends})
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := newTestServer(t, true, true)
	w = admin.do(t, http.MethodPut, "/api/v1/admin/giveaways/g1", SaveGiveawayRequest{Title: "x", Winners: 0, EndsAt: &ends})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = admin.do(t, http.MethodPut, "/api/v1/admin/giveaways/g1", SaveGiveawayRequest{Title: "x", Winners: 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = admin.do(t, http.MethodGet, "/api/v1/admin/outbox", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[OutboxResponse](t, w).Pending)
}

func TestExportEntries(t *testing.T) {
	s := newTestServer(t, true, true)
	s.seed(t, "g1", "Drop")
	require.NoError(t, s.ledger.PutEntryRecord(context.Background(), &models.EntryRecord{
		GiveawayID: "g1",
		UserID:     "42",
		UserName:   "Alice",
		JoinedAt:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}))

	w := s.do(t, http.MethodGet, "/api/v1/admin/giveaways/g1/entries/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "entries_g1_")

	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetName("g1"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "42", rows[1][1])
	assert.Equal(t, "Alice", rows[1][2])
}

func TestStream_EndsWhenServerContextIsCancelled(t *testing.T) {
	s := newTestServer(t, true, false)

	base, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := httptest.NewUnstartedServer(s.router)
	srv.Config.BaseContext = func(net.Listener) context.Context { return base }
	srv.Start()
	defer srv.Close()

	type result struct {
		resp *http.Response
		err  error
	}
	connected := make(chan result, 1)
	go func() {
		resp, err := http.Get(srv.URL + "/api/v1/events")
		connected <- result{resp, err}
	}()

	// заголовки уходят с первым событием, публикуем пока поток не подписался
	var res result
	require.Eventually(t, func() bool {
		s.bus.Publish(events.ProfileUpdated(models.NewProfile(identity.Fallback.ID, identity.Fallback.DisplayName, "")))
		select {
		case res = <-connected:
			return true
		default:
			return false
		}
	}, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, res.err)
	defer res.resp.Body.Close()
	assert.Equal(t, http.StatusOK, res.resp.StatusCode)

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	assert.NoError(t, srv.Config.Shutdown(shutdownCtx))

	body, err := io.ReadAll(res.resp.Body)
	assert.NoError(t, err)
	assert.Contains(t, string(body), string(events.KindProfileUpdated))
}
