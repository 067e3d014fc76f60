package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkup/backend/internal/auth"
	"linkup/backend/internal/config"
	"linkup/backend/internal/hub"
	"linkup/backend/internal/models"
	"linkup/backend/internal/relations"
	"linkup/backend/internal/store/memstore"
)

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	store  *memstore.Store
	hub    *hub.Hub
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	prev := config.AppConfig
	config.AppConfig = &config.Config{JWTSecret: "handler-test-secret", JWTTTL: time.Hour}
	t.Cleanup(func() { config.AppConfig = prev })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := memstore.New()
	h := hub.NewHub(log)
	engine := relations.NewEngine(st,
		relations.WithLogger(log),
		relations.WithPublisher(h),
		relations.WithShuffle(func(int, func(i, j int)) {}),
	)
	router := gin.New()
	New(st, engine, h, log, Options{SuggestionDefaultLimit: 2, SuggestionMaxLimit: 3}).RegisterRoutes(router)
	return &testAPI{t: t, router: router, store: st, hub: h}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type session struct {
	token string
	id    uint
}

func (s session) ref() models.AccountRef { return models.IndividualRef(s.id) }

func (a *testAPI) register(username string, extra map[string]string) session {
	a.t.Helper()
	body := map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	}
	for k, v := range extra {
		body[k] = v
	}
	w := a.do(http.MethodPost, "/auth/register", "", body)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	token := decode[TokenResponse](a.t, w).Token

	w = a.do(http.MethodGet, "/accounts/me", token, nil)
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return session{token: token, id: decode[PrivateAccountResponse](a.t, w).ID}
}

func (a *testAPI) sendRequest(from session, to models.AccountRef, query string) *httptest.ResponseRecorder {
	a.t.Helper()
	return a.do(http.MethodPost, "/connections"+query, from.token, AccountRefInput{Kind: string(to.Kind), ID: to.ID})
}

func TestRegisterAndLogin(t *testing.T) {
	api := newTestAPI(t)
	ann := api.register("ann", map[string]string{"first_name": "Ann", "locality": "Lyon"})

	w := api.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": "ann", "email": "other@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodPost, "/auth/register", "", map[string]string{"username": "x", "email": "bad", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, "/auth/login", "", LoginInput{Login: "ann@example.com", Password: "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[TokenResponse](t, w).Token)

	w = api.do(http.MethodPost, "/auth/login", "", LoginInput{Login: "ann", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodPost, "/auth/login", "", LoginInput{Login: "nobody", Password: "password123"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodGet, "/accounts/me", ann.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[PrivateAccountResponse](t, w)
	assert.Equal(t, "Ann", me.FirstName)
	assert.Equal(t, "Lyon", me.Locality)
	assert.Equal(t, "ann@example.com", me.Email)
	assert.Empty(t, me.Organizations)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/accounts/me", "/connections", "/blocks", "/contacts", "/suggestions"} {
		assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, path, "", nil).Code, path)
	}
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/industries", "", nil).Code)

	ann := api.register("ann", nil)
	w := api.do(http.MethodGet, "/connections?access_token="+ann.token, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "query tokens are only read by the event stream")
}

func TestUpdateMe(t *testing.T) {
	api := newTestAPI(t)
	ann := api.register("ann", map[string]string{"last_name": "Smith"})

	trade := "  Carpentry "
	w := api.do(http.MethodPut, "/accounts/me", ann.token, UpdateProfileInput{Trade: &trade})
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[PrivateAccountResponse](t, w)
	assert.Equal(t, "Carpentry", me.Trade)
	assert.Equal(t, "Smith", me.LastName, "omitted fields are kept")
}

func TestConnectionLifecycle(t *testing.T) {
	api := newTestAPI(t)
	ann := api.register("ann", nil)
	bob := api.register("bob", nil)

	w := api.sendRequest(ann, bob.ref(), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	edge := decode[models.Connection](t, w)
	assert.Equal(t, models.StatusPending, edge.Status)

	w = api.sendRequest(ann, bob.ref(), "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodGet, "/connections/pending", bob.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending := decode[PaginatedResponse[relations.ConnectionView]](t, w)
	require.Len(t, pending.Data, 1)
	assert.EqualValues(t, 1, pending.Meta.TotalItems)
	assert.Equal(t, relations.DirectionIncoming, pending.Data[0].Direction)
	assert.Equal(t, "ann", pending.Data[0].Counterpart.Username)

	w = api.do(http.MethodPost, fmt.Sprintf("/connections/%d/accept", edge.ID), ann.token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "only the recipient accepts")

	w = api.do(http.MethodPost, fmt.Sprintf("/connections/%d/accept", edge.ID), bob.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusAccepted, decode[models.Connection](t, w).Status)

	w = api.do(http.MethodPost, fmt.Sprintf("/connections/%d/accept", edge.ID), bob.token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodGet, fmt.Sprintf("/connections/status/individual/%d", bob.id), ann.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[ConnectionStatusResponse](t, w)
	assert.Equal(t, relations.StateConnected, status.State)
	require.NotNil(t, status.Connection)
	assert.Equal(t, edge.ID, status.Connection.ID)

	w = api.do(http.MethodGet, "/connections?status=accepted&limit=5", ann.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[PaginatedResponse[relations.ConnectionView]](t, w)
	require.Len(t, list.Data, 1)
	assert.Equal(t, 5, list.Meta.PageSize)
	assert.Equal(t, relations.DirectionOutgoing, list.Data[0].Direction)

	w = api.do(http.MethodGet, "/contacts", ann.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	contacts := decode[[]ContactResponse](t, w)
	require.Len(t, contacts, 1)
	assert.Equal(t, "bob@example.com", contacts[0].Email)
	assert.True(t, contacts[0].IsPlatformUser)

	w = api.do(http.MethodGet, fmt.Sprintf("/accounts/individual/%d", bob.id), ann.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[PublicAccountResponse](t, w)
	assert.Equal(t, relations.StateConnected, profile.Relation)
	assert.Empty(t, profile.Profile.Email, "email is private")
	assert.EqualValues(t, 1, profile.ConnectionsCount)
	assert.EqualValues(t, 1, profile.FollowersCount)
	assert.EqualValues(t, 1, profile.FollowingCount)

	w = api.do(http.MethodDelete, fmt.Sprintf("/connections/%d", edge.ID), bob.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = api.do(http.MethodDelete, fmt.Sprintf("/connections/%d", edge.ID), bob.token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetAccountAnonymously(t *testing.T) {
	api := newTestAPI(t)
	bob := api.register("bob", map[string]string{"locality": "Lyon"})

	w := api.do(http.MethodGet, fmt.Sprintf("/accounts/individual/%d", bob.id), "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	profile := decode[PublicAccountResponse](t, w)
	assert.Equal(t, relations.StateNone, profile.Relation)
	assert.Equal(t, "Lyon", profile.Profile.Locality)
	assert.Empty(t, profile.Profile.Email)

	w = api.do(http.MethodGet, fmt.Sprintf("/accounts/individual/%d", bob.id), bob.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	self := decode[PublicAccountResponse](t, w)
	assert.Equal(t, relations.StateSelf, self.Relation)
	assert.Equal(t, "bob@example.com", self.Profile.Email)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/accounts/organization/77", "", nil).Code)
}

func TestReverseRequestAcceptsWith200(t *testing.T) {
	api := newTestAPI(t)
	ann := api.register("ann", nil)
	bob := api.register("bob", nil)

	require.Equal(t, http.StatusCreated, api.sendRequest(ann, bob.ref(), "").Code)
	w := api.sendRequest(bob, ann.ref(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusAccepted, decode[models.Connection](t, w).Status)
}

func TestConnectionRequestValidation(t *testing.T) {
	api := newTestAPI(t)
	ann := api.register("ann", nil)

	w := api.sendRequest(ann, ann.ref(), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, "/connections", ann.token, AccountRefInput{Kind: "team", ID: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.sendRequest(ann, models.IndividualRef(999), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodPost, "/connections/abc/accept", ann.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/connections?direction=sideways", ann.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/connections?status=maybe", ann.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/connections?as=team", ann.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/connections?as=organization", ann.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "not acting for an organization")
}

func TestActingAsOrganization(t *testing.T) {
	api := newTestAPI(t)
	ann := api.register("ann", nil)
	bob := api.register("bob", nil)

	w := api.do(http.MethodPost, "/organizations", ann.token, OrganizationInput{Name: "Acme", BusinessType: "Contractor"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	acme := decode[OrganizationResponse](t, w)
	assert.Equal(t, ann.id, acme.OwnerID)

	w = api.do(http.MethodPost, "/organizations", bob.token, OrganizationInput{Name: "Bobco"})
	require.Equal(t, http.StatusCreated, w.Code)
	bobco := decode[OrganizationResponse](t, w)

	w = api.do(http.MethodPost, "/accounts/me/acting-as", ann.token, ActingAsInput{OrganizationID: &bobco.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(http.MethodPost, "/accounts/me/acting-as", ann.token, ActingAsInput{OrganizationID: &acme.ID})
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[PrivateAccountResponse](t, w)
	require.NotNil(t, me.ActiveOrganizationID)
	assert.Equal(t, acme.ID, *me.ActiveOrganizationID)
	require.Len(t, me.Organizations, 1)

	w = api.sendRequest(ann, bob.ref(), "?as=organization")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	edge := decode[models.Connection](t, w)
	assert.Equal(t, models.OrganizationRef(acme.ID), edge.Requester())

	// Personal and organization inboxes are separate.
	w = api.do(http.MethodGet, "/connections?as=org", ann.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[PaginatedResponse[relations.ConnectionView]](t, w).Data, 1)
	w = api.do(http.MethodGet, "/connections", ann.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[PaginatedResponse[relations.ConnectionView]](t, w).Data)

	w = api.do(http.MethodGet, fmt.Sprintf("/connections/status/organization/%d", acme.ID), bob.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, relations.StatePendingIncoming, decode[ConnectionStatusResponse](t, w).State)

	w = api.do(http.MethodPost, "/accounts/me/acting-as", ann.token, ActingAsInput{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[PrivateAccountResponse](t, w).ActiveOrganizationID)
}

func TestFollowEndpoints(t *testing.T) {
	api := newTestAPI(t)
	ann := api.register("ann", nil)
	bob := api.register("bob", nil)
	path := fmt.Sprintf("/follows/individual/%d", bob.id)

	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, path, ann.token, nil).Code, "needs a connection")

	edge := decode[models.Connection](t, api.sendRequest(ann, bob.ref(), ""))
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, fmt.Sprintf("/connections/%d/accept", edge.ID), bob.token, nil).Code)

	require.Equal(t, http.StatusOK, api.do(http.MethodDelete, path, ann.token, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, path, ann.token, nil).Code)

	w := api.do(http.MethodPost, path, ann.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	follow := decode[FollowResponse](t, w)
	assert.Equal(t, ann.ref(), follow.Follower)
	assert.Equal(t, bob.ref(), follow.Following)
}

func TestBlockEndpoints(t *testing.T) {
	api := newTestAPI(t)
	ann := api.register("ann", nil)
	bob := api.register("bob", nil)
	path := fmt.Sprintf("/blocks/individual/%d", bob.id)

	edge := decode[models.Connection](t, api.sendRequest(ann, bob.ref(), ""))
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, fmt.Sprintf("/connections/%d/accept", edge.ID), bob.token, nil).Code)

	require.Equal(t, http.StatusOK, api.do(http.MethodPost, path, ann.token, nil).Code)
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, path, ann.token, nil).Code)

	w := api.do(http.MethodGet, "/blocks", ann.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	blocked := decode[[]models.Profile](t, w)
	require.Len(t, blocked, 1)
	assert.Equal(t, bob.ref(), blocked[0].Ref)

	w = api.do(http.MethodGet, fmt.Sprintf("/connections/status/individual/%d", ann.id), bob.token, nil)
	assert.Equal(t, relations.StateBlocked, decode[ConnectionStatusResponse](t, w).State)

	w = api.do(http.MethodGet, "/connections", bob.token, nil)
	assert.Empty(t, decode[PaginatedResponse[relations.ConnectionView]](t, w).Data)

	assert.Equal(t, http.StatusConflict, api.sendRequest(bob, ann.ref(), "").Code)

	w = api.do(http.MethodGet, "/contacts", ann.token, nil)
	assert.Empty(t, decode[[]ContactResponse](t, w))

	require.Equal(t, http.StatusOK, api.do(http.MethodDelete, path, ann.token, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, path, ann.token, nil).Code)
	w = api.do(http.MethodGet, "/blocks", ann.token, nil)
	assert.JSONEq(t, `[]`, w.Body.String())

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/blocks/team/1", ann.token, nil).Code)
}

func TestDeleteContactRemovesConnection(t *testing.T) {
	api := newTestAPI(t)
	ann := api.register("ann", nil)
	bob := api.register("bob", nil)
	api.sendRequest(ann, bob.ref(), "")
	require.Equal(t, http.StatusOK, api.sendRequest(bob, ann.ref(), "").Code)

	contacts := decode[[]ContactResponse](t, api.do(http.MethodGet, "/contacts", ann.token, nil))
	require.Len(t, contacts, 1)
	path := fmt.Sprintf("/contacts/%d", contacts[0].ID)

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, path, bob.token, nil).Code)
	require.Equal(t, http.StatusOK, api.do(http.MethodDelete, path, ann.token, nil).Code)

	w := api.do(http.MethodGet, fmt.Sprintf("/connections/status/individual/%d", bob.id), ann.token, nil)
	assert.Equal(t, relations.StateNone, decode[ConnectionStatusResponse](t, w).State)
	assert.Empty(t, decode[[]ContactResponse](t, api.do(http.MethodGet, "/contacts", bob.token, nil)))
}

func TestSuggestionsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	me := api.register("me", map[string]string{"locality": "Lyon"})
	for _, name := range []string{"n1", "n2", "n3", "n4"} {
		api.register(name, map[string]string{"locality": "lyon"})
	}

	w := api.do(http.MethodGet, "/suggestions", me.token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[[]relations.Suggestion](t, w), 2, "default limit")

	w = api.do(http.MethodGet, "/suggestions?limit=100", me.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[[]relations.Suggestion](t, w)
	assert.Len(t, got, 3, "clamped to the maximum")
	for _, s := range got {
		assert.Equal(t, relations.ReasonSameLocation, s.Reason)
		assert.NotEqual(t, me.ref(), s.Account)
	}

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/suggestions?limit=0", me.token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/suggestions?limit=x", me.token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/suggestions?as=organization", me.token, nil).Code)
}

func TestIndustryAdmin(t *testing.T) {
	api := newTestAPI(t)
	user := api.register("user", nil)
	admin := api.register("admin", nil)
	u, err := api.store.GetUser(context.Background(), admin.id)
	require.NoError(t, err)
	u.Role = auth.RoleAdmin
	require.NoError(t, api.store.SaveUser(context.Background(), u))

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/admin/industries", user.token, IndustryInput{Name: "Software"}).Code)

	w := api.do(http.MethodPost, "/admin/industries", admin.token, IndustryInput{Name: "Software"})
	require.Equal(t, http.StatusCreated, w.Code)
	software := decode[IndustryResponse](t, w)
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, "/admin/industries", admin.token, IndustryInput{Name: "software"}).Code)

	w = api.do(http.MethodPost, "/admin/industries", admin.token, IndustryInput{Name: "Construction"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = api.do(http.MethodPut, fmt.Sprintf("/admin/industries/%d", software.ID), admin.token, IndustryInput{Name: "Software Engineering"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Software Engineering", decode[IndustryResponse](t, w).Name)

	w = api.do(http.MethodGet, "/industries", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]IndustryResponse](t, w)
	require.Len(t, list, 2)
	assert.Equal(t, "Construction", list[0].Name)

	path := fmt.Sprintf("/admin/industries/%d", software.ID)
	require.Equal(t, http.StatusOK, api.do(http.MethodDelete, path, admin.token, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, path, admin.token, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPut, path, admin.token, IndustryInput{Name: "X"}).Code)
}

func TestEventStream(t *testing.T) {
	api := newTestAPI(t)
	ann := api.register("ann", nil)
	bob := api.register("bob", nil)

	srv := httptest.NewServer(api.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events?access_token="+bob.token, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return api.hub.Subscribers(bob.ref()) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, http.StatusCreated, api.sendRequest(ann, bob.ref(), "").Code)

	reader := bufio.NewReader(resp.Body)
	var data string
	for data == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data:") {
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	var msg hub.Message
	require.NoError(t, json.Unmarshal([]byte(data), &msg))
	assert.Equal(t, string(relations.EventRequestSent), msg.Type)
	assert.Contains(t, data, fmt.Sprintf(`"id":%d`, ann.id))

	cancel()
	require.Eventually(t, func() bool { return api.hub.Subscribers(bob.ref()) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestEventStreamWithoutHub(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New(memstore.New(), nil, nil, nil, Options{})
	router := gin.New()
	router.GET("/events", h.StreamEvents)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRespondErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New(memstore.New(), nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{})

	cases := []struct {
		err  error
		code int
	}{
		{&relations.Error{Kind: relations.KindValidation, Msg: "bad"}, http.StatusBadRequest},
		{&relations.Error{Kind: relations.KindConflict, Msg: "dup"}, http.StatusConflict},
		{&relations.Error{Kind: relations.KindNotFound, Msg: "gone"}, http.StatusNotFound},
		{&relations.Error{Kind: relations.KindPermission, Msg: "no"}, http.StatusForbidden},
		{&relations.Error{Kind: relations.KindStore, Msg: "storage unavailable", Err: errors.New("dial tcp")}, http.StatusServiceUnavailable},
		{relations.ErrRecordNotFound, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", relations.ErrDuplicateKey), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		h.respondError(c, tc.err)
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	h.respondError(c, &relations.Error{Kind: relations.KindStore, Msg: "storage unavailable", Err: errors.New("password=secret")})
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestListingsHideOtherAccountsEmail(t *testing.T) {
	api := newTestAPI(t)
	me := api.register("me", map[string]string{"locality": "Lyon"})
	api.register("stranger", map[string]string{"locality": "Lyon"})
	friend := api.register("friend", nil)
	pest := api.register("pest", nil)

	require.Equal(t, http.StatusCreated, api.sendRequest(me, friend.ref(), "").Code)
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, fmt.Sprintf("/blocks/individual/%d", pest.id), me.token, nil).Code)

	w := api.do(http.MethodGet, "/suggestions", me.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	suggestions := decode[[]relations.Suggestion](t, w)
	require.NotEmpty(t, suggestions)
	require.NotNil(t, suggestions[0].Profile)
	assert.Equal(t, "stranger", suggestions[0].Profile.Username)

	for _, path := range []string{"/suggestions", "/connections", "/blocks"} {
		w := api.do(http.MethodGet, path, me.token, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.NotContains(t, w.Body.String(), "@example.com", path)
	}
	w = api.do(http.MethodGet, "/connections/pending", friend.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "@example.com")
}
