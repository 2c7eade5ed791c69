package server

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/statindicator/internal/console/handler"
	"github.com/xela07ax/statindicator/internal/domain"
	"github.com/xela07ax/statindicator/internal/infra/auth"
	"go.uber.org/zap"
)

type MockRuntime struct {
	mock.Mock
}

func (m *MockRuntime) List() []domain.WidgetView {
	return m.Called().Get(0).([]domain.WidgetView)
}

func (m *MockRuntime) View(id string) (domain.WidgetView, error) {
	args := m.Called(id)
	return args.Get(0).(domain.WidgetView), args.Error(1)
}

func (m *MockRuntime) Refresh(id string) error { return m.Called(id).Error(0) }

type MockEditor struct {
	mock.Mock
}

func (m *MockEditor) Get(ctx context.Context, id string) (domain.WidgetSettings, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.WidgetSettings), args.Error(1)
}

func (m *MockEditor) Save(ctx context.Context, s domain.WidgetSettings) (domain.WidgetSettings, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(domain.WidgetSettings), args.Error(1)
}

func (m *MockEditor) Delete(ctx context.Context, id string) error { return m.Called(ctx, id).Error(0) }

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishChange(ctx context.Context, ev domain.ChangeEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type testAPI struct {
	srv       *APIServer
	runtime   *MockRuntime
	editor    *MockEditor
	publisher *MockPublisher
	key       *rsa.PrivateKey
}

func newTestAPI(t *testing.T, withAuth bool) *testAPI {
	t.Helper()
	api := &testAPI{runtime: &MockRuntime{}, editor: &MockEditor{}, publisher: &MockPublisher{}}

	var validator auth.TokenValidator
	if withAuth {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		api.key = key
		validator = auth.NewRSAValidator(&key.PublicKey)
	}

	logger := zap.NewNop()
	api.srv = NewAPIServer(logger, validator,
		handler.NewWidgetHandler(api.runtime, api.editor, logger),
		handler.NewDataSourceHandler(api.publisher, func() []string { return []string{"parcels"} }),
	)
	return api
}

func (a *testAPI) token(t *testing.T, scopes ...string) string {
	t.Helper()
	claims := domain.CustomClaims{
		UserID: "editor-1",
		Scopes: map[string]bool{},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	for _, s := range scopes {
		claims.Scopes[s] = true
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(a.key)
	require.NoError(t, err)
	return "Bearer " + signed
}

func (a *testAPI) do(method, path, body, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	a.srv.ServeHTTP(rec, req)
	return rec
}

func TestAPI_ReadRoutes(t *testing.T) {
	api := newTestAPI(t, true)
	v := 2.0
	view := domain.WidgetView{ID: "w1", DataSourceID: "parcels", Display: domain.DisplayState{
		Status: domain.StatusDisplay, PrimaryValue: &v, PrimaryText: "2.0",
	}}
	api.runtime.On("List").Return([]domain.WidgetView{view})
	api.runtime.On("View", "w1").Return(view, nil)
	api.runtime.On("View", "nope").Return(domain.WidgetView{}, domain.ErrWidgetNotFound)
	api.runtime.On("Refresh", "w1").Return(nil)

	rec := api.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))

	rec = api.do(http.MethodGet, "/v1/widgets", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"primaryText":"2.0"`)

	rec = api.do(http.MethodGet, "/v1/widgets/w1", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"dataSourceId":"parcels"`)

	rec = api.do(http.MethodGet, "/v1/widgets/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodPost, "/v1/widgets/w1/refresh", "", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = api.do(http.MethodGet, "/v1/datasources", "", "")
	assert.JSONEq(t, `["parcels"]`, rec.Body.String())
}

func TestAPI_WriteRequiresScope(t *testing.T) {
	api := newTestAPI(t, true)
	body := `{"useDataSources":[{"dataSourceId":"parcels"}],"config":{"statisticField":"area"}}`

	rec := api.do(http.MethodPut, "/v1/widgets/w1/settings", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPut, "/v1/widgets/w1/settings", body, api.token(t, "widgets:read"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPut, "/v1/widgets/w1/settings", body, "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	api.editor.On("Save", mock.Anything, mock.MatchedBy(func(s domain.WidgetSettings) bool {
		return s.ID == "w1" && s.DataSource().DataSourceID == "parcels" && *s.Config.StatisticField == "area"
	})).Return(domain.WidgetSettings{ID: "w1"}, nil)

	rec = api.do(http.MethodPut, "/v1/widgets/w1/settings", body, api.token(t, domain.ScopeWidgetsWrite))
	assert.Equal(t, http.StatusOK, rec.Code)
	api.editor.AssertExpectations(t)
}

func TestAPI_WriteErrors(t *testing.T) {
	api := newTestAPI(t, false)
	api.editor.On("Save", mock.Anything, mock.Anything).Return(domain.WidgetSettings{}, domain.ErrInvalidSettings)
	api.editor.On("Delete", mock.Anything, "ghost").Return(domain.ErrWidgetNotFound)
	api.editor.On("Delete", mock.Anything, "w1").Return(nil)

	rec := api.do(http.MethodPut, "/v1/widgets/w1/settings", `{bad json`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPut, "/v1/widgets/w1/settings", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodDelete, "/v1/widgets/ghost", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodDelete, "/v1/widgets/w1", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAPI_DataSourceChanges(t *testing.T) {
	api := newTestAPI(t, false)
	api.publisher.On("PublishChange", mock.Anything, domain.ChangeEvent{DataSourceID: "parcels"}).Return(nil)
	api.publisher.On("PublishChange", mock.Anything, domain.ChangeEvent{
		DataSourceID: "parcels",
		Kind:         domain.ChangeFilter,
		Filter:       map[string]any{"zone": "a"},
	}).Return(nil)
	api.publisher.On("PublishChange", mock.Anything, domain.ChangeEvent{DataSourceID: "ghost"}).Return(domain.ErrDataSourceNotFound)

	rec := api.do(http.MethodPost, "/v1/datasources/parcels/changes", "", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = api.do(http.MethodPost, "/v1/datasources/parcels/changes", `{"kind":"FILTER","filter":{"zone":"a"}}`, "")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = api.do(http.MethodPost, "/v1/datasources/ghost/changes", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	api.publisher.AssertExpectations(t)
}

func TestAPI_DataSourceChanges_ChunkedEmptyBody(t *testing.T) {
	api := newTestAPI(t, false)
	api.publisher.On("PublishChange", mock.Anything, domain.ChangeEvent{DataSourceID: "parcels"}).Return(nil).Once()

	// Длина тела неизвестна (Transfer-Encoding: chunked), данных нет
	req := httptest.NewRequest(http.MethodPost, "/v1/datasources/parcels/changes", strings.NewReader(""))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	rec := httptest.NewRecorder()
	api.srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = api.do(http.MethodPost, "/v1/datasources/parcels/changes", `{"kind":`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	api.publisher.AssertExpectations(t)
}

func TestTracingMiddleware_KeepsIncomingID(t *testing.T) {
	var seen string
	h := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-ID", "trace-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "trace-42", seen)
	assert.Equal(t, "trace-42", rec.Header().Get("X-Trace-ID"))
	assert.Empty(t, TraceID(context.Background()))
}
