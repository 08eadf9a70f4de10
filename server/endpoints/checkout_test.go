package endpoints

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/domain/entities"
	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/saga"
	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/saga/storages"
	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/vars"
)

type fakeOrchestrator struct {
	sid  string
	err  error
	last entities.Cart
}

func (f *fakeOrchestrator) IsActive() bool { return true }

func (f *fakeOrchestrator) Initiate(ctx context.Context, cartId, userId string, cart entities.Cart) (string, error) {
	f.last = cart
	return f.sid, f.err
}

type fakeStorage struct {
	storages.Storage
	sg  *entities.Saga
	err error
}

func (f *fakeStorage) Get(ctx context.Context, id string) (*entities.Saga, error) {
	return f.sg, f.err
}

func (f *fakeStorage) Delete(ctx context.Context, id string) error {
	return f.err
}

func request(t *testing.T, router http.Handler, method, target, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if authed {
		req.Header.Set("Authorization", "Entrypoint "+vars.TOKEN)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMain(m *testing.M) {
	vars.TOKEN = "test-token"
	m.Run()
}

func TestStartCheckout(t *testing.T) {
	orc := &fakeOrchestrator{sid: "s-1"}
	router := GetCheckoutRoutes(orc, &fakeStorage{})

	body := `{"cart_id":"c1","user_id":"u1","cart_details":{"items":[{"product_id":"p1","quantity":2}],"total_price":50}}`
	w := request(t, router, http.MethodPost, "/", body, true)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"saga_id":"s-1"`)
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.Equal(t, float64(50), orc.last.TotalPrice)
}

func TestStartCheckoutRejectsBadPayload(t *testing.T) {
	router := GetCheckoutRoutes(&fakeOrchestrator{sid: "s-1"}, &fakeStorage{})

	w := request(t, router, http.MethodPost, "/", "{broken", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = request(t, router, http.MethodPost, "/", `{"cart_id":"","user_id":"u1"}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartCheckoutRequiresAuth(t *testing.T) {
	router := GetCheckoutRoutes(&fakeOrchestrator{sid: "s-1"}, &fakeStorage{})

	w := request(t, router, http.MethodPost, "/", `{"cart_id":"c1","user_id":"u1"}`, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStartCheckoutSurfacesUnavailability(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{saga.ErrStoreUnavailable, "5030"},
		{saga.ErrPublishUnavailable, "5031"},
		{saga.ErrNotActive, "5032"},
	}
	for _, tc := range cases {
		router := GetCheckoutRoutes(&fakeOrchestrator{err: tc.err}, &fakeStorage{})
		w := request(t, router, http.MethodPost, "/", `{"cart_id":"c1","user_id":"u1"}`, true)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), tc.code)
	}
}

func TestGetSaga(t *testing.T) {
	sg := &entities.Saga{Id: "s-1", State: entities.StateCompleted}
	router := GetCheckoutRoutes(&fakeOrchestrator{}, &fakeStorage{sg: sg})

	w := request(t, router, http.MethodGet, "/s-1", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"COMPLETED"`)
}

func TestGetSagaNotFound(t *testing.T) {
	router := GetCheckoutRoutes(&fakeOrchestrator{}, &fakeStorage{err: storages.ErrSagaNotFound})

	w := request(t, router, http.MethodGet, "/deadbeef", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteSaga(t *testing.T) {
	router := GetCheckoutRoutes(&fakeOrchestrator{}, &fakeStorage{})

	w := request(t, router, http.MethodDelete, "/s-1", "", true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted":true`)
}
