package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/domain/entities"
	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/saga"
	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/saga/storages"
	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/server"
)

func GetCheckoutRoutes(orc entities.CheckoutOrchestrator, storage storages.Storage) *chi.Mux {
	r := chi.NewRouter()
	r.Use(server.AuthMiddleware)
	r.Post("/", startCheckout(orc))
	r.Get("/{sid:[0-9a-z-]+}", getSaga(storage))
	r.Delete("/{sid:[0-9a-z-]+}", deleteSaga(storage))
	return r
}

type checkoutBody struct {
	CartId string        `json:"cart_id"`
	UserId string        `json:"user_id"`
	Cart   entities.Cart `json:"cart_details"`
}

type checkoutResponse struct {
	Object  string `json:"object"`
	Success bool   `json:"success"`
	SagaId  string `json:"saga_id"`
	Message string `json:"message"`
}

func startCheckout(orc entities.CheckoutOrchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body checkoutBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			server.ResponseWithError(w, entities.NewError("4000", "invalid JSON payload"))
			return
		}
		if body.CartId == "" || body.UserId == "" {
			server.ResponseWithError(w, entities.NewError("4001", "cart_id and user_id are required"))
			return
		}

		sid, err := orc.Initiate(r.Context(), body.CartId, body.UserId, body.Cart)
		if err != nil {
			switch {
			case errors.Is(err, saga.ErrStoreUnavailable):
				server.ResponseWithError(w, entities.NewError("5030", "saga store unavailable"))
			case errors.Is(err, saga.ErrPublishUnavailable):
				server.ResponseWithError(w, entities.NewError("5031", "checkout accepted but not started, try again later"))
			case errors.Is(err, saga.ErrNotActive):
				server.ResponseWithError(w, entities.NewError("5032", "orchestrator is not accepting checkouts"))
			default:
				server.ResponseWithError(w, err)
			}
			return
		}

		server.ResponseWithOk(w, &checkoutResponse{"checkout", true, sid, "Checkout saga initiated"})
	}
}

type sagaResponse struct {
	Object string `json:"object"`
	*entities.Saga
}

func getSaga(s storages.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sg, err := s.Get(r.Context(), chi.URLParam(r, "sid"))
		if err != nil {
			if errors.Is(err, storages.ErrSagaNotFound) {
				server.ResponseWithError(w, entities.NewError("4040", "Saga Not Found"))
			} else {
				server.ResponseWithError(w, err)
			}
			return
		}

		server.ResponseWithOk(w, &sagaResponse{"saga", sg})
	}
}

func deleteSaga(s storages.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Delete(r.Context(), chi.URLParam(r, "sid")); err != nil {
			if errors.Is(err, storages.ErrSagaNotFound) {
				server.ResponseWithError(w, entities.NewError("4040", "Saga Not Found"))
			} else {
				server.ResponseWithError(w, err)
			}
			return
		}

		server.ResponseWithOk(w, map[string]interface{}{"object": "saga", "deleted": true})
	}
}
