package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/domain/entities"
)

// ResponseWithError writes a coded error body. The HTTP status is carried in
// the first three digits of the error code; anything uncoded becomes a 5000.
func ResponseWithError(w http.ResponseWriter, e error) {
	kerr := &entities.KernelError{}
	if !errors.As(e, &kerr) {
		log.WithError(e).Error("unhandled service error")
		kerr = entities.NewError("5000", "Internal Server Error")
	}

	status, err := strconv.Atoi(kerr.Code[:3])
	if err != nil {
		status = http.StatusInternalServerError
	}

	w.WriteHeader(status)
	if err = json.NewEncoder(w).Encode(map[string]string{
		"object":  "error",
		"code":    kerr.Code,
		"message": kerr.Message,
	}); err != nil {
		log.WithError(err).Warn("failed to write error response")
	}
}

func ResponseWithOk(w http.ResponseWriter, payload interface{}) {
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}
