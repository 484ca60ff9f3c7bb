package handlers

import (
	"net/http"

	"github.com/vango-go/vai-copilot/pkg/gateway/mw"
)

type NotFoundHandler struct{}

func (h NotFoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	mw.WriteJSONError(w, http.StatusNotFound, mw.ErrorBody{
		Type:      "not_found_error",
		Message:   "not found",
		RequestID: reqID,
	})
}
