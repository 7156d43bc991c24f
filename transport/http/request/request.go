package request

import (
	"net/http"

	"hotel/shared"
	"hotel/shared/constant"
	"hotel/shared/failure"

	"github.com/go-chi/chi/v5"
)

const errInvalidID = "id must be a positive integer"

// PathID reads the {id} route parameter.
func PathID(r *http.Request) (int64, error) {
	id, err := shared.ConvertStringToInt64(chi.URLParam(r, constant.RequestParamID))
	if err != nil || id <= 0 {
		return 0, failure.BadRequestFromString(errInvalidID) //nolint:wrapcheck
	}

	return id, nil
}
