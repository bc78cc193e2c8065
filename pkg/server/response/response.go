package response

import (
	"net/http"

	"github.com/go-chi/render"

	"retail-service/pkg/errors"
)

type Object struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
	Data    any         `json:"data,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func OK(w http.ResponseWriter, r *http.Request, data any) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, Object{Success: true, Data: data})
}

func Created(w http.ResponseWriter, r *http.Request, data any) {
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, Object{Success: true, Data: data})
}

func NoContent(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusNoContent)
	render.NoContent(w, r)
}

func BadRequest(w http.ResponseWriter, r *http.Request, err error) {
	Error(w, r, errors.ErrInvalidArgument.Wrap(err))
}

// Error writes a domain error using its taxonomy code and HTTP status.
// Unclassified errors surface as a generic internal error without detail.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.GetHTTPStatus(err)
	code := errors.GetCode(err)

	obj := Object{
		Success: false,
		Code:    code,
		Message: "internal server error",
	}

	var domainErr *errors.Error
	if errors.As(err, &domainErr) {
		obj.Message = domainErr.Message
		if len(domainErr.Details) > 0 {
			obj.Details = domainErr.Details
		}
	}

	render.Status(r, status)
	render.JSON(w, r, obj)
}
