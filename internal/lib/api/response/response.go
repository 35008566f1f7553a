package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Category is the machine-checkable failure class carried by every error
// response, next to the human message.
type Category string

const (
	CategoryInvalidInput        Category = "invalid_input"
	CategoryNotFound            Category = "not_found"
	CategoryUnauthorized        Category = "unauthorized"
	CategoryForbidden           Category = "forbidden"
	CategoryConflict            Category = "conflict"
	CategoryUpstreamUnavailable Category = "upstream_unavailable"
	CategoryPreconditionNotMet  Category = "precondition_not_met"
	CategoryInternal            Category = "internal"
)

type Response struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message,omitempty"`
	Category Category `json:"category,omitempty"`
}

func OK(msg string) Response {
	return Response{
		Success: true,
		Message: msg,
	}
}

func Error(msg string, category Category) Response {
	return Response{
		Success:  false,
		Message:  msg,
		Category: category,
	}
}

func ValidationError(errs validator.ValidationErrors) Response {
	var errMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is required", err.Field()))
		case "url":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s must be a valid url", err.Field()))
		case "min":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is below the allowed minimum", err.Field()))
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is invalid", err.Field()))
		}
	}

	return Response{
		Success:  false,
		Message:  strings.Join(errMsgs, ", "),
		Category: CategoryInvalidInput,
	}
}

// Status maps a failure category to the HTTP status the boundary reports.
func Status(category Category) int {
	switch category {
	case CategoryInvalidInput, CategoryConflict, CategoryPreconditionNotMet:
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryUnauthorized:
		return http.StatusUnauthorized
	case CategoryForbidden:
		return http.StatusForbidden
	case CategoryUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
