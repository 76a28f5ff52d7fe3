package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/types"
)

var kindStatus = map[types.Kind]int{
	types.KindSchema:        http.StatusUnprocessableEntity,
	types.KindMissingSource: http.StatusBadRequest,
	types.KindSizeLimit:     http.StatusRequestEntityTooLarge,
	types.KindIntegrity:     http.StatusUnprocessableEntity,
	types.KindConflict:      http.StatusConflict,
	types.KindVersionPolicy: http.StatusConflict,
	types.KindNotMounted:    http.StatusNotFound,
	types.KindReference:     http.StatusUnprocessableEntity,
}

// StatusOf maps an error to the HTTP status the host API answers with
func StatusOf(err error) int {
	if status, ok := kindStatus[types.KindOf(err)]; ok {
		return status
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
