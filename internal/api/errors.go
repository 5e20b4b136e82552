package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/race-settlement/internal/models"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{models.ErrRaceNotFound, http.StatusNotFound},
	{models.ErrHorseNotFound, http.StatusNotFound},
	{models.ErrHorseNotInRace, http.StatusNotFound},
	{models.ErrBetNotFound, http.StatusNotFound},
	{models.ErrNoNextRace, http.StatusNotFound},
	{models.ErrRaceNotScheduled, http.StatusBadRequest},
	{models.ErrRaceAlreadyFinished, http.StatusBadRequest},
	{models.ErrBettingClosed, http.StatusBadRequest},
	{models.ErrNoEntrants, http.StatusBadRequest},
	{models.ErrInvalidAmount, http.StatusBadRequest},
	{models.ErrInvalidUser, http.StatusBadRequest},
}

func statusFor(err error) int {
	for _, es := range errorStatuses {
		if errors.Is(err, es.err) {
			return es.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes a domain error. Internal failures are logged and
// reported without their details.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: models.ErrorCode(err), Message: err.Error()}

	if status == http.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		resp.Message = "internal error"
	}

	c.AbortWithStatusJSON(status, resp)
}

func badRequest(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: code, Message: message})
}
