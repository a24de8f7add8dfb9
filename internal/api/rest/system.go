package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KevinKickass/HotmockBridge/internal/interfaces"
	"github.com/KevinKickass/HotmockBridge/internal/types"
)

// GET /api/v1/system/status
func (s *Server) getSystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.lm.GetCurrentStatus())
}

// POST /api/v1/system/activate
func (s *Server) activate(c *gin.Context) {
	s.transition(c, func() error { return s.lm.Activate(c.Request.Context()) })
}

// POST /api/v1/system/deactivate
func (s *Server) deactivate(c *gin.Context) {
	s.transition(c, s.lm.Deactivate)
}

// POST /api/v1/system/reset
func (s *Server) reset(c *gin.Context) {
	s.transition(c, s.lm.Reset)
}

func (s *Server) transition(c *gin.Context, fn func() error) {
	if err := fn(); err != nil {
		if errors.Is(err, interfaces.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, types.NewErrorResponse(types.CodeInvalidTransition, "State change not allowed", err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.CodeActivationFailed, "State change failed", err.Error()))
		return
	}

	c.JSON(http.StatusOK, s.lm.GetCurrentStatus())
}
