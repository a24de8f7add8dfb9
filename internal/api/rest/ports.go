package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KevinKickass/HotmockBridge/internal/ports"
	"github.com/KevinKickass/HotmockBridge/internal/types"
)

type portResponse struct {
	Name      string     `json:"name"`
	Connector string     `json:"connector"`
	Direction string     `json:"direction"`
	Value     any        `json:"value,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func newPortResponse(p ports.Port) portResponse {
	r := portResponse{
		Name:      p.Name,
		Connector: p.Address.String(),
		Direction: p.Direction.String(),
	}
	if p.HasValue {
		ts := p.UpdatedAt
		r.Value = p.Sample.Value()
		r.UpdatedAt = &ts
	}
	return r
}

// GET /api/v1/ports
func (s *Server) listPorts(c *gin.Context) {
	list := s.lm.Registry().List()

	response := make([]portResponse, 0, len(list))
	for _, p := range list {
		response = append(response, newPortResponse(p))
	}

	c.JSON(http.StatusOK, gin.H{
		"ports": response,
		"count": len(response),
	})
}

// GET /api/v1/ports/:name
func (s *Server) getPort(c *gin.Context) {
	name := c.Param("name")

	p, ok := s.lm.Registry().Lookup(name)
	if !ok {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.CodePortNotFound, "Port not found", name))
		return
	}

	c.JSON(http.StatusOK, newPortResponse(p))
}

// POST /api/v1/ports/:name/write
func (s *Server) writePort(c *gin.Context) {
	name := c.Param("name")

	var req struct {
		Value json.RawMessage `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeBadRequest, "Invalid request body", err.Error()))
		return
	}

	value, err := decodeInputValue(req.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeBadRequest, "Invalid value", err.Error()))
		return
	}

	if err := s.lm.Registry().Write(name, value); err != nil {
		switch {
		case errors.Is(err, ports.ErrUnknownPort):
			c.JSON(http.StatusNotFound, types.NewErrorResponse(types.CodePortNotFound, "Port not found", name))
		case errors.Is(err, ports.ErrNotInput):
			c.JSON(http.StatusConflict, types.NewErrorResponse(types.CodePortNotWritable, "Port is not writable", name))
		default:
			c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.CodeBadRequest, "Write failed", err.Error()))
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"port":  name,
		"value": value,
	})
}

// decodeInputValue accepts a number or a boolean; true is 1, false is 0.
func decodeInputValue(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return 1, nil
		}
		return 0, nil
	}

	return 0, fmt.Errorf("value must be a number or a boolean, got %s", raw)
}
