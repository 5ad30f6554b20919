// Package api exposes the fixed-point classifier over HTTP so a prepared
// model can be poked at without the simulator in the loop.
package api

import (
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/fxprep/internal/fixed"
	"github.com/samcharles93/fxprep/pkg/quant"
)

// ClassifyRequest carries one input vector of [0,1] floats.
type ClassifyRequest struct {
	Pixels []float32 `json:"pixels"`
}

// ClassifyResponse is the fixed-point inference outcome.
type ClassifyResponse struct {
	Label       int     `json:"label"`
	Scores      []int32 `json:"scores"`
	HiddenScale float32 `json:"hidden_scale"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Server serves classification requests against one immutable engine.
type Server struct {
	engine *fixed.Engine
}

func NewServer(engine *fixed.Engine) *Server {
	return &Server{engine: engine}
}

// Register mounts the API routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.POST("/v1/classify", s.handleClassify)
}

func (s *Server) handleHealth(c *echo.Context) error {
	in, hidden, out := s.engine.Dims()
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"model":  fmt.Sprintf("%d-%d-%d", in, hidden, out),
	})
}

func (s *Server) handleClassify(c *echo.Context) error {
	req, err := decodeJSON[ClassifyRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	in, _, _ := s.engine.Dims()
	if len(req.Pixels) != in {
		return writeBadRequest(c, fmt.Sprintf("pixels: got %d values, model expects %d", len(req.Pixels), in))
	}
	for i, p := range req.Pixels {
		if p < 0 || p > 1 {
			return writeBadRequest(c, fmt.Sprintf("pixels[%d]: %v outside [0,1]", i, p))
		}
	}

	res := s.engine.Predict(quant.QuantizeInput(req.Pixels))
	return c.JSON(http.StatusOK, ClassifyResponse{
		Label:       res.Label,
		Scores:      res.Scores,
		HiddenScale: res.HiddenScale,
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var v T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("invalid JSON body: %w", err)
	}
	return v, nil
}

func writeBadRequest(c *echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]any{
		"error": apiError{Message: msg, Type: "invalid_request_error"},
	})
}
