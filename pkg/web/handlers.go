package web

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-optcam/pkg/camera"
	"github.com/teslashibe/go-optcam/pkg/imgconv"
)

// apiError maps camera errors onto HTTP status codes.
func apiError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, camera.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, camera.ErrInvalidParameter):
		code = fiber.StatusBadRequest
	case errors.Is(err, camera.ErrInvalidState):
		code = fiber.StatusConflict
	case camera.IsTimeout(err):
		code = fiber.StatusGatewayTimeout
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// handleListCameras returns a snapshot of every open session
func (s *Server) handleListCameras(c *fiber.Ctx) error {
	sessions := s.mgr.Sessions()
	infos := make([]camera.Info, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, sess.Info())
	}
	return c.JSON(infos)
}

// handleGetCamera returns one session and its config
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	id := c.Params("id")
	sess, err := s.mgr.Get(id)
	if err != nil {
		return apiError(c, err)
	}
	cfg, err := s.mgr.ConfigJSON(id)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{
		"info":   sess.Info(),
		"config": cfg,
	})
}

// handlePatchCamera applies runtime parameter changes
func (s *Server) handlePatchCamera(c *fiber.Ctx) error {
	id := c.Params("id")

	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON body",
		})
	}

	if err := s.mgr.ApplyParams(id, params); err != nil {
		return apiError(c, err)
	}

	cfg, err := s.mgr.ConfigJSON(id)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(cfg)
}

// handleTrigger fires one software trigger
func (s *Server) handleTrigger(c *fiber.Ctx) error {
	sess, err := s.mgr.Get(c.Params("id"))
	if err != nil {
		return apiError(c, err)
	}
	if mode := sess.TriggerMode(); mode != camera.TriggerSoftware {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "camera is not in software trigger mode (" + mode.String() + ")",
		})
	}
	if err := sess.FireSoftwareTrigger(); err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{"fired": true})
}

// StreamRequest is the optional body of POST /stream/start
type StreamRequest struct {
	Channel *int `json:"channel"`
}

func (s *Server) handleStreamStart(c *fiber.Ctx) error {
	id := c.Params("id")
	sess, err := s.mgr.Get(id)
	if err != nil {
		return apiError(c, err)
	}
	cfg, err := s.mgr.Config(id)
	if err != nil {
		return apiError(c, err)
	}

	channel := cfg.Channel
	if len(c.Body()) > 0 {
		var req StreamRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON body",
			})
		}
		if req.Channel != nil {
			channel = *req.Channel
		}
	}

	if err := sess.StartStream(channel); err != nil {
		return apiError(c, err)
	}
	info := sess.Info()
	s.publishStream(info)
	return c.JSON(info)
}

func (s *Server) handleStreamStop(c *fiber.Ctx) error {
	sess, err := s.mgr.Get(c.Params("id"))
	if err != nil {
		return apiError(c, err)
	}
	if err := sess.StopStream(); err != nil {
		return apiError(c, err)
	}
	info := sess.Info()
	s.publishStream(info)
	return c.JSON(info)
}

// handleSnapshot captures one frame and returns it as JPEG.
// Query: timeout_ms (default: session fetch timeout), quality.
func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	id := c.Params("id")
	sess, err := s.mgr.Get(id)
	if err != nil {
		return apiError(c, err)
	}

	timeout := time.Duration(c.QueryInt("timeout_ms", 0)) * time.Millisecond
	quality := c.QueryInt("quality", s.cfg.JPEGQuality)
	if quality < 1 || quality > 100 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "quality must be 1-100",
		})
	}

	img, err := s.mgr.Capture(c.UserContext(), id, timeout)
	if err != nil {
		return apiError(c, err)
	}
	defer sess.Decoder().Recycle(img)

	data, err := imgconv.EncodeJPEG(img, quality)
	if err != nil {
		return apiError(c, err)
	}

	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set("X-Block-Id", strconv.FormatUint(img.BlockID, 10))
	c.Set("X-Pixel-Format", img.PixelFormat.String())
	return c.Send(data)
}

// handlePresets lists the named configs and the accepted value ranges
func (s *Server) handlePresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"presets":      camera.Presets(),
		"capabilities": camera.Capabilities(),
	})
}
