// Package web serves the camera HTTP API and websocket feeds.
package web

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-optcam/internal/log"
	"github.com/teslashibe/go-optcam/pkg/camera"
	"github.com/teslashibe/go-optcam/pkg/hub"
)

// Config holds the server settings.
type Config struct {
	// Listen is the fiber listen address, e.g. ":8080".
	Listen string `json:"listen" yaml:"listen"`

	// FrameFPS caps how often /ws/frames pulls a round of images.
	FrameFPS float64 `json:"frame_fps" yaml:"frame_fps"`

	// JPEGQuality is used for snapshots and frame broadcasts (1-100).
	JPEGQuality int `json:"jpeg_quality" yaml:"jpeg_quality"`

	// FrameTimeoutMs bounds each frame wait of the publisher.
	FrameTimeoutMs int `json:"frame_timeout_ms" yaml:"frame_timeout_ms"`

	// AccessLog enables the per-request log line.
	AccessLog bool `json:"access_log" yaml:"access_log"`
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{
		Listen:         ":8080",
		FrameFPS:       5,
		JPEGQuality:    85,
		FrameTimeoutMs: 500,
	}
}

// Server is the camera API server
type Server struct {
	app *fiber.App
	cfg Config
	mgr *camera.Manager
	log zerolog.Logger

	// Hubs for websocket broadcast
	eventHub *hub.Hub
	frameHub *hub.Hub
}

// NewServer creates a server over mgr. It takes over the manager's
// OnLinkChange and OnConfigChange callbacks to feed /ws/events.
func NewServer(mgr *camera.Manager, cfg Config) *Server {
	def := DefaultConfig()
	if cfg.Listen == "" {
		cfg.Listen = def.Listen
	}
	if cfg.FrameFPS <= 0 {
		cfg.FrameFPS = def.FrameFPS
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = def.JPEGQuality
	}
	if cfg.FrameTimeoutMs <= 0 {
		cfg.FrameTimeoutMs = def.FrameTimeoutMs
	}

	s := &Server{
		cfg:      cfg,
		mgr:      mgr,
		log:      log.WithComponent("web"),
		eventHub: hub.New("events"),
		frameHub: hub.New("frames"),
	}
	mgr.OnLinkChange = s.publishLink
	mgr.OnConfigChange = s.publishConfig

	app := fiber.New(fiber.Config{
		AppName:               "optcam",
		DisableStartupMessage: true,
	})

	app.Use(fiberrecover.New())
	app.Use(cors.New())
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{Output: s.log}))
	}

	// API routes
	api := app.Group("/api")
	api.Get("/cameras", s.handleListCameras)
	api.Get("/cameras/:id", s.handleGetCamera)
	api.Patch("/cameras/:id", s.handlePatchCamera)
	api.Post("/cameras/:id/trigger", s.handleTrigger)
	api.Post("/cameras/:id/stream/start", s.handleStreamStart)
	api.Post("/cameras/:id/stream/stop", s.handleStreamStop)
	api.Get("/cameras/:id/snapshot", s.handleSnapshot)
	api.Get("/presets", s.handlePresets)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/events", websocket.New(s.serveHub(s.eventHub)))
	app.Get("/ws/frames", websocket.New(s.serveHub(s.frameHub)))

	s.app = app
	return s
}

// App returns the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// EventHub returns the hub behind /ws/events.
func (s *Server) EventHub() *hub.Hub {
	return s.eventHub
}

// FrameHub returns the hub behind /ws/frames.
func (s *Server) FrameHub() *hub.Hub {
	return s.frameHub
}

// Run serves until ctx is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.eventHub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		s.frameHub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		s.publishFrames(ctx)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			s.log.Warn().Err(err).Msg("shutdown")
		}
		return nil
	})
	g.Go(func() error {
		s.log.Info().Str("listen", s.cfg.Listen).Msg("camera api listening")
		return s.app.Listen(s.cfg.Listen)
	})

	return g.Wait()
}

func (s *Server) serveHub(h *hub.Hub) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		client := hub.NewClient(h, c)
		if client == nil {
			c.Close()
			return
		}
		client.Run()
	}
}

func (s *Server) publish(ev hub.Event) {
	msg, err := ev.Encode()
	if err != nil {
		s.log.Error().Err(err).Str("type", ev.Type).Msg("encode event")
		return
	}
	s.eventHub.Broadcast(msg)
}

func (s *Server) publishLink(info camera.Info, state camera.LinkState) {
	s.publish(hub.NewEvent(hub.EventLink, info.ID, info.Serial, fiber.Map{
		"state": state.String(),
		"info":  info,
	}))
}

func (s *Server) publishConfig(id string, cfg camera.Config) {
	serial := ""
	if sess, err := s.mgr.Get(id); err == nil {
		serial = sess.Identity().Serial
	}
	s.publish(hub.NewEvent(hub.EventConfig, id, serial, cfg))
}

func (s *Server) publishStream(info camera.Info) {
	s.publish(hub.NewEvent(hub.EventStream, info.ID, info.Serial, fiber.Map{
		"state":   info.State,
		"channel": info.Channel,
	}))
}
