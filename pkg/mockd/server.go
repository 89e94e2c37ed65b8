// Package mockd is a local development stand-in for the conseil backend.
// It serves the chat and board streaming endpoints, replaying either a
// built-in exchange or a TOML scenario file. The scenario file is watched
// and hot-reloaded so wire-level edge cases can be tweaked while a client
// session is open.
package mockd

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Config holds the mockd server configuration.
type Config struct {
	// ListenAddr is the address to serve on, e.g. ":8787".
	ListenAddr string

	// ScenarioPath is an optional TOML scenario file. When empty the
	// built-in default scenario is replayed.
	ScenarioPath string
}

// Server is the mock backend.
type Server struct {
	config Config
	logger *zap.Logger
	app    *fiber.App

	mu       sync.RWMutex
	scenario *Scenario

	watcher *fsnotify.Watcher
}

// New creates a mockd Server. If a scenario path is configured it is loaded
// immediately and watched for changes.
func New(config Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StreamRequestBody:     true,
	})

	s := &Server{
		config:   config,
		logger:   logger,
		app:      app,
		scenario: DefaultScenario(),
	}

	if config.ScenarioPath != "" {
		sc, err := LoadScenario(config.ScenarioPath)
		if err != nil {
			return nil, err
		}
		s.scenario = sc

		if err := s.watchScenario(); err != nil {
			return nil, err
		}
	}

	app.Post("/v1/chat/stream", s.handleChat)
	app.Post("/v1/board/stream", s.handleBoard)

	return s, nil
}

// Run starts the server on the configured listen address.
func (s *Server) Run() error {
	s.logger.Info("starting mock backend",
		zap.String("listen", s.config.ListenAddr),
		zap.String("scenario", s.config.ScenarioPath),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting mock backend",
		zap.String("listen", listener.Addr().String()),
		zap.String("scenario", s.config.ScenarioPath),
	)
	return s.app.Listener(listener)
}

// Close shuts down the server and stops the scenario watcher.
func (s *Server) Close() error {
	if s.watcher != nil {
		s.watcher.Close()
	}
	return s.app.Shutdown()
}

// watchScenario reloads the scenario file whenever it is rewritten.
// The parent directory is watched rather than the file itself because
// editors typically replace files via rename.
func (s *Server) watchScenario() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating scenario watcher: %w", err)
	}

	dir := filepath.Dir(s.config.ScenarioPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching scenario directory: %w", err)
	}

	s.watcher = watcher

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != s.config.ScenarioPath {
					continue
				}
				if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
					continue
				}

				sc, err := LoadScenario(s.config.ScenarioPath)
				if err != nil {
					s.logger.Warn("scenario reload failed", zap.Error(err))
					continue
				}

				s.mu.Lock()
				s.scenario = sc
				s.mu.Unlock()

				s.logger.Info("scenario reloaded", zap.String("path", s.config.ScenarioPath))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("scenario watcher error", zap.Error(err))
			}
		}
	}()

	return nil
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := c.BodyParser(&req); err != nil || len(req.Messages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "messages are required"})
	}

	s.logger.Debug("chat stream requested",
		zap.Int("messages", len(req.Messages)),
		zap.String("request_id", c.Get("X-Request-ID")),
	)

	s.mu.RLock()
	events := s.scenario.Chat.Events
	s.mu.RUnlock()

	return s.stream(c, events)
}

func (s *Server) handleBoard(c *fiber.Ctx) error {
	var req struct {
		Question string `json:"question"`
	}
	if err := c.BodyParser(&req); err != nil || req.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "question is required"})
	}

	s.logger.Debug("board stream requested",
		zap.String("question", req.Question),
		zap.String("request_id", c.Get("X-Request-ID")),
	)

	s.mu.RLock()
	events := s.scenario.Board.Events
	s.mu.RUnlock()

	return s.stream(c, events)
}

// stream replays the scripted events as an SSE response. io.Pipe is used
// instead of SetBodyStreamWriter so each frame is flushed to the socket as
// soon as it is written; the writer blocks until fasthttp has consumed the
// previous frame, which gives real per-frame pacing.
func (s *Server) stream(c *fiber.Ctx, events []ScenarioEvent) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("Connection", "keep-alive")

	pr, pw := io.Pipe()
	go s.writeEvents(pw, events)

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

func (s *Server) writeEvents(pw *io.PipeWriter, events []ScenarioEvent) {
	defer pw.Close()

	for _, e := range events {
		if e.DelayMS > 0 {
			time.Sleep(time.Duration(e.DelayMS) * time.Millisecond)
		}

		frame, err := renderFrame(e)
		if err != nil {
			s.logger.Warn("skipping unrenderable scenario event", zap.Error(err))
			continue
		}

		if _, err := pw.Write(frame); err != nil {
			// Client went away; nothing left to do.
			s.logger.Debug("client disconnected", zap.Error(err))
			return
		}
	}

	if _, err := pw.Write([]byte("data: [DONE]\n\n")); err != nil {
		s.logger.Debug("client disconnected", zap.Error(err))
	}
}

// renderFrame turns one scenario entry into wire bytes. Raw entries are
// written verbatim with a trailing blank line; typed entries become a
// single data: frame.
func renderFrame(e ScenarioEvent) ([]byte, error) {
	if e.Raw != "" {
		return []byte(e.Raw + "\n\n"), nil
	}

	payload, err := json.Marshal(e.Event())
	if err != nil {
		return nil, fmt.Errorf("encoding event: %w", err)
	}
	return []byte("data: " + string(payload) + "\n\n"), nil
}
