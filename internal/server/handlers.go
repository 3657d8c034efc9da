package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/cratedhq/crated/internal"
	"github.com/cratedhq/crated/internal/cargo"
	"github.com/cratedhq/crated/internal/inspect"
	"github.com/cratedhq/crated/internal/paths"
	"github.com/cratedhq/crated/internal/pipeline"
	"github.com/cratedhq/crated/internal/protocol"
	"github.com/cratedhq/crated/internal/registry"
)

// Handles a build command.
//
// Loads the Cargo project, derives the two-stage plan, and executes it
// against the container runtime.
func (s *Server) handleBuild(ctx context.Context, conn net.Conn, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.BuildRequest](payload)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	pkg, err := cargo.Load(req.Project)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	cfg, err := buildConfig(req)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	output := req.Output
	if output == "" {
		output = filepath.Join(paths.Builds(), pkg.Name)
	}

	result, err := pipeline.Run(ctx, s.runtime, pipeline.Options{
		Plan:      pipeline.NewPlan(pkg, cfg),
		Project:   req.Project,
		Resource:  pkg.Name,
		Output:    output,
		Platforms: req.Platforms,
	})
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	s.mu.Lock()
	s.builds++
	s.mu.Unlock()

	s.respond(conn, protocol.CmdOK, &protocol.BuildResult{
		Output: result.Output,
		Binary: result.Binary,
	})
}

// Resolves the build configuration for a request. An explicit config path
// wins over the project's own crated.yaml.
func buildConfig(req *protocol.BuildRequest) (pipeline.Config, error) {
	if req.Config != "" {
		return pipeline.LoadConfig(req.Config)
	}
	return pipeline.ProjectConfig(req.Project)
}

// Handles an inspect command by auditing an exported archive.
func (s *Server) handleInspect(ctx context.Context, conn net.Conn, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.InspectRequest](payload)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	report, err := inspect.Inspect(req.Archive)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	s.respond(conn, protocol.CmdOK, &protocol.InspectResult{
		StartupAction: report.StartupAction,
		Violations:    report.Violations,
	})
}

// Handles a push command by copying an exported archive to a registry.
func (s *Server) handlePush(ctx context.Context, conn net.Conn, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.PushRequest](payload)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	result, err := registry.Push(ctx, registry.Options{
		Archive:   req.Archive,
		Reference: req.Reference,
		PlainHTTP: req.PlainHTTP,
		Username:  req.Username,
		Password:  req.Password,
	})
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	s.respond(conn, protocol.CmdOK, &protocol.PushResult{
		Reference: result.Reference,
		Digest:    result.Digest,
	})
}

// Handles a status command.
func (s *Server) handleStatus(conn net.Conn) {
	s.mu.Lock()
	builds := s.builds
	s.mu.Unlock()

	uptime := time.Since(s.startedAt).Truncate(time.Second)

	s.respond(conn, protocol.CmdOK, &protocol.StatusResult{
		Running: true,
		Version: internal.VersionString(),
		Pid:     os.Getpid(),
		Uptime:  uptime.String(),
		Builds:  builds,
	})
}

// Handles a shutdown command.
func (s *Server) handleShutdown(conn net.Conn) {
	s.respond(conn, protocol.CmdOK, nil)
	slog.Info("shutdown requested")

	go func() {
		s.Stop()
	}()
}
