package mcpsrv

import (
	"context"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/apirecord/internal/config"
	"github.com/usestring/apirecord/pkg/recorder"
)

// serverConfig holds configuration built from options.
type serverConfig struct {
	config   *config.Config
	recorder *recorder.Recorder

	logLevel string
	logFile  string

	disableBuiltinTools bool

	// extensions run in option order once the recorder exists
	extensions []func(*mcp.Server, *Deps)
}

// Option configures the server.
type Option func(*serverConfig)

// WithConfig replaces the configuration loaded from the environment.
func WithConfig(c *config.Config) Option {
	return func(cfg *serverConfig) {
		cfg.config = c
	}
}

// WithRecorder serves an existing recorder, for example one a test suite is
// already feeding. By default the server creates its own from the
// configuration.
func WithRecorder(r *recorder.Recorder) Option {
	return func(cfg *serverConfig) {
		cfg.recorder = r
	}
}

// WithLogLevel overrides LOG_LEVEL.
func WithLogLevel(level string) Option {
	return func(cfg *serverConfig) {
		cfg.logLevel = level
	}
}

// WithLogFile overrides LOG_FILE.
func WithLogFile(path string) Option {
	return func(cfg *serverConfig) {
		cfg.logFile = path
	}
}

// WithoutBuiltinTools leaves out the recorder tools and the document
// resource, so only extensions are served.
func WithoutBuiltinTools() Option {
	return func(cfg *serverConfig) {
		cfg.disableBuiltinTools = true
	}
}

// WithTool adds a tool that needs nothing from the recorder. Its output type
// is checked like the builtin tools' outputs.
func WithTool[In, Out any](tool *mcp.Tool, handler func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error)) Option {
	return func(cfg *serverConfig) {
		cfg.extensions = append(cfg.extensions, func(srv *mcp.Server, _ *Deps) {
			AddTool(srv, tool, handler)
		})
	}
}

// WithDepsTool adds a tool built from the server's Deps:
//
//	mcpsrv.WithDepsTool(
//	    &mcp.Tool{Name: "count_operations", Description: "Count recorded operations"},
//	    func(d *mcpsrv.Deps) func(context.Context, *mcp.CallToolRequest, struct{}) (*mcp.CallToolResult, CountOutput, error) {
//	        return func(context.Context, *mcp.CallToolRequest, struct{}) (*mcp.CallToolResult, CountOutput, error) {
//	            return nil, CountOutput{Count: len(d.Recorder.Operations())}, nil
//	        }
//	    },
//	)
func WithDepsTool[In, Out any](tool *mcp.Tool, builder func(*Deps) func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error)) Option {
	return func(cfg *serverConfig) {
		cfg.extensions = append(cfg.extensions, func(srv *mcp.Server, deps *Deps) {
			AddTool(srv, tool, builder(deps))
		})
	}
}

// WithPrompt adds a prompt, for example one that asks a model to review the
// rendered document.
func WithPrompt(prompt *mcp.Prompt, handler mcp.PromptHandler) Option {
	return func(cfg *serverConfig) {
		cfg.extensions = append(cfg.extensions, func(srv *mcp.Server, _ *Deps) {
			srv.AddPrompt(prompt, handler)
		})
	}
}

// WithResourceTemplate adds a resource template next to
// apirecord://document/{format}.
func WithResourceTemplate(template *mcp.ResourceTemplate, handler mcp.ResourceHandler) Option {
	return func(cfg *serverConfig) {
		cfg.extensions = append(cfg.extensions, func(srv *mcp.Server, _ *Deps) {
			srv.AddResourceTemplate(template, handler)
		})
	}
}
