package fitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"gapipe/internal/gapipe"
	"gapipe/internal/logging"
	"gapipe/internal/services"
)

// Client runs the pfsfit binary. One client serves all three fitting stages.
type Client struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
}

func New(binary string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		binary:  binary,
		timeout: timeout,
		logger:  logger.With(logging.FieldComponent, "fitter"),
	}
}

// Fitters returns the client wired into the pipeline's collaborator bundle.
func (c *Client) Fitters() gapipe.Fitters {
	return gapipe.Fitters{Template: c, Coadder: c, Abundance: c}
}

func (c *Client) Arms(ctx context.Context, spectra []string) ([]string, error) {
	var out struct {
		Arms []string `json:"arms"`
	}
	req := map[string]any{"spectra": spectra}
	if err := c.invoke(ctx, "arms", req, &out); err != nil {
		return nil, err
	}
	return out.Arms, nil
}

func (c *Client) Fit(ctx context.Context, req gapipe.FitRequest) (*gapipe.StellarParams, error) {
	out := &gapipe.StellarParams{}
	if err := c.invoke(ctx, "rvfit", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Coadd(ctx context.Context, req gapipe.CoaddRequest) (*gapipe.CoaddResult, error) {
	out := &gapipe.CoaddResult{}
	if err := c.invoke(ctx, "coadd", req, out); err != nil {
		return nil, err
	}
	if out.SpectrumPath == "" {
		out.SpectrumPath = req.OutputPath
	}
	return out, nil
}

func (c *Client) FitAbundances(ctx context.Context, req gapipe.AbundanceRequest) (*gapipe.AbundanceResult, error) {
	out := &gapipe.AbundanceResult{}
	if err := c.invoke(ctx, "chemfit", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// invoke runs one subcommand with the request on stdin and decodes the JSON
// reply. Stderr is surfaced in the error; the tool is expected to keep it
// short.
func (c *Client) invoke(ctx context.Context, subcommand string, req, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "fitter", subcommand, "encode request", err)
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, c.binary, subcommand, "--json")
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return services.Wrap(services.ErrExternalTool, "fitter", subcommand,
			fmt.Sprintf("%s failed: %s", c.binary, detail), err)
	}
	c.logger.Debug("fitter call completed",
		"subcommand", subcommand,
		"elapsed", time.Since(start).Round(time.Millisecond))

	if err := json.Unmarshal(stdout.Bytes(), out); err != nil {
		return services.Wrap(services.ErrExternalTool, "fitter", subcommand,
			"malformed reply from fitting tool", err)
	}
	return nil
}
