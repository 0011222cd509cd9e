package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ZebulonRouseFrantzich/still/internal/binary"
	"github.com/ZebulonRouseFrantzich/still/internal/toolspec"
)

// Installer runs the install pipeline for one tool.
type Installer interface {
	Install(ctx context.Context, spec toolspec.Specifier) (*binary.InstallResult, error)
}

// InstallService installs several tools, each through its own pipeline run.
type InstallService struct {
	installer Installer
	clock     Clock
	logger    zerolog.Logger
}

// NewInstallService creates a new install service. A nil clock uses RealClock.
func NewInstallService(installer Installer, clock Clock, logger zerolog.Logger) *InstallService {
	if clock == nil {
		clock = RealClock{}
	}
	return &InstallService{
		installer: installer,
		clock:     clock,
		logger:    logger,
	}
}

// InstallRequest contains parameters for an install run.
type InstallRequest struct {
	// Specs are raw tool specifiers such as "ripgrep" or "jq@1.7.1".
	Specs []string
	// Jobs bounds concurrent installs; values below 1 mean one at a time.
	Jobs int
}

// Outcome is the result of one specifier.
type Outcome struct {
	Spec   toolspec.Specifier
	Result *binary.InstallResult // nil when Err is set
	Err    error
}

// InstallReport contains every outcome in request order.
type InstallReport struct {
	Outcomes []Outcome
	Duration time.Duration
}

// Failed returns the outcomes that ended in an error.
func (r *InstallReport) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Err returns the first failure in request order, or nil.
func (r *InstallReport) Err() error {
	for _, o := range r.Outcomes {
		if o.Err != nil {
			return fmt.Errorf("install %s: %w", o.Spec, o.Err)
		}
	}
	return nil
}

// ErrNoSpecs is returned when an install request names no tools.
var ErrNoSpecs = errors.New("no tools specified")

// Install parses every specifier, then installs them with at most req.Jobs
// running at once. A parse error aborts the run before anything is
// installed. A failed install does not stop the others.
func (s *InstallService) Install(ctx context.Context, req InstallRequest) (*InstallReport, error) {
	if len(req.Specs) == 0 {
		return nil, ErrNoSpecs
	}

	specs := make([]toolspec.Specifier, 0, len(req.Specs))
	for _, raw := range req.Specs {
		spec, err := toolspec.Parse(raw)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	jobs := req.Jobs
	if jobs < 1 {
		jobs = 1
	}

	start := s.clock.Now()
	outcomes := make([]Outcome, len(specs))

	var g errgroup.Group
	g.SetLimit(jobs)
	for i, spec := range specs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = Outcome{Spec: spec, Err: err}
				return nil
			}
			result, err := s.installer.Install(ctx, spec)
			if err != nil {
				s.logger.Error().Err(err).Str("tool", spec.String()).Msg("install failed")
			}
			outcomes[i] = Outcome{Spec: spec, Result: result, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return &InstallReport{
		Outcomes: outcomes,
		Duration: s.clock.Now().Sub(start),
	}, nil
}
