package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/oshokin/eb-packager/internal/config"
	"github.com/oshokin/eb-packager/internal/domain/build"
	"github.com/oshokin/eb-packager/internal/logger"
	"github.com/oshokin/eb-packager/internal/service/common"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// ConfigPath is an optional settings file; relative paths are resolved against the working directory.
	ConfigPath string
	// EnvFile is an optional dotenv file loaded before any command runs.
	EnvFile string
	// WorkingDirectory is the project root (defaults to the current directory).
	WorkingDirectory string
	// Runner executes external commands (defaults to the host shell).
	Runner common.Runner
	// Now returns the start time (defaults to time.Now).
	Now func() time.Time
}

// packager carries the state of a single run.
// It is unexported—callers should use Run, which encapsulates setup and validation.
type packager struct {
	// cfg holds commands and relative paths.
	cfg *config.Config
	// runner executes external commands.
	runner common.Runner
	// workingDirectory is the absolute project root.
	workingDirectory string
	// startedAt is captured once before the first step.
	startedAt time.Time
	// bctx is filled by the initialize step.
	bctx build.Context
}

// step is one stage of the pipeline.
type step struct {
	name string
	run  func(ctx context.Context) error
}

// ErrAlreadyRunning indicates that another run holds the marker in the working directory.
var ErrAlreadyRunning = errors.New("another packaging run is active in this directory")

// Run executes the packaging workflow.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "eb-packager")

	if opts == nil {
		opts = new(Options)
	}

	pkg, err := newPackager(ctx, opts)
	if err != nil {
		return fmt.Errorf("initialize packager: %w", err)
	}

	release, err := acquireMarker(ctx, pkg.workingDirectory)
	if err != nil {
		return err
	}

	defer release()

	return pkg.Run(ctx)
}

// newPackager resolves the working directory, settings, environment and defaults.
func newPackager(ctx context.Context, opts *Options) (*packager, error) {
	workingDirectory := opts.WorkingDirectory
	if workingDirectory == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}

		workingDirectory = cwd
	}

	workingDirectory, err := filepath.Abs(workingDirectory)
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultConfigFilename
	}

	if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(workingDirectory, configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if opts.EnvFile != "" {
		if err = godotenv.Load(opts.EnvFile); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}

		logger.InfoKV(ctx, "Loaded environment file", "path", opts.EnvFile)
	}

	runner := opts.Runner
	if runner == nil {
		runner = common.NewShellRunner()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &packager{
		cfg:              cfg,
		runner:           runner,
		workingDirectory: workingDirectory,
		startedAt:        now(),
	}, nil
}

// Run executes every step in order and stops at the first failure.
func (p *packager) Run(ctx context.Context) error {
	for _, s := range p.steps() {
		logger.Debugf(ctx, "Step: %s", s.name)

		if err := s.run(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}

	p.printNextSteps(ctx)

	return nil
}

// steps returns the pipeline in execution order.
func (p *packager) steps() []step {
	return []step{
		{name: "initialize", run: p.initialize},
		{name: "verify toolchain", run: p.verifyToolchain},
		{name: "install dependencies", run: p.installDependencies},
		{name: "build", run: p.build},
		{name: "verify output", run: p.verifyOutput},
		{name: "merge manifest", run: p.mergeManifest},
		{name: "copy lockfile", run: p.copyLockfile},
		{name: "reinstall dependencies", run: p.reinstallDependencies},
		{name: "archive", run: p.archive},
	}
}

// printNextSteps logs where the archive is and what the operator does next.
func (p *packager) printNextSteps(ctx context.Context) {
	logger.Info(ctx, "Build process completed successfully.")
	logger.Infof(ctx,
		"Please find the archive in '%s'. Rename it using the latest <GIT-TAG>, pattern: <GIT-TAG>.zip",
		p.bctx.DistDirectory)
}

// LogFailure writes the final error line for a failed run.
func LogFailure(ctx context.Context, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, build.ErrExternalCommand),
		errors.Is(err, build.ErrMissingOutput),
		errors.Is(err, build.ErrManifest),
		errors.Is(err, ErrAlreadyRunning):
		logger.Errorf(ctx, "Build process failed: %v", err)
	default:
		logger.Errorf(ctx, "An unexpected error occurred: %v", err)
	}
}
