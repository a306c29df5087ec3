package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/kurator/internal/services"
	"github.com/desertthunder/kurator/internal/shared"
	"github.com/desertthunder/kurator/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Collaborators left nil are built from the loaded config when a command needs them.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	providers  services.ProviderFactory
	completer  services.Completer
	logger     *log.Logger
	output     io.Writer
	lookupEnv  func(string) (string, bool)
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Providers  services.ProviderFactory
	Completer  services.Completer
	Logger     *log.Logger
	Output     io.Writer
	LookupEnv  func(string) (string, bool)
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		providers:  opts.Providers,
		completer:  opts.Completer,
		logger:     opts.Logger,
		output:     opts.Output,
		lookupEnv:  opts.LookupEnv,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){serveCommand, curateCommand, setupCommand} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the config for cmd: the injected one, else the --config file, else defaults.
//
// Environment overrides and the --debug flag are applied on top, then the logger is configured.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	config := r.config
	if config == nil {
		path := r.configPath
		if path == "" {
			path = cmd.String("config")
		}

		config = shared.DefaultConfig()
		if _, err := os.Stat(path); err == nil {
			loaded, err := shared.LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		} else {
			r.logger.Debug("config file not found, using defaults", "path", path)
		}
	}

	if err := config.ApplyEnv(r.lookupEnv); err != nil {
		return nil, err
	}
	if cmd.Bool("debug") {
		config.Log.Level = "debug"
	}
	shared.ConfigureLogger(r.logger, config.Log)

	r.config = config
	return config, nil
}

// client returns the injected HTTP client or one wrapped in the retrying, rate limited transport.
func (r *Runner) client(config *shared.Config) *http.Client {
	if r.httpClient == nil {
		r.httpClient = services.NewHTTPClient(services.PolicyFromConfig(config.Upstream), r.logger)
	}
	return r.httpClient
}

// pipeline wires the Spotify provider, the OpenAI completer and the pipeline stages from config.
func (r *Runner) pipeline(config *shared.Config) (*tasks.Pipeline, error) {
	providers := r.providers
	if providers == nil {
		providers = services.NewSpotifyFactory(r.client(config), config.Spotify.BaseURL, r.logger)
	}

	completer := r.completer
	if completer == nil {
		svc, err := services.NewOpenAIService(config.Credentials.OpenAI, config.LLM, r.client(config), r.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI service: %w", err)
		}
		completer = svc
	}

	curator := tasks.NewCurator(completer, config.LLM.Language, r.logger)
	return tasks.NewPipeline(providers, curator, tasks.NewMaterializer(r.logger), tasks.PipelineOptionsFromConfig(config), r.logger), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
