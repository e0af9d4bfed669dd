package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gogpu/shaderlive"
	"github.com/gogpu/shaderlive/backend"
	"github.com/gogpu/shaderlive/reload"
	"github.com/gogpu/shaderlive/resolve"
)

// Configuration keys.
const (
	keyBackend   = "backend"
	keyFPS       = "fps"
	keyQueueSize = "queue_size"
	keyLibrary   = "library"
	keyLogLevel  = "log_level"
)

// app holds the state shared by all commands of one invocation.
type app struct {
	cfgFile string
	v       *viper.Viper
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "shaderlive",
		Short: "WGSL shader compiler with hot reload",
		Long: `shaderlive flattens WGSL shaders with #pragma include directives,
compiles and links vertex/fragment pairs, and rebuilds them whenever one of
the files they read changes. A broken edit never replaces a working program.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.shaderlive.yaml)")
	pf.String("backend", backend.BackendWGPU, "graphics backend ("+strings.Join(backend.Available(), ", ")+")")
	pf.String("library", "", "directory of shared *.wgsl snippets")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	_ = a.v.BindPFlag(keyBackend, pf.Lookup("backend"))
	_ = a.v.BindPFlag(keyLibrary, pf.Lookup("library"))
	_ = a.v.BindPFlag(keyLogLevel, pf.Lookup("log-level"))
	a.v.SetDefault(keyFPS, 60)
	a.v.SetDefault(keyQueueSize, reload.DefaultQueueSize)

	cmd.AddCommand(
		newCheckCmd(a),
		newInspectCmd(a),
		newWatchCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// init loads configuration from the config file and environment and sets
// up logging.
func (a *app) init(cmd *cobra.Command) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		a.v.AddConfigPath(home)
		a.v.SetConfigType("yaml")
		a.v.SetConfigName(".shaderlive")
	}

	a.v.SetEnvPrefix("shaderlive")
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(a.v.GetString(keyLogLevel))); err != nil {
		return fmt.Errorf("invalid log level %q", a.v.GetString(keyLogLevel))
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	}))
	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug("using config file", "file", used)
	}
	return nil
}

// workspace opens a Workspace configured from flags, file and environment.
func (a *app) workspace(opts ...shaderlive.Option) (*shaderlive.Workspace, error) {
	base := []shaderlive.Option{
		shaderlive.WithLogger(a.logger),
		shaderlive.WithBackendName(a.v.GetString(keyBackend)),
		shaderlive.WithLibraryDir(a.v.GetString(keyLibrary)),
		shaderlive.WithQueueSize(a.v.GetInt(keyQueueSize)),
	}
	return shaderlive.Open(append(base, opts...)...)
}

// resolver builds a resolver with the configured library.
func (a *app) resolver() (*resolve.Resolver, error) {
	lib := resolve.DefaultLibrary()
	if dir := a.v.GetString(keyLibrary); dir != "" {
		var err error
		if lib, err = lib.Overlay(dir); err != nil {
			return nil, err
		}
	}
	return resolve.New(resolve.WithLibrary(lib), resolve.WithLogger(a.logger)), nil
}

// programName derives a program name from a shader path:
// "shaders/plasma.frag.wgsl" becomes "plasma".
func programName(path string) string {
	name := path
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return name
}
