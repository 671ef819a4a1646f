// annotate extracts and resolves metadata declared in PHP documentation
// comments.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/annotate/internal/config"
	"github.com/phobologic/annotate/internal/discover"
	"github.com/phobologic/annotate/internal/metadata"
	"github.com/phobologic/annotate/internal/model"
	"github.com/phobologic/annotate/internal/symbols"
	"github.com/phobologic/annotate/internal/toon"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runContext(ctx, args, stdout, stderr)
}

func runContext(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{stdout: stdout, stderr: stderr, logger: zap.NewNop()}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	_ = a.logger.Sync()
	return err
}

// app carries the global flags and the writers shared by all commands.
type app struct {
	stdout, stderr io.Writer

	configPath string
	logLevel   string
	quiet      bool

	logger *zap.Logger
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "annotate",
		Short:         "Extract and resolve metadata from PHP documentation comments",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			logger, err := newLogger(a.logLevel, a.quiet, a.stderr)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}
	root.SetVersionTemplate("annotate {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default ROOT/"+config.DefaultFile+")")
	pf.StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "disable logging")

	root.AddCommand(
		a.indexCommand(),
		a.scanCommand(),
		a.showCommand(),
		a.watchCommand(),
		a.initCommand(),
	)
	return root
}

// newLogger writes human-readable logs to w at the given level.
func newLogger(level string, quiet bool, w io.Writer) (*zap.Logger, error) {
	if quiet {
		return zap.NewNop(), nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	encoder := zap.NewDevelopmentEncoderConfig()
	encoder.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoder), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

// loadConfig reads --config when given, else ROOT/annotate.toml if present.
func (a *app) loadConfig(root string) (*config.Config, error) {
	if a.configPath != "" {
		return config.Load(a.configPath)
	}
	return config.LoadOrDefault(filepath.Join(root, config.DefaultFile), false)
}

// projectRoot resolves the optional ROOT argument to an absolute directory.
func projectRoot(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: not a directory", root)
	}
	return root, nil
}

func checkFormat(format string) error {
	switch format {
	case "toon", "yaml", "json":
		return nil
	}
	return fmt.Errorf("unknown format %q (want toon, yaml or json)", format)
}

// write renders v in the requested format. TOON output comes from encode.
func (a *app) write(format string, v any, encode func() string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(a.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	default:
		_, err := fmt.Fprintln(a.stdout, encode())
		return err
	}
}

func (a *app) indexCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "index FILE",
		Short: "Index one PHP file and print its tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			cfg, err := a.loadConfig(filepath.Dir(path))
			if err != nil {
				return err
			}
			m, err := metadata.NewManager(cfg.ManagerConfig(nil, nil, a.logger))
			if err != nil {
				return err
			}
			idx, err := m.FileIndex(path)
			if err != nil {
				return err
			}
			return a.write(format, idx, func() string { return toon.EncodeIndex(idx) })
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "toon", "output format: toon, yaml or json")
	return cmd
}

func (a *app) scanCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "scan [ROOT]",
		Short: "Index every PHP file under ROOT and list the declared types",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			root, err := projectRoot(args)
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig(root)
			if err != nil {
				return err
			}

			files, err := discover.Files(root, cfg.DiscoverOptions())
			if err != nil {
				return fmt.Errorf("discovering files: %w", err)
			}
			if len(files) == 0 {
				return fmt.Errorf("no PHP files found under %s", root)
			}

			store, closeCache, err := cfg.OpenCache(root, a.logger)
			if err != nil {
				return err
			}
			defer func() { _ = closeCache() }()

			indexes, err := indexFilesConcurrent(root, files, func() (*metadata.Manager, error) {
				return metadata.NewManager(cfg.ManagerConfig(nil, store, a.logger))
			}, a.logger)
			if err != nil {
				return err
			}
			if len(indexes) == 0 {
				return fmt.Errorf("no files could be indexed")
			}

			table, err := symbols.New()
			if err != nil {
				return err
			}
			for _, idx := range indexes {
				if err := table.Add(idx.Types...); err != nil {
					return err
				}
			}
			if err := table.Validate(); err != nil {
				return err
			}

			decls := table.Decls()
			for i := range decls {
				if rel, err := filepath.Rel(root, decls[i].File); err == nil {
					decls[i].File = filepath.ToSlash(rel)
				}
			}
			return a.write(format, decls, func() string {
				return toon.EncodeTypes(filepath.Base(root), decls, table.Graph())
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "toon", "output format: toon, yaml or json")
	return cmd
}

// indexFilesConcurrent indexes files on a worker pool. Managers are not safe
// for concurrent use, so each worker builds its own; they share the cache.
// Files that fail to index are logged and skipped. Results keep the order
// of files.
func indexFilesConcurrent(
	root string,
	files []discover.FileEntry,
	newManager func() (*metadata.Manager, error),
	logger *zap.Logger,
) ([]*model.FileIndex, error) {
	type result struct {
		index int
		idx   *model.FileIndex
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	managers := make([]*metadata.Manager, numWorkers)
	for i := range managers {
		m, err := newManager()
		if err != nil {
			return nil, err
		}
		managers[i] = m
	}

	work := make(chan int, len(files))
	results := make(chan result, len(files))

	var wg sync.WaitGroup
	for _, m := range managers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				f := files[i]
				idx, err := m.FileIndex(filepath.Join(root, f.Path))
				if err != nil {
					logger.Warn("skipping file", zap.String("path", f.Path), zap.Error(err))
					continue
				}
				results <- result{index: i, idx: idx}
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in original order
	indexed := make([]*model.FileIndex, len(files))
	for r := range results {
		indexed[r.index] = r.idx
	}

	var out []*model.FileIndex
	for _, idx := range indexed {
		if idx != nil {
			out = append(out, idx)
		}
	}
	return out, nil
}

// instanceView is the YAML and JSON shape of one metadata instance.
type instanceView struct {
	Tag    string              `json:"tag" yaml:"tag"`
	Type   string              `json:"type" yaml:"type"`
	Fields metadata.Annotation `json:"fields" yaml:"fields"`
}

func (a *app) showCommand() *cobra.Command {
	var (
		root     string
		method   string
		property string
		filter   string
		format   string
	)
	cmd := &cobra.Command{
		Use:   "show TYPE",
		Short: "Print the resolved metadata of a type, method or property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if method != "" && property != "" {
				return fmt.Errorf("--method and --property are mutually exclusive")
			}
			if err := checkFormat(format); err != nil {
				return err
			}
			dir, err := projectRoot([]string{root})
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig(dir)
			if err != nil {
				return err
			}

			store, closeCache, err := cfg.OpenCache(dir, a.logger)
			if err != nil {
				return err
			}
			defer func() { _ = closeCache() }()

			table, err := symbols.New()
			if err != nil {
				return err
			}
			m, err := metadata.NewManager(cfg.ManagerConfig(table, store, a.logger))
			if err != nil {
				return err
			}
			if err := table.Build(cmd.Context(), dir, m, cfg.DiscoverOptions()); err != nil {
				return err
			}

			var filters []string
			if filter != "" {
				filters = append(filters, filter)
			}

			class := args[0]
			var (
				instances []metadata.Instance
				key       string
			)
			switch {
			case method != "":
				key = model.MethodKey(class, method)
				instances, err = m.MethodMetadata(class, method, filters...)
			case property != "":
				key = model.PropertyKey(class, property)
				instances, err = m.PropertyMetadata(class, property, filters...)
			default:
				key = model.Key(class)
				instances, err = m.ClassMetadata(class, filters...)
			}
			if err != nil {
				return err
			}

			views := make([]instanceView, len(instances))
			for i, inst := range instances {
				views[i] = instanceView{Tag: inst.Name, Type: inst.Type, Fields: inst.Annotation}
			}
			return a.write(format, views, func() string { return toon.EncodeInstances(key, instances) })
		},
	}
	f := cmd.Flags()
	f.StringVar(&root, "root", ".", "project root to build the symbol table from")
	f.StringVar(&method, "method", "", "show the metadata of this method")
	f.StringVar(&property, "property", "", "show the metadata of this property")
	f.StringVar(&filter, "filter", "", "keep only instances matching @name or a type name")
	f.StringVarP(&format, "format", "f", "toon", "output format: toon, yaml or json")
	return cmd
}

func (a *app) watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [ROOT]",
		Short: "Re-index PHP files under ROOT as they change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot(args)
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig(root)
			if err != nil {
				return err
			}
			excludes, err := discover.CompileExcludes(cfg.Discover.Exclude)
			if err != nil {
				return err
			}

			store, closeCache, err := cfg.OpenCache(root, a.logger)
			if err != nil {
				return err
			}
			defer func() { _ = closeCache() }()

			m, err := metadata.NewManager(cfg.ManagerConfig(nil, store, a.logger))
			if err != nil {
				return err
			}

			w := &projectWatcher{
				root:     root,
				manager:  m,
				excludes: excludes,
				debounce: cfg.Watch.Debounce,
				logger:   a.logger,
				out:      a.stdout,
			}
			return w.run(cmd.Context())
		},
	}
}
