package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/quire/internal/config"
	"github.com/hpungsan/quire/internal/errors"
	"github.com/hpungsan/quire/internal/loader"
	"github.com/hpungsan/quire/internal/manifest"
	"github.com/hpungsan/quire/internal/mcp"
	"github.com/hpungsan/quire/internal/web"
)

// site carries the configuration resolved before any command runs.
type site struct {
	cfg    *config.Config
	getenv func(string) string
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(getenv func(string) string) *cli.App {
	s := &site{getenv: getenv}

	app := &cli.App{
		Name:    "quire",
		Usage:   "Markdown post listing service",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: config.FileName, Usage: "Path to the JSON config file"},
		},
		Before: s.load,
		Commands: []*cli.Command{
			buildCmd(s),
			listCmd(s),
			serveCmd(s),
			renderCmd(s),
			mcpCmd(s),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// load resolves the config file, applies environment overrides and warns
// about unknown disabled tools.
func (s *site) load(c *cli.Context) error {
	path := c.String("config")
	if !c.IsSet("config") {
		path = ""
		if wd, err := os.Getwd(); err == nil {
			path = config.FindSiteConfig(wd)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return outputError(errors.NewInvalidRequest(fmt.Sprintf("load config: %v", err)))
	}
	cfg, err = config.ApplyEnv(cfg, s.getenv)
	if err != nil {
		return outputError(errors.NewInvalidRequest(err.Error()))
	}

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Printf("warning: unknown tools in disabled_tools: %s (known: %s)",
			strings.Join(unknown, ", "), strings.Join(mcp.AllToolNames(), ", "))
	}

	s.cfg = cfg
	return nil
}

// manifestPath returns the --manifest flag, defaulting to the build output.
func (s *site) manifestPath(c *cli.Context) string {
	if p := c.String("manifest"); p != "" {
		return p
	}
	return filepath.Join(s.cfg.OutDir, manifest.ManifestFile)
}

// loadManifest reads the manifest or scans the posts directory once.
func (s *site) loadManifest(c *cli.Context) (*manifest.Manifest, error) {
	m, fromScan, err := manifest.Load(c.Context, manifest.LoadInput{
		ManifestPath: s.manifestPath(c),
		PostsDir:     stringOr(c, "posts", s.cfg.PostsDir),
		Pattern:      s.cfg.PostsPattern,
	})
	if err != nil {
		return nil, err
	}
	if fromScan {
		log.Printf("no manifest at %s, scanned %s (%d posts)", s.manifestPath(c), stringOr(c, "posts", s.cfg.PostsDir), len(m.Posts))
	}
	return m, nil
}

// buildCmd creates the build command.
func buildCmd(s *site) *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Collect posts and write the manifest and pre-rendered listing",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "posts", Aliases: []string{"p"}, Usage: "Posts directory (default from config)"},
			&cli.StringFlag{Name: "pattern", Usage: "Glob selecting post files (default from config)"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output directory (default from config)"},
		},
		Action: func(c *cli.Context) error {
			output, err := manifest.Build(c.Context, manifest.BuildInput{
				PostsDir: stringOr(c, "posts", s.cfg.PostsDir),
				Pattern:  stringOr(c, "pattern", s.cfg.PostsPattern),
				OutDir:   stringOr(c, "out", s.cfg.OutDir),
			})
			if err != nil {
				return outputError(err)
			}

			for _, skip := range output.Skipped {
				log.Printf("warning: skipped %s: %s", skip.Path, skip.Reason)
			}

			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(s *site) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Print the post listing as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "posts", Aliases: []string{"p"}, Usage: "Posts directory to scan"},
			&cli.StringFlag{Name: "manifest", Aliases: []string{"m"}, Usage: "Manifest file to read instead of scanning"},
		},
		Action: func(c *cli.Context) error {
			input := manifest.LoadInput{
				PostsDir: stringOr(c, "posts", s.cfg.PostsDir),
				Pattern:  s.cfg.PostsPattern,
			}
			// An explicit posts directory wins over a previous build.
			if !c.IsSet("posts") {
				input.ManifestPath = s.manifestPath(c)
			}

			m, _, err := manifest.Load(c.Context, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(m.Listing())
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(s *site) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the listing endpoint and HTML pages",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "manifest", Aliases: []string{"m"}, Usage: "Manifest file (default <out_dir>/manifest.json)"},
			&cli.StringFlag{Name: "posts", Aliases: []string{"p"}, Usage: "Posts directory scanned when the manifest is missing"},
			&cli.StringFlag{Name: "bind", Usage: "Interface to listen on"},
			&cli.IntFlag{Name: "port", Usage: "Port to listen on"},
			&cli.StringFlag{Name: "base", Usage: "Base path prefixing every route"},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Merge(s.cfg, &config.Config{
				Bind:     c.String("bind"),
				Port:     c.Int("port"),
				BasePath: c.String("base"),
			})

			m, err := s.loadManifest(c)
			if err != nil {
				return outputError(err)
			}

			srv, err := web.NewServer(m, cfg, Version)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			log.Printf("build %s: %d posts under %q", m.BuildID, len(m.Posts), cfg.BasePath+"/")
			if err := web.Run(srv); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// renderCmd creates the render command.
func renderCmd(s *site) *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Fetch the listing from a running server and render the index page",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Required: true, Usage: "Origin of the server, e.g. http://127.0.0.1:5173"},
			&cli.StringFlag{Name: "base", Usage: "Base path of the listing endpoint (default from config)"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write HTML to this file instead of stdout"},
		},
		Action: func(c *cli.Context) error {
			base := config.NormalizeBasePath(stringOr(c, "base", s.cfg.BasePath))

			l := loader.New(nil, c.String("url"), base)
			data, err := l.Load(c.Context)
			if err != nil {
				return outputError(err)
			}
			log.Printf("fetched %d posts from %s", len(data.Posts), l.URL())

			renderer := web.NewRenderer(web.Templates(), Version, base)
			var buf bytes.Buffer
			if err := renderer.Execute(&buf, "index", renderer.IndexPage(data.Posts)); err != nil {
				return outputError(errors.NewInternal(err))
			}

			out := c.String("out")
			if out == "" {
				_, err = os.Stdout.Write(buf.Bytes())
				return err
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return outputError(errors.NewInternal(err))
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(s *site) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the post tools over MCP stdio",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "manifest", Aliases: []string{"m"}, Usage: "Manifest file (default <out_dir>/manifest.json)"},
			&cli.StringFlag{Name: "posts", Aliases: []string{"p"}, Usage: "Posts directory scanned when the manifest is missing"},
		},
		Action: func(c *cli.Context) error {
			m, err := s.loadManifest(c)
			if err != nil {
				return outputError(err)
			}
			if err := mcp.Run(m, s.cfg, Version); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// outputJSON writes v as indented JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if qErr, ok := err.(*errors.QuireError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", qErr.Code, qErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stringOr returns the named flag when set, otherwise fallback.
func stringOr(c *cli.Context, name, fallback string) string {
	if v := strings.TrimSpace(c.String(name)); v != "" {
		return v
	}
	return fallback
}
