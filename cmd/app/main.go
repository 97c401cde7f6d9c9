package main

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/starford/skillview/internal"
	"github.com/starford/skillview/internal/viewer"
	pkgconfig "github.com/starford/skillview/pkg/config"
)

// loadConfig reads the config file, if present, and applies flag overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Debug("config file not found, using defaults", slog.String("path", configPath))
	}

	if cmd.IsSet("site-url") {
		cfg.Content.SiteURL = cmd.String("site-url")
	}
	if cmd.IsSet("content-root") {
		cfg.Content.Root = cmd.String("content-root")
	}
	if cmd.IsSet("port") {
		cfg.App.HTTP.Port = int(cmd.Int("port"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func render(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	src, err := internal.OpenSources(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
	v, err := internal.RenderDocument(ctx, src, logger, cmd.String("entry"), cmd.String("document"))
	if err != nil {
		return err
	}
	return writeView(stdout, v)
}

// stdout receives rendered output; tests replace it.
var stdout io.Writer = os.Stdout

// writeView prints the header and body of v as an HTML fragment. Header text
// comes from document frontmatter and is escaped; the body is already HTML.
func writeView(w io.Writer, v viewer.View) error {
	if _, err := fmt.Fprintf(w, "<h1>%s</h1>\n", html.EscapeString(v.Title)); err != nil {
		return err
	}
	if v.Usage != "" {
		if _, err := fmt.Fprintf(w, "<p>%s</p>\n", html.EscapeString(v.Usage)); err != nil {
			return err
		}
	}
	if v.State == viewer.LoadFailed {
		if _, err := fmt.Fprintf(w, "<p>%s</p>\n", html.EscapeString(v.Message)); err != nil {
			return err
		}
		return errors.New("load failed")
	}
	_, err := fmt.Fprintln(w, v.Body)
	return err
}

func printCatalog(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Bool("discover") {
		cfg.Catalog.Path = ""
		cfg.Catalog.Discover = true
	}
	src, err := internal.OpenSources(cfg)
	if err != nil {
		return err
	}
	defer src.Close()
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(src.Catalog)
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:   "skillview",
		Usage:  "Browse a catalog of skill documents rendered from Markdown",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "site-url",
				Usage:   "Public URL the catalog is published under",
				Sources: cli.EnvVars("APP_SITE_URL"),
			},
			&cli.StringFlag{
				Name:    "content-root",
				Usage:   "Directory holding the skill folders",
				Sources: cli.EnvVars("APP_CONTENT_ROOT"),
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "HTTP port",
				Sources: cli.EnvVars("APP_PORT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server",
				Action: serve,
			},
			{
				Name:   "render",
				Usage:  "Render one document to stdout",
				Action: render,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "entry",
						Aliases:  []string{"e"},
						Usage:    "Skill folder id",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "document",
						Aliases: []string{"d"},
						Usage:   "Document id within the skill (default SKILL.md)",
					},
				},
			},
			{
				Name:   "catalog",
				Usage:  "Print the catalog as YAML",
				Action: printCatalog,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "discover",
						Usage: "Build the catalog from the SKILL.md folders under the content root",
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the catalog over MCP on stdio",
				Action: serveMCP,
			},
		},
	}
}

// execute runs the CLI and returns the process exit status.
func execute(ctx context.Context, args []string) int {
	if err := newApp().Run(ctx, args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(context.Background(), os.Args))
}
