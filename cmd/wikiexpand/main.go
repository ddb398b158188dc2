package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wikimark/wikiparse/pkg/mediawiki"
	"github.com/wikimark/wikiparse/pkg/netcache"
	"github.com/wikimark/wikiparse/pkg/scribunto"
	"github.com/wikimark/wikiparse/pkg/transclude"
	"github.com/wikimark/wikiparse/pkg/wikitext"
)

type wikiConfig struct {
	Host     string `yaml:"host"`
	Language string `yaml:"language"`
	CacheDir string `yaml:"cache_dir,omitempty"`
	// Templates seeds template bodies by name, overriding the remote wiki.
	Templates map[string]string `yaml:"templates,omitempty"`
	// Modules holds Starlark sources for {{#invoke:...}} targets.
	Modules map[string]string `yaml:"modules,omitempty"`
}

func (c *wikiConfig) load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("decoding config file: %w", err)
	}
	return nil
}

func loadWikiConfig() (wikiConfig, error) {
	cfg := wikiConfig{Host: "wikipedia.org", Language: "en"}
	if err := cfg.load(configPath); err != nil {
		// The default config file is optional; an explicit one is not.
		if os.IsNotExist(err) && !configFlagSet {
			return cfg, nil
		}
		return cfg, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func (c wikiConfig) newWiki() (*mediawiki.Wiki, error) {
	wiki := mediawiki.New(c.Host, c.Language)
	if verbose {
		wiki.Logger = slog.Default()
	}
	if c.CacheDir != "" {
		wiki.Cache = netcache.New(c.CacheDir)
	}
	for name, src := range c.Templates {
		body, err := wikitext.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", name, err)
		}
		wiki.SetTemplate(name, body)
	}
	if len(c.Modules) > 0 {
		engine := scribunto.NewEngine()
		for name, src := range c.Modules {
			engine.Register(name, src)
		}
		wiki.Invoker = engine
	}
	return wiki, nil
}

var configPath string
var configFlagSet bool
var verbose bool

var rootCmd = cobra.Command{
	Use:   "wikiexpand",
	Short: "Expand wiki templates, variables and parser functions into their call sites",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configFlagSet = cmd.Flags().Changed("config")
		if verbose {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	},
}

var expandCmd = cobra.Command{
	Use:   "expand [page]",
	Short: "Fetch a page, transclude everything it references and print the text",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("no page specified")
		}
		cfg, err := loadWikiConfig()
		if err != nil {
			return err
		}
		wiki, err := cfg.newWiki()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		page, err := wiki.FetchPage(ctx, args[0], "")
		if err != nil {
			return err
		}
		ast, err := page.Parse()
		if err != nil {
			return fmt.Errorf("parsing page %q: %w", page.Title, err)
		}
		expanded, err := wiki.Transclude(ctx, ast, nil, page.Title)
		if err != nil {
			return fmt.Errorf("transcluding page %q: %w", page.Title, err)
		}
		fmt.Println(wikitext.Render(expanded))
		return nil
	},
}

var astCmd = cobra.Command{
	Use:   "ast [file]",
	Short: "Parse a local wikitext file and dump its tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("no file specified")
		}
		src, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		ast, err := wikitext.Parse(string(src))
		if err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}
		if expandAST {
			cfg, err := loadWikiConfig()
			if err != nil {
				return err
			}
			wiki, err := cfg.newWiki()
			if err != nil {
				return err
			}
			ast, err = wiki.Transclude(cmd.Context(), ast, transclude.Variables{}, args[0])
			if err != nil {
				return fmt.Errorf("transcluding %s: %w", args[0], err)
			}
		}
		fmt.Print(wikitext.Pretty(ast))
		return nil
	},
}

var expandAST bool

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "wikiexpand.yaml", "Path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	astCmd.Flags().BoolVar(&expandAST, "expand", false, "Transclude before dumping the tree")
	rootCmd.AddCommand(&expandCmd)
	rootCmd.AddCommand(&astCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
