package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/ivlev/composer/internal/browse"
	"github.com/ivlev/composer/internal/composition"
	"github.com/ivlev/composer/internal/config"
	"github.com/ivlev/composer/internal/logging"
	"github.com/ivlev/composer/internal/manifest"
	"github.com/ivlev/composer/internal/registry"
	"github.com/ivlev/composer/internal/server"
	"github.com/ivlev/composer/internal/slate"
	"github.com/ivlev/composer/internal/store"
	"github.com/ivlev/composer/internal/system"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [manifest or descriptor file]",
	Short: "Check a composition file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := manifest.ReadComposition(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), describe(d))
		return nil
	},
}

var newCmd = &cobra.Command{
	Use:   "new [id]",
	Short: "Write a manifest for a new composition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		flags := cmd.Flags()

		width, height := cfg.Defaults.Width, cfg.Defaults.Height
		if preset, _ := flags.GetString("preset"); preset != "" {
			w, h, err := presetSize(preset, width, height)
			if err != nil {
				return err
			}
			width, height = w, h
		}
		if flags.Changed("width") {
			width, _ = flags.GetInt("width")
		}
		if flags.Changed("height") {
			height, _ = flags.GetInt("height")
		}
		fps := cfg.Defaults.FPS
		if flags.Changed("fps") {
			fps, _ = flags.GetFloat64("fps")
		}
		frames := cfg.Defaults.DurationInFrames
		if flags.Changed("frames") {
			frames, _ = flags.GetInt("frames")
		}

		var defaults composition.Props
		if arg, _ := flags.GetString("default-props"); arg != "" {
			p, err := loadProps(arg)
			if err != nil {
				return err
			}
			defaults = p
		}

		d, err := composition.New(args[0], width, height, fps, frames, defaults, defaults)
		if err != nil {
			return err
		}

		out, _ := flags.GetString("output")
		if out == "" {
			out = manifest.GeneratePath(cfg.ManifestDir, d.ID())
		}
		if err := manifest.Write(manifest.New(d, ""), out); err != nil {
			return err
		}

		log.Info().Str("id", d.ID()).Str("path", out).Msg("manifest written")
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [manifest or descriptor file]",
	Short: "Overlay props on a composition's defaults and emit a render manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := manifest.ReadComposition(args[0])
		if err != nil {
			return err
		}

		var overrides composition.Props
		if arg, _ := cmd.Flags().GetString("props"); arg != "" {
			if overrides, err = loadProps(arg); err != nil {
				return err
			}
		}

		target, _ := cmd.Flags().GetString("target")
		m := manifest.New(d.Resolve(overrides), target)

		out, _ := cmd.Flags().GetString("output")
		if out != "" {
			if err := manifest.Write(m, out); err != nil {
				return err
			}
			log.Info().Str("job", m.JobID).Str("path", out).Msg("render manifest written")
			return nil
		}

		format, _ := cmd.Flags().GetString("format")
		data, err := manifest.Marshal(m, format)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var listCmd = &cobra.Command{
	Use:   "list [dir]",
	Short: "List the compositions in a manifest directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		dir := cfg.ManifestDir
		if len(args) == 1 {
			dir = args[0]
		}

		reg := registry.New(logging.WithComponent("registry"))
		if _, err := reg.LoadDir(cmd.Context(), dir, cfg.Workers); err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSIZE\tFPS\tFRAMES\tSECONDS\tPROPS")
		for _, d := range reg.List() {
			fmt.Fprintf(tw, "%s\t%dx%d\t%g\t%d\t%.2f\t%d\n",
				d.ID(), d.Width(), d.Height(), d.FPS(), d.DurationInFrames(), d.DurationSeconds(), len(d.Props()))
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		if latest, _ := cmd.Flags().GetBool("latest"); latest {
			path, err := manifest.FindLatest(dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "latest: %s\n", path)
		}
		return nil
	},
}

var browseCmd = &cobra.Command{
	Use:   "browse [dir]",
	Short: "Browse the compositions in a manifest directory interactively",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		dir := cfg.ManifestDir
		if len(args) == 1 {
			dir = args[0]
		}

		reg := registry.New(logging.WithComponent("registry"))
		if _, err := reg.LoadDir(cmd.Context(), dir, cfg.Workers); err != nil {
			return err
		}
		return browse.Run(browse.New(dir, reg.List()))
	},
}

var slateCmd = &cobra.Command{
	Use:   "slate [manifest or descriptor file]",
	Short: "Render a PNG preview card for a composition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		d, err := manifest.ReadComposition(args[0])
		if err != nil {
			return err
		}

		opts := slate.Options{MaxEdge: cfg.Slate.MaxEdge}
		if cmd.Flags().Changed("max-edge") {
			opts.MaxEdge, _ = cmd.Flags().GetInt("max-edge")
		}
		opts.NoQR, _ = cmd.Flags().GetBool("no-qr")

		img, err := slate.Render(d, opts)
		if err != nil {
			return err
		}
		defer slate.Release(img)

		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			out = d.ID() + "_slate.png"
		}
		if dir := filepath.Dir(out); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}

		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := slate.WritePNG(f, img); err != nil {
			return err
		}

		log.Info().Str("path", out).Int("width", img.Bounds().Dx()).Int("height", img.Bounds().Dy()).Msg("slate written")
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the composition API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		db, err := store.Open(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer db.Close()

		compositions, err := store.NewSQLiteCompositionRepository(db)
		if err != nil {
			return err
		}
		jobs, err := store.NewSQLiteJobRepository(db)
		if err != nil {
			return err
		}

		reg := registry.New(logging.WithComponent("registry"))
		if _, err := os.Stat(cfg.ManifestDir); err == nil {
			n, err := reg.LoadDir(cmd.Context(), cfg.ManifestDir, cfg.Workers)
			if err != nil {
				return err
			}
			log.Info().Int("count", n).Str("dir", cfg.ManifestDir).Msg("compositions loaded from manifests")
		}

		// stored compositions win over manifest files with the same id
		stored, err := compositions.GetAll(cmd.Context())
		if err != nil {
			return err
		}
		for _, d := range stored {
			if err := reg.Replace(d); err != nil {
				return err
			}
		}
		log.Info().Int("count", len(stored)).Msg("compositions loaded from database")

		httpLogger := logging.WithComponent("http")
		if path, _ := cmd.Flags().GetString("log-file"); path != "" {
			f, err := logging.OpenFile(path)
			if err != nil {
				return err
			}
			defer f.Close()
			httpLogger = logging.NewLogger(logging.Console(), f).With().Str("component", "http").Logger()
			log.Info().Str("path", path).Msg("request log mirrored to file")
		}

		srv, err := server.New(server.Options{
			Registry:     reg,
			Compositions: compositions,
			Jobs:         jobs,
			Logger:       httpLogger,
			SlateMaxEdge: cfg.Slate.MaxEdge,
		})
		if err != nil {
			return err
		}

		addr := cfg.ListenAddr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}
		return srv.Run(addr)
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show host resources and the active configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		out := cmd.OutOrStdout()

		host, err := system.HostSummary()
		if err != nil {
			log.Warn().Err(err).Msg("host summary incomplete")
		}
		fmt.Fprintln(out, host.String())
		fmt.Fprintf(out, "workers: %d (host suggests %d)\n", cfg.Workers, system.DefaultWorkers())
		fmt.Fprintf(out, "database: %s\n", cfg.DatabasePath)
		fmt.Fprintf(out, "manifests: %s\n", cfg.ManifestDir)

		if path, err := system.FindLatestFile(cfg.ManifestDir, ".yaml", ".yml", ".json"); err == nil {
			fmt.Fprintf(out, "latest manifest: %s\n", path)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "composer.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		cfg := config.Default()
		cfg.Workers = system.DefaultWorkers()
		if err := cfg.Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("config written")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return config.FromContext(cmd.Context()).Write(cmd.OutOrStdout())
	},
}

func init() {
	newCmd.Flags().Int("width", 0, "width in pixels (default from config)")
	newCmd.Flags().Int("height", 0, "height in pixels (default from config)")
	newCmd.Flags().Float64("fps", 0, "frames per second (default from config)")
	newCmd.Flags().Int("frames", 0, "duration in frames (default from config)")
	newCmd.Flags().String("preset", "", "geometry preset: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram)")
	newCmd.Flags().String("default-props", "", "default props as inline JSON or a JSON/YAML file")
	newCmd.Flags().StringP("output", "o", "", "manifest path (default: generated in the manifest dir)")

	resolveCmd.Flags().String("props", "", "prop overrides as inline JSON or a JSON/YAML file")
	resolveCmd.Flags().String("target", "", "render output recorded in the manifest")
	resolveCmd.Flags().StringP("output", "o", "", "write the manifest here instead of stdout")
	resolveCmd.Flags().String("format", "yaml", "stdout format: yaml or json")

	listCmd.Flags().Bool("latest", false, "also print the newest manifest file")

	slateCmd.Flags().StringP("output", "o", "", "PNG path (default: <id>_slate.png)")
	slateCmd.Flags().Int("max-edge", slate.DefaultMaxEdge, "longest slate edge in pixels")
	slateCmd.Flags().Bool("no-qr", false, "omit the id QR code")

	serveCmd.Flags().String("addr", "", "listen address (default from config)")
	serveCmd.Flags().String("log-file", "", "also append HTTP logs as JSON lines to this file")

	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
