// Command smoothmesh smooths the surface of a binary STL model.
//
//	smoothmesh [flags] in.stl out.stl
//
// Triangles are welded into a connected mesh before smoothing so that
// neighboring facets move together.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/soypat/smoothmesh"
	"github.com/soypat/smoothmesh/internal/config"
	"github.com/soypat/smoothmesh/mesh"
	"github.com/soypat/smoothmesh/render"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type flags struct {
	config  string
	png     string
	watch   bool
	verbose bool
	cfg     config.Config
}

func newRootCmd() *cobra.Command {
	var f flags
	f.cfg = config.Default()
	cmd := &cobra.Command{
		Use:          "smoothmesh [flags] in.stl out.stl",
		Short:        "Smooth the surface of an STL model",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, args[0], args[1])
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&f.config, "config", "c", "", "TOML or YAML settings file; flags override its values")
	fs.StringVar(&f.cfg.Mode, "mode", f.cfg.Mode, "smoothing mode: laplace or taubin")
	fs.IntVarP(&f.cfg.Iterations, "iterations", "n", f.cfg.Iterations, "number of smoothing iterations")
	fs.Float64Var(&f.cfg.Smooth, "smooth", f.cfg.Smooth, "smoothing factor in [0,1]")
	fs.Float64Var(&f.cfg.Volume, "volume", f.cfg.Volume, "taubin volume preservation in [0,1]")
	fs.Float64Var(&f.cfg.Offset, "offset", f.cfg.Offset, "distance to push vertices along their original normals")
	fs.Float64Var(&f.cfg.Envelope, "envelope", f.cfg.Envelope, "global weight multiplier")
	fs.IntVarP(&f.cfg.Workers, "workers", "j", f.cfg.Workers, "goroutines per smoothing pass")
	fs.Float64Var(&f.cfg.WeldTolerance, "weld-tol", f.cfg.WeldTolerance, "vertex weld distance, 0 infers it from the model")
	fs.StringVar(&f.png, "png", "", "also write a PNG preview of the result to this file")
	fs.BoolVarP(&f.watch, "watch", "w", false, "smooth again every time the input file changes")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log debug messages")
	return cmd
}

func run(cmd *cobra.Command, f flags, input, output string) error {
	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg, err := loadConfig(cmd, f)
	if err != nil {
		log.Error("loading configuration", "err", err)
		return err
	}
	params, err := cfg.Params()
	if err != nil {
		log.Error("invalid parameters", "err", err)
		return err
	}
	log.Debug("parameters", "mode", params.Mode, "iterations", params.Iterations,
		"smooth", params.Smooth, "volume", params.Volume, "offset", params.Offset, "envelope", params.Envelope)

	j := &job{
		log:     log,
		cfg:     cfg,
		params:  params,
		input:   input,
		output:  output,
		png:     f.png,
		deform:  &smoothmesh.Deformer{Workers: cfg.Workers},
		preview: previewConfig(cfg.Preview),
	}
	if err := j.run(); err != nil {
		log.Error("smoothing failed", "input", input, "err", err)
		if !f.watch {
			return err
		}
	}
	if f.watch {
		return j.watch(cmd.Context())
	}
	return nil
}

// loadConfig reads the settings file, if any, then applies the flags
// the user set explicitly on top of it.
func loadConfig(cmd *cobra.Command, f flags) (config.Config, error) {
	if f.config == "" {
		return f.cfg, nil
	}
	cfg, err := config.Load(f.config)
	if err != nil {
		return cfg, err
	}
	fs := cmd.Flags()
	overrides := []struct {
		name  string
		apply func()
	}{
		{"mode", func() { cfg.Mode = f.cfg.Mode }},
		{"iterations", func() { cfg.Iterations = f.cfg.Iterations }},
		{"smooth", func() { cfg.Smooth = f.cfg.Smooth }},
		{"volume", func() { cfg.Volume = f.cfg.Volume }},
		{"offset", func() { cfg.Offset = f.cfg.Offset }},
		{"envelope", func() { cfg.Envelope = f.cfg.Envelope }},
		{"workers", func() { cfg.Workers = f.cfg.Workers }},
		{"weld-tol", func() { cfg.WeldTolerance = f.cfg.WeldTolerance }},
	}
	for _, o := range overrides {
		if fs.Changed(o.name) {
			o.apply()
		}
	}
	return cfg, nil
}

func previewConfig(p config.Preview) render.PreviewConfig {
	pc := render.DefaultPreview()
	if p.Width > 0 {
		pc.Width = p.Width
	}
	if p.Height > 0 {
		pc.Height = p.Height
	}
	if p.Color != "" {
		pc.Color = p.Color
	}
	if p.Background != "" {
		pc.Background = p.Background
	}
	return pc
}

// job smooths one input file into an output file. Its Deformer keeps the
// mesh adjacency between runs of a watch session.
type job struct {
	log     *slog.Logger
	cfg     config.Config
	params  smoothmesh.Params
	input   string
	output  string
	png     string
	deform  *smoothmesh.Deformer
	preview render.PreviewConfig
	version uint64
}

func (j *job) run() error {
	start := time.Now()
	m, err := render.ReadSTLFile(j.input, j.cfg.WeldTolerance)
	if errors.Is(err, render.ErrNormalMismatch) {
		j.log.Warn("ignoring facet normals", "input", j.input, "err", err)
	} else if err != nil {
		return err
	}
	bb := m.Bounds()
	j.log.Debug("welded input", "vertices", len(m.Vertices), "faces", len(m.Faces),
		"size", bb.Size(), "center", bb.Center(), "elapsed", time.Since(start))

	in := smoothmesh.Input{
		Positions: m.Vertices,
		Topology:  m,
		Version:   j.version,
	}
	if len(j.cfg.Weights) > 0 {
		in.Weights = j.cfg.Weights
	}
	positions, err := j.deform.Deform(j.params, in)
	if err != nil {
		return err
	}
	smoothed := m.WithVertices(positions)
	if err := render.CreateSTL(j.output, render.NewMeshRenderer(smoothed)); err != nil {
		return fmt.Errorf("writing %s: %w", j.output, err)
	}
	if j.png != "" {
		if err := j.writePreview(smoothed); err != nil {
			return fmt.Errorf("writing %s: %w", j.png, err)
		}
	}
	j.log.Info("smoothed mesh", "output", j.output, "vertices", len(positions),
		"volume_before", m.Volume(), "volume_after", smoothed.Volume(), "elapsed", time.Since(start))
	return nil
}

func (j *job) writePreview(m *mesh.Mesh) error {
	model, err := render.RenderAll(render.NewMeshRenderer(m))
	if err != nil {
		return err
	}
	fp, err := os.Create(j.png)
	if err != nil {
		return err
	}
	defer fp.Close()
	if err := render.WritePNG(fp, model, j.preview); err != nil {
		return err
	}
	return fp.Close()
}

// watch smooths the input again whenever it is written or replaced, until
// ctx is cancelled. Every change is treated as a new topology.
func (j *job) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	abs, err := filepath.Abs(j.input)
	if err != nil {
		return err
	}
	// Editors often replace files, so the directory is watched.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	j.log.Info("watching for changes", "input", j.input)

	const settle = 200 * time.Millisecond
	timer := time.NewTimer(settle)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			j.log.Debug("input changed", "op", event.Op.String())
			timer.Reset(settle)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			j.log.Warn("watcher", "err", err)
		case <-timer.C:
			j.version++
			j.deform.TopologyChanged()
			if err := j.run(); err != nil {
				j.log.Error("smoothing failed", "input", j.input, "err", err)
			}
		}
	}
}
