package main

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-tuner/internal/api"
	"github.com/askiada/go-tuner/internal/config"
	"github.com/askiada/go-tuner/pkg/tuner"
	"github.com/askiada/go-tuner/pkg/tuner/drawer"
	"github.com/askiada/go-tuner/pkg/tuner/measure"
	"github.com/askiada/go-tuner/pkg/tuner/panelconfig"
	"github.com/askiada/go-tuner/pkg/vision"
)

type app struct {
	cfg       *config.AppConfig
	logger    *slog.Logger
	pipelines *vision.Manager
	loader    *vision.Loader
	processor *vision.Processor
	panels    *panelconfig.Store
	saver     *panelconfig.Saver
	tuner     *tuner.Manager
	server    *api.Server
}

func newApp(cfg *config.AppConfig, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	a.pipelines = vision.NewManager(vision.DefaultCatalog(), logger)

	var err error
	if cfg.Panels.File != "" {
		if a.panels, err = panelconfig.Load(cfg.Panels.File, panelconfig.WithLogger(logger)); err != nil {
			return nil, err
		}
		if a.saver, err = panelconfig.NewSaver(a.panels, cfg.Panels.SaveSchedule, logger); err != nil {
			return nil, err
		}
	} else {
		a.panels = panelconfig.New(panelconfig.WithLogger(logger))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pm, err := measure.NewPromMeasure(reg)
	if err != nil {
		return nil, err
	}
	dot := drawer.NewDOTDrawer(cfg.DOTPath)

	a.tuner, err = tuner.NewManager(a.pipelines,
		tuner.WithLogger(logger),
		tuner.WithTickInterval(cfg.TickInterval),
		tuner.WithConfigResolver(a.panels),
		tuner.WithTunerOptions(measure.TunerMeasure(pm), drawer.TunerDrawer(dot, pm)),
	)
	if err != nil {
		return nil, err
	}

	a.processor, err = vision.NewProcessor(a.pipelines,
		vision.WithFrameSource(vision.GradientSource(cfg.Pipeline.FrameWidth, cfg.Pipeline.FrameHeight)),
		vision.WithFrameInterval(cfg.Pipeline.FrameInterval),
		vision.WithExecutor(a.tuner.Exec),
		vision.WithProcessorLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	if cfg.Pipeline.DefinitionFile != "" {
		a.loader = vision.NewLoader(cfg.Pipeline.DefinitionFile, a.pipelines,
			vision.WithDebounce(cfg.Pipeline.Debounce),
			vision.WithLoaderLogger(logger),
		)
	}

	a.server, err = api.NewServer(a.tuner, a.pipelines, a.panels,
		api.WithProcessor(a.processor),
		api.WithDrawer(dot),
		api.WithGatherer(reg),
		api.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	return a, nil
}

// loadInitial loads the definition file when configured, the initial
// catalog pipeline otherwise.
func (a *app) loadInitial() error {
	if a.loader != nil {
		return errors.Wrap(a.loader.Load(), "unable to load pipeline definition")
	}
	if a.cfg.Pipeline.Initial == "" {
		return nil
	}

	return errors.Wrap(a.pipelines.Load(a.cfg.Pipeline.Initial), "unable to load initial pipeline")
}

func (a *app) run(ctx context.Context) error {
	if err := a.tuner.Initialize(ctx); err != nil {
		return err
	}
	defer func() {
		if err := a.tuner.Dispose(); err != nil {
			a.logger.Warn("unable to dispose tuner", "error", err)
		}
	}()
	if err := a.loadInitial(); err != nil {
		return err
	}

	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.Go(func() error { return a.tuner.Run(dCtx) })
	errGrp.Go(func() error { return a.processor.Run(dCtx) })
	errGrp.Go(func() error { return a.server.Serve(dCtx, a.cfg.ListenAddr) })
	if a.loader != nil {
		errGrp.Go(func() error { return a.loader.Run(dCtx) })
	}
	if a.saver != nil {
		errGrp.Go(func() error { return a.saver.Run(dCtx) })
	}

	return errGrp.Wait()
}
