package vision

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const defaultFrameInterval = 33 * time.Millisecond

// Sink receives every processed frame.
type Sink func(ctx context.Context, frame *Frame) error

// Executor runs fn in the context owning the pipeline fields.
type Executor func(ctx context.Context, fn func() error) error

// Processor runs frames through the active pipeline of a Manager. Capture,
// processing and delivery are separate goroutines connected by unbuffered
// channels.
type Processor struct {
	manager  *Manager
	source   FrameSource
	sink     Sink
	exec     Executor
	interval time.Duration
	logger   *slog.Logger

	last      atomic.Pointer[Frame]
	processed atomic.Uint64
	failed    atomic.Uint64
}

// ProcessorOption configures a Processor.
type ProcessorOption func(p *Processor)

func WithFrameSource(source FrameSource) ProcessorOption {
	return func(p *Processor) {
		if source != nil {
			p.source = source
		}
	}
}

// WithSink adds a consumer of processed frames. The latest frame is always
// kept for Last.
func WithSink(sink Sink) ProcessorOption {
	return func(p *Processor) {
		p.sink = sink
	}
}

// WithExecutor routes every Process call through exec.
func WithExecutor(exec Executor) ProcessorOption {
	return func(p *Processor) {
		p.exec = exec
	}
}

// WithFrameInterval sets the capture period.
func WithFrameInterval(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewProcessor(manager *Manager, opts ...ProcessorOption) (*Processor, error) {
	if manager == nil {
		return nil, errors.New("manager is nil")
	}
	p := &Processor{
		manager:  manager,
		source:   GradientSource(320, 240),
		interval: defaultFrameInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "vision-processor")

	return p, nil
}

// Last returns the most recently delivered frame.
func (p *Processor) Last() *Frame { return p.last.Load() }

// Processed counts the frames that went through a pipeline.
func (p *Processor) Processed() uint64 { return p.processed.Load() }

// Failed counts the frames a pipeline rejected.
func (p *Processor) Failed() uint64 { return p.failed.Load() }

// Run processes frames until ctx is done or the sink fails.
func (p *Processor) Run(ctx context.Context) error {
	frames := make(chan *Frame)
	results := make(chan *Frame)

	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.Go(func() error {
		defer close(frames)

		return p.capture(dCtx, frames)
	})
	errGrp.Go(func() error {
		defer close(results)

		return p.process(dCtx, frames, results)
	})
	errGrp.Go(func() error {
		return p.deliver(dCtx, results)
	})

	err := errGrp.Wait()
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}

	return err
}

func (p *Processor) capture(ctx context.Context, frames chan<- *Frame) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "capture")
		case <-ticker.C:
			seq++
			frame := p.source(seq)
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), "capture")
			case frames <- frame:
			}
		}
	}
}

func (p *Processor) process(ctx context.Context, frames <-chan *Frame, results chan<- *Frame) error {
outer:
	for {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "process")
		case frame, ok := <-frames:
			if !ok {
				break outer
			}
			out := frame
			if pipeline := p.manager.Pipeline(); pipeline != nil {
				processed, err := p.run(ctx, pipeline, frame)
				if ctx.Err() != nil {
					return errors.Wrap(ctx.Err(), "process")
				}
				if err != nil {
					p.failed.Add(1)
					p.logger.Debug("frame rejected", "pipeline", pipeline.PipelineName(), "seq", frame.Seq, "error", err)

					continue
				}
				p.processed.Add(1)
				out = processed
			}
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), "process")
			case results <- out:
			}
		}
	}

	return nil
}

func (p *Processor) run(ctx context.Context, pipeline Pipeline, frame *Frame) (*Frame, error) {
	var out *Frame
	fn := func() error {
		var err error
		out, err = pipeline.Process(frame)

		return err
	}
	var err error
	if p.exec == nil {
		err = fn()
	} else {
		err = p.exec(ctx, fn)
	}

	return out, err
}

func (p *Processor) deliver(ctx context.Context, results <-chan *Frame) error {
outer:
	for {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "deliver")
		case frame, ok := <-results:
			if !ok {
				break outer
			}
			p.last.Store(frame)
			if p.sink == nil {
				continue
			}
			if err := p.sink(ctx, frame); err != nil {
				return errors.Wrapf(err, "sink failed on frame %d", frame.Seq)
			}
		}
	}

	return nil
}
