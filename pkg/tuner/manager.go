package tuner

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-tuner/pkg/tuner/model"
)

// State is the lifecycle state of a Manager.
type State int32

const (
	Uninitialized State = iota
	Ready
	Resetting
	Disposed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Resetting:
		return "resetting"
	case Disposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Namer is implemented by pipelines with a display name.
type Namer interface {
	PipelineName() string
}

// Manager owns the tunable fields of the active pipeline instance. Every
// field-affecting operation runs on its task queue.
type Manager struct {
	source   Source
	registry *Registry
	resolver ConfigResolver
	opts     []model.TunerOption
	logger   *slog.Logger
	tick     time.Duration
	diagCap  int

	queue *taskQueue
	state atomic.Int32

	// resetPending is set while a posted reset has not started yet.
	resetPending atomic.Bool

	// owned by the task queue
	listenerID ListenerID
	listening  bool
	fields     []*Field
	order      []*Field
	byName     map[string]*Field
	pipeline   string
	generation string

	// active is read by the change listener, outside the task queue.
	active   atomic.Pointer[[]*Field]
	snapshot atomic.Pointer[[]model.PanelSpec]

	diagMu sync.Mutex
	diags  []model.Diagnostic
	diagAt int
}

// NewManager creates a manager tuning the pipelines handed out by source.
func NewManager(source Source, opts ...ManagerOption) (*Manager, error) {
	if source == nil {
		return nil, errors.New("source must be set")
	}
	m := &Manager{
		source:   source,
		resolver: staticConfig(model.DefaultPanelConfig()),
		logger:   slog.Default(),
		tick:     defaultTickInterval,
		diagCap:  defaultDiagnostics,
		queue:    newTaskQueue(defaultPostBuffer),
		byName:   make(map[string]*Field),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = DefaultRegistry()
	}
	m.logger = m.logger.With("component", "tuner")
	empty := []model.PanelSpec{}
	m.snapshot.Store(&empty)

	for _, opt := range m.opts {
		err := opt.New()
		if err != nil {
			return nil, errors.Wrap(err, "unable to apply tuner option")
		}
	}

	return m, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Generation identifies the field set currently bound.
func (m *Manager) Generation() string {
	var gen string
	_ = m.queue.Do(context.Background(), func() error {
		gen = m.generation

		return nil
	})

	return gen
}

// Initialize builds the type registry, subscribes to pipeline changes and
// binds the fields of the current pipeline. Calling it again is a no-op.
func (m *Manager) Initialize(ctx context.Context) error {
	return m.queue.Do(ctx, m.initialize)
}

func (m *Manager) initialize() error {
	switch m.State() {
	case Disposed:
		return ErrDisposed
	case Ready:
		return nil
	}

	if err := m.registry.Build(); err != nil {
		m.logger.Error("type registry build failed", "error", err)

		return err
	}
	if !m.listening {
		m.listenerID = m.source.Changes().Subscribe(m.onPipelineChange)
		m.listening = true
	}
	if err := m.bind(m.source.Current()); err != nil {
		return err
	}
	m.state.Store(int32(Ready))

	return nil
}

// onPipelineChange runs on the goroutine firing the change. Stale fields are
// invalidated here, before any Reset is queued. Changes arriving while a reset
// is still waiting in the queue share it: that reset binds the latest
// instance.
func (m *Manager) onPipelineChange(Instance) {
	if m.State() == Disposed {
		return
	}
	m.invalidateActive()
	if !m.resetPending.CompareAndSwap(false, true) {
		m.logger.Debug("pipeline change joins the pending reset")

		return
	}
	if err := m.queue.Post(m.pendingReset); err != nil {
		m.resetPending.Store(false)
		m.logger.Error("unable to queue reset", "error", err)
	}
}

func (m *Manager) pendingReset() error {
	m.resetPending.Store(false)

	return m.reset()
}

func (m *Manager) invalidateActive() {
	if active := m.active.Load(); active != nil {
		for _, f := range *active {
			f.invalidate()
		}
	}
}

// Reset discards the current fields and binds the current pipeline again.
func (m *Manager) Reset(ctx context.Context) error {
	return m.queue.Do(ctx, m.reset)
}

func (m *Manager) reset() error {
	switch m.State() {
	case Disposed:
		return ErrDisposed
	case Uninitialized:
		return m.initialize()
	}

	m.state.Store(int32(Resetting))
	m.invalidateActive()
	if err := m.bind(m.source.Current()); err != nil {
		m.state.Store(int32(Ready))

		return err
	}
	m.state.Store(int32(Ready))

	return nil
}

// bind replaces the active field set with the fields of instance.
func (m *Manager) bind(instance Instance) error {
	m.fields = nil
	m.order = nil
	m.byName = make(map[string]*Field)
	m.generation = uuid.NewString()
	m.pipeline = pipelineName(instance)
	defer func() {
		active := append([]*Field(nil), m.fields...)
		m.active.Store(&active)
		m.publish()
	}()

	if instance == nil {
		m.logger.Info("no active pipeline", "generation", m.generation)

		return m.afterReset()
	}

	res, err := m.registry.scan(reflect.TypeOf(instance))
	if err != nil {
		if errors.Is(err, ErrScanFailure) {
			return err
		}
		m.record("", "scan", err)

		return m.afterReset()
	}

	for _, desc := range orderFor(instance, res.descriptors) {
		kind, ok := res.kinds[desc.Type]
		if !ok {
			if kind, ok = m.registry.Chain().Accept(desc.Type); !ok {
				m.logger.Debug("skipping field", "field", desc.Name, "error", errors.Wrapf(ErrUnsupportedType, "%v", desc.Type))

				continue
			}
		}
		f, err := newField(instance, desc, kind)
		if err != nil {
			m.logger.Warn("skipping field", "field", desc.Name, "error", err)
			m.record(desc.Name, "construct", err)

			continue
		}
		m.fields = append(m.fields, f)
		m.byName[f.Name()] = f
	}

	m.order, err = dependencyOrder(m.fields, m.logger)
	if err != nil {
		m.logger.Warn("using declaration order for panel configurations", "error", err)
		m.order = m.fields
	}
	for _, f := range m.order {
		m.prepareField(f)
	}
	m.logger.Info("pipeline bound", "pipeline", m.pipeline, "generation", m.generation, "fields", len(m.fields))

	return m.afterReset()
}

// prepareField is the one-time setup of a freshly bound field.
func (m *Manager) prepareField(f *Field) {
	f.ReevaluateConfig(m.resolver)
	f.Refresh()
	info := f.fieldInfo(m.pipeline, m.generation)
	for _, opt := range m.opts {
		if err := opt.PrepareField(info); err != nil {
			m.record(f.Name(), "prepare", err)
		}
	}
}

func (m *Manager) afterReset() error {
	infos := make([]*model.FieldInfo, len(m.fields))
	for i, f := range m.fields {
		infos[i] = f.fieldInfo(m.pipeline, m.generation)
	}
	for _, opt := range m.opts {
		if err := opt.OnReset(m.pipeline, m.generation, infos); err != nil {
			m.logger.Warn("tuner option failed on reset", "error", err)
		}
	}

	return nil
}

// Update refreshes every field from its live value. Failures are contained
// per field and reported as diagnostics.
func (m *Manager) Update(ctx context.Context) error {
	return m.queue.Do(ctx, m.update)
}

func (m *Manager) update() error {
	switch m.State() {
	case Disposed:
		return ErrDisposed
	case Uninitialized:
		return ErrNotInitialized
	}

	start := time.Now()
	dirty := false
	reeval := false
	for _, f := range m.fields {
		changed := m.refreshField(f)
		dirty = dirty || changed
		if f.takeReevaluation() {
			reeval = true
		}
	}
	if reeval {
		m.reevaluate()
		dirty = true
	}
	if dirty {
		m.publish()
	}

	elapsed := time.Since(start)
	for _, opt := range m.opts {
		if err := opt.OnTick(elapsed); err != nil {
			m.logger.Warn("tuner option failed on tick", "error", err)
		}
	}

	return nil
}

func (m *Manager) refreshField(f *Field) (changed bool) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			changed = false
			m.record(f.Name(), "refresh", errors.Errorf("panic: %v", r))
		}
	}()
	changed = f.Refresh()
	info := f.fieldInfo(m.pipeline, m.generation)
	for _, opt := range m.opts {
		if err := opt.OnFieldRefresh(info, time.Since(start), changed); err != nil {
			m.record(f.Name(), "refresh", err)
		}
	}

	return changed
}

func (m *Manager) reevaluate() {
	for _, f := range m.order {
		f.ReevaluateConfig(m.resolver)
	}
}

// ReevaluateConfigs recomputes every panel configuration, for instance after
// the configuration store changed.
func (m *Manager) ReevaluateConfigs(ctx context.Context) error {
	return m.queue.Do(ctx, func() error {
		if m.State() == Disposed {
			return ErrDisposed
		}
		m.reevaluate()
		m.publish()

		return nil
	})
}

// SetPanelConfig pins cfg to the panel of the named field until the next
// reset. A nil cfg restores the resolved configuration.
func (m *Manager) SetPanelConfig(ctx context.Context, fieldName string, cfg *model.PanelConfig) error {
	return m.queue.Do(ctx, func() error {
		if m.State() == Disposed {
			return ErrDisposed
		}
		f, ok := m.byName[fieldName]
		if !ok {
			return errors.Wrap(ErrFieldNotFound, fieldName)
		}
		f.SetLocalConfig(cfg)
		f.ReevaluateConfig(m.resolver)
		m.publish()

		return nil
	})
}

// Exec runs fn on the task queue, serialized with every field operation.
// Pipelines processing frames outside the manager go through it so that
// their reads and writes of instance fields never overlap a sweep.
func (m *Manager) Exec(ctx context.Context, fn func() error) error {
	return m.queue.Do(ctx, fn)
}

// SetSlotValue writes one scalar slot of the named field.
func (m *Manager) SetSlotValue(ctx context.Context, fieldName string, slot int, raw string) error {
	return m.writeNamed(ctx, fieldName, func(f *Field) error {
		return f.SetSlotValue(slot, raw)
	})
}

// SetSlotValues writes every scalar slot of the named field at once.
func (m *Manager) SetSlotValues(ctx context.Context, fieldName string, raw []string) error {
	return m.writeNamed(ctx, fieldName, func(f *Field) error {
		return f.SetSlotValues(raw)
	})
}

// SetSelection writes one selection slot of the named field.
func (m *Manager) SetSelection(ctx context.Context, fieldName string, slot int, choice string) error {
	return m.writeNamed(ctx, fieldName, func(f *Field) error {
		return f.SetSelection(slot, choice)
	})
}

func (m *Manager) writeNamed(ctx context.Context, fieldName string, op func(*Field) error) error {
	return m.queue.Do(ctx, func() error {
		if m.State() == Disposed {
			return ErrDisposed
		}
		f, ok := m.byName[fieldName]
		if !ok {
			return errors.Wrap(ErrFieldNotFound, fieldName)
		}

		return m.applyWrite(f, op)
	})
}

// write targets one field instance, which may have gone stale since the
// caller obtained it.
func (m *Manager) write(ctx context.Context, f *Field, op func(*Field) error) error {
	return m.queue.Do(ctx, func() error {
		if m.State() == Disposed {
			return ErrDisposed
		}

		return m.applyWrite(f, op)
	})
}

func (m *Manager) applyWrite(f *Field, op func(*Field) error) error {
	err := op(f)
	info := f.fieldInfo(m.pipeline, m.generation)
	for _, opt := range m.opts {
		if hookErr := opt.OnFieldWrite(info, err); hookErr != nil {
			m.logger.Warn("tuner option failed on write", "field", f.Name(), "error", hookErr)
		}
	}
	if err != nil {
		m.record(f.Name(), "write", err)

		return err
	}
	if f.takeReevaluation() {
		m.reevaluate()
	}
	m.publish()

	return nil
}

// Run consumes the task queue and drives the update sweep until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	if m.State() == Disposed {
		return ErrDisposed
	}
	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.Go(func() error {
		return m.queue.run(dCtx, func(err error) {
			m.logger.Error("queued task failed", "error", err)
		})
	})
	errGrp.Go(func() error {
		ticker := time.NewTicker(m.tick)
		defer ticker.Stop()
		for {
			select {
			case <-dCtx.Done():
				return nil
			case <-ticker.C:
				err := m.Update(dCtx)
				switch {
				case err == nil, errors.Is(err, ErrNotInitialized),
					errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				case errors.Is(err, ErrDisposed):
					return nil
				default:
					m.logger.Warn("update failed", "error", err)
				}
			}
		}
	})

	return errGrp.Wait()
}

// Dispose unsubscribes from pipeline changes, invalidates every field and
// finishes the tuner options.
func (m *Manager) Dispose() error {
	return m.queue.Do(context.Background(), m.dispose)
}

func (m *Manager) dispose() error {
	if m.State() == Disposed {
		return ErrDisposed
	}
	m.state.Store(int32(Disposed))
	if m.listening {
		m.source.Changes().Unsubscribe(m.listenerID)
		m.listening = false
	}
	m.invalidateActive()
	m.fields = nil
	m.order = nil
	m.byName = make(map[string]*Field)
	empty := []*Field{}
	m.active.Store(&empty)
	m.publish()

	for _, opt := range m.opts {
		err := opt.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish tuner option")
		}
	}

	return nil
}

// Snapshot returns the panels of the active fields, in display order. It never
// blocks on the task queue.
func (m *Manager) Snapshot() []model.PanelSpec {
	specs := *m.snapshot.Load()
	out := make([]model.PanelSpec, len(specs))
	copy(out, specs)

	return out
}

func (m *Manager) publish() {
	specs := make([]model.PanelSpec, 0, len(m.fields))
	for _, f := range m.fields {
		field := f
		spec := field.spec()
		spec.SetSlotValue = func(slot int, raw string) error {
			return m.write(context.Background(), field, func(f *Field) error { return f.SetSlotValue(slot, raw) })
		}
		spec.SetSlotValues = func(raw []string) error {
			return m.write(context.Background(), field, func(f *Field) error { return f.SetSlotValues(raw) })
		}
		spec.SetSelection = func(slot int, choice string) error {
			return m.write(context.Background(), field, func(f *Field) error { return f.SetSelection(slot, choice) })
		}
		specs = append(specs, spec)
	}
	m.snapshot.Store(&specs)
}

// Diagnostics returns the retained per-field failures, oldest first.
func (m *Manager) Diagnostics() []model.Diagnostic {
	m.diagMu.Lock()
	defer m.diagMu.Unlock()
	if len(m.diags) < m.diagCap {
		return append([]model.Diagnostic(nil), m.diags...)
	}
	out := make([]model.Diagnostic, 0, len(m.diags))
	out = append(out, m.diags[m.diagAt:]...)

	return append(out, m.diags[:m.diagAt]...)
}

func (m *Manager) record(fieldName, stage string, err error) {
	d := model.Diagnostic{
		FieldName: fieldName,
		Cause:     stage + ": " + err.Error(),
		Time:      time.Now(),
		Err:       err,
	}
	m.logger.Debug("field diagnostic", "field", fieldName, "stage", stage, "error", err)

	m.diagMu.Lock()
	defer m.diagMu.Unlock()
	if len(m.diags) < m.diagCap {
		m.diags = append(m.diags, d)

		return
	}
	m.diags[m.diagAt] = d
	m.diagAt = (m.diagAt + 1) % m.diagCap
}

func pipelineName(instance Instance) string {
	if instance == nil {
		return ""
	}
	if n, ok := instance.(Namer); ok {
		return n.PipelineName()
	}
	t := reflect.TypeOf(instance)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t.Name()
}
