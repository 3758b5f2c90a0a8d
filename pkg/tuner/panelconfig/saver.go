package panelconfig

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

// scheduleParser accepts five-field cron expressions and descriptors such as
// "@every 30s".
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Saver persists a Store on a cron schedule when it changed.
type Saver struct {
	store  *Store
	cron   *cron.Cron
	logger *slog.Logger
}

// NewSaver validates spec and prepares the schedule. Nothing runs until Run.
func NewSaver(store *Store, spec string, logger *slog.Logger) (*Saver, error) {
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Saver{
		store:  store,
		cron:   cron.New(cron.WithParser(scheduleParser)),
		logger: logger.With("component", "panelconfig-saver"),
	}
	if _, err := s.cron.AddFunc(spec, s.saveIfDirty); err != nil {
		return nil, errors.Wrapf(err, "invalid save schedule %q", spec)
	}

	return s, nil
}

// Run starts the schedule and blocks until ctx is done. Pending changes are
// saved one last time before it returns.
func (s *Saver) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()

	if s.store.Dirty() {
		if err := s.store.Save(); err != nil {
			return errors.Wrap(err, "final panel configuration save")
		}
	}

	return nil
}

func (s *Saver) saveIfDirty() {
	if !s.store.Dirty() {
		return
	}
	if err := s.store.Save(); err != nil {
		s.logger.Error("unable to save panel configuration", "error", err)
	}
}
