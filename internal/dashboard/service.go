package dashboard

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"vigil/internal/analysis"
	"vigil/internal/subject"
	"vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
)

const gatherTimeout = 5 * time.Second

// SubjectSource is the dashboard's view of subject persistence.
type SubjectSource interface {
	List(ctx context.Context) ([]*subject.Subject, error)
	CountByLevel(ctx context.Context) (map[domain.RiskLevel]int, error)
}

// HistorySource reports when each subject's state last changed.
type HistorySource interface {
	LatestChangeTimes(ctx context.Context) (map[domain.SubjectID]time.Time, error)
}

// OutcomeSource reports each subject's most recent analysis outcome.
type OutcomeSource interface {
	LatestPerSubject(ctx context.Context) (map[domain.SubjectID]*analysis.Outcome, error)
}

// Entry is one subject row on the dashboard.
type Entry struct {
	Subject       *subject.Subject
	LastChangedAt *time.Time
	LatestOutcome *analysis.Outcome
}

// Overview is the dashboard snapshot: totals, per-level counts, and subjects
// grouped by current level, most urgent first.
type Overview struct {
	Total      int
	Counts     map[domain.RiskLevel]int
	ByLevel    map[domain.RiskLevel][]Entry
	GatheredAt time.Time
}

type Service struct {
	subjects SubjectSource
	history  HistorySource
	outcomes OutcomeSource
	logger   *slog.Logger
}

func NewService(subjects SubjectSource, history HistorySource, outcomes OutcomeSource, logger *slog.Logger) *Service {
	return &Service{subjects: subjects, history: history, outcomes: outcomes, logger: logger}
}

// Overview gathers the dashboard's sources in parallel with shared
// cancellation on first failure.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	ctx, cancel := context.WithTimeout(ctx, gatherTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	var (
		subjects    []*subject.Subject
		counts      map[domain.RiskLevel]int
		changeTimes map[domain.SubjectID]time.Time
		latest      map[domain.SubjectID]*analysis.Outcome
	)
	g.Go(func() error {
		var err error
		subjects, err = s.subjects.List(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.subjects.CountByLevel(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		changeTimes, err = s.history.LatestChangeTimes(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		latest, err = s.outcomes.LatestPerSubject(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "gather dashboard", err)
	}

	overview := &Overview{
		Total:      len(subjects),
		Counts:     make(map[domain.RiskLevel]int, len(domain.RiskLevels())),
		ByLevel:    make(map[domain.RiskLevel][]Entry, len(domain.RiskLevels())),
		GatheredAt: time.Now(),
	}
	for _, level := range domain.RiskLevels() {
		overview.Counts[level] = counts[level]
	}
	for _, subj := range subjects {
		entry := Entry{Subject: subj, LatestOutcome: latest[subj.ID]}
		if t, ok := changeTimes[subj.ID]; ok {
			changed := t
			entry.LastChangedAt = &changed
		}
		overview.ByLevel[subj.Level] = append(overview.ByLevel[subj.Level], entry)
	}
	return overview, nil
}
