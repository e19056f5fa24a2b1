// Package analytics reduces filtered score records into reports.
package analytics

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	lf "github.com/bigredeye/gradebook/internal/logfield"
	"github.com/bigredeye/gradebook/internal/models"
	"github.com/bigredeye/gradebook/internal/records"
)

// ErrNoData is returned when the filter matched no records.
var ErrNoData = errors.New("no data found")

const maxClassFanOut = 8

type Engine struct {
	store  records.Store
	logger *zap.Logger
}

func NewEngine(store records.Store, logger *zap.Logger) *Engine {
	return &Engine{store, logger.Named("analytics")}
}

func (e *Engine) reduce(ctx context.Context, filter models.Filter) (*accumulator, error) {
	acc := &accumulator{}
	if err := e.store.ScanScoreRecords(ctx, filter, acc.add); err != nil {
		return nil, pkgerrors.Wrap(err, "Failed to scan score records")
	}
	return acc, nil
}

func (e *Engine) SubjectAnalysis(ctx context.Context, class, examName, subject string) (*SubjectReport, error) {
	acc, err := e.reduce(ctx, models.Filter{Class: class, ExamName: examName, Subject: subject})
	if err != nil {
		return nil, err
	}
	if acc.empty() {
		return nil, ErrNoData
	}

	return &SubjectReport{
		Average: acc.average(),
		Highest: acc.best.Score,
		Lowest:  acc.worst.Score,
	}, nil
}

// ClassAnalysis reports every class having records for the exam subject,
// best average first. Classes with equal averages are ordered by name.
// The result is empty, not ErrNoData, when nothing matched.
func (e *Engine) ClassAnalysis(ctx context.Context, examName, subject string) ([]ClassReport, error) {
	classes, err := e.store.DistinctClasses(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "Failed to list classes")
	}

	reports := make([]*ClassReport, len(classes))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxClassFanOut)
	for i, class := range classes {
		i, class := i, class
		group.Go(func() error {
			acc, err := e.reduce(groupCtx, models.Filter{Class: class, ExamName: examName, Subject: subject})
			if err != nil {
				return err
			}
			if acc.empty() {
				return nil
			}
			reports[i] = &ClassReport{
				ClassName:        class,
				Average:          acc.average(),
				Highest:          acc.best.Score,
				Lowest:           acc.worst.Score,
				NumberOfStudents: acc.count,
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	result := make([]ClassReport, 0, len(reports))
	for _, report := range reports {
		if report != nil {
			result = append(result, *report)
		}
	}
	slices.SortStableFunc(result, func(left, right ClassReport) bool {
		if left.Average != right.Average {
			return left.Average > right.Average
		}
		return left.ClassName < right.ClassName
	})

	e.logger.Debug("Computed class analysis",
		lf.ExamName(examName),
		lf.Subject(subject),
		zap.Int("classes", len(result)),
	)
	return result, nil
}

func (e *Engine) SchoolAnalysis(ctx context.Context, examName, subject string) (*SchoolReport, error) {
	acc, err := e.reduce(ctx, models.Filter{ExamName: examName, Subject: subject})
	if err != nil {
		return nil, err
	}
	if acc.empty() {
		return nil, ErrNoData
	}

	return &SchoolReport{
		Average:       acc.average(),
		Highest:       acc.best.Score,
		Lowest:        acc.worst.Score,
		TotalPassed:   acc.passed,
		TotalFailed:   acc.failed(),
		BestPerformer: acc.bestPerformer(),
	}, nil
}

func (e *Engine) PerformanceStatistics(ctx context.Context, subject string) (*PerformanceReport, error) {
	acc, err := e.reduce(ctx, models.Filter{Subject: subject})
	if err != nil {
		return nil, err
	}
	if acc.empty() {
		return nil, ErrNoData
	}

	return &PerformanceReport{
		TotalStudents:  acc.count,
		TotalPassed:    acc.passed,
		TotalFailed:    acc.failed(),
		BestPerformer:  acc.bestPerformer(),
		WorstPerformer: acc.worstPerformer(),
	}, nil
}
