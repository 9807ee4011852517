package recurring

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/internal/ledger"
	"github.com/angelmondragon/enrollment-backend/pkg/auth"
	"github.com/angelmondragon/enrollment-backend/pkg/config"
	"github.com/angelmondragon/enrollment-backend/pkg/db"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
	"github.com/angelmondragon/enrollment-backend/pkg/logger"
	"github.com/angelmondragon/enrollment-backend/pkg/metrics"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox"
)

const defaultBatchSize = 100

// ReasonPeriodTooFar rejects billing more than one month ahead.
const ReasonPeriodTooFar = "period_too_far"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Generator creates the per-period ledger entries for recurring obligation
// sources. Only the scheduler principal bills every organization; any other
// caller is limited to its own.
type Generator interface {
	GenerateRecurringFees(ctx context.Context, principal auth.Principal, period Period) (*Summary, error)
}

// OrganizationTotal aggregates the entries created for one organization.
type OrganizationTotal struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	Created        int       `json:"created"`
	TotalCents     int64     `json:"total_cents"`
	Total          string    `json:"total"`
}

// Summary reports a generator run. Errors holds one error per failed batch.
type Summary struct {
	Period        string              `json:"period"`
	Created       int                 `json:"created"`
	Skipped       int                 `json:"skipped"`
	Failed        int                 `json:"failed"`
	Errors        error               `json:"-"`
	Organizations []OrganizationTotal `json:"organizations"`
}

// ErrorMessages flattens Errors for rendering.
func (s *Summary) ErrorMessages() []string {
	errs := multierr.Errors(s.Errors)
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

type Deps struct {
	Sources SourceRepository
	Ledger  ledger.Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Metrics *metrics.PipelineMetrics
	Logger  *logger.Logger
}

type generator struct {
	sources   SourceRepository
	ledger    ledger.Repository
	tx        txRunner
	outbox    outboxPublisher
	metrics   *metrics.PipelineMetrics
	logg      *logger.Logger
	batchSize int
	now       func() time.Time
}

func NewGenerator(deps Deps, cfg config.RecurringConfig) (Generator, error) {
	if deps.Sources == nil {
		return nil, fmt.Errorf("source repository required")
	}
	if deps.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &generator{
		sources:   deps.Sources,
		ledger:    deps.Ledger,
		tx:        deps.Tx,
		outbox:    deps.Outbox,
		metrics:   deps.Metrics,
		logg:      deps.Logger,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

// GenerateRecurringFees bills every active allocation once for period. The
// set of already-billed sources is computed once, before any batch runs. A
// failed batch is rolled back and reported in Summary.Errors while the
// remaining batches continue. The returned error is reserved for failures
// that prevent the run from starting and for cancellation.
func (g *generator) GenerateRecurringFees(ctx context.Context, principal auth.Principal, period Period) (*Summary, error) {
	organizationID, err := billingScope(principal)
	if err != nil {
		return nil, err
	}
	if period.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period is required")
	}
	if limit := CurrentPeriod(g.now).Next(); period.start.After(limit.start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("period %s is later than %s", period, limit)).WithReason(ReasonPeriodTooFar)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := period.String()
	summary := &Summary{Period: key}

	allocations, err := g.sources.ListActiveAllocations(ctx, organizationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list hostel allocations")
	}
	existing, err := g.ledger.ListPeriodEntries(ctx, organizationID, enums.FeePurposeHostel, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list period entries")
	}

	pending, skipped := pendingAllocations(allocations, existing, key)
	summary.Skipped = skipped

	totals := map[uuid.UUID]*OrganizationTotal{}
	var runErr error
	for start := 0; start < len(pending); start += g.batchSize {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		end := start + g.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		created, conflicts, err := g.createBatch(ctx, batch, period)
		if err != nil {
			summary.Failed += len(batch)
			summary.Errors = multierr.Append(summary.Errors, fmt.Errorf("batch %d-%d: %w", start, end-1, err))
			g.logBatchFailure(ctx, key, start, err)
			continue
		}
		summary.Skipped += conflicts
		summary.Created += len(created)
		for _, entry := range created {
			total, ok := totals[entry.OrganizationID]
			if !ok {
				total = &OrganizationTotal{OrganizationID: entry.OrganizationID}
				totals[entry.OrganizationID] = total
			}
			total.Created++
			total.TotalCents += entry.AmountRequiredCents
		}
	}

	summary.Organizations = sortedTotals(totals)
	for _, total := range summary.Organizations {
		g.notify(ctx, key, period, total)
	}

	g.metrics.AddRecurringFees("created", summary.Created)
	g.metrics.AddRecurringFees("skipped", summary.Skipped)
	g.metrics.AddRecurringFees("failed", summary.Failed)
	if g.logg != nil {
		logCtx := g.logg.WithFields(ctx, map[string]any{
			"period":  key,
			"created": summary.Created,
			"skipped": summary.Skipped,
			"failed":  summary.Failed,
		})
		g.logg.Info(logCtx, "recurring fees generated")
	}
	return summary, runErr
}

// billingScope returns the organization a run is limited to. uuid.Nil means
// every organization and is only granted to the scheduler.
func billingScope(principal auth.Principal) (uuid.UUID, error) {
	if principal.SpansAllOrganizations() {
		return uuid.Nil, nil
	}
	if err := principal.Require(enums.RoleAdmin); err != nil {
		return uuid.Nil, err
	}
	return principal.OrganizationID, nil
}

// pendingAllocations drops sources already billed for the period, matching on
// the allocation id or, failing that, on the trainee.
func pendingAllocations(allocations []models.HostelAllocation, existing []models.LedgerEntry, period string) ([]models.HostelAllocation, int) {
	billedSources := make(map[uuid.UUID]struct{}, len(existing))
	billedTrainees := make(map[uuid.UUID]struct{}, len(existing))
	for _, entry := range existing {
		if entry.Period == nil || *entry.Period != period {
			continue
		}
		if entry.SourceID != nil {
			billedSources[*entry.SourceID] = struct{}{}
		}
		if entry.TraineeID != nil {
			billedTrainees[*entry.TraineeID] = struct{}{}
		}
	}

	pending := make([]models.HostelAllocation, 0, len(allocations))
	skipped := 0
	for _, allocation := range allocations {
		if _, ok := billedSources[allocation.ID]; ok {
			skipped++
			continue
		}
		if _, ok := billedTrainees[allocation.TraineeID]; ok {
			skipped++
			continue
		}
		billedTrainees[allocation.TraineeID] = struct{}{}
		pending = append(pending, allocation)
	}
	return pending, skipped
}

func (g *generator) createBatch(ctx context.Context, batch []models.HostelAllocation, period Period) ([]models.LedgerEntry, int, error) {
	var (
		created   []models.LedgerEntry
		conflicts int
	)
	err := g.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created = created[:0]
		conflicts = 0
		for _, allocation := range batch {
			entry := hostelEntry(allocation, period)
			err := tx.Transaction(func(inner *gorm.DB) error {
				return g.ledger.WithTx(inner).CreateEntry(ctx, &entry)
			})
			if err != nil {
				if db.IsUniqueViolation(err, "") {
					conflicts++
					continue
				}
				return fmt.Errorf("allocation %s: %w", allocation.ID, err)
			}
			created = append(created, entry)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return created, conflicts, nil
}

func hostelEntry(allocation models.HostelAllocation, period Period) models.LedgerEntry {
	entry := ledger.NewEntry(allocation.OrganizationID, enums.FeePurposeHostel, allocation.MonthlyAmountCents,
		fmt.Sprintf("Hostel fee %s", period.Label()))
	sourceID := allocation.ID
	traineeID := allocation.TraineeID
	key := period.String()
	entry.SourceID = &sourceID
	entry.TraineeID = &traineeID
	entry.Period = &key
	return entry
}

func sortedTotals(totals map[uuid.UUID]*OrganizationTotal) []OrganizationTotal {
	out := make([]OrganizationTotal, 0, len(totals))
	for _, total := range totals {
		total.Total = ledger.FormatCents(total.TotalCents)
		out = append(out, *total)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OrganizationID.String() < out[j].OrganizationID.String()
	})
	return out
}

// notify records the per-organization summary event. Failures are logged only.
func (g *generator) notify(ctx context.Context, key string, period Period, total OrganizationTotal) {
	err := g.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return g.outbox.Emit(ctx, tx, generatedEvent(key, period, total))
	})
	if err != nil && g.logg != nil {
		logCtx := g.logg.WithOrganizationID(ctx, total.OrganizationID.String())
		logCtx = g.logg.WithField(logCtx, "period", key)
		g.logg.Error(logCtx, "recurring fee notification failed", err)
	}
}

func (g *generator) logBatchFailure(ctx context.Context, period string, start int, err error) {
	if g.logg == nil {
		return
	}
	logCtx := g.logg.WithFields(ctx, map[string]any{"period": period, "batch_start": start})
	g.logg.Error(logCtx, "recurring fee batch failed", err)
}

// CurrentPeriod is the billing month containing now.
func CurrentPeriod(now func() time.Time) Period {
	if now == nil {
		now = time.Now
	}
	return PeriodOf(now())
}
