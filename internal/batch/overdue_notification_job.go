package batch

import (
	"context"
	"fmt"
	"library-api/internal/domain/loan"
	"library-api/internal/infrastructure/monitoring"
	"library-api/internal/notification"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	runStatusSuccess = "success"
	runStatusEmpty   = "empty"
	runStatusError   = "error"

	skipReasonInvalidAddress = "invalid_address"
)

var addressValidator = validator.New()

type OverdueLoanFinder interface {
	GetOverdueLoans(ctx context.Context, asOf time.Time) ([]loan.Loan, error)
}

// OverdueNotificationJob sends one reminder batch per run to every customer
// holding a loan older than the grace period.
type OverdueNotificationJob struct {
	loans   OverdueLoanFinder
	sender  notification.Sender
	message string
	now     func() time.Time
	logger  *slog.Logger
}

func NewOverdueNotificationJob(
	loans OverdueLoanFinder,
	sender notification.Sender,
	message string,
	clock func() time.Time,
	logger *slog.Logger,
) *OverdueNotificationJob {
	if loans == nil || sender == nil || logger == nil {
		panic("OverdueNotificationJob dependencies cannot be nil")
	}
	if clock == nil {
		clock = time.Now
	}
	return &OverdueNotificationJob{
		loans:   loans,
		sender:  sender,
		message: message,
		now:     clock,
		logger:  logger.With("job", "OverdueNotification"),
	}
}

func (j *OverdueNotificationJob) Run(ctx context.Context) error {
	return j.RunAt(ctx, j.now())
}

// RunAt performs a single scan as of now. Failures are reported, never retried.
func (j *OverdueNotificationJob) RunAt(ctx context.Context, now time.Time) error {
	startTime := time.Now()
	logCtx := j.logger.With(slog.Time("asOf", now), slog.Time("threshold", loan.OverdueThreshold(now)))
	logCtx.InfoContext(ctx, "Starting overdue loan notification job.")

	overdue, err := j.loans.GetOverdueLoans(ctx, now)
	if err != nil {
		monitoring.RecordNotifierRun(runStatusError, 0)
		logCtx.ErrorContext(ctx, "Failed to fetch overdue loans, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to get overdue loans: %w", err)
	}

	recipients := j.notificationAddresses(ctx, overdue)
	if len(recipients) == 0 {
		monitoring.RecordNotifierRun(runStatusEmpty, 0)
		logCtx.InfoContext(ctx, "No overdue loans found, nothing to send.", slog.Duration("duration", time.Since(startTime)))
		return nil
	}

	if err := j.sender.SendBatch(ctx, j.message, recipients); err != nil {
		monitoring.RecordNotifierRun(runStatusError, 0)
		logCtx.ErrorContext(ctx, "Failed to send overdue notices.", slog.Int("recipients", len(recipients)), slog.Any("error", err))
		return fmt.Errorf("failed to send overdue notices: %w", err)
	}

	monitoring.RecordNotifierRun(runStatusSuccess, len(recipients))
	logCtx.InfoContext(ctx, "Overdue loan notification job finished successfully.",
		slog.Int("overdue_loans", len(overdue)),
		slog.Int("recipients", len(recipients)),
		slog.Duration("duration", time.Since(startTime)),
	)
	return nil
}

// notificationAddresses keeps the first occurrence of each deliverable address,
// in scan order. Loans whose address is not a mailbox are logged and counted.
func (j *OverdueNotificationJob) notificationAddresses(ctx context.Context, loans []loan.Loan) []string {
	seen := make(map[string]struct{}, len(loans))
	addresses := make([]string, 0, len(loans))
	for _, l := range loans {
		addr := l.NotificationAddress()
		if addr == "" {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		if addressValidator.Var(addr, "email") != nil {
			monitoring.RecordRecipientSkipped(skipReasonInvalidAddress)
			j.logger.WarnContext(ctx, "Overdue loan has no deliverable address, skipping.",
				slog.Int64("loanID", l.ID),
				slog.String("address", addr),
			)
			continue
		}
		addresses = append(addresses, addr)
	}
	return addresses
}
