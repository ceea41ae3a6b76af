// Package billing charges due memberships, one transaction per membership.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	attemptdomain "github.com/smallbiznis/planbilling/internal/attempt/domain"
	"github.com/smallbiznis/planbilling/internal/billing/guard"
	"github.com/smallbiznis/planbilling/internal/clock"
	"github.com/smallbiznis/planbilling/internal/config"
	gatewaydomain "github.com/smallbiznis/planbilling/internal/gateway/domain"
	invoicedomain "github.com/smallbiznis/planbilling/internal/invoice/domain"
	"github.com/smallbiznis/planbilling/internal/lock"
	membershipdomain "github.com/smallbiznis/planbilling/internal/membership/domain"
	notificationdomain "github.com/smallbiznis/planbilling/internal/notification/domain"
	obscontext "github.com/smallbiznis/planbilling/internal/observability/context"
	"github.com/smallbiznis/planbilling/internal/observability/errtrack"
	obslogger "github.com/smallbiznis/planbilling/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/planbilling/internal/observability/metrics"
	paymentmethoddomain "github.com/smallbiznis/planbilling/internal/paymentmethod/domain"
	plandomain "github.com/smallbiznis/planbilling/internal/plan/domain"
	"github.com/smallbiznis/planbilling/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	jobBillingTick       = "billing_tick"
	idempotencyKeyPrefix = "plan-invoice-"
	defaultWorkers       = 4
	defaultChargeTimeout = 15 * time.Second
)

// Outcome of one membership in a tick.
type Outcome string

const (
	OutcomeCharged   Outcome = "charged"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomePending   Outcome = "pending"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeDeferred  Outcome = "deferred"
	OutcomeLockHeld  Outcome = "lock_held"
	OutcomeError     Outcome = "error"
)

// TickResult counts what one RunTick did.
type TickResult struct {
	Due       int `json:"due"`
	Charged   int `json:"charged"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	Pending   int `json:"pending"`
	Skipped   int `json:"skipped"`
	Deferred  int `json:"deferred"`
	Errors    int `json:"errors"`
}

func (r *TickResult) add(o Outcome) {
	switch o {
	case OutcomeCharged:
		r.Charged++
	case OutcomeFailed:
		r.Failed++
	case OutcomeCancelled:
		r.Cancelled++
	case OutcomePending:
		r.Pending++
	case OutcomeSkipped, OutcomeLockHeld:
		r.Skipped++
	case OutcomeDeferred:
		r.Deferred++
	case OutcomeError:
		r.Errors++
	}
}

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Config      config.Config
	Policy      *config.BillingConfigHolder
	Memberships membershipdomain.Service
	Plans       plandomain.Service
	Methods     paymentmethoddomain.Service
	Invoices    invoicedomain.Service
	Attempts    attemptdomain.Service
	Gateway     gatewaydomain.Gateway
	Notifier    notificationdomain.Notifier
	Locker      *lock.MembershipLocker `optional:"true"`
	Metrics     *obsmetrics.Metrics    `optional:"true"`
	Tracker     *errtrack.Tracker      `optional:"true"`
}

type Orchestrator struct {
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	policy        *config.BillingConfigHolder
	workers       int
	chargeTimeout time.Duration

	memberships membershipdomain.Service
	plans       plandomain.Service
	methods     paymentmethoddomain.Service
	invoices    invoicedomain.Service
	attempts    attemptdomain.Service
	gateway     gatewaydomain.Gateway
	notifier    notificationdomain.Notifier
	locker      *lock.MembershipLocker
	metrics     *obsmetrics.Metrics
	tracker     *errtrack.Tracker
	tracer      trace.Tracer
}

func New(p Params) *Orchestrator {
	workers := p.Config.Scheduler.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	chargeTimeout := p.Config.Gateway.Timeout
	if chargeTimeout <= 0 {
		chargeTimeout = defaultChargeTimeout
	}
	return &Orchestrator{
		db:            p.DB,
		log:           p.Log.Named("billing.orchestrator"),
		clock:         p.Clock,
		policy:        p.Policy,
		workers:       workers,
		chargeTimeout: chargeTimeout,
		memberships:   p.Memberships,
		plans:         p.Plans,
		methods:       p.Methods,
		invoices:      p.Invoices,
		attempts:      p.Attempts,
		gateway:       p.Gateway,
		notifier:      p.Notifier,
		locker:        p.Locker,
		metrics:       p.Metrics,
		tracker:       p.Tracker,
		tracer:        otel.Tracer("planbilling/billing"),
	}
}

// RunTick bills every membership due now. Failures of one membership are
// logged and counted; the returned error joins them for the caller.
func (o *Orchestrator) RunTick(ctx context.Context) (TickResult, error) {
	ctx, _ = correlation.EnsureCorrelationID(ctx)
	ctx = obscontext.WithActor(ctx, "system", "billing")
	ctx, span := o.tracer.Start(ctx, "billing.tick")
	defer span.End()

	now := o.clock.Now()
	due, err := o.memberships.DueForBilling(ctx, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "due query failed")
		return TickResult{}, fmt.Errorf("due for billing: %w", err)
	}
	span.SetAttributes(attribute.Int("billing.due", len(due)))

	var (
		mu     sync.Mutex
		result = TickResult{Due: len(due)}
		errs   []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for _, m := range due {
		membershipID := m.ID
		g.Go(func() error {
			outcome, err := o.processMembership(gctx, membershipID)
			mu.Lock()
			result.add(outcome)
			if err != nil {
				errs = append(errs, fmt.Errorf("membership %d: %w", membershipID, err))
			}
			mu.Unlock()
			// Never return err here; it would cancel the other memberships.
			return nil
		})
	}
	_ = g.Wait()

	sched := obsmetrics.Scheduler()
	sched.AddBatchProcessed(jobBillingTick, "plan_members", len(due))

	joined := errors.Join(errs...)
	if joined != nil {
		span.SetStatus(codes.Error, "memberships failed")
	}
	o.logger(ctx).Info("billing tick finished",
		zap.Int("due", result.Due),
		zap.Int("charged", result.Charged),
		zap.Int("failed", result.Failed),
		zap.Int("cancelled", result.Cancelled),
		zap.Int("pending", result.Pending),
		zap.Int("skipped", result.Skipped),
		zap.Int("deferred", result.Deferred),
		zap.Int("errors", result.Errors),
	)
	return result, joined
}

// membershipRun carries what the transaction decided out to the post-commit
// notification.
type membershipRun struct {
	outcome  Outcome
	memberID int64
	invoice  *invoicedomain.Invoice
	charge   chargeOutcome
}

func (o *Orchestrator) processMembership(ctx context.Context, membershipID int64) (Outcome, error) {
	ctx = obscontext.WithMembershipID(ctx, strconv.FormatInt(membershipID, 10))
	ctx, span := o.tracer.Start(ctx, "billing.membership",
		trace.WithAttributes(attribute.Int64("membership.id", membershipID)),
	)
	defer span.End()
	sched := obsmetrics.Scheduler()

	lockStart := time.Now()
	release, ok, err := o.locker.Acquire(ctx, membershipID)
	if o.locker.Enabled() {
		sched.ObserveDBLockWait(obsmetrics.LockResourceMembershipDistLock, time.Since(lockStart))
	}
	if err != nil {
		return o.fail(ctx, span, membershipID, "lock", err)
	}
	if !ok {
		sched.IncBatchDeferred(jobBillingTick, obsmetrics.SchedulerBatchDeferredReasonLockHeld)
		sched.IncMembershipOutcome(obsmetrics.MembershipOutcomeSkipped)
		return OutcomeLockHeld, nil
	}
	defer release()

	run := membershipRun{}
	err = o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return o.billInTx(ctx, tx, membershipID, &run)
	})
	if err != nil {
		return o.fail(ctx, span, membershipID, "transaction", err)
	}

	span.SetAttributes(attribute.String("billing.outcome", string(run.outcome)))
	o.afterCommit(ctx, run)
	return run.outcome, nil
}

func (o *Orchestrator) billInTx(ctx context.Context, tx *gorm.DB, membershipID int64, run *membershipRun) error {
	sched := obsmetrics.Scheduler()

	lockStart := time.Now()
	m, err := o.memberships.LockForBilling(ctx, tx, membershipID)
	sched.ObserveDBLockWait(obsmetrics.LockResourceMembershipForBilling, time.Since(lockStart))
	if err != nil {
		return fmt.Errorf("lock membership: %w", err)
	}
	run.memberID = m.MemberID
	ctx = obscontext.WithMemberID(ctx, strconv.FormatInt(m.MemberID, 10))

	now := o.clock.Now()
	if err := guard.EnsureMembershipBillable(m.Status, m.NextBillingAt, now); err != nil {
		// Cancelled, paused or already billed since the due query ran.
		run.outcome = OutcomeSkipped
		return nil
	}
	if err := guard.EnsureRetryWindow(m.RetryAfter, now); err != nil {
		sched.IncBatchDeferred(jobBillingTick, obsmetrics.SchedulerBatchDeferredReasonRetryBackoff)
		run.outcome = OutcomeDeferred
		return nil
	}

	plans := o.plans.WithTx(tx)
	price, err := plans.ResolvePrice(ctx, m.PlanID, m.TermMonths, plandomain.NormalizeBillingMode(m.BillingMode))
	if err != nil {
		return fmt.Errorf("resolve price: %w", err)
	}
	plan, err := plans.GetPlan(ctx, m.PlanID)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}

	invoice, err := o.ensureInvoice(ctx, tx, m, plan, price)
	if err != nil {
		return err
	}
	run.invoice = invoice
	ctx = obscontext.WithInvoiceUID(ctx, invoice.UID)

	method, err := o.methods.WithTx(tx).DefaultMethod(ctx, m.MemberID)
	switch {
	case errors.Is(err, paymentmethoddomain.ErrMethodNotFound):
		run.charge = noPaymentMethod()
	case err != nil:
		return fmt.Errorf("default payment method: %w", err)
	default:
		run.charge = o.charge(ctx, plan, invoice, method)
	}

	if _, err := o.attempts.RecordAttempt(ctx, tx, attemptdomain.RecordRequest{
		InvoiceID:         invoice.ID,
		AttemptedAt:       now,
		Result:            run.charge.result,
		FailureReason:     run.charge.reason,
		FailureMessage:    run.charge.message,
		ExternalAttemptID: run.charge.externalID,
		ReceiptURL:        run.charge.receiptURL,
		RawResponse:       run.charge.raw,
	}); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	o.metrics.RecordPaymentAttempt(ctx, o.gateway.Provider(), string(run.charge.result), run.charge.reason)

	switch run.charge.result {
	case attemptdomain.ResultSuccess:
		if err := o.invoices.MarkPaid(ctx, tx, invoice.ID, now); err != nil {
			return fmt.Errorf("mark invoice paid: %w", err)
		}
		if err := o.memberships.RecordSuccess(ctx, tx, m, now); err != nil {
			return fmt.Errorf("record success: %w", err)
		}
		run.outcome = OutcomeCharged
	case attemptdomain.ResultFailure:
		failure, err := o.memberships.RecordFailure(ctx, tx, m, now, o.policy.Get().Dunning)
		if err != nil {
			return fmt.Errorf("record failure: %w", err)
		}
		run.outcome = OutcomeFailed
		if failure.Cancelled {
			if err := o.invoices.Void(ctx, tx, invoice.ID, membershipdomain.CancelReasonDunningExhausted, now); err != nil {
				return fmt.Errorf("void invoice: %w", err)
			}
			run.outcome = OutcomeCancelled
		}
	default:
		// The invoice stays OPEN; the next tick asks again with the same
		// idempotency key.
		run.outcome = OutcomePending
	}
	return nil
}

// ensureInvoice reuses the OPEN invoice of the cycle so retries share one uid
// and therefore one idempotency key.
func (o *Orchestrator) ensureInvoice(ctx context.Context, tx *gorm.DB, m *membershipdomain.Membership, plan *plandomain.Plan, price *plandomain.ResolvedPrice) (*invoicedomain.Invoice, error) {
	invoice, err := o.invoices.FindOpenForPeriod(ctx, tx, m.ID, m.NextBillingAt)
	if err == nil {
		return invoice, nil
	}
	if !errors.Is(err, invoicedomain.ErrInvoiceNotFound) {
		return nil, fmt.Errorf("find open invoice: %w", err)
	}

	invoice, err = o.invoices.Create(ctx, tx, invoicedomain.CreateInvoiceRequest{
		MembershipID: m.ID,
		PlanID:       m.PlanID,
		PriceID:      price.ID,
		TermMonths:   price.TermMonths,
		BillingMode:  string(price.BillingMode),
		Amount:       price.Amount,
		Currency:     price.Currency,
		PeriodStart:  m.NextBillingAt,
		PeriodEnd:    membershipdomain.AddMonths(m.NextBillingAt, m.TermMonths),
		Metadata: map[string]any{
			"plan_code": plan.Code,
			"member_id": m.MemberID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	o.metrics.RecordInvoiceCreated(ctx, invoice.BillingMode)
	return invoice, nil
}

func (o *Orchestrator) charge(ctx context.Context, plan *plandomain.Plan, invoice *invoicedomain.Invoice, method *paymentmethoddomain.PaymentMethod) chargeOutcome {
	ctx, span := o.tracer.Start(ctx, "gateway.charge", trace.WithAttributes(
		attribute.String("gateway.provider", o.gateway.Provider()),
		attribute.String("invoice.uid", invoice.UID),
	))
	defer span.End()

	chargeCtx, cancel := context.WithTimeout(ctx, o.chargeTimeout)
	defer cancel()

	start := time.Now()
	res, err := o.gateway.Charge(chargeCtx, gatewaydomain.ChargeRequest{
		Token:          method.GatewayToken,
		CustomerRef:    method.CustomerRef,
		Amount:         invoice.Amount,
		Currency:       invoice.Currency,
		IdempotencyKey: idempotencyKeyPrefix + invoice.UID,
		OrderID:        invoice.UID,
		OrderName:      orderName(plan, invoice),
	})
	o.metrics.ObserveCharge(ctx, o.gateway.Provider(), time.Since(start))
	if err == nil && chargeCtx.Err() != nil {
		// An adapter that ignored the deadline still counts as a timeout.
		err = chargeCtx.Err()
	}

	out := classifyCharge(res, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, out.reason)
	}
	span.SetAttributes(attribute.String("charge.result", string(out.result)))
	return out
}

func orderName(plan *plandomain.Plan, invoice *invoicedomain.Invoice) string {
	if invoice.TermMonths == 1 {
		return plan.Name + " 1 month"
	}
	return fmt.Sprintf("%s %d months", plan.Name, invoice.TermMonths)
}

func (o *Orchestrator) afterCommit(ctx context.Context, run membershipRun) {
	sched := obsmetrics.Scheduler()
	switch run.outcome {
	case OutcomeCharged:
		sched.IncMembershipOutcome(obsmetrics.MembershipOutcomeCharged)
		o.notifier.Notify(ctx, run.memberID, notificationdomain.TypePaymentSucceeded,
			"Payment received",
			fmt.Sprintf("We charged %d %s for invoice %s.", run.invoice.Amount, run.invoice.Currency, run.invoice.UID),
		)
	case OutcomeFailed:
		sched.IncMembershipOutcome(obsmetrics.MembershipOutcomeFailed)
		o.notifier.Notify(ctx, run.memberID, notificationdomain.TypePaymentFailed,
			"Payment failed",
			fmt.Sprintf("We could not charge invoice %s (%s). We will try again.", run.invoice.UID, run.charge.reason),
		)
	case OutcomeCancelled:
		sched.IncMembershipOutcome(obsmetrics.MembershipOutcomeCancelled)
		o.notifier.Notify(ctx, run.memberID, notificationdomain.TypeMembershipCancelled,
			"Membership cancelled",
			fmt.Sprintf("Your membership was cancelled after repeated failed payments (%s).", run.charge.reason),
		)
	default:
		sched.IncMembershipOutcome(obsmetrics.MembershipOutcomeSkipped)
	}
}

func (o *Orchestrator) fail(ctx context.Context, span trace.Span, membershipID int64, stage string, err error) (Outcome, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage)

	sched := obsmetrics.Scheduler()
	sched.IncMembershipOutcome(obsmetrics.MembershipOutcomeError)
	sched.IncJobError(jobBillingTick, err)

	o.logger(ctx).Error("billing membership failed",
		zap.Int64("membership_id", membershipID),
		zap.String("stage", stage),
		zap.String("error_type", obsmetrics.ClassifySchedulerErrorType(err)),
		zap.Bool("retryable", obsmetrics.IsSchedulerErrorRetryable(err)),
		zap.Error(err),
	)
	o.tracker.Capture(ctx, err, map[string]any{
		"membership_id": membershipID,
		"stage":         stage,
	})
	return OutcomeError, err
}

func (o *Orchestrator) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, o.log)
}
