// Package receipt renders PDF receipts for paid plan invoices.
package receipt

import (
	"context"
	"errors"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	attemptdomain "github.com/smallbiznis/planbilling/internal/attempt/domain"
	invoicedomain "github.com/smallbiznis/planbilling/internal/invoice/domain"
	memberdomain "github.com/smallbiznis/planbilling/internal/member/domain"
	membershipdomain "github.com/smallbiznis/planbilling/internal/membership/domain"
	plandomain "github.com/smallbiznis/planbilling/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

var ErrInvoiceNotPaid = errors.New("invoice_not_paid")

// Data is everything printed on a receipt.
type Data struct {
	Number        string
	InvoiceUID    string
	DatePaid      string
	ServicePeriod string
	BillToName    string
	BillToEmail   string
	Description   string
	Amount        string
	Total         string
	TransactionID string
	ReceiptURL    string
}

type Params struct {
	fx.In

	Log         *zap.Logger
	Invoices    invoicedomain.Service
	Attempts    attemptdomain.Service
	Memberships membershipdomain.Service
	Members     memberdomain.Service
	Plans       plandomain.Service
}

type Renderer struct {
	log         *zap.Logger
	invoices    invoicedomain.Service
	attempts    attemptdomain.Service
	memberships membershipdomain.Service
	members     memberdomain.Service
	plans       plandomain.Service
	template    string
}

func New(p Params) *Renderer {
	return &Renderer{
		log:         p.Log.Named("receipt.renderer"),
		invoices:    p.Invoices,
		attempts:    p.Attempts,
		memberships: p.Memberships,
		members:     p.Members,
		plans:       p.Plans,
		template:    DefaultNumberTemplate,
	}
}

// Build collects the receipt data of a PAID invoice.
func (r *Renderer) Build(ctx context.Context, uid string) (Data, error) {
	invoice, err := r.invoices.GetByUID(ctx, uid)
	if err != nil {
		return Data{}, err
	}
	if invoice.Status != invoicedomain.InvoiceStatusPaid || invoice.PaidAt == nil {
		return Data{}, ErrInvoiceNotPaid
	}

	membership, err := r.memberships.Get(ctx, invoice.MembershipID)
	if err != nil {
		return Data{}, fmt.Errorf("load membership: %w", err)
	}
	member, err := r.members.GetMember(ctx, membership.MemberID)
	if err != nil {
		return Data{}, fmt.Errorf("load member: %w", err)
	}
	plan, err := r.plans.GetPlan(ctx, invoice.PlanID)
	if err != nil {
		return Data{}, fmt.Errorf("load plan: %w", err)
	}
	attempts, err := r.attempts.HistoryByInvoiceUID(ctx, invoice.UID)
	if err != nil {
		return Data{}, fmt.Errorf("load attempts: %w", err)
	}

	number, err := FormatNumber(r.template, *invoice.PaidAt, invoice.UID)
	if err != nil {
		return Data{}, err
	}

	amount := FormatAmount(invoice.Amount, invoice.Currency)
	data := Data{
		Number:        number,
		InvoiceUID:    invoice.UID,
		DatePaid:      invoice.PaidAt.UTC().Format(dateLayout),
		ServicePeriod: invoice.PeriodStart.UTC().Format(dateLayout) + " - " + invoice.PeriodEnd.UTC().Format(dateLayout),
		BillToName:    member.DisplayName,
		BillToEmail:   member.Email,
		Description:   describe(plan.Name, invoice.TermMonths, invoice.BillingMode),
		Amount:        amount,
		Total:         amount,
	}
	for _, a := range attempts {
		if a.Result != attemptdomain.ResultSuccess {
			continue
		}
		data.TransactionID = a.ExternalAttemptID
		if a.ReceiptURL != nil {
			data.ReceiptURL = *a.ReceiptURL
		}
		break
	}
	return data, nil
}

// Render returns the receipt PDF of a PAID invoice.
func (r *Renderer) Render(ctx context.Context, uid string) ([]byte, error) {
	data, err := r.Build(ctx, uid)
	if err != nil {
		return nil, err
	}
	doc, err := Generate(data)
	if err != nil {
		r.log.Error("receipt render failed", zap.String("invoice_uid", uid), zap.Error(err))
		return nil, err
	}
	return doc, nil
}

func describe(planName string, termMonths int, mode string) string {
	if termMonths == 1 {
		return fmt.Sprintf("%s, 1 month (%s)", planName, mode)
	}
	return fmt.Sprintf("%s, %d months (%s)", planName, termMonths, mode)
}

// Generate lays the receipt out as a single-page PDF.
func Generate(data Data) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(12, "Receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Receipt number: "+data.Number, props.Text{Top: 0}),
			text.New("Date paid: "+data.DatePaid, props.Text{Top: 4}),
			text.New("Service period: "+data.ServicePeriod, props.Text{Top: 8}),
		),
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(data.BillToName, props.Text{Top: 5}),
			text.New(data.BillToEmail, props.Text{Top: 9}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, data.Total+" paid on "+data.DatePaid, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		text.NewCol(8, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(12,
		text.NewCol(8, data.Description, props.Text{Size: 9}),
		text.NewCol(4, data.Amount, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(2, data.Total, props.Text{Size: 9, Align: align.Right}),
	)

	m.AddRow(20,
		col.New(12).Add(
			text.New("Invoice: "+data.InvoiceUID, props.Text{Size: 8, Top: 4}),
			text.New("Transaction: "+data.TransactionID, props.Text{Size: 8, Top: 8}),
			text.New(data.ReceiptURL, props.Text{Size: 8, Top: 12}),
		),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
