package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// State of a capture flow instance.
type State string

const (
	StateCollecting State = "COLLECTING"
	StateConfirming State = "CONFIRMING"
	StateSubmitting State = "SUBMITTING"
	StateDone       State = "DONE"
	StateCancelled  State = "CANCELLED"
)

// ErrCancelled is returned when the user dismisses the dialog. No remote
// call has been made.
var ErrCancelled = errors.New("payments: capture cancelled")

const (
	fieldPaidAmount    = "paid_amount"
	fieldModeOfPayment = "mode_of_payment"
	fieldReferenceNo   = "reference_no"
	fieldReferenceDate = "reference_date"
)

// Flow drives one interactive payment capture: collect details, confirm,
// submit once, report the outcome. A Flow instance is single-use.
type Flow struct {
	dialog  Dialog
	modes   ModeDirectory
	sink    Sink
	logger  *slog.Logger
	unit    currency.Unit
	printer *message.Printer
	state   State
}

// NewFlow builds a single-use capture flow.
func NewFlow(dialog Dialog, modes ModeDirectory, sink Sink, logger *slog.Logger) *Flow {
	return &Flow{
		dialog:  dialog,
		modes:   modes,
		sink:    sink,
		logger:  logger,
		unit:    currency.USD,
		printer: message.NewPrinter(language.English),
		state:   StateCollecting,
	}
}

// State reports the flow's current state.
func (f *Flow) State() State { return f.state }

// Run executes the capture sequence against the given source and returns
// the name of the created payment entry. ErrCancelled means the user backed
// out before submission.
func (f *Flow) Run(ctx context.Context, source PaymentSource) (string, error) {
	values, err := f.collect(ctx, source)
	if err != nil {
		return "", err
	}

	f.state = StateConfirming
	ok, err := f.dialog.Confirm(ctx, "Confirm Payment", f.summary(source, values))
	if err != nil {
		return "", fmt.Errorf("confirm dialog: %w", err)
	}
	if !ok {
		f.state = StateCancelled
		return "", ErrCancelled
	}

	f.state = StateSubmitting
	entry, err := f.submit(ctx, source, values)
	if err != nil {
		f.dialog.Notify(ctx, userMessage(err))
		return "", err
	}

	f.state = StateDone
	f.dialog.Notify(ctx, fmt.Sprintf("Payment entry %s created", entry.Name))
	return entry.Name, nil
}

// collect loops in the Collecting state until input passes local validation
// or the user cancels. Validation failures never leave the process.
func (f *Flow) collect(ctx context.Context, source PaymentSource) (Values, error) {
	for {
		values, cancelled, err := f.dialog.Collect(ctx, fmt.Sprintf("Payment for %s %s", source.Type, source.Name), f.fields())
		if err != nil {
			return nil, fmt.Errorf("collect dialog: %w", err)
		}
		if cancelled {
			f.state = StateCancelled
			return nil, ErrCancelled
		}

		amount, amountErr := strconv.ParseFloat(values[fieldPaidAmount], 64)
		switch {
		case amountErr != nil || amount <= 0:
			f.dialog.Notify(ctx, "Paid amount must be greater than zero")
		case values[fieldModeOfPayment] == "":
			f.dialog.Notify(ctx, "Mode of payment is required")
		default:
			return values, nil
		}
	}
}

// fields builds the Collecting schema. The reference fields start hidden
// and flip visible+required when the chosen payment method classifies as
// bank-like.
func (f *Flow) fields() []DialogField {
	return []DialogField{
		{Label: "Paid Amount", Name: fieldPaidAmount, Type: "Currency", Required: true},
		{
			Label:    "Mode of Payment",
			Name:     fieldModeOfPayment,
			Type:     "Link",
			Required: true,
			OnChange: func(ctx context.Context, value string) []FieldUpdate {
				bank := IsBank(ctx, f.modes, f.logger, value)
				return []FieldUpdate{
					{Name: fieldReferenceNo, Hidden: boolPtr(!bank), Required: boolPtr(bank)},
					{Name: fieldReferenceDate, Hidden: boolPtr(!bank), Required: boolPtr(bank)},
				}
			},
		},
		{Label: "Reference No", Name: fieldReferenceNo, Type: "Data", Hidden: true},
		{Label: "Reference Date", Name: fieldReferenceDate, Type: "Date", Hidden: true},
	}
}

// summary renders the read-only confirmation body.
func (f *Flow) summary(source PaymentSource, values Values) string {
	amount, _ := strconv.ParseFloat(values[fieldPaidAmount], 64)

	var b strings.Builder
	fmt.Fprintf(&b, "Amount: %s\n", f.printer.Sprint(currency.Symbol(f.unit.Amount(amount))))
	fmt.Fprintf(&b, "Mode of Payment: %s\n", values[fieldModeOfPayment])
	if values[fieldReferenceNo] != "" {
		fmt.Fprintf(&b, "Reference No: %s\n", values[fieldReferenceNo])
	}
	if values[fieldReferenceDate] != "" {
		fmt.Fprintf(&b, "Reference Date: %s\n", values[fieldReferenceDate])
	}
	fmt.Fprintf(&b, "%s: %s\n", source.Type, source.Name)
	b.WriteString("Confirming will immediately create and finalize a payment entry.")
	return b.String()
}

// submit makes the single remote call. The classification is resolved again
// here rather than trusted from Collecting, and reference values ride along
// only for bank-like modes.
func (f *Flow) submit(ctx context.Context, source PaymentSource, values Values) (*CreatedEntry, error) {
	amount, _ := strconv.ParseFloat(values[fieldPaidAmount], 64)

	req := Request{
		PaidAmount:     amount,
		ModeOfPayment:  values[fieldModeOfPayment],
		Submit:         true,
		IdempotencyKey: uuid.NewString(),
	}
	if IsBank(ctx, f.modes, f.logger, req.ModeOfPayment) {
		req.ReferenceNo = values[fieldReferenceNo]
		req.ReferenceDate = values[fieldReferenceDate]
	}

	switch source.Type {
	case SourcePaymentPlan:
		req.PaymentPlanName = source.Name
		return f.sink.CreateFromPaymentPlan(ctx, req)
	default:
		req.FinanceApplicationName = source.Name
		return f.sink.CreateFromFinanceApplication(ctx, req)
	}
}

// userMessage classifies a submission failure for display. A server
// complaint about the payment-method argument gets the specific message;
// anything else surfaces the server text, with a generic fallback.
func userMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if strings.Contains(msg, fieldModeOfPayment) {
		return "Payment method is required"
	}
	if msg != "" {
		return msg
	}
	return "Error creating payment entry"
}
