package schedule

import (
	"fmt"
	"time"
)

// Field names a financing-terms input on the host document.
type Field string

const (
	FieldAmountToFinance  Field = "total_amount_to_finance"
	FieldDownPayment      Field = "down_payment"
	FieldInterestRate     Field = "interest_rate"
	FieldRatePeriod       Field = "rate_period"
	FieldRepaymentTerm    Field = "repayment_term"
	FieldFirstInstallment Field = "first_installment"
	FieldApplicationFee   Field = "application_fee"
)

// TriggerFields are the fields whose change regenerates the schedule.
var TriggerFields = []Field{
	FieldRepaymentTerm,
	FieldDownPayment,
	FieldFirstInstallment,
	FieldApplicationFee,
	FieldInterestRate,
	FieldRatePeriod,
}

// Notifier is the host form's field-change channel. Implementations invoke
// the registered handler with the new value each time the field changes.
type Notifier interface {
	OnFieldChange(field Field, handler func(value any))
}

// Document is the in-memory financing document being edited. It owns its
// terms and the derived schedule; the schedule is regenerated wholesale on
// every recompute, never patched.
type Document struct {
	Terms    FinancingTerms
	Schedule Schedule
}

// Set applies a single field value to the terms.
func (d *Document) Set(field Field, value any) error {
	switch field {
	case FieldAmountToFinance:
		return setFloat(&d.Terms.AmountToFinance, field, value)
	case FieldDownPayment:
		return setFloat(&d.Terms.DownPayment, field, value)
	case FieldInterestRate:
		return setFloat(&d.Terms.InterestRate, field, value)
	case FieldApplicationFee:
		return setFloat(&d.Terms.ApplicationFee, field, value)
	case FieldRepaymentTerm:
		n, ok := value.(int)
		if !ok {
			return fmt.Errorf("schedule: field %s: want int, got %T", field, value)
		}
		d.Terms.RepaymentTerm = n
	case FieldFirstInstallment:
		t, ok := value.(time.Time)
		if !ok {
			return fmt.Errorf("schedule: field %s: want time.Time, got %T", field, value)
		}
		d.Terms.FirstInstallment = t
	case FieldRatePeriod:
		switch v := value.(type) {
		case RatePeriod:
			d.Terms.RatePeriod = v
		case string:
			d.Terms.RatePeriod = RatePeriod(v)
		default:
			return fmt.Errorf("schedule: field %s: want rate period, got %T", field, value)
		}
	default:
		return fmt.Errorf("schedule: unknown field %s", field)
	}
	return nil
}

// Recompute regenerates the installment table from the current terms.
// Incomplete terms clear the table and leave the summary at its prior value.
func (d *Document) Recompute() {
	s, ok := Compute(d.Terms)
	if !ok {
		d.Schedule.Installments = nil
		return
	}
	d.Schedule = s
}

// Bind subscribes the document to the six trigger fields. Each notification
// applies the new value and re-runs the full computation.
func (d *Document) Bind(n Notifier) {
	for _, field := range TriggerFields {
		f := field
		n.OnFieldChange(f, func(value any) {
			if err := d.Set(f, value); err != nil {
				return
			}
			d.Recompute()
		})
	}
}

func setFloat(dst *float64, field Field, value any) error {
	switch v := value.(type) {
	case float64:
		*dst = v
	case int:
		*dst = float64(v)
	default:
		return fmt.Errorf("schedule: field %s: want number, got %T", field, value)
	}
	return nil
}
