package payments

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeDialog struct {
	collects []Values // nil entry means the user cancelled
	confirms []bool
	notices  []string
	fields   [][]DialogField
	bodies   []string

	collectCalls int
	confirmCalls int
}

func (d *fakeDialog) Collect(ctx context.Context, title string, fields []DialogField) (Values, bool, error) {
	d.fields = append(d.fields, fields)
	if d.collectCalls >= len(d.collects) {
		return nil, false, errors.New("unexpected collect")
	}
	v := d.collects[d.collectCalls]
	d.collectCalls++
	if v == nil {
		return nil, true, nil
	}
	return v, false, nil
}

func (d *fakeDialog) Confirm(ctx context.Context, title, body string) (bool, error) {
	d.bodies = append(d.bodies, body)
	if d.confirmCalls >= len(d.confirms) {
		return false, errors.New("unexpected confirm")
	}
	ok := d.confirms[d.confirmCalls]
	d.confirmCalls++
	return ok, nil
}

func (d *fakeDialog) Notify(ctx context.Context, msg string) {
	d.notices = append(d.notices, msg)
}

type fakeSinkRecorder struct {
	appRequests  []Request
	planRequests []Request
	entry        *CreatedEntry
	err          error
}

func (s *fakeSinkRecorder) CreateFromFinanceApplication(ctx context.Context, req Request) (*CreatedEntry, error) {
	s.appRequests = append(s.appRequests, req)
	return s.entry, s.err
}

func (s *fakeSinkRecorder) CreateFromPaymentPlan(ctx context.Context, req Request) (*CreatedEntry, error) {
	s.planRequests = append(s.planRequests, req)
	return s.entry, s.err
}

type fakeDirectory struct {
	classes map[string]string
	err     error
	calls   int
}

func (d *fakeDirectory) Classification(ctx context.Context, mode string) (string, error) {
	d.calls++
	if d.err != nil {
		return "", d.err
	}
	c, ok := d.classes[mode]
	if !ok {
		return "", ErrModeNotFound
	}
	return c, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFlowHappyPath(t *testing.T) {
	dialog := &fakeDialog{
		collects: []Values{{fieldPaidAmount: "150.50", fieldModeOfPayment: "Cash"}},
		confirms: []bool{true},
	}
	sink := &fakeSinkRecorder{entry: &CreatedEntry{Name: "PE-00001"}}
	modes := &fakeDirectory{classes: map[string]string{"Cash": "Cash"}}

	flow := NewFlow(dialog, modes, sink, testLogger())
	name, err := flow.Run(context.Background(), PaymentSource{Type: SourceFinanceApplication, Name: "FA-00042"})
	require.NoError(t, err)
	require.Equal(t, "PE-00001", name)
	require.Equal(t, StateDone, flow.State())

	require.Len(t, sink.appRequests, 1)
	require.Empty(t, sink.planRequests)
	req := sink.appRequests[0]
	require.Equal(t, "FA-00042", req.FinanceApplicationName)
	require.Empty(t, req.PaymentPlanName)
	require.InDelta(t, 150.50, req.PaidAmount, 1e-9)
	require.True(t, req.Submit)
	require.NotEmpty(t, req.IdempotencyKey)
	require.Empty(t, req.ReferenceNo)

	require.Contains(t, dialog.notices[len(dialog.notices)-1], "PE-00001")
}

func TestFlowPaymentPlanSource(t *testing.T) {
	dialog := &fakeDialog{
		collects: []Values{{fieldPaidAmount: "50", fieldModeOfPayment: "Cash"}},
		confirms: []bool{true},
	}
	sink := &fakeSinkRecorder{entry: &CreatedEntry{Name: "PE-00002"}}
	modes := &fakeDirectory{classes: map[string]string{"Cash": "Cash"}}

	flow := NewFlow(dialog, modes, sink, testLogger())
	_, err := flow.Run(context.Background(), PaymentSource{Type: SourcePaymentPlan, Name: "PLAN-00007"})
	require.NoError(t, err)

	require.Empty(t, sink.appRequests)
	require.Len(t, sink.planRequests, 1)
	require.Equal(t, "PLAN-00007", sink.planRequests[0].PaymentPlanName)
	require.Empty(t, sink.planRequests[0].FinanceApplicationName)
}

func TestFlowBankModeAttachesReferences(t *testing.T) {
	dialog := &fakeDialog{
		collects: []Values{{
			fieldPaidAmount:    "200",
			fieldModeOfPayment: "Wire Transfer",
			fieldReferenceNo:   "TRX-991",
			fieldReferenceDate: "2025-06-01",
		}},
		confirms: []bool{true},
	}
	sink := &fakeSinkRecorder{entry: &CreatedEntry{Name: "PE-00003"}}
	modes := &fakeDirectory{classes: map[string]string{"Wire Transfer": ClassificationBank}}

	flow := NewFlow(dialog, modes, sink, testLogger())
	_, err := flow.Run(context.Background(), PaymentSource{Type: SourceFinanceApplication, Name: "FA-1"})
	require.NoError(t, err)

	req := sink.appRequests[0]
	require.Equal(t, "TRX-991", req.ReferenceNo)
	require.Equal(t, "2025-06-01", req.ReferenceDate)
}

func TestFlowNonBankDropsSuppliedReferences(t *testing.T) {
	dialog := &fakeDialog{
		collects: []Values{{
			fieldPaidAmount:    "200",
			fieldModeOfPayment: "Cash",
			fieldReferenceNo:   "should-not-survive",
			fieldReferenceDate: "2025-06-01",
		}},
		confirms: []bool{true},
	}
	sink := &fakeSinkRecorder{entry: &CreatedEntry{Name: "PE-00004"}}
	modes := &fakeDirectory{classes: map[string]string{"Cash": "Cash"}}

	flow := NewFlow(dialog, modes, sink, testLogger())
	_, err := flow.Run(context.Background(), PaymentSource{Type: SourceFinanceApplication, Name: "FA-1"})
	require.NoError(t, err)

	req := sink.appRequests[0]
	require.Empty(t, req.ReferenceNo)
	require.Empty(t, req.ReferenceDate)
}

func TestFlowClassificationFailureFailsSafe(t *testing.T) {
	dialog := &fakeDialog{
		collects: []Values{{
			fieldPaidAmount:    "200",
			fieldModeOfPayment: "Wire Transfer",
			fieldReferenceNo:   "TRX-1",
		}},
		confirms: []bool{true},
	}
	sink := &fakeSinkRecorder{entry: &CreatedEntry{Name: "PE-00005"}}
	modes := &fakeDirectory{err: errors.New("directory down")}

	flow := NewFlow(dialog, modes, sink, testLogger())
	_, err := flow.Run(context.Background(), PaymentSource{Type: SourceFinanceApplication, Name: "FA-1"})
	require.NoError(t, err)
	require.Empty(t, sink.appRequests[0].ReferenceNo)
}

func TestFlowInvalidAmountRePrompts(t *testing.T) {
	dialog := &fakeDialog{
		collects: []Values{
			{fieldPaidAmount: "0", fieldModeOfPayment: "Cash"},
			{fieldPaidAmount: "100", fieldModeOfPayment: "Cash"},
		},
		confirms: []bool{true},
	}
	sink := &fakeSinkRecorder{entry: &CreatedEntry{Name: "PE-00006"}}
	modes := &fakeDirectory{classes: map[string]string{"Cash": "Cash"}}

	flow := NewFlow(dialog, modes, sink, testLogger())
	_, err := flow.Run(context.Background(), PaymentSource{Type: SourceFinanceApplication, Name: "FA-1"})
	require.NoError(t, err)

	require.Equal(t, 2, dialog.collectCalls)
	require.Contains(t, dialog.notices[0], "greater than zero")
	require.Len(t, sink.appRequests, 1)
}

func TestFlowMissingModeRePrompts(t *testing.T) {
	dialog := &fakeDialog{
		collects: []Values{
			{fieldPaidAmount: "100"},
			{fieldPaidAmount: "100", fieldModeOfPayment: "Cash"},
		},
		confirms: []bool{true},
	}
	sink := &fakeSinkRecorder{entry: &CreatedEntry{Name: "PE-00007"}}
	modes := &fakeDirectory{classes: map[string]string{"Cash": "Cash"}}

	flow := NewFlow(dialog, modes, sink, testLogger())
	_, err := flow.Run(context.Background(), PaymentSource{Type: SourceFinanceApplication, Name: "FA-1"})
	require.NoError(t, err)
	require.Equal(t, 2, dialog.collectCalls)
	require.Contains(t, dialog.notices[0], "Mode of payment")
}

func TestFlowCancelDuringCollect(t *testing.T) {
	dialog := &fakeDialog{collects: []Values{nil}}
	sink := &fakeSinkRecorder{}

	flow := NewFlow(dialog, &fakeDirectory{}, sink, testLogger())
	_, err := flow.Run(context.Background(), PaymentSource{Type: SourceFinanceApplication, Name: "FA-1"})
	require.ErrorIs(t, err, ErrCancelled)
	require.Equal(t, StateCancelled, flow.State())
	require.Empty(t, sink.appRequests)
}

func TestFlowCancelDuringConfirm(t *testing.T) {
	dialog := &fakeDialog{
		collects: []Values{{fieldPaidAmount: "100", fieldModeOfPayment: "Cash"}},
		confirms: []bool{false},
	}
	sink := &fakeSinkRecorder{}

	flow := NewFlow(dialog, &fakeDirectory{classes: map[string]string{"Cash": "Cash"}}, sink, testLogger())
	_, err := flow.Run(context.Background(), PaymentSource{Type: SourceFinanceApplication, Name: "FA-1"})
	require.ErrorIs(t, err, ErrCancelled)
	require.Empty(t, sink.appRequests)
	require.Empty(t, sink.planRequests)
}

func TestFlowConfirmationSummary(t *testing.T) {
	dialog := &fakeDialog{
		collects: []Values{{
			fieldPaidAmount:    "110",
			fieldModeOfPayment: "Wire Transfer",
			fieldReferenceNo:   "TRX-5",
		}},
		confirms: []bool{true},
	}
	sink := &fakeSinkRecorder{entry: &CreatedEntry{Name: "PE-00008"}}
	modes := &fakeDirectory{classes: map[string]string{"Wire Transfer": ClassificationBank}}

	flow := NewFlow(dialog, modes, sink, testLogger())
	_, err := flow.Run(context.Background(), PaymentSource{Type: SourcePaymentPlan, Name: "PLAN-00001"})
	require.NoError(t, err)

	require.Len(t, dialog.bodies, 1)
	body := dialog.bodies[0]
	require.Contains(t, body, "110")
	require.Contains(t, body, "Wire Transfer")
	require.Contains(t, body, "TRX-5")
	require.Contains(t, body, "Payment Plan: PLAN-00001")
	require.Contains(t, body, "finalize")
}

func TestFlowSubmitErrorClassification(t *testing.T) {
	t.Run("missing payment method", func(t *testing.T) {
		dialog := &fakeDialog{
			collects: []Values{{fieldPaidAmount: "100", fieldModeOfPayment: "Cash"}},
			confirms: []bool{true},
		}
		sink := &fakeSinkRecorder{err: errors.New("server rejected: mode_of_payment is required")}

		flow := NewFlow(dialog, &fakeDirectory{classes: map[string]string{"Cash": "Cash"}}, sink, testLogger())
		_, err := flow.Run(context.Background(), PaymentSource{Type: SourceFinanceApplication, Name: "FA-1"})
		require.Error(t, err)
		require.Contains(t, dialog.notices, "Payment method is required")
	})

	t.Run("server message surfaces", func(t *testing.T) {
		dialog := &fakeDialog{
			collects: []Values{{fieldPaidAmount: "100", fieldModeOfPayment: "Cash"}},
			confirms: []bool{true},
		}
		sink := &fakeSinkRecorder{err: errors.New("credit invoice is cancelled")}

		flow := NewFlow(dialog, &fakeDirectory{classes: map[string]string{"Cash": "Cash"}}, sink, testLogger())
		_, err := flow.Run(context.Background(), PaymentSource{Type: SourceFinanceApplication, Name: "FA-1"})
		require.Error(t, err)
		require.Contains(t, dialog.notices, "credit invoice is cancelled")
	})
}

func TestFieldSchemaTogglesReferenceFields(t *testing.T) {
	modes := &fakeDirectory{classes: map[string]string{
		"Wire Transfer": ClassificationBank,
		"Cash":          "Cash",
	}}
	flow := NewFlow(&fakeDialog{}, modes, &fakeSinkRecorder{}, testLogger())

	fields := flow.fields()
	var modeField *DialogField
	for i := range fields {
		if fields[i].Name == fieldModeOfPayment {
			modeField = &fields[i]
		}
	}
	require.NotNil(t, modeField)
	require.NotNil(t, modeField.OnChange)

	updates := modeField.OnChange(context.Background(), "Wire Transfer")
	require.Len(t, updates, 2)
	for _, u := range updates {
		require.False(t, *u.Hidden)
		require.True(t, *u.Required)
	}

	updates = modeField.OnChange(context.Background(), "Cash")
	for _, u := range updates {
		require.True(t, *u.Hidden)
		require.False(t, *u.Required)
	}
}
