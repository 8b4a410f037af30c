package payments

import "context"

// RepositoryPort abstracts payment entry persistence.
type RepositoryPort interface {
	ModeClassification(ctx context.Context, mode string) (string, error)
	PlanIDForApplication(ctx context.Context, applicationName string) (int64, error)
	CreateEntry(ctx context.Context, entry Entry) (string, error)
	CreateJournalEntry(ctx context.Context, entry JournalEntry) (string, error)
}
