package services

import (
	"context"
	"log/slog"

	"github.com/Dosada05/bracket-sync/brackets"
	"github.com/Dosada05/bracket-sync/models"
	"github.com/Dosada05/bracket-sync/repositories"
)

// Structural action names as they appear in the logs.
const (
	ActionEndTournament    = "End Tournament"
	ActionUnlockFinalRound = "Unlock Final Round"
	ActionCascadeDelete    = "Cascade Delete Round"
	ActionTeamSwap         = "Team Swap"
	ActionGenerateRound    = "Generate Round"
	ActionBestLoserMatch   = "Best Loser Match"

	AuditCascadeDeleteRounds = "CASCADE_DELETE_ROUNDS"
)

// AuditLogger records structural actions in the document, in the local
// durable log and, when configured, by email.
type AuditLogger struct {
	log      repositories.StructuralLogRepository
	notifier Notifier
	events   EventPublisher
	clock    repositories.Clock
	logger   *slog.Logger
}

func NewAuditLogger(log repositories.StructuralLogRepository, notifier Notifier, events EventPublisher, clock repositories.Clock, logger *slog.Logger) *AuditLogger {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if events == nil {
		events = noopPublisher{}
	}
	if clock == nil {
		clock = repositories.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		log:      log,
		notifier: notifier,
		events:   events,
		clock:    clock,
		logger:   logger.With(slog.String("component", "audit")),
	}
}

func (a *AuditLogger) Entry(admin, action string, details map[string]any) models.AuditEntry {
	return models.AuditEntry{
		Action:    action,
		Timestamp: a.clock.Now().UTC(),
		Admin:     admin,
		Details:   details,
	}
}

func AppendStructural(doc *models.Competition, entry models.AuditEntry) {
	doc.StructuralLog = models.AppendCapped(doc.StructuralLog, entry, models.MaxLogEntries)
}

func AppendAudit(doc *models.Competition, entry models.AuditEntry) {
	doc.AuditLog = models.AppendCapped(doc.AuditLog, entry, models.MaxLogEntries)
}

// LogStructural appends entry to the document and records it.
func (a *AuditLogger) LogStructural(ctx context.Context, doc *models.Competition, entry models.AuditEntry) {
	AppendStructural(doc, entry)
	a.Record(ctx, doc.Grade, entry)
}

// Record writes entry to the local durable log, notifies and publishes it.
// The action already happened, so failures here are logged only.
func (a *AuditLogger) Record(ctx context.Context, grade models.Grade, entry models.AuditEntry) {
	a.logger.Info("structural action",
		slog.String("action", entry.Action),
		slog.String("admin", entry.Admin),
		slog.String("grade", string(grade)),
		slog.Any("details", entry.Details),
	)
	if err := a.log.Append(ctx, entry); err != nil {
		a.logger.Error("failed to persist structural log entry", slog.Any("error", err))
	}
	a.notifier.NotifyStructural(ctx, grade, entry)
	a.events.Publish(string(grade), brackets.EventStructuralAction, entry)
}

func (a *AuditLogger) List(ctx context.Context) ([]models.AuditEntry, error) {
	return a.log.List(ctx)
}
