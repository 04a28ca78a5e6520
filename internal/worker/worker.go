// Package worker hosts the queue consumers that run outside the request
// path: password-reset mail delivery and expense export. Handlers are
// idempotent where the queue may redeliver.
package worker

import (
	"context"
	"fmt"

	"sprout/internal/amqp"
	"sprout/internal/core"
	"sprout/internal/export"
	"sprout/internal/log"
	"sprout/internal/mail"
	"sprout/internal/storage"
)

// Worker consumes the mail and export queues.
type Worker struct {
	storage  *storage.Repository
	exporter export.Exporter
	sender   mail.Sender
	logger   *log.Logger
}

func New(repo *storage.Repository, exporter export.Exporter, sender mail.Sender, logger *log.Logger) *Worker {
	return &Worker{
		storage:  repo,
		exporter: exporter,
		sender:   sender,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleMailMessage delivers one queued mail. Messages of an unknown kind are
// dropped rather than requeued; requeueing cannot make them deliverable.
func (w *Worker) HandleMailMessage(ctx context.Context, msg *amqp.MailMessage) error {
	if msg.Kind != amqp.KindPasswordReset {
		w.logger.WarnContext(ctx, "dropping mail message of unknown kind",
			"kind", msg.Kind,
			"to", msg.To)
		return nil
	}

	if err := w.sender.Send(ctx, mail.PasswordReset(msg.To, msg.ResetURL)); err != nil {
		return fmt.Errorf("send password reset mail: %w", err)
	}
	w.logger.InfoContext(ctx, "password reset mail delivered",
		log.FieldOperation, log.OpSend,
		"to", msg.To)
	return nil
}

// HandleExportMessage appends the referenced expense to the export journal.
// The message carries only identifiers; the current row is fetched so a late
// delivery exports whatever the expense looks like now. An expense deleted in
// the meantime is dropped silently.
func (w *Worker) HandleExportMessage(ctx context.Context, msg *amqp.ExportMessage) error {
	expense, err := w.storage.ExpenseByID(ctx, msg.UserID, msg.ExpenseID)
	if core.IsNotFound(err) {
		w.logger.InfoContext(ctx, "expense gone before export, dropping message",
			log.FieldUserID, msg.UserID,
			log.FieldExpenseID, msg.ExpenseID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load expense %d: %w", msg.ExpenseID, err)
	}

	row := export.Row{
		Timestamp:   expense.Timestamp,
		Amount:      expense.Amount,
		Description: expense.Description,
		Category:    w.categoryName(ctx, expense),
	}
	ref, err := w.exporter.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("append expense %d to export journal: %w", msg.ExpenseID, err)
	}

	w.logger.InfoContext(ctx, "expense exported",
		log.FieldOperation, log.OpExport,
		log.FieldUserID, msg.UserID,
		log.FieldExpenseID, msg.ExpenseID,
		"row_ref", ref)
	return nil
}

// categoryName resolves the expense's category for the journal. A category
// deleted after the expense was logged exports as uncategorized.
func (w *Worker) categoryName(ctx context.Context, e core.Expense) string {
	if e.Category == nil {
		return ""
	}
	c, err := w.storage.CategoryByRef(ctx, e.UserID, *e.Category)
	if err != nil {
		if !core.IsNotFound(err) {
			w.logger.WarnContext(ctx, "category lookup failed during export",
				log.FieldUserID, e.UserID,
				log.FieldExpenseID, e.ID,
				log.FieldError, err)
		}
		return ""
	}
	return c.Name
}
