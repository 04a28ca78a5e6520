package amqp

import (
	"encoding/json"
	"time"
)

// MailMessage asks the worker to deliver a password-reset email. The token
// is embedded in the reset URL; the worker never touches the database.
type MailMessage struct {
	Kind      string    `json:"kind"`
	To        string    `json:"to"`
	ResetURL  string    `json:"reset_url"`
	Timestamp time.Time `json:"timestamp"`
}

const KindPasswordReset = "password_reset"

// NewPasswordResetMail creates a mail message for a password-reset request.
func NewPasswordResetMail(to, resetURL string) *MailMessage {
	return &MailMessage{
		Kind:      KindPasswordReset,
		To:        to,
		ResetURL:  resetURL,
		Timestamp: time.Now(),
	}
}

func (m *MailMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MailMessageFromJSON(data []byte) (*MailMessage, error) {
	var msg MailMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ExportMessage points the worker at an expense to append to the export
// backend. Only identifiers travel on the wire; the worker fetches the
// current row so late deliveries export fresh data.
type ExportMessage struct {
	UserID    int64     `json:"user_id"`
	ExpenseID int64     `json:"expense_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExportMessage creates an export message for an expense.
func NewExportMessage(userID, expenseID int64) *ExportMessage {
	return &ExportMessage{
		UserID:    userID,
		ExpenseID: expenseID,
		Timestamp: time.Now(),
	}
}

func (m *ExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExportMessageFromJSON(data []byte) (*ExportMessage, error) {
	var msg ExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
