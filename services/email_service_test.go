package services

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"gopkg.in/gomail.v2"

	"portcontracts/models"
)

type fakeSender struct {
	messages []*gomail.Message
	err      error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, m...)
	return nil
}

func TestSendWarningDigest(t *testing.T) {
	sender := &fakeSender{}
	svc := &EmailService{sender: sender, from: "bot@example.com", recipients: []string{"ops@example.com", "pm@example.com"}}

	warnings := []models.Warning{
		{ContractCode: "HD-1", Type: models.WarningPaymentOverdue, Details: "Đợt 1", DaysDiff: -14, DueDate: date("2025-02-15")},
		{ContractCode: "HD-2", Type: models.WarningAcceptanceUpcoming, Details: AcceptanceDetails, DaysDiff: 7, DueDate: date("2025-03-08")},
		{ContractCode: "HD-3", Type: models.WarningPaymentOverdue, Details: "<b>Đợt 2</b>", Status: models.WarningResolved},
	}

	if err := svc.SendWarningDigest(warnings, date("2025-03-01")); err != nil {
		t.Fatalf("SendWarningDigest: %v", err)
	}
	if len(sender.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.messages))
	}
	m := sender.messages[0]
	if to := m.GetHeader("To"); len(to) != 2 {
		t.Errorf("To = %v", to)
	}
	if subject := m.GetHeader("Subject"); len(subject) != 1 || !strings.Contains(subject[0], "1 quá hạn, 1 sắp đến hạn") {
		t.Errorf("Subject = %v", subject)
	}

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if strings.Contains(buf.String(), "HD-3") {
		t.Error("resolved warnings must not be included")
	}
}

func TestSendWarningDigestSkips(t *testing.T) {
	sender := &fakeSender{}
	noRecipients := &EmailService{sender: sender}
	if err := noRecipients.SendWarningDigest([]models.Warning{{Type: models.WarningPaymentOverdue}}, date("2025-03-01")); err != nil {
		t.Fatal(err)
	}

	svc := &EmailService{sender: sender, recipients: []string{"ops@example.com"}}
	if err := svc.SendWarningDigest([]models.Warning{{Status: models.WarningResolved}}, date("2025-03-01")); err != nil {
		t.Fatal(err)
	}
	if len(sender.messages) != 0 {
		t.Errorf("no message expected, got %d", len(sender.messages))
	}
}

func TestSendWarningDigestError(t *testing.T) {
	svc := &EmailService{sender: &fakeSender{err: errors.New("smtp down")}, recipients: []string{"ops@example.com"}}
	if err := svc.SendWarningDigest([]models.Warning{{Type: models.WarningPaymentOverdue}}, date("2025-03-01")); err == nil {
		t.Error("expected an error")
	}
}
