package services

import (
	"fmt"
	"html"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"portcontracts/config"
	"portcontracts/models"
	"portcontracts/utils"
)

// mailSender отправляет подготовленные письма; *gomail.Dialer удовлетворяет интерфейсу
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Notifier рассылает сводку предупреждений
type Notifier interface {
	SendWarningDigest(warnings []models.Warning, referenceDate time.Time) error
}

// EmailService предоставляет методы для отправки email
type EmailService struct {
	sender     mailSender
	from       string
	recipients []string
}

// NewEmailService создает новый экземпляр EmailService
func NewEmailService(cfg *config.Config) *EmailService {
	dialer := gomail.NewDialer(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Username,
		cfg.SMTP.Password,
	)

	return &EmailService{
		sender:     dialer,
		from:       cfg.SMTP.From,
		recipients: cfg.SMTP.Recipients,
	}
}

// SendEmail отправляет email
func (s *EmailService) SendEmail(to []string, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("ошибка отправки email: %v", err)
	}

	return nil
}

// SendWarningDigest отправляет сводку нерешенных предупреждений.
// Без получателей или без нерешенных предупреждений письмо не отправляется.
func (s *EmailService) SendWarningDigest(warnings []models.Warning, referenceDate time.Time) error {
	if len(s.recipients) == 0 {
		return nil
	}

	open := make([]models.Warning, 0, len(warnings))
	for _, w := range warnings {
		if w.Status != models.WarningResolved {
			open = append(open, w)
		}
	}
	if len(open) == 0 {
		return nil
	}
	SortWarnings(open)

	overdue := 0
	for _, w := range open {
		if w.Type.IsOverdue() {
			overdue++
		}
	}

	subject := fmt.Sprintf("Cảnh báo hợp đồng %s: %d quá hạn, %d sắp đến hạn",
		referenceDate.Format("02/01/2006"), overdue, len(open)-overdue)

	var rows strings.Builder
	for _, w := range open {
		fmt.Fprintf(&rows, `
			<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%d</td><td>%s</td><td>%s</td></tr>`,
			html.EscapeString(w.ContractCode),
			html.EscapeString(w.CustomerName),
			warningTypeLabel(w.Type),
			html.EscapeString(w.Details),
			w.DueDate.Format("02/01/2006"),
			w.DaysDiff,
			w.Amount.StringFixed(MinorUnitScale),
			html.EscapeString(w.Pic),
		)
	}

	body := fmt.Sprintf(`
		<h2>Cảnh báo hợp đồng ngày %s</h2>
		<table border="1" cellpadding="4">
			<tr><th>Số HĐ</th><th>Khách hàng</th><th>Loại</th><th>Nội dung</th><th>Hạn</th><th>Số ngày</th><th>Số tiền</th><th>Phụ trách</th></tr>%s
		</table>
	`, referenceDate.Format("02/01/2006"), rows.String())

	if err := s.SendEmail(s.recipients, subject, body); err != nil {
		return err
	}
	utils.LogInfo("сводка предупреждений отправлена: %d получателей, %d предупреждений", len(s.recipients), len(open))
	return nil
}

func warningTypeLabel(t models.WarningType) string {
	switch t {
	case models.WarningAcceptanceOverdue:
		return "Quá hạn nghiệm thu"
	case models.WarningAcceptanceUpcoming:
		return "Sắp đến hạn nghiệm thu"
	case models.WarningPaymentOverdue:
		return "Quá hạn thanh toán"
	case models.WarningPaymentUpcoming:
		return "Sắp đến hạn thanh toán"
	default:
		return string(t)
	}
}
