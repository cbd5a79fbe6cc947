package billing

import (
	"fmt"
	"html"
	"log"

	"github.com/teambase-app/TeamBase/app/models"
	"github.com/teambase-app/TeamBase/internal/pkg/mail"
)

// Notifier informs an organization about billing events that need action.
type Notifier interface {
	PaymentFailed(org *models.Organization, message string)
}

type mailNotifier struct{}

// NewMailNotifier creates a notifier that emails the organization's billing
// address via SMTP.
func NewMailNotifier() Notifier {
	return mailNotifier{}
}

func (mailNotifier) PaymentFailed(org *models.Organization, message string) {
	if org.BillingEmail == "" {
		log.Printf("billing: organization %d has no billing email, skipping failure notice", org.ID)
		return
	}

	subject := fmt.Sprintf("Payment failed for %s", org.Name)
	body := fmt.Sprintf(
		"<p>A payment for your organization <strong>%s</strong> could not be processed.</p>"+
			"<p>Reason: %s</p>"+
			"<p>Please update your payment method to keep your subscription active.</p>",
		html.EscapeString(org.Name),
		html.EscapeString(message),
	)
	// Delivery is best effort; SendMail logs its own failures.
	_ = mail.SendMail(org.BillingEmail, subject, body)
}
