package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	KindWelcome            = "welcome"
	KindLeaveSubmitted     = "leave_submitted"
	KindLeaveStatusChanged = "leave_status_changed"
	KindTest               = "test"
)

type Recipient struct {
	Name  string
	Email string
}

// LeaveDetails is what a leave email tells its reader.
type LeaveDetails struct {
	ID       string
	Type     string
	FromDate time.Time
	ToDate   time.Time
	Reason   string
	Status   string
}

// Sender queues an email for asynchronous delivery.
type Sender interface {
	Enqueue(kind string, email Email) error
}

// Notifier turns domain events into emails. It never blocks on delivery and
// its errors only report that an email could not be queued.
type Notifier struct {
	sender Sender
	logger *slog.Logger
}

func NewNotifier(sender Sender, logger *slog.Logger) *Notifier {
	return &Notifier{sender: sender, logger: logger}
}

func (n *Notifier) Welcome(ctx context.Context, to Recipient) error {
	body := fmt.Sprintf("Hello %s,\n\n"+
		"Your account has been created successfully. You can now apply for leaves "+
		"and manage your requests through the Leave Management System.\n\n"+
		"Thank you for joining LeaveHub!\n", to.Name)

	return n.enqueue(ctx, KindWelcome, Email{
		To:      []string{to.Email},
		Subject: "Welcome to LeaveHub",
		Body:    body,
	})
}

func (n *Notifier) LeaveSubmitted(ctx context.Context, admins []Recipient, applicant string, d LeaveDetails) error {
	if len(admins) == 0 {
		n.logger.WarnContext(ctx, "no admin to notify about leave request", "leave_id", d.ID)
		return nil
	}

	to := make([]string, 0, len(admins))
	for _, a := range admins {
		to = append(to, a.Email)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "A new leave request has been submitted by %s.\n\n", applicant)
	writeLeaveDetails(&b, d)
	b.WriteString("\nPlease review this request in the Leave Management System.\n")

	return n.enqueue(ctx, KindLeaveSubmitted, Email{
		To:      to,
		Subject: "New Leave Request",
		Body:    b.String(),
	})
}

func (n *Notifier) LeaveStatusChanged(ctx context.Context, owner Recipient, d LeaveDetails) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", owner.Name)
	fmt.Fprintf(&b, "Your leave request from %s to %s has been %s.\n\n",
		formatDate(d.FromDate), formatDate(d.ToDate), strings.ToLower(d.Status))
	writeLeaveDetails(&b, d)
	b.WriteString("\nThank you for using the Leave Management System.\n")

	return n.enqueue(ctx, KindLeaveStatusChanged, Email{
		To:      []string{owner.Email},
		Subject: fmt.Sprintf("Leave Request %s", d.Status),
		Body:    b.String(),
	})
}

func (n *Notifier) enqueue(ctx context.Context, kind string, email Email) error {
	if err := n.sender.Enqueue(kind, email); err != nil {
		return fmt.Errorf("queue %s email: %w", kind, err)
	}
	n.logger.DebugContext(ctx, "notification queued", "kind", kind, "to", email.To)
	return nil
}

func writeLeaveDetails(b *strings.Builder, d LeaveDetails) {
	fmt.Fprintf(b, "Type: %s\n", d.Type)
	fmt.Fprintf(b, "From: %s\n", formatDate(d.FromDate))
	fmt.Fprintf(b, "To: %s\n", formatDate(d.ToDate))
	fmt.Fprintf(b, "Reason: %s\n", d.Reason)
}

func formatDate(t time.Time) string {
	return t.Format("Mon Jan 02 2006")
}
