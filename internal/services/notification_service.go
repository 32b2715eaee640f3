// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/projectstore/internal/config"
	"github.com/javajoker/projectstore/internal/events"
	"github.com/javajoker/projectstore/internal/models"
)

// Mailer sends one HTML email.
type Mailer interface {
	Send(ctx context.Context, from string, to []string, subject, body string) error
}

// SMTPMailer sends through the configured SMTP relay.
type SMTPMailer struct {
	cfg config.EmailConfig
}

func NewMailer(cfg config.EmailConfig) Mailer {
	if cfg.SMTPHost == "" {
		return LogMailer{}
	}
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(_ context.Context, from string, to []string, subject, body string) error {
	// Setup authentication
	auth := smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)

	// Compose message
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		from, strings.Join(to, ", "), subject, body))

	addr := fmt.Sprintf("%s:%s", m.cfg.SMTPHost, m.cfg.SMTPPort)
	return smtp.SendMail(addr, auth, from, to, msg)
}

// LogMailer only logs. Used when SMTP is not configured.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, from string, to []string, subject, _ string) error {
	logrus.WithFields(logrus.Fields{"from": from, "to": to, "subject": subject}).Info("Email not sent: SMTP not configured")
	return nil
}

type NotificationService struct {
	db     *gorm.DB
	config *config.Config
	mailer Mailer
}

func NewNotificationService(db *gorm.DB, config *config.Config, mailer Mailer) *NotificationService {
	return &NotificationService{
		db:     db,
		config: config,
		mailer: mailer,
	}
}

// SendVerificationCode mails a one-time code. Errors are returned; the
// caller cannot continue without the code.
func (s *NotificationService) SendVerificationCode(ctx context.Context, to, username, code, purpose string) error {
	subject := "Verify Your Email Address"
	if purpose == ChallengeReset {
		subject = "Password Reset Code"
	}

	body, err := s.renderTemplate("verification_code", map[string]interface{}{
		"Username":  username,
		"Code":      code,
		"ExpiresIn": fmt.Sprintf("%d minutes", int(s.config.OTP.TTL.Minutes())),
		"Reset":     purpose == ChallengeReset,
	})
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	if err := s.mailer.Send(ctx, s.config.Email.FromEmail, []string{to}, subject, body); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

// HandleEvent is the events.Handler for store notifications.
func (s *NotificationService) HandleEvent(ctx context.Context, e events.Event) error {
	switch e.Type {
	case events.TypeOrderPlaced:
		var payload events.OrderPlaced
		if err := e.Decode(&payload); err != nil {
			return fmt.Errorf("bad %s payload: %w", e.Type, err)
		}
		return s.NotifyOrderPlaced(ctx, payload.OrderID)
	case events.TypeContactReceived:
		var payload events.ContactReceived
		if err := e.Decode(&payload); err != nil {
			return fmt.Errorf("bad %s payload: %w", e.Type, err)
		}
		return s.NotifyContactMessage(ctx, payload.MessageID)
	default:
		logrus.WithField("event_type", e.Type).Debug("Ignoring event")
		return nil
	}
}

// NotifyOrderPlaced records an in-app notification and mails the store
// operator summary and the customer confirmation. Each of the three is
// done at most once per order when the event is retried.
func (s *NotificationService) NotifyOrderPlaced(ctx context.Context, orderID uuid.UUID) error {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").Preload("Items.Product").Preload("Items.Variant").
		Where("id = ?", orderID).First(&order).Error
	if err != nil {
		return notFoundOr(err, "order")
	}

	if err := s.recordOrderNotification(ctx, &order); err != nil {
		logrus.WithError(err).WithField("order_id", order.ID).Warn("Failed to create admin notification")
	}

	var errs []string
	if err := s.sendOnce(ctx, "order_admin", order.ID, func() error {
		return s.sendOrderEmailAdmin(ctx, &order)
	}); err != nil {
		logrus.WithError(err).WithField("order_id", order.ID).Error("Failed to send admin order email")
		errs = append(errs, err.Error())
	}
	if err := s.sendOnce(ctx, "order_customer", order.ID, func() error {
		return s.sendOrderEmailCustomer(ctx, &order)
	}); err != nil {
		logrus.WithError(err).WithField("order_id", order.ID).Error("Failed to send customer order email")
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("order %s notifications: %s", order.ID, strings.Join(errs, "; "))
	}
	return nil
}

// sendOnce runs send unless an email of kind was already delivered for
// resourceID, and marks it delivered on success.
func (s *NotificationService) sendOnce(ctx context.Context, kind string, resourceID uuid.UUID, send func() error) error {
	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.EmailDelivery{}).
		Where("kind = ? AND resource_id = ?", kind, resourceID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check %s delivery: %w", kind, err)
	}
	if count > 0 {
		return nil
	}

	if err := send(); err != nil {
		return err
	}

	err := db.Create(&models.EmailDelivery{Kind: kind, ResourceID: resourceID}).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		logrus.WithError(err).WithFields(logrus.Fields{"kind": kind, "resource_id": resourceID}).
			Warn("Email sent but delivery not recorded")
	}
	return nil
}

func (s *NotificationService) recordOrderNotification(ctx context.Context, order *models.Order) error {
	return s.recordNotification(ctx, "new_order", "order", order.ID,
		fmt.Sprintf("New Order Received | Order #%s", shortID(order.ID)),
		fmt.Sprintf("%s (%s) placed an order of Rs %s", order.CustomerName(), order.Email, order.Total.StringFixed(2)),
		"high")
}

// recordNotification writes one in-app notification per related resource,
// so a retried event does not duplicate it.
func (s *NotificationService) recordNotification(ctx context.Context, kind, resourceType string, resourceID uuid.UUID, title, message, priority string) error {
	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.AdminNotification{}).
		Where("related_resource_type = ? AND related_resource_id = ?", resourceType, resourceID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return db.Create(&models.AdminNotification{
		Type:                kind,
		Title:               title,
		Message:             message,
		Priority:            priority,
		Status:              models.NotificationUnread,
		RelatedResourceType: resourceType,
		RelatedResourceID:   &resourceID,
	}).Error
}

type orderLine struct {
	Name     string
	Quantity int
	Price    string
	Total    string
}

func orderLines(order *models.Order) []orderLine {
	lines := make([]orderLine, 0, len(order.Items))
	for _, item := range order.Items {
		name := item.ProductName
		if item.Product != nil {
			name = item.Product.Name
		}
		if item.Variant != nil {
			name = fmt.Sprintf("%s (%s)", name, item.Variant.Title)
		}
		lines = append(lines, orderLine{
			Name:     name,
			Quantity: item.Quantity,
			Price:    item.Price.StringFixed(2),
			Total:    item.TotalPrice().StringFixed(2),
		})
	}
	return lines
}

func (s *NotificationService) orderData(order *models.Order) map[string]interface{} {
	address := order.Address
	if order.Apartment != "" {
		address += ", " + order.Apartment
	}
	return map[string]interface{}{
		"OrderID":       shortID(order.ID),
		"Name":          order.CustomerName(),
		"Email":         order.Email,
		"Phone":         order.Phone,
		"Address":       fmt.Sprintf("%s, %s, %s %s, %s", address, order.City, order.State, order.ZipCode, order.Country),
		"PaymentMethod": order.PaymentMethod,
		"Lines":         orderLines(order),
		"Total":         order.Total.StringFixed(2),
	}
}

func (s *NotificationService) sendOrderEmailAdmin(ctx context.Context, order *models.Order) error {
	body, err := s.renderTemplate("order_admin", s.orderData(order))
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("New Order Received | Order #%s", shortID(order.ID))
	return s.mailer.Send(ctx, s.config.Email.FromEmail, []string{s.config.Email.AdminEmail}, subject, body)
}

func (s *NotificationService) sendOrderEmailCustomer(ctx context.Context, order *models.Order) error {
	body, err := s.renderTemplate("order_customer", s.orderData(order))
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Order Confirmation | ProjectStore | Order #%s", shortID(order.ID))
	return s.mailer.Send(ctx, s.config.Email.FromEmail, []string{order.Email}, subject, body)
}

// NotifyContactMessage tells the store operator about a contact form entry.
func (s *NotificationService) NotifyContactMessage(ctx context.Context, messageID uuid.UUID) error {
	var msg models.ContactMessage
	if err := s.db.WithContext(ctx).Where("id = ?", messageID).First(&msg).Error; err != nil {
		return notFoundOr(err, "contact_message")
	}

	if err := s.recordNotification(ctx, "contact_message", "contact_message", msg.ID,
		"New contact message: "+msg.Subject,
		fmt.Sprintf("%s (%s) wrote: %s", msg.Name, msg.Email, msg.Message),
		"medium"); err != nil {
		logrus.WithError(err).WithField("message_id", msg.ID).Warn("Failed to create admin notification")
	}

	return s.sendOnce(ctx, "contact", msg.ID, func() error {
		body, err := s.renderTemplate("contact", map[string]interface{}{
			"Name":    msg.Name,
			"Email":   msg.Email,
			"Subject": msg.Subject,
			"Message": msg.Message,
		})
		if err != nil {
			return err
		}
		return s.mailer.Send(ctx, s.config.Email.FromEmail, []string{s.config.Email.AdminEmail}, "Contact form: "+msg.Subject, body)
	})
}

func shortID(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:8])
}

func (s *NotificationService) renderTemplate(name string, data interface{}) (string, error) {
	tmpl, ok := emailTemplates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

var emailTemplates = map[string]*template.Template{
	"verification_code": template.Must(template.New("verification_code").Parse(`
<!DOCTYPE html>
<html>
<body>
	<h2>{{if .Reset}}Reset your password{{else}}Verify your email address{{end}}</h2>
	<p>Hello {{.Username}},</p>
	<p>Your verification code is:</p>
	<h1 style="letter-spacing:4px">{{.Code}}</h1>
	<p>This code expires in {{.ExpiresIn}}. If you did not request it, you can ignore this email.</p>
	<p>ProjectStore</p>
</body>
</html>`)),
	"order_admin": template.Must(template.New("order_admin").Parse(`
<!DOCTYPE html>
<html>
<body>
	<h2>New order #{{.OrderID}}</h2>
	<p><b>Name:</b> {{.Name}}<br><b>Email:</b> {{.Email}}<br><b>Phone:</b> {{.Phone}}<br><b>Address:</b> {{.Address}}<br><b>Payment:</b> {{.PaymentMethod}}</p>
	<ul>
	{{range .Lines}}<li>{{.Name}} - {{.Quantity}} x Rs {{.Price}}</li>
	{{end}}</ul>
	<p><b>Total:</b> Rs {{.Total}}</p>
</body>
</html>`)),
	"order_customer": template.Must(template.New("order_customer").Parse(`
<!DOCTYPE html>
<html>
<body>
	<h2>Thank you for your order, {{.Name}}!</h2>
	<p>Your order #{{.OrderID}} has been received and is being processed.</p>
	<table>
	{{range .Lines}}<tr><td>{{.Name}}</td><td>{{.Quantity}} x Rs {{.Price}}</td><td>Rs {{.Total}}</td></tr>
	{{end}}</table>
	<p><b>Total:</b> Rs {{.Total}}</p>
	<p>We will ship to: {{.Address}}</p>
	<p>ProjectStore</p>
</body>
</html>`)),
	"contact": template.Must(template.New("contact").Parse(`
<!DOCTYPE html>
<html>
<body>
	<h2>{{.Subject}}</h2>
	<p>From {{.Name}} &lt;{{.Email}}&gt;</p>
	<p>{{.Message}}</p>
</body>
</html>`)),
}
