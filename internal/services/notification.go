package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/espressolabs/coffee-shop-platform/internal/errors"
	"github.com/espressolabs/coffee-shop-platform/internal/models"
	repository "github.com/espressolabs/coffee-shop-platform/internal/repositories"
	"github.com/espressolabs/coffee-shop-platform/internal/worker"
	"github.com/espressolabs/coffee-shop-platform/pkg/sendgrid"
	"github.com/google/uuid"
)

type NotificationService interface {
	// SendOrderConfirmation emails the order summary to its owner, off the
	// request path.
	SendOrderConfirmation(userID uuid.UUID, order *models.Order)
	SendEmail(ctx context.Context, req *models.EmailNotificationRequest) error
}

type notificationService struct {
	users        repository.UserRepository
	emailService sendgrid.EmailService
	queue        *worker.Queue
}

func NewNotificationService(users repository.UserRepository, emailService sendgrid.EmailService, queue *worker.Queue) NotificationService {
	return &notificationService{users: users, emailService: emailService, queue: queue}
}

func (n *notificationService) SendOrderConfirmation(userID uuid.UUID, order *models.Order) {

	n.queue.Enqueue("notification.orderConfirmation", func(ctx context.Context) error {

		user, err := n.users.GetUserByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("load user for order confirmation: %w", err)
		}

		return n.emailService.Send(ctx, &models.EmailNotificationRequest{
			To:      user.Email,
			Subject: fmt.Sprintf("Your order %s is in!", order.Code),
			Content: orderConfirmationBody(user.Name, order),
		})
	})
}

func (n *notificationService) SendEmail(ctx context.Context, req *models.EmailNotificationRequest) error {

	if err := n.emailService.Send(ctx, req); err != nil {
		return errors.ThirdPartyError("Failed to send email").WithError(err)
	}

	return nil
}

func orderConfirmationBody(name string, order *models.Order) string {

	var b strings.Builder

	fmt.Fprintf(&b, "Hi %s,\n\nThanks for your order %s.\n\n", name, order.Code)

	for _, line := range order.Items {
		fmt.Fprintf(&b, "  %dx %s", line.Quantity, line.Name)

		for _, opt := range line.SelectedOptions {
			fmt.Fprintf(&b, " | %s: %s", opt.Name, opt.Value)
		}

		fmt.Fprintf(&b, " - %.2f\n", line.Price.Total)
	}

	fmt.Fprintf(&b, "\nTotal: %.2f\nPayment: %s\nStatus: %s\n", order.TotalAmount, order.PaymentMethod, order.Status)

	return b.String()
}
