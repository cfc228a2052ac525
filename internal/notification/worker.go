package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"lubelogger-bridge/internal/model"
)

// ReminderAlert is a job for the worker pool: one vehicle's next
// maintenance reminder crossed into overdue or very urgent.
type ReminderAlert struct {
	VehicleID   int64
	VehicleName string
	Description string
	DueDays     *int
	DueDistance *float64
}

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers for sending reminder alerts.
type WorkerPool struct {
	size    int
	jobs    chan ReminderAlert
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan ReminderAlert, size), // Buffered channel
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Notification worker %d started", id)
	for {
		select {
		case alert := <-wp.jobs:
			log.Printf("Notification worker %d processing alert for vehicle %d", id, alert.VehicleID)
			wp.sendAlertToSubscribers(ctx, alert)
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch sends a job to the worker pool.
func (wp *WorkerPool) Dispatch(alert ReminderAlert) {
	wp.jobs <- alert
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan ReminderAlert {
	return wp.jobs
}

// sendAlertToSubscribers fetches the subscriptions for the alert's
// vehicle and pushes the message to each.
func (wp *WorkerPool) sendAlertToSubscribers(ctx context.Context, alert ReminderAlert) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_vehicle_mapping svm ON svm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("svm.vehicle_id = ?", alert.VehicleID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for vehicle %d: %v", alert.VehicleID, err)
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	message := formatAlert(alert)
	log.Printf("Sending %d notifications for vehicle %d", len(subscriptions), alert.VehicleID)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

func formatAlert(alert ReminderAlert) string {
	message := fmt.Sprintf("%s: %q is due", alert.VehicleName, alert.Description)
	switch {
	case alert.DueDays != nil && *alert.DueDays < 0:
		message = fmt.Sprintf("%s, overdue by %d days", message, -*alert.DueDays)
	case alert.DueDistance != nil && *alert.DueDistance < 0:
		message = fmt.Sprintf("%s, overdue by %.0f", message, -*alert.DueDistance)
	case alert.DueDays != nil:
		message = fmt.Sprintf("%s in %d days", message, *alert.DueDays)
	}
	return message
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
