package worker

import (
	"github.com/spec-kit/marketplace-service/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to the
// in-process dispatcher. Delivery runs synchronously on publish.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
