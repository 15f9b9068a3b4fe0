package worker

import (
	"github.com/spec-kit/grievance-service/internal/service"
)

// StartNotificationWorker subscribes the notification fan-out to every issue and score event.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
