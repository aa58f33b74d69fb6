package worker

import (
	"github.com/majstudio/community-bot/internal/service"
)

// StartNotificationWorker attaches the log channel mirror. It runs once the
// platform session is ready; entries recorded earlier are not mirrored.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartArchiveWorker attaches the Postgres archive subscriber.
func StartArchiveWorker(archiveService *service.ArchiveService) {
	if archiveService == nil {
		return
	}
	archiveService.RegisterHandlers()
}
