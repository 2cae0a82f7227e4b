package jobs

import "github.com/taskboard/taskboard-api/internal/queue"

// Register binds every job processor to its queue.
func Register(
	q queue.Queue,
	notifications *NotificationProcessor,
	cleanup *CleanupProcessor,
) {
	q.RegisterProcessor(queue.QueueCreateNotification, notifications.ProcessCreateNotification)
	q.RegisterProcessor(queue.QueueCreateNotifications, notifications.ProcessCreateNotifications)
	q.RegisterProcessor(queue.QueueTaskCleanup, cleanup.ProcessCleanup)
}
