package tasks

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API to manage background polling.
//
//	scheduler := NewScheduler(pipeline, feedURLs, opts)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueAll()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueAll() (int, int)
}
