package tasks

import "github.com/hibiken/asynq"

// TaskEnqueuer is the interface for enqueuing background tasks. It is
// implemented by asynq.Client and can be faked in tests.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}
