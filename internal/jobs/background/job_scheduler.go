package background

import (
	"context"
	"log"
	"sync"

	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/jobs"

	"github.com/go-co-op/gocron/v2"
)

// JobScheduler manages the background jobs. The reminder sweep runs as
// a singleton job so a slow sweep is never overlapped by the next tick.
type JobScheduler struct {
	scheduler   gocron.Scheduler
	reminderJob *jobs.PaymentReminderJob
	jobs        map[string]gocron.Job
	mu          sync.RWMutex
}

// NewJobScheduler creates a scheduler with the reminder sweep registered
// at the given hour of day.
func NewJobScheduler(reminderJob *jobs.PaymentReminderJob, reminderHour int) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler:   scheduler,
		reminderJob: reminderJob,
		jobs:        make(map[string]gocron.Job),
	}

	if err := js.registerJobs(reminderHour); err != nil {
		return nil, err
	}

	return js, nil
}

func (js *JobScheduler) registerJobs(reminderHour int) error {
	remindersJob, err := js.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(reminderHour), 0, 0))),
		gocron.NewTask(func() {
			if err := js.reminderJob.Run(context.Background()); err != nil {
				log.Printf("Payment reminder sweep failed: %v", err)
			}
		}),
		gocron.WithName("payment-reminders"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}
	js.jobs["payment-reminders"] = remindersJob

	log.Printf("Registered %d background jobs", len(js.jobs))
	return nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
}

// Stop stops the job scheduler
func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

// JobNames returns the names of registered jobs, for the health endpoint.
func (js *JobScheduler) JobNames() []string {
	js.mu.RLock()
	defer js.mu.RUnlock()

	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	return names
}
