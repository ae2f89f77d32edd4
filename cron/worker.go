package cron

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"reservo/config"
	"reservo/models"
	"reservo/utils"
)

const TypeReservationRemind = "reservation:remind"

// ReminderPayload is the task body for a scheduled reservation reminder.
type ReminderPayload struct {
	ReservationID string `json:"reservationId"`
	BusinessID    string `json:"businessId"`
	UserID        string `json:"userId"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

func redisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// Scheduler enqueues reminder tasks to fire shortly before the reserved
// time. It satisfies the committer's ReminderScheduler.
type Scheduler struct {
	client *asynq.Client
	lead   time.Duration
}

func NewScheduler() *Scheduler {
	lead := config.AppConfig.ReminderLead
	if lead <= 0 {
		lead = 2 * time.Hour
	}
	return &Scheduler{
		client: asynq.NewClient(redisOpts()),
		lead:   lead,
	}
}

// ScheduleReminder enqueues one reminder for a confirmed reservation.
// Reservations too close to their start time get no reminder.
func (s *Scheduler) ScheduleReminder(res *models.Reservation) error {
	at, err := time.ParseInLocation("2006-01-02 15:04", res.Date+" "+res.Time, time.Local)
	if err != nil {
		return err
	}
	fireAt := at.Add(-s.lead)
	if fireAt.Before(time.Now()) {
		return nil
	}

	payload, err := json.Marshal(ReminderPayload{
		ReservationID: res.ID,
		BusinessID:    res.BusinessID,
		UserID:        res.UserID,
		Date:          res.Date,
		Time:          res.Time,
	})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TypeReservationRemind, payload)
	_, err = s.client.Enqueue(task, asynq.ProcessAt(fireAt), asynq.MaxRetry(3))
	return err
}

func (s *Scheduler) Close() error {
	return s.client.Close()
}

// Notifier delivers a due reminder to the customer. The default
// implementation logs it; outbound channels (SMS, WhatsApp) plug in here.
type Notifier interface {
	NotifyReservationReminder(ctx context.Context, p ReminderPayload) error
}

// LogNotifier writes reminders to the structured log.
type LogNotifier struct{}

func (LogNotifier) NotifyReservationReminder(_ context.Context, p ReminderPayload) error {
	utils.GetLogger().Info("reservation reminder due",
		zap.String("reservationId", p.ReservationID),
		zap.String("userId", p.UserID),
		zap.String("date", p.Date),
		zap.String("time", p.Time))
	return nil
}

// InitReminderWorker runs the async reminder worker in the background.
func InitReminderWorker(notifier Notifier) {
	logger := utils.GetLogger()

	srv := asynq.NewServer(
		redisOpts(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeReservationRemind, handleReminderTask(notifier))

	go func() {
		logger.Info("starting reservation reminder worker")
		const maxAttempts = 5
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			err := srv.Run(mux)
			if err == nil {
				return
			}
			logger.Warn("reminder worker failed to start",
				zap.Int("attempt", attempt),
				zap.Error(err))
			if attempt == maxAttempts {
				logger.Error("reminder worker giving up")
				return
			}
			time.Sleep(time.Duration(attempt*2) * time.Second)
		}
	}()
}

func handleReminderTask(notifier Notifier) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p ReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			utils.GetLogger().Error("invalid reminder payload", zap.Error(err))
			return err
		}
		return notifier.NotifyReservationReminder(ctx, p)
	}
}
