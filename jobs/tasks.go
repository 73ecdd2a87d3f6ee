package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeMaintenanceNotify is the task type for maintenance request
	// notifications.
	TaskTypeMaintenanceNotify = "maintenance:notify"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// MaintenanceNotifyPayload carries the data for a maintenance notification.
type MaintenanceNotifyPayload struct {
	RequestID  int64     `json:"request_id"`
	PropertyID int64     `json:"property_id"`
	Title      string    `json:"title"`
	Priority   string    `json:"priority"`
	ReportedAt time.Time `json:"reported_at"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewMaintenanceNotifyTask constructs an Asynq task.
func NewMaintenanceNotifyTask(payload MaintenanceNotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeMaintenanceNotify, data), nil
}
