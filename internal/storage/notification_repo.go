package storage

import (
	"database/sql"
	"fmt"

	"github.com/MimoJanra/DomainReport/internal/models"
)

const (
	NotificationTelegram = "telegram"
	NotificationSlack    = "slack"
)

const notificationColumns = "id, type, enabled, token, chat_id, webhook_url, notify_on_failure, notify_on_success"

type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) GetAll() ([]models.NotificationSettings, error) {
	rows, err := r.db.Query("SELECT " + notificationColumns + " FROM notification_settings ORDER BY id")
	if err != nil {
		return nil, err
	}
	return scanNotificationRows(rows)
}

func (r *NotificationRepo) GetEnabled() ([]models.NotificationSettings, error) {
	rows, err := r.db.Query("SELECT " + notificationColumns + " FROM notification_settings WHERE enabled = 1 ORDER BY id")
	if err != nil {
		return nil, err
	}
	return scanNotificationRows(rows)
}

func (r *NotificationRepo) GetByID(id int) (models.NotificationSettings, error) {
	row := r.db.QueryRow("SELECT "+notificationColumns+" FROM notification_settings WHERE id = ?", id)
	s, err := scanNotification(row)
	return s, notFound(err)
}

func (r *NotificationRepo) Add(settings models.NotificationSettings) (models.NotificationSettings, error) {
	if err := validateNotification(settings); err != nil {
		return models.NotificationSettings{}, err
	}

	res, err := r.db.Exec(`
		INSERT INTO notification_settings(type, enabled, token, chat_id, webhook_url, notify_on_failure, notify_on_success)
		VALUES(?, ?, ?, ?, ?, ?, ?)
	`, settings.Type, boolToInt(settings.Enabled), settings.Token, settings.ChatID, settings.WebhookURL,
		boolToInt(settings.NotifyOnFailure), boolToInt(settings.NotifyOnSuccess))
	if err != nil {
		return models.NotificationSettings{}, err
	}
	id, _ := res.LastInsertId()
	settings.ID = int(id)
	return settings, nil
}

func (r *NotificationRepo) Delete(id int) error {
	res, err := r.db.Exec(`DELETE FROM notification_settings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func validateNotification(s models.NotificationSettings) error {
	switch s.Type {
	case NotificationTelegram:
		if s.Token == "" || s.ChatID == "" {
			return fmt.Errorf("telegram notifications need token and chat_id")
		}
	case NotificationSlack:
		if s.WebhookURL == "" {
			return fmt.Errorf("slack notifications need webhook_url")
		}
	default:
		return fmt.Errorf("unsupported notification type: %s", s.Type)
	}
	return nil
}

func scanNotificationRows(rows *sql.Rows) ([]models.NotificationSettings, error) {
	defer rows.Close()

	settings := []models.NotificationSettings{}
	for rows.Next() {
		s, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

func scanNotification(row rowScanner) (models.NotificationSettings, error) {
	var s models.NotificationSettings
	var token, chatID, webhookURL sql.NullString
	if err := row.Scan(&s.ID, &s.Type, &s.Enabled, &token, &chatID, &webhookURL, &s.NotifyOnFailure, &s.NotifyOnSuccess); err != nil {
		return models.NotificationSettings{}, err
	}
	s.Token = token.String
	s.ChatID = chatID.String
	s.WebhookURL = webhookURL.String
	return s, nil
}
