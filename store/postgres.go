package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"swipebite_server/config"
	"swipebite_server/models"
)

type sessionRow struct {
	ID                 string `gorm:"primaryKey;type:uuid"`
	HostID             string `gorm:"not null"`
	Status             string `gorm:"not null;index"`
	CreatedAt          time.Time
	MaxParticipants    int
	RequiresAllToMatch bool
	SessionCode        string `gorm:"not null;uniqueIndex"`
}

func (sessionRow) TableName() string { return "sessions" }

type participantRow struct {
	ID         string `gorm:"primaryKey;type:uuid"`
	SessionID  string `gorm:"not null;uniqueIndex:idx_participant_session_user"`
	UserID     string `gorm:"not null;uniqueIndex:idx_participant_session_user"`
	UserName   string
	UserEmail  string
	UserAvatar string
	Status     string    `gorm:"not null"`
	JoinedAt   time.Time `gorm:"not null"`
}

func (participantRow) TableName() string { return "session_participants" }

type swipeRow struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"not null;uniqueIndex:idx_swipe_session_user_recipe"`
	UserID    string `gorm:"not null;uniqueIndex:idx_swipe_session_user_recipe"`
	RecipeID  string `gorm:"not null;uniqueIndex:idx_swipe_session_user_recipe"`
	Liked     bool
	CreatedAt time.Time
}

func (swipeRow) TableName() string { return "session_swipes" }

type matchRow struct {
	SessionID string `gorm:"primaryKey"`
	RecipeID  string `gorm:"primaryKey"`
	CreatedAt time.Time
}

func (matchRow) TableName() string { return "session_matches" }

// PostgresBackend stores sessions relationally. Swipes and matches get rows
// of their own so uniqueness is enforced by indexes.
type PostgresBackend struct {
	db  *gorm.DB
	now func() time.Time
}

// OpenPostgres connects and, when configured, migrates the schema.
func OpenPostgres(cfg config.PostgresConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, models.NewPersistenceError("connect postgres", err)
	}
	if cfg.AutoMigrate {
		if err := db.AutoMigrate(&sessionRow{}, &participantRow{}, &swipeRow{}, &matchRow{}); err != nil {
			return nil, models.NewPersistenceError("migrate postgres", err)
		}
	}
	return db, nil
}

// NewPostgresBackend creates a backend over db.
func NewPostgresBackend(db *gorm.DB) *PostgresBackend {
	return &PostgresBackend{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func toParticipantRow(p models.SessionParticipant) participantRow {
	return participantRow{
		ID:         p.ID,
		SessionID:  p.SessionID,
		UserID:     p.User.ID,
		UserName:   p.User.Name,
		UserEmail:  p.User.Email,
		UserAvatar: p.User.Avatar,
		Status:     string(p.Status),
		JoinedAt:   p.JoinedAt,
	}
}

// buildSession assembles a session from its rows. Swipes must be in
// insertion order.
func buildSession(row sessionRow, participants []participantRow, swipes []swipeRow, matches []matchRow) *models.SwipeSession {
	s := &models.SwipeSession{
		ID:                 row.ID,
		HostID:             row.HostID,
		Matches:            make([]string, 0, len(matches)),
		Status:             models.SessionStatus(row.Status),
		CreatedAt:          row.CreatedAt,
		MaxParticipants:    row.MaxParticipants,
		RequiresAllToMatch: row.RequiresAllToMatch,
		SessionCode:        row.SessionCode,
	}

	sort.SliceStable(participants, func(i, j int) bool {
		return participants[i].JoinedAt.Before(participants[j].JoinedAt)
	})
	for _, pr := range participants {
		s.Participants = append(s.Participants, models.SessionParticipant{
			ID:        pr.ID,
			SessionID: pr.SessionID,
			UserID:    pr.UserID,
			User: models.User{
				ID:     pr.UserID,
				Name:   pr.UserName,
				Email:  pr.UserEmail,
				Avatar: pr.UserAvatar,
			},
			JoinedAt: pr.JoinedAt,
			Status:   models.ParticipantStatus(pr.Status),
			Likes:    []string{},
			Dislikes: []string{},
		})
	}

	for _, sw := range swipes {
		p := s.Participant(sw.UserID)
		if p == nil {
			continue
		}
		if sw.Liked {
			p.Likes = append(p.Likes, sw.RecipeID)
		} else {
			p.Dislikes = append(p.Dislikes, sw.RecipeID)
		}
		p.CurrentSwipeCount++
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	for _, m := range matches {
		s.Matches = append(s.Matches, m.RecipeID)
	}
	return s
}

func (p *PostgresBackend) CreateSession(ctx context.Context, host models.User, code string, maxParticipants int, requiresAllToMatch bool) (*models.SwipeSession, error) {
	now := p.now()
	row := sessionRow{
		ID:                 uuid.NewString(),
		HostID:             host.ID,
		Status:             string(models.SessionWaiting),
		CreatedAt:          now,
		MaxParticipants:    maxParticipants,
		RequiresAllToMatch: requiresAllToMatch,
		SessionCode:        code,
	}
	hostParticipant := newParticipant(row.ID, host, now)

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		pr := toParticipantRow(hostParticipant)
		return tx.Create(&pr).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, models.ErrSessionCodeTaken
	}
	if err != nil {
		return nil, models.NewPersistenceError("create session", err)
	}
	return buildSession(row, []participantRow{toParticipantRow(hostParticipant)}, nil, nil), nil
}

func (p *PostgresBackend) load(tx *gorm.DB, row sessionRow) (*models.SwipeSession, error) {
	var participants []participantRow
	if err := tx.Where("session_id = ?", row.ID).Find(&participants).Error; err != nil {
		return nil, err
	}
	var swipes []swipeRow
	if err := tx.Where("session_id = ?", row.ID).Order("id").Find(&swipes).Error; err != nil {
		return nil, err
	}
	var matches []matchRow
	if err := tx.Where("session_id = ?", row.ID).Find(&matches).Error; err != nil {
		return nil, err
	}
	return buildSession(row, participants, swipes, matches), nil
}

func (p *PostgresBackend) getSession(ctx context.Context, op string, query string, arg string) (*models.SwipeSession, error) {
	db := p.db.WithContext(ctx)
	var row sessionRow
	err := db.Where(query, arg).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, models.NewPersistenceError(op, err)
	}
	s, err := p.load(db, row)
	if err != nil {
		return nil, models.NewPersistenceError(op, err)
	}
	return s, nil
}

func (p *PostgresBackend) GetSession(ctx context.Context, sessionID string) (*models.SwipeSession, error) {
	return p.getSession(ctx, "get session", "id = ?", sessionID)
}

func (p *PostgresBackend) GetSessionByCode(ctx context.Context, code string) (*models.SwipeSession, error) {
	return p.getSession(ctx, "get session by code", "session_code = ?", code)
}

// lockSession reads the session row with FOR UPDATE inside tx.
func lockSession(tx *gorm.DB, sessionID string) (sessionRow, error) {
	var row sessionRow
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", sessionID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, models.ErrSessionNotFound
	}
	return row, err
}

// domainOr passes models sentinels through and wraps everything else.
func domainOr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		models.ErrSessionNotFound,
		models.ErrSessionClosed,
		models.ErrSessionFull,
		models.ErrRemovedFromSession,
		models.ErrUnauthorized,
		models.ErrParticipantNotFound,
		models.ErrNotInSession,
		models.ErrSessionNotStarted,
		models.ErrDuplicateSwipe,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return models.NewPersistenceError(op, err)
}

// AddParticipant holds the session row lock while counting, so concurrent
// joins can never overfill a session.
func (p *PostgresBackend) AddParticipant(ctx context.Context, sessionID string, user models.User) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockSession(tx, sessionID)
		if err != nil {
			return err
		}
		if models.SessionStatus(row.Status).Terminal() {
			return models.ErrSessionClosed
		}

		var existing participantRow
		err = tx.Where("session_id = ? AND user_id = ?", sessionID, user.ID).First(&existing).Error
		found := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if found {
			switch models.ParticipantStatus(existing.Status) {
			case models.ParticipantActive:
				return nil
			case models.ParticipantRemoved:
				return models.ErrRemovedFromSession
			}
		}

		var active int64
		if err := tx.Model(&participantRow{}).
			Where("session_id = ? AND status = ?", sessionID, string(models.ParticipantActive)).
			Count(&active).Error; err != nil {
			return err
		}
		if int(active) >= row.MaxParticipants {
			return models.ErrSessionFull
		}

		if found {
			return tx.Model(&existing).Updates(map[string]interface{}{
				"status":      string(models.ParticipantActive),
				"user_name":   user.Name,
				"user_email":  user.Email,
				"user_avatar": user.Avatar,
			}).Error
		}
		pr := toParticipantRow(newParticipant(sessionID, user, p.now()))
		return tx.Create(&pr).Error
	})
	return domainOr("add participant", err)
}

func (p *PostgresBackend) SetParticipantStatus(ctx context.Context, sessionID, userID string, status models.ParticipantStatus) error {
	res := p.db.WithContext(ctx).Model(&participantRow{}).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Update("status", string(status))
	if res.Error != nil {
		return models.NewPersistenceError("set participant status", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrParticipantNotFound
	}
	return nil
}

func (p *PostgresBackend) SetSessionActive(ctx context.Context, sessionID, hostUserID string) (bool, error) {
	changed := false
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockSession(tx, sessionID)
		if err != nil {
			return err
		}
		if row.HostID != hostUserID {
			return models.ErrUnauthorized
		}
		switch status := models.SessionStatus(row.Status); {
		case status == models.SessionActive:
			return nil
		case status.Terminal():
			return models.ErrSessionClosed
		}
		changed = true
		return tx.Model(&row).Update("status", string(models.SessionActive)).Error
	})
	if err != nil {
		return false, domainOr("start session", err)
	}
	return changed, nil
}

func (p *PostgresBackend) updateSession(ctx context.Context, op, sessionID, column string, value interface{}) error {
	res := p.db.WithContext(ctx).Model(&sessionRow{}).Where("id = ?", sessionID).Update(column, value)
	if res.Error != nil {
		return models.NewPersistenceError(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrSessionNotFound
	}
	return nil
}

func (p *PostgresBackend) SetSessionStatus(ctx context.Context, sessionID string, status models.SessionStatus) error {
	return p.updateSession(ctx, "set session status", sessionID, "status", string(status))
}

func (p *PostgresBackend) TransferHost(ctx context.Context, sessionID, newHostUserID string) error {
	return p.updateSession(ctx, "transfer host", sessionID, "host_id", newHostUserID)
}

func (p *PostgresBackend) RecordSwipe(ctx context.Context, sessionID, userID, recipeID string, isLike bool) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row sessionRow
		err := tx.Where("id = ?", sessionID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		if err := swipeAllowed(models.SessionStatus(row.Status)); err != nil {
			return err
		}

		var participant participantRow
		err = tx.Where("session_id = ? AND user_id = ?", sessionID, userID).First(&participant).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && participant.Status != string(models.ParticipantActive)) {
			return models.ErrNotInSession
		}
		if err != nil {
			return err
		}

		err = tx.Create(&swipeRow{
			SessionID: sessionID,
			UserID:    userID,
			RecipeID:  recipeID,
			Liked:     isLike,
			CreatedAt: p.now(),
		}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.ErrDuplicateSwipe
		}
		return err
	})
	return domainOr("record swipe", err)
}

func (p *PostgresBackend) AddMatch(ctx context.Context, sessionID, recipeID string) (bool, error) {
	db := p.db.WithContext(ctx)
	var count int64
	if err := db.Model(&sessionRow{}).Where("id = ?", sessionID).Count(&count).Error; err != nil {
		return false, models.NewPersistenceError("add match", err)
	}
	if count == 0 {
		return false, models.ErrSessionNotFound
	}

	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&matchRow{
		SessionID: sessionID,
		RecipeID:  recipeID,
		CreatedAt: p.now(),
	})
	if res.Error != nil {
		return false, models.NewPersistenceError("add match", res.Error)
	}
	return res.RowsAffected == 1, nil
}
