package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"swipebite_server/config"
	"swipebite_server/models"
	"swipebite_server/utils"
)

// codeKeyPrefix marks code reservation items stored in the sessions table.
// The reservation is a conditional put, which is how DynamoDB enforces
// unique session codes.
const codeKeyPrefix = "CODE#"

type codeItem struct {
	Key             string `dynamodbav:"sessionId"`
	TargetSessionID string `dynamodbav:"targetSessionId"`
}

// DynamoBackend stores sessions in two tables:
//
//	Sessions             PK sessionId            (also CODE#<code> reservations)
//	SessionParticipants  PK sessionId, SK userId
type DynamoBackend struct {
	Dynamo            *DynamoService
	sessionsTable     string
	participantsTable string
	now               func() time.Time
}

// NewDynamoBackend creates a backend over the configured tables.
func NewDynamoBackend(dynamo *DynamoService, cfg config.DynamoConfig) *DynamoBackend {
	return &DynamoBackend{
		Dynamo:            dynamo,
		sessionsTable:     cfg.SessionsTable,
		participantsTable: cfg.ParticipantsTable,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

func sessionKey(sessionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"sessionId": utils.S(sessionID)}
}

func participantKey(sessionID, userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"sessionId": utils.S(sessionID),
		"userId":    utils.S(userID),
	}
}

func (d *DynamoBackend) CreateSession(ctx context.Context, host models.User, code string, maxParticipants int, requiresAllToMatch bool) (*models.SwipeSession, error) {
	now := d.now()
	s := &models.SwipeSession{
		ID:                 uuid.NewString(),
		HostID:             host.ID,
		Matches:            []string{},
		Status:             models.SessionWaiting,
		CreatedAt:          now,
		MaxParticipants:    maxParticipants,
		RequiresAllToMatch: requiresAllToMatch,
		SessionCode:        code,
	}

	reservation := codeItem{Key: codeKeyPrefix + code, TargetSessionID: s.ID}
	err := d.Dynamo.PutItem(ctx, d.sessionsTable, reservation, "attribute_not_exists(sessionId)", nil)
	if utils.IsConditionalCheckFailed(err) {
		return nil, models.ErrSessionCodeTaken
	}
	if err != nil {
		return nil, models.NewPersistenceError("reserve session code", err)
	}

	if err := d.Dynamo.PutItem(ctx, d.sessionsTable, s, "", nil); err != nil {
		return nil, models.NewPersistenceError("create session", err)
	}

	hostParticipant := newParticipant(s.ID, host, now)
	if err := d.Dynamo.PutItem(ctx, d.participantsTable, hostParticipant, "", nil); err != nil {
		return nil, models.NewPersistenceError("add host participant", err)
	}

	s.Participants = []models.SessionParticipant{hostParticipant}
	return s, nil
}

func (d *DynamoBackend) getSessionItem(ctx context.Context, sessionID string) (*models.SwipeSession, error) {
	var s models.SwipeSession
	err := d.Dynamo.GetItem(ctx, d.sessionsTable, sessionKey(sessionID), &s)
	if errors.Is(err, errItemNotFound) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, models.NewPersistenceError("get session", err)
	}
	return &s, nil
}

func (d *DynamoBackend) getParticipant(ctx context.Context, sessionID, userID string) (*models.SessionParticipant, error) {
	var p models.SessionParticipant
	err := d.Dynamo.GetItem(ctx, d.participantsTable, participantKey(sessionID, userID), &p)
	if errors.Is(err, errItemNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewPersistenceError("get participant", err)
	}
	return &p, nil
}

func (d *DynamoBackend) GetSession(ctx context.Context, sessionID string) (*models.SwipeSession, error) {
	s, err := d.getSessionItem(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var participants []models.SessionParticipant
	err = d.Dynamo.QueryItems(ctx, d.participantsTable, "sessionId = :sid",
		map[string]types.AttributeValue{":sid": utils.S(sessionID)}, &participants)
	if err != nil {
		return nil, models.NewPersistenceError("list participants", err)
	}
	sort.SliceStable(participants, func(i, j int) bool {
		return participants[i].JoinedAt.Before(participants[j].JoinedAt)
	})
	s.Participants = participants
	return s.Clone(), nil
}

func (d *DynamoBackend) GetSessionByCode(ctx context.Context, code string) (*models.SwipeSession, error) {
	var reservation codeItem
	err := d.Dynamo.GetItem(ctx, d.sessionsTable, sessionKey(codeKeyPrefix+code), &reservation)
	if errors.Is(err, errItemNotFound) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, models.NewPersistenceError("get session by code", err)
	}
	return d.GetSession(ctx, reservation.TargetSessionID)
}

// AddParticipant checks capacity against a consistent read of the roster.
// DynamoDB offers no cross-item constraint here, so two simultaneous joins
// for the last seat can both pass.
func (d *DynamoBackend) AddParticipant(ctx context.Context, sessionID string, user models.User) error {
	s, err := d.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.Status.Terminal() {
		return models.ErrSessionClosed
	}

	existing := s.Participant(user.ID)
	if existing != nil {
		switch existing.Status {
		case models.ParticipantActive:
			return nil
		case models.ParticipantRemoved:
			return models.ErrRemovedFromSession
		}
	}
	if s.ActiveCount() >= s.MaxParticipants {
		return models.ErrSessionFull
	}

	if existing != nil {
		userAV, err := marshalUser(user)
		if err != nil {
			return models.NewPersistenceError("rejoin participant", err)
		}
		err = d.Dynamo.UpdateItem(ctx, d.participantsTable, participantKey(sessionID, user.ID),
			"SET #status = :active, #user = :user", "attribute_exists(userId)",
			map[string]types.AttributeValue{
				":active": utils.S(string(models.ParticipantActive)),
				":user":   userAV,
			},
			map[string]string{"#status": "status", "#user": "user"},
		)
		if err != nil {
			return models.NewPersistenceError("rejoin participant", err)
		}
		return nil
	}

	p := newParticipant(sessionID, user, d.now())
	err = d.Dynamo.PutItem(ctx, d.participantsTable, p, "attribute_not_exists(userId)", nil)
	if utils.IsConditionalCheckFailed(err) {
		// Another request for the same user won the race.
		return nil
	}
	if err != nil {
		return models.NewPersistenceError("add participant", err)
	}
	return nil
}

func (d *DynamoBackend) SetParticipantStatus(ctx context.Context, sessionID, userID string, status models.ParticipantStatus) error {
	err := d.Dynamo.UpdateItem(ctx, d.participantsTable, participantKey(sessionID, userID),
		"SET #status = :status", "attribute_exists(userId)",
		map[string]types.AttributeValue{":status": utils.S(string(status))},
		map[string]string{"#status": "status"},
	)
	if utils.IsConditionalCheckFailed(err) {
		return models.ErrParticipantNotFound
	}
	if err != nil {
		return models.NewPersistenceError("set participant status", err)
	}
	return nil
}

func (d *DynamoBackend) SetSessionActive(ctx context.Context, sessionID, hostUserID string) (bool, error) {
	err := d.Dynamo.UpdateItem(ctx, d.sessionsTable, sessionKey(sessionID),
		"SET #status = :active", "hostId = :host AND #status = :waiting",
		map[string]types.AttributeValue{
			":active":  utils.S(string(models.SessionActive)),
			":waiting": utils.S(string(models.SessionWaiting)),
			":host":    utils.S(hostUserID),
		},
		map[string]string{"#status": "status"},
	)
	if err == nil {
		return true, nil
	}
	if !utils.IsConditionalCheckFailed(err) {
		return false, models.NewPersistenceError("start session", err)
	}

	// Work out which part of the condition failed.
	s, gerr := d.getSessionItem(ctx, sessionID)
	if gerr != nil {
		return false, gerr
	}
	switch {
	case s.HostID != hostUserID:
		return false, models.ErrUnauthorized
	case s.Status == models.SessionActive:
		return false, nil
	default:
		return false, models.ErrSessionClosed
	}
}

func (d *DynamoBackend) SetSessionStatus(ctx context.Context, sessionID string, status models.SessionStatus) error {
	err := d.Dynamo.UpdateItem(ctx, d.sessionsTable, sessionKey(sessionID),
		"SET #status = :status", "attribute_exists(sessionId)",
		map[string]types.AttributeValue{":status": utils.S(string(status))},
		map[string]string{"#status": "status"},
	)
	if utils.IsConditionalCheckFailed(err) {
		return models.ErrSessionNotFound
	}
	if err != nil {
		return models.NewPersistenceError("set session status", err)
	}
	return nil
}

func (d *DynamoBackend) TransferHost(ctx context.Context, sessionID, newHostUserID string) error {
	err := d.Dynamo.UpdateItem(ctx, d.sessionsTable, sessionKey(sessionID),
		"SET hostId = :host", "attribute_exists(sessionId)",
		map[string]types.AttributeValue{":host": utils.S(newHostUserID)},
		nil,
	)
	if utils.IsConditionalCheckFailed(err) {
		return models.ErrSessionNotFound
	}
	if err != nil {
		return models.NewPersistenceError("transfer host", err)
	}
	return nil
}

// RecordSwipe appends to likes or dislikes in one conditional update, so a
// recipe lands in at most one list once and swipeCount always matches.
func (d *DynamoBackend) RecordSwipe(ctx context.Context, sessionID, userID, recipeID string, isLike bool) error {
	s, err := d.getSessionItem(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := swipeAllowed(s.Status); err != nil {
		return err
	}

	list := "#dislikes"
	if isLike {
		list = "#likes"
	}
	update := fmt.Sprintf("SET %s = list_append(if_not_exists(%s, :empty), :recipe), #count = if_not_exists(#count, :zero) + :one", list, list)
	condition := "attribute_exists(userId) AND #status = :active AND NOT contains(#likes, :recipeId) AND NOT contains(#dislikes, :recipeId)"

	err = d.Dynamo.UpdateItem(ctx, d.participantsTable, participantKey(sessionID, userID), update, condition,
		map[string]types.AttributeValue{
			":empty":    utils.StringList(),
			":recipe":   utils.StringList(recipeID),
			":recipeId": utils.S(recipeID),
			":zero":     &types.AttributeValueMemberN{Value: "0"},
			":one":      &types.AttributeValueMemberN{Value: "1"},
			":active":   utils.S(string(models.ParticipantActive)),
		},
		map[string]string{
			"#likes":    "likes",
			"#dislikes": "dislikes",
			"#count":    "swipeCount",
			"#status":   "status",
		},
	)
	if err == nil {
		return nil
	}
	if !utils.IsConditionalCheckFailed(err) {
		return models.NewPersistenceError("record swipe", err)
	}

	p, gerr := d.getParticipant(ctx, sessionID, userID)
	if gerr != nil {
		return gerr
	}
	if p == nil || !p.IsActive() {
		return models.ErrNotInSession
	}
	return models.ErrDuplicateSwipe
}

// AddMatch appends recipeID unless it is already present.
func (d *DynamoBackend) AddMatch(ctx context.Context, sessionID, recipeID string) (bool, error) {
	err := d.Dynamo.UpdateItem(ctx, d.sessionsTable, sessionKey(sessionID),
		"SET #matches = list_append(if_not_exists(#matches, :empty), :recipe)",
		"attribute_exists(sessionId) AND NOT contains(#matches, :recipeId)",
		map[string]types.AttributeValue{
			":empty":    utils.StringList(),
			":recipe":   utils.StringList(recipeID),
			":recipeId": utils.S(recipeID),
		},
		map[string]string{"#matches": "matches"},
	)
	if err == nil {
		return true, nil
	}
	if !utils.IsConditionalCheckFailed(err) {
		return false, models.NewPersistenceError("add match", err)
	}
	if _, err := d.getSessionItem(ctx, sessionID); err != nil {
		return false, err
	}
	return false, nil
}

func marshalUser(u models.User) (types.AttributeValue, error) {
	return attributevalue.Marshal(u)
}
