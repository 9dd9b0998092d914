package repository

import (
	"context"
	"errors"

	"practice-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrStaleSession means a conditional update lost against a concurrent
// submission for the same session.
var ErrStaleSession = errors.New("session was modified concurrently")

type SessionRepository struct {
	Col *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{Col: db.Collection("sessions")}
}

func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.PracticeSession, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var session models.PracticeSession
	if err := r.Col.FindOne(ctx, bson.M{"_id": objID}).Decode(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Create(ctx context.Context, session *models.PracticeSession) error {
	res, err := r.Col.InsertOne(ctx, session)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		session.ID = oid.Hex()
	}
	return nil
}

func (r *SessionRepository) Update(ctx context.Context, id string, update bson.M) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Col.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": update})
	return err
}

// UpdateAtCursor applies the update only if the stored cursor still matches
// expectIndex. This is the cross-request guard against two answer
// submissions mutating the same session concurrently: the loser sees
// ErrStaleSession instead of double-penalizing.
func (r *SessionRepository) UpdateAtCursor(ctx context.Context, id string, expectIndex int, update bson.M) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	res, err := r.Col.UpdateOne(
		ctx,
		bson.M{"_id": objID, "current_index": expectIndex, "status": models.SessionStatusActive},
		bson.M{"$set": update},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrStaleSession
	}
	return nil
}

// ClaimCursor atomically marks the current challenge as having an answer in
// flight and records the selection. The conditional filter is the
// one-commit-at-a-time guard: of two concurrent submissions for the same
// cursor, the loser fails here, before any backend mutation is issued.
func (r *SessionRepository) ClaimCursor(ctx context.Context, id string, expectIndex int, optionID string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	res, err := r.Col.UpdateOne(
		ctx,
		bson.M{
			"_id":              objID,
			"current_index":    expectIndex,
			"status":           models.SessionStatusActive,
			"answer_in_flight": bson.M{"$ne": true},
		},
		bson.M{"$set": bson.M{"answer_in_flight": true, "selected_option_id": optionID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrStaleSession
	}
	return nil
}

// ReleaseCursor clears the in-flight marker after a failed commit. The
// selection stays retained so the learner can retry the same answer.
func (r *SessionRepository) ReleaseCursor(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Col.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": bson.M{"answer_in_flight": false}})
	return err
}

// FindActiveByUserAndLesson returns an in-flight session to resume, if any.
func (r *SessionRepository) FindActiveByUserAndLesson(ctx context.Context, userID, lessonID string) (*models.PracticeSession, error) {
	var session models.PracticeSession
	err := r.Col.FindOne(ctx, bson.M{
		"user_id":   userID,
		"lesson_id": lessonID,
		"status":    bson.M{"$in": []string{models.SessionStatusActive, models.SessionStatusHeartsExhausted}},
	}).Decode(&session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
