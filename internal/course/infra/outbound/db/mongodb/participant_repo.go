package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/davicafu/hexacourses/internal/course/domain"
)

type mongoParticipant struct {
	ID       int64  `bson:"_id"`
	CourseID int64  `bson:"courseId"`
	Name     string `bson:"name"`
	Dossard  int    `bson:"dossard"`
}

type ParticipantRepoMongoDB struct {
	tx *txStore
}

func (r *ParticipantRepoMongoDB) coll() *mongo.Collection { return r.tx.store.participants }

func (r *ParticipantRepoMongoDB) Save(ctx context.Context, courseID domain.CourseID, p *domain.Participant) (*domain.Participant, error) {
	id, err := r.tx.store.nextID(r.tx.baseCtx, "participants")
	if err != nil {
		return nil, err
	}

	doc := mongoParticipant{ID: id, CourseID: int64(courseID), Name: p.Name(), Dossard: p.Dossard()}
	if _, err := r.coll().InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateDossard
		}
		return nil, err
	}
	return domain.ReconstituteParticipant(domain.ParticipantID(id), courseID, p.Name(), p.Dossard()), nil
}

func (r *ParticipantRepoMongoDB) FindByID(ctx context.Context, id domain.ParticipantID) (*domain.Participant, error) {
	var mp mongoParticipant
	if err := r.coll().FindOne(ctx, bson.M{"_id": int64(id)}).Decode(&mp); err != nil {
		if isNotFound(err) {
			return nil, domain.ErrParticipantNotFound
		}
		return nil, err
	}
	return fromMongoParticipant(&mp), nil
}

func (r *ParticipantRepoMongoDB) FindByCourse(ctx context.Context, courseID domain.CourseID) ([]*domain.Participant, error) {
	cursor, err := r.coll().Find(ctx, bson.M{"courseId": int64(courseID)}, options.Find().SetSort(bson.D{{Key: "dossard", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var participants []*domain.Participant
	for cursor.Next(ctx) {
		var mp mongoParticipant
		if err := cursor.Decode(&mp); err != nil {
			return nil, err
		}
		participants = append(participants, fromMongoParticipant(&mp))
	}
	return participants, cursor.Err()
}

func fromMongoParticipant(mp *mongoParticipant) *domain.Participant {
	return domain.ReconstituteParticipant(domain.ParticipantID(mp.ID), domain.CourseID(mp.CourseID), mp.Name, mp.Dossard)
}

var _ domain.ParticipantRepository = (*ParticipantRepoMongoDB)(nil)
