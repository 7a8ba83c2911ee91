package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/davicafu/hexacourses/internal/course/domain"
	sharedDomain "github.com/davicafu/hexacourses/internal/shared/domain"
	sharedMongo "github.com/davicafu/hexacourses/internal/shared/infra/platform/db/mongodb"
)

// MongoStore implementa domain.UnitOfWork con transacciones multi-documento.
// Requiere un replica set.
type MongoStore struct {
	client       *mongo.Client
	courses      *mongo.Collection
	participants *mongo.Collection
	counters     *mongo.Collection
	outbox       *mongo.Collection
}

// NewMongoStore es el constructor del almacenamiento.
func NewMongoStore(ctx context.Context, client *mongo.Client, dbName string) (*MongoStore, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	db := client.Database(dbName)
	return &MongoStore{
		client:       client,
		courses:      db.Collection("courses"),
		participants: db.Collection("participants"),
		counters:     db.Collection("counters"),
		outbox:       db.Collection(sharedMongo.OutboxCollection),
	}, nil
}

// EnsureIndexes crea los índices únicos de (fecha, número) y (carrera, dorsal).
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.courses.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "date", Value: 1}, {Key: "number", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("courses_date_number_key"),
	}); err != nil {
		return fmt.Errorf("create courses index: %w", err)
	}
	if _, err := s.participants.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "courseId", Value: 1}, {Key: "dossard", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("participants_course_dossard_key"),
	}); err != nil {
		return fmt.Errorf("create participants index: %w", err)
	}
	return sharedMongo.EnsureOutboxIndexes(ctx, s.outbox.Database())
}

// Do ejecuta fn dentro de session.WithTransaction; el driver reintenta fn
// ante conflictos de escritura transitorios.
func (s *MongoStore) Do(ctx context.Context, fn func(ctx context.Context, st domain.Store) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx, &txStore{store: s, baseCtx: ctx})
	})
	return err
}

// nextID reserva un identificador fuera de la transacción para que los
// contadores no sean un punto de conflicto; puede dejar huecos.
func (s *MongoStore) nextID(ctx context.Context, name string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	return doc.Seq, nil
}

type txStore struct {
	store   *MongoStore
	baseCtx context.Context
}

func (t *txStore) Courses() domain.CourseRepository           { return &CourseRepoMongoDB{tx: t} }
func (t *txStore) Participants() domain.ParticipantRepository { return &ParticipantRepoMongoDB{tx: t} }
func (t *txStore) Outbox() domain.OutboxWriter                { return outboxWriter{tx: t} }

type outboxWriter struct {
	tx *txStore
}

func (w outboxWriter) Insert(ctx context.Context, evt sharedDomain.OutboxEvent) error {
	return sharedMongo.InsertOutbox(ctx, w.tx.store.outbox, evt)
}

func isNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// Verificación en tiempo de compilación.
var _ domain.UnitOfWork = (*MongoStore)(nil)
