package mongodb

import (
	"context"
	"fmt"
	"time"

	sharedDomain "github.com/davicafu/hexacourses/internal/shared/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const OutboxCollection = "outbox"

// OutboxRepoMongoDB implementa la interfaz sharedDomain.OutboxRepository.
type OutboxRepoMongoDB struct {
	outboxColl *mongo.Collection
}

func NewOutboxRepoMongoDB(client *mongo.Client, dbName string) *OutboxRepoMongoDB {
	outboxColl := client.Database(dbName).Collection(OutboxCollection)
	return &OutboxRepoMongoDB{outboxColl: outboxColl}
}

// mongoOutboxEvent es un helper para mapear los documentos de la base de datos a un struct.
// createdAtNs conserva la precisión que el tipo fecha de BSON (milisegundos) pierde.
type mongoOutboxEvent struct {
	ID            string    `bson:"_id"`
	AggregateType string    `bson:"aggregateType"`
	AggregateID   string    `bson:"aggregateId"`
	Topic         string    `bson:"topic"`
	Payload       string    `bson:"payload"`
	CreatedAt     time.Time `bson:"createdAt"`
	CreatedAtNs   int64     `bson:"createdAtNs"`
	Sent          bool      `bson:"sent"`
}

// EnsureOutboxIndexes crea el índice que sirve a FetchPendingOutbox.
func EnsureOutboxIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(OutboxCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "sent", Value: 1}, {Key: "createdAtNs", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create outbox index: %w", err)
	}
	return nil
}

// InsertOutbox añade el evento; con un SessionContext participa en la transacción.
func InsertOutbox(ctx context.Context, coll *mongo.Collection, evt sharedDomain.OutboxEvent) error {
	if _, err := coll.InsertOne(ctx, toMongoOutboxEvent(evt)); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// FetchPendingOutbox obtiene los eventos no enviados de la colección outbox.
func (r *OutboxRepoMongoDB) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	// Filtro para buscar documentos no enviados.
	filter := bson.M{"sent": false}

	// Opciones para ordenar por fecha y limitar el número de documentos.
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAtNs", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.outboxColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []sharedDomain.OutboxEvent
	for cursor.Next(ctx) {
		var mo mongoOutboxEvent
		if err := cursor.Decode(&mo); err != nil {
			return nil, err
		}
		evt, err := fromMongoOutboxEvent(&mo)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}

	return events, cursor.Err()
}

// SaveAll persiste el estado sent con una única escritura por lotes.
func (r *OutboxRepoMongoDB) SaveAll(ctx context.Context, evts []sharedDomain.OutboxEvent) error {
	if len(evts) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(evts))
	for _, evt := range evts {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": evt.ID.String()}).
			SetUpdate(bson.M{"$set": bson.M{"sent": evt.Sent}}))
	}

	if _, err := r.outboxColl.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func toMongoOutboxEvent(evt sharedDomain.OutboxEvent) mongoOutboxEvent {
	return mongoOutboxEvent{
		ID:            evt.ID.String(),
		AggregateType: evt.AggregateType,
		AggregateID:   evt.AggregateID,
		Topic:         evt.Topic,
		Payload:       evt.Payload,
		CreatedAt:     evt.CreatedAt,
		CreatedAtNs:   evt.CreatedAt.UnixNano(),
		Sent:          evt.Sent,
	}
}

// fromMongoOutboxEvent es un helper para convertir de BSON a nuestro tipo de dominio.
func fromMongoOutboxEvent(mo *mongoOutboxEvent) (sharedDomain.OutboxEvent, error) {
	id, err := uuid.Parse(mo.ID)
	if err != nil {
		return sharedDomain.OutboxEvent{}, fmt.Errorf("invalid UUID in outbox document: %w", err)
	}
	return sharedDomain.OutboxEvent{
		ID:            id,
		AggregateType: mo.AggregateType,
		AggregateID:   mo.AggregateID,
		Topic:         mo.Topic,
		Payload:       mo.Payload,
		CreatedAt:     time.Unix(0, mo.CreatedAtNs).UTC(),
		Sent:          mo.Sent,
	}, nil
}

// Verificación en tiempo de compilación.
var _ sharedDomain.OutboxRepository = (*OutboxRepoMongoDB)(nil)
