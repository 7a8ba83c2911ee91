package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/davicafu/hexacourses/internal/course/domain"
)

// --- Structs de BSON para el mapeo ---
// Se definen localmente para no "contaminar" el dominio con tags de BSON.

type mongoCourse struct {
	ID      int64  `bson:"_id"`
	Name    string `bson:"name"`
	Date    string `bson:"date"` // YYYY-MM-DD
	Number  int    `bson:"number"`
	Version int64  `bson:"version"`
}

// CourseRepoMongoDB opera siempre dentro de la sesión de MongoStore.Do.
type CourseRepoMongoDB struct {
	tx *txStore
}

func (r *CourseRepoMongoDB) coll() *mongo.Collection { return r.tx.store.courses }

func (r *CourseRepoMongoDB) Save(ctx context.Context, c *domain.Course) (*domain.Course, error) {
	if c.ID() == 0 {
		id, err := r.tx.store.nextID(r.tx.baseCtx, "courses")
		if err != nil {
			return nil, err
		}
		saved := c.WithID(domain.CourseID(id))
		if _, err := r.coll().InsertOne(ctx, toMongoCourse(saved)); err != nil {
			return nil, mapCourseErr(err)
		}
		return saved, nil
	}

	res, err := r.coll().UpdateOne(ctx,
		bson.M{"_id": int64(c.ID())},
		bson.M{
			"$set": bson.M{"name": c.Name(), "date": c.Date().String(), "number": c.Number()},
			"$inc": bson.M{"version": int64(1)},
		},
	)
	if err != nil {
		return nil, mapCourseErr(err)
	}
	if res.MatchedCount == 0 {
		return nil, domain.ErrCourseNotFound
	}
	return c, nil
}

func (r *CourseRepoMongoDB) FindByID(ctx context.Context, id domain.CourseID) (*domain.Course, error) {
	var mc mongoCourse
	if err := r.coll().FindOne(ctx, bson.M{"_id": int64(id)}).Decode(&mc); err != nil {
		if isNotFound(err) {
			return nil, domain.ErrCourseNotFound
		}
		return nil, err
	}

	participants, err := (&ParticipantRepoMongoDB{tx: r.tx}).FindByCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromMongoCourse(&mc, participants...)
}

// LockByID escribe en el documento de la carrera: dos transacciones que lo
// intenten a la vez chocan y el driver reintenta la perdedora.
func (r *CourseRepoMongoDB) LockByID(ctx context.Context, id domain.CourseID) (*domain.Course, error) {
	res, err := r.coll().UpdateOne(ctx, bson.M{"_id": int64(id)}, bson.M{"$inc": bson.M{"version": int64(1)}})
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, domain.ErrCourseNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *CourseRepoMongoDB) ExistsByDateAndNumber(ctx context.Context, date domain.Date, number int) (bool, error) {
	n, err := r.coll().CountDocuments(ctx, bson.M{"date": date.String(), "number": number}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *CourseRepoMongoDB) FindAll(ctx context.Context) ([]*domain.Course, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "number", Value: 1}})
	cursor, err := r.coll().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var courses []*domain.Course
	for cursor.Next(ctx) {
		var mc mongoCourse
		if err := cursor.Decode(&mc); err != nil {
			return nil, err
		}
		c, err := fromMongoCourse(&mc)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, cursor.Err()
}

func (r *CourseRepoMongoDB) DeleteByID(ctx context.Context, id domain.CourseID) error {
	res, err := r.coll().DeleteOne(ctx, bson.M{"_id": int64(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrCourseNotFound
	}
	_, err = r.tx.store.participants.DeleteMany(ctx, bson.M{"courseId": int64(id)})
	return err
}

func mapCourseErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicateCourse
	}
	return err
}

func toMongoCourse(c *domain.Course) mongoCourse {
	return mongoCourse{
		ID:     int64(c.ID()),
		Name:   c.Name(),
		Date:   c.Date().String(),
		Number: c.Number(),
	}
}

func fromMongoCourse(mc *mongoCourse, participants ...*domain.Participant) (*domain.Course, error) {
	date, err := domain.ParseDate(mc.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date in course document %d: %w", mc.ID, err)
	}
	return domain.ReconstituteCourse(domain.CourseID(mc.ID), mc.Name, date, mc.Number, participants...), nil
}

var _ domain.CourseRepository = (*CourseRepoMongoDB)(nil)
