package domain

import (
	sharedDomain "github.com/davicafu/hexacourses/internal/shared/domain"
	"github.com/davicafu/hexacourses/internal/shared/events"
)

// Constructores de los registros outbox que emite el agregado.

func CourseCreatedEvent(c *Course) (sharedDomain.OutboxEvent, error) {
	return sharedDomain.NewOutboxEvent(AggregateCourse, c.ID().String(), TopicCourseCreated, events.CourseCreated{
		CourseID: int64(c.ID()),
		Name:     c.Name(),
		Date:     c.Date().String(),
		Number:   c.Number(),
	})
}

func CourseUpdatedEvent(c *Course) (sharedDomain.OutboxEvent, error) {
	return sharedDomain.NewOutboxEvent(AggregateCourse, c.ID().String(), TopicCourseUpdated, events.CourseUpdated{
		CourseID: int64(c.ID()),
		Name:     c.Name(),
		Date:     c.Date().String(),
		Number:   c.Number(),
	})
}

func CourseDeletedEvent(id CourseID) (sharedDomain.OutboxEvent, error) {
	return sharedDomain.NewOutboxEvent(AggregateCourse, id.String(), TopicCourseDeleted, events.CourseDeleted{
		CourseID: int64(id),
	})
}

func ParticipantAddedEvent(p *Participant) (sharedDomain.OutboxEvent, error) {
	return sharedDomain.NewOutboxEvent(AggregateCourse, p.CourseID().String(), TopicParticipantAdded, events.ParticipantAdded{
		CourseID:      int64(p.CourseID()),
		ParticipantID: int64(p.ID()),
		Name:          p.Name(),
		Dossard:       p.Dossard(),
	})
}
