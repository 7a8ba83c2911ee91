package domain

// Topics publicados por el agregado Course. La clave de mensaje es siempre
// el ID de la carrera.
const (
	TopicCourseCreated    = "course-created"
	TopicParticipantAdded = "participant-added"
	TopicCourseUpdated    = "course-updated"
	TopicCourseDeleted    = "course-deleted"
)

const AggregateCourse = "course"

// Topics lista los topics registrados en orden estable.
func Topics() []string {
	return []string{TopicCourseCreated, TopicParticipantAdded, TopicCourseUpdated, TopicCourseDeleted}
}

// IsCourseTopic indica si el topic pertenece al agregado Course.
func IsCourseTopic(topic string) bool {
	for _, t := range Topics() {
		if t == topic {
			return true
		}
	}
	return false
}
