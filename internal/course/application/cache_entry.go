package application

import (
	courseDomain "github.com/davicafu/hexacourses/internal/course/domain"
)

// courseCacheEntry es la forma serializable de una carrera en caché; el
// agregado no expone sus campos.
type courseCacheEntry struct {
	ID           int64                   `json:"id"`
	Name         string                  `json:"name"`
	Date         string                  `json:"date"`
	Number       int                     `json:"number"`
	Participants []participantCacheEntry `json:"participants"`
}

type participantCacheEntry struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Dossard int    `json:"dossard"`
}

func toCacheEntry(c *courseDomain.Course) courseCacheEntry {
	entry := courseCacheEntry{
		ID:     int64(c.ID()),
		Name:   c.Name(),
		Date:   c.Date().String(),
		Number: c.Number(),
	}
	for _, p := range c.Participants() {
		entry.Participants = append(entry.Participants, participantCacheEntry{
			ID:      int64(p.ID()),
			Name:    p.Name(),
			Dossard: p.Dossard(),
		})
	}
	return entry
}

func (e courseCacheEntry) toDomain() (*courseDomain.Course, error) {
	date, err := courseDomain.ParseDate(e.Date)
	if err != nil {
		return nil, err
	}
	id := courseDomain.CourseID(e.ID)
	participants := make([]*courseDomain.Participant, 0, len(e.Participants))
	for _, p := range e.Participants {
		participants = append(participants, courseDomain.ReconstituteParticipant(courseDomain.ParticipantID(p.ID), id, p.Name, p.Dossard))
	}
	return courseDomain.ReconstituteCourse(id, e.Name, date, e.Number, participants...), nil
}
