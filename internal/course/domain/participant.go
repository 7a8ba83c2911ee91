package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type ParticipantID int64

func (id ParticipantID) String() string { return strconv.FormatInt(int64(id), 10) }

func ParseParticipantID(s string) (ParticipantID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: invalid participant id %q", ErrValidation, s)
	}
	return ParticipantID(n), nil
}

// Participant es una persona inscrita en una carrera con un dorsal único en ella.
type Participant struct {
	id       ParticipantID
	courseID CourseID
	name     string
	dossard  int
}

func NewParticipant(courseID CourseID, name string, dossard int) (*Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: participant name is required", ErrValidation)
	}
	if dossard <= 0 {
		return nil, fmt.Errorf("%w: dossard must be positive", ErrValidation)
	}
	return &Participant{courseID: courseID, name: name, dossard: dossard}, nil
}

func ReconstituteParticipant(id ParticipantID, courseID CourseID, name string, dossard int) *Participant {
	return &Participant{id: id, courseID: courseID, name: name, dossard: dossard}
}

func (p *Participant) ID() ParticipantID  { return p.id }
func (p *Participant) CourseID() CourseID { return p.courseID }
func (p *Participant) Name() string       { return p.name }
func (p *Participant) Dossard() int       { return p.dossard }

// WithID devuelve una copia con el ID asignado por el almacenamiento.
func (p *Participant) WithID(id ParticipantID) *Participant {
	return ReconstituteParticipant(id, p.courseID, p.name, p.dossard)
}
