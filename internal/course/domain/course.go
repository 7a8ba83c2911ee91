package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CourseID identifica una carrera. Lo asigna el almacenamiento al persistir.
type CourseID int64

func (id CourseID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseCourseID interpreta el identificador recibido por la API.
func ParseCourseID(s string) (CourseID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: invalid course id %q", ErrValidation, s)
	}
	return CourseID(n), nil
}

// Course es el agregado raíz: una carrera identificada por (fecha, número)
// que posee a sus participantes.
type Course struct {
	id           CourseID
	name         string
	date         Date
	number       int
	participants []*Participant
}

// NewCourse valida y construye una carrera aún no persistida.
func NewCourse(name string, date Date, number int) (*Course, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrValidation)
	}
	if number <= 0 {
		return nil, fmt.Errorf("%w: number must be positive", ErrValidation)
	}
	return &Course{name: name, date: date, number: number}, nil
}

// WithID devuelve una copia con el ID asignado por el almacenamiento.
func (c *Course) WithID(id CourseID) *Course {
	return ReconstituteCourse(id, c.name, c.date, c.number, c.participants...)
}

// ReconstituteCourse rehidrata una carrera desde el almacenamiento sin validar.
func ReconstituteCourse(id CourseID, name string, date Date, number int, participants ...*Participant) *Course {
	c := &Course{id: id, name: name, date: date, number: number}
	c.participants = append(c.participants, participants...)
	return c
}

func (c *Course) ID() CourseID { return c.id }
func (c *Course) Name() string { return c.name }
func (c *Course) Date() Date   { return c.date }
func (c *Course) Number() int  { return c.number }

// Participants devuelve una copia ordenada por dorsal.
func (c *Course) Participants() []*Participant {
	out := make([]*Participant, len(c.participants))
	copy(out, c.participants)
	sort.Slice(out, func(i, j int) bool { return out[i].dossard < out[j].dossard })
	return out
}

// SameBusinessKey indica si ambas carreras comparten (fecha, número).
func (c *Course) SameBusinessKey(date Date, number int) bool {
	return c.date.Equal(date) && c.number == number
}

// UpdateDetails aplica sólo los campos presentes. Un nombre en blanco se ignora;
// un número no positivo es un error de validación.
func (c *Course) UpdateDetails(name *string, date *Date, number *int) error {
	if number != nil && *number <= 0 {
		return fmt.Errorf("%w: number must be positive", ErrValidation)
	}
	if name != nil {
		if n := strings.TrimSpace(*name); n != "" {
			c.name = n
		}
	}
	if date != nil && !date.IsZero() {
		c.date = *date
	}
	if number != nil {
		c.number = *number
	}
	return nil
}

// NextDossard es el mayor dorsal asignado más uno, o 1 si no hay ninguno.
func (c *Course) NextDossard() int {
	max := 0
	for _, p := range c.participants {
		if p.dossard > max {
			max = p.dossard
		}
	}
	return max + 1
}

// AddParticipant inscribe a un nuevo participante con el siguiente dorsal.
func (c *Course) AddParticipant(name string) (*Participant, error) {
	p, err := NewParticipant(c.id, name, c.NextDossard())
	if err != nil {
		return nil, err
	}
	c.participants = append(c.participants, p)
	return p, nil
}
