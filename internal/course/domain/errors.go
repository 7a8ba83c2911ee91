package domain

import "errors"

// ---------- Errores de dominio ----------
var (
	ErrDuplicateCourse     = errors.New("course already exists for this date and number")
	ErrCourseNotFound      = errors.New("course not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrDuplicateDossard    = errors.New("dossard already used in this course")
	ErrValidation          = errors.New("validation error")
)
