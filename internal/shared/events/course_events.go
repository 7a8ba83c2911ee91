package events

// Estos son contratos de integración, NO entidades del dominio
// Se definen planos para intercambio entre contextos.
type CourseCreated struct {
	CourseID int64  `json:"courseId"`
	Name     string `json:"name"`
	Date     string `json:"date"` // YYYY-MM-DD
	Number   int    `json:"number"`
}

type CourseUpdated struct {
	CourseID int64  `json:"courseId"`
	Name     string `json:"name"`
	Date     string `json:"date"`
	Number   int    `json:"number"`
}

type CourseDeleted struct {
	CourseID int64 `json:"courseId"`
}

type ParticipantAdded struct {
	CourseID      int64  `json:"courseId"`
	ParticipantID int64  `json:"participantId"`
	Name          string `json:"name"`
	Dossard       int    `json:"dossard"`
}
