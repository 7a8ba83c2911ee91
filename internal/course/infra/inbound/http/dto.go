package http

import (
	courseDomain "github.com/davicafu/hexacourses/internal/course/domain"
)

type createCourseRequest struct {
	Name   string `json:"name" binding:"required"`
	Date   string `json:"date" binding:"required"` // YYYY-MM-DD
	Number int    `json:"number" binding:"required"`
}

type updateCourseRequest struct {
	Name   *string `json:"name,omitempty"`
	Date   *string `json:"date,omitempty"`
	Number *int    `json:"number,omitempty"`
}

type addParticipantRequest struct {
	Name string `json:"name" binding:"required"`
}

type participantResponse struct {
	ID       int64  `json:"id"`
	CourseID int64  `json:"courseId"`
	Name     string `json:"name"`
	Dossard  int    `json:"dossard"`
}

type courseResponse struct {
	ID           int64                 `json:"id"`
	Name         string                `json:"name"`
	Date         string                `json:"date"`
	Number       int                   `json:"number"`
	Participants []participantResponse `json:"participants"`
}

func toParticipantResponse(p *courseDomain.Participant) participantResponse {
	return participantResponse{
		ID:       int64(p.ID()),
		CourseID: int64(p.CourseID()),
		Name:     p.Name(),
		Dossard:  p.Dossard(),
	}
}

func toParticipantResponses(ps []*courseDomain.Participant) []participantResponse {
	out := make([]participantResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toParticipantResponse(p))
	}
	return out
}

func toCourseResponse(c *courseDomain.Course) courseResponse {
	return courseResponse{
		ID:           int64(c.ID()),
		Name:         c.Name(),
		Date:         c.Date().String(),
		Number:       c.Number(),
		Participants: toParticipantResponses(c.Participants()),
	}
}
