package mocks

import (
	"context"
	"errors"
	"sort"
	"sync"

	courseDomain "github.com/davicafu/hexacourses/internal/course/domain"
	sharedDomain "github.com/davicafu/hexacourses/internal/shared/domain"
)

// ErrOutboxUnavailable lo devuelve Insert cuando FailOutbox está activo.
var ErrOutboxUnavailable = errors.New("outbox unavailable")

type courseRow struct {
	id     courseDomain.CourseID
	name   string
	date   courseDomain.Date
	number int
}

type participantRow struct {
	id       courseDomain.ParticipantID
	courseID courseDomain.CourseID
	name     string
	dossard  int
}

type memState struct {
	courses           map[courseDomain.CourseID]courseRow
	participants      map[courseDomain.ParticipantID]participantRow
	outbox            []sharedDomain.OutboxEvent
	nextCourseID      int64
	nextParticipantID int64
}

func (s *memState) clone() *memState {
	c := &memState{
		courses:           make(map[courseDomain.CourseID]courseRow, len(s.courses)),
		participants:      make(map[courseDomain.ParticipantID]participantRow, len(s.participants)),
		outbox:            append([]sharedDomain.OutboxEvent(nil), s.outbox...),
		nextCourseID:      s.nextCourseID,
		nextParticipantID: s.nextParticipantID,
	}
	for k, v := range s.courses {
		c.courses[k] = v
	}
	for k, v := range s.participants {
		c.participants[k] = v
	}
	return c
}

// InMemoryStore simula el almacenamiento transaccional con outbox incluido.
// Do serializa las transacciones y sólo confirma la copia de trabajo si fn
// termina sin error; las restricciones únicas se comprueban igual que en SQL.
type InMemoryStore struct {
	mu    sync.Mutex
	state *memState

	// FailOutbox hace fallar cualquier Insert en la outbox.
	FailOutbox bool
	// DossardConflicts es el número de Save de participante que fallarán con
	// ErrDuplicateDossard antes de comportarse con normalidad.
	DossardConflicts int
}

var (
	_ courseDomain.UnitOfWork       = (*InMemoryStore)(nil)
	_ sharedDomain.OutboxRepository = (*InMemoryStore)(nil)
)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{state: &memState{
		courses:      make(map[courseDomain.CourseID]courseRow),
		participants: make(map[courseDomain.ParticipantID]participantRow),
	}}
}

func (m *InMemoryStore) Do(ctx context.Context, fn func(ctx context.Context, s courseDomain.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.state.clone()
	if err := fn(ctx, &memTx{store: m, st: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

// Outbox devuelve una copia de todos los registros confirmados.
func (m *InMemoryStore) Outbox() []sharedDomain.OutboxEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sharedDomain.OutboxEvent(nil), m.state.outbox...)
}

func (m *InMemoryStore) CourseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.courses)
}

func (m *InMemoryStore) ParticipantCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.participants)
}

func (m *InMemoryStore) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sharedDomain.OutboxEvent
	for _, e := range m.state.outbox {
		if e.Sent {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *InMemoryStore) SaveAll(ctx context.Context, evts []sharedDomain.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range evts {
		for i := range m.state.outbox {
			if m.state.outbox[i].ID == e.ID {
				m.state.outbox[i].Sent = e.Sent
			}
		}
	}
	return nil
}

// memTx implementa Store y los tres repositorios sobre la copia de trabajo.
type memTx struct {
	store *InMemoryStore
	st    *memState
}

func (t *memTx) Courses() courseDomain.CourseRepository           { return memCourses{t} }
func (t *memTx) Participants() courseDomain.ParticipantRepository { return memParticipants{t} }
func (t *memTx) Outbox() courseDomain.OutboxWriter                { return memOutbox{t} }

type memCourses struct{ tx *memTx }

func (r memCourses) Save(ctx context.Context, c *courseDomain.Course) (*courseDomain.Course, error) {
	st := r.tx.st
	for _, row := range st.courses {
		if row.id != c.ID() && row.date.Equal(c.Date()) && row.number == c.Number() {
			return nil, courseDomain.ErrDuplicateCourse
		}
	}
	id := c.ID()
	if id == 0 {
		st.nextCourseID++
		id = courseDomain.CourseID(st.nextCourseID)
	} else if _, ok := st.courses[id]; !ok {
		return nil, courseDomain.ErrCourseNotFound
	}
	st.courses[id] = courseRow{id: id, name: c.Name(), date: c.Date(), number: c.Number()}
	return c.WithID(id), nil
}

func (r memCourses) FindByID(ctx context.Context, id courseDomain.CourseID) (*courseDomain.Course, error) {
	row, ok := r.tx.st.courses[id]
	if !ok {
		return nil, courseDomain.ErrCourseNotFound
	}
	ps, _ := memParticipants{r.tx}.FindByCourse(ctx, id)
	return courseDomain.ReconstituteCourse(row.id, row.name, row.date, row.number, ps...), nil
}

func (r memCourses) LockByID(ctx context.Context, id courseDomain.CourseID) (*courseDomain.Course, error) {
	return r.FindByID(ctx, id)
}

func (r memCourses) ExistsByDateAndNumber(ctx context.Context, date courseDomain.Date, number int) (bool, error) {
	for _, row := range r.tx.st.courses {
		if row.date.Equal(date) && row.number == number {
			return true, nil
		}
	}
	return false, nil
}

func (r memCourses) FindAll(ctx context.Context) ([]*courseDomain.Course, error) {
	out := make([]*courseDomain.Course, 0, len(r.tx.st.courses))
	for _, row := range r.tx.st.courses {
		out = append(out, courseDomain.ReconstituteCourse(row.id, row.name, row.date, row.number))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date().Equal(out[j].Date()) {
			return out[i].Date().Before(out[j].Date())
		}
		return out[i].Number() < out[j].Number()
	})
	return out, nil
}

func (r memCourses) DeleteByID(ctx context.Context, id courseDomain.CourseID) error {
	st := r.tx.st
	if _, ok := st.courses[id]; !ok {
		return courseDomain.ErrCourseNotFound
	}
	delete(st.courses, id)
	for pid, p := range st.participants {
		if p.courseID == id {
			delete(st.participants, pid)
		}
	}
	return nil
}

type memParticipants struct{ tx *memTx }

func (r memParticipants) Save(ctx context.Context, courseID courseDomain.CourseID, p *courseDomain.Participant) (*courseDomain.Participant, error) {
	if r.tx.store.DossardConflicts > 0 {
		r.tx.store.DossardConflicts--
		return nil, courseDomain.ErrDuplicateDossard
	}
	st := r.tx.st
	if _, ok := st.courses[courseID]; !ok {
		return nil, courseDomain.ErrCourseNotFound
	}
	for _, row := range st.participants {
		if row.courseID == courseID && row.dossard == p.Dossard() {
			return nil, courseDomain.ErrDuplicateDossard
		}
	}
	st.nextParticipantID++
	id := courseDomain.ParticipantID(st.nextParticipantID)
	st.participants[id] = participantRow{id: id, courseID: courseID, name: p.Name(), dossard: p.Dossard()}
	return courseDomain.ReconstituteParticipant(id, courseID, p.Name(), p.Dossard()), nil
}

func (r memParticipants) FindByID(ctx context.Context, id courseDomain.ParticipantID) (*courseDomain.Participant, error) {
	row, ok := r.tx.st.participants[id]
	if !ok {
		return nil, courseDomain.ErrParticipantNotFound
	}
	return courseDomain.ReconstituteParticipant(row.id, row.courseID, row.name, row.dossard), nil
}

func (r memParticipants) FindByCourse(ctx context.Context, courseID courseDomain.CourseID) ([]*courseDomain.Participant, error) {
	var out []*courseDomain.Participant
	for _, row := range r.tx.st.participants {
		if row.courseID == courseID {
			out = append(out, courseDomain.ReconstituteParticipant(row.id, row.courseID, row.name, row.dossard))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dossard() < out[j].Dossard() })
	return out, nil
}

type memOutbox struct{ tx *memTx }

func (o memOutbox) Insert(ctx context.Context, evt sharedDomain.OutboxEvent) error {
	if o.tx.store.FailOutbox {
		return ErrOutboxUnavailable
	}
	o.tx.st.outbox = append(o.tx.st.outbox, evt)
	return nil
}
