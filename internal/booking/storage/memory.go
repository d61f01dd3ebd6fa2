package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cuongbtq/booking-be/internal/booking/domain"
)

type memoryState struct {
	jobs             map[int64]*domain.Job
	assignments      []*domain.Assignment
	users            map[int64]*domain.User
	languages        map[int64]string
	translatorLangs  map[int64][]int64
	blacklist        map[int64][]int64
	nextJobID        int64
	nextAssignmentID int64
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		jobs:             make(map[int64]*domain.Job, len(s.jobs)),
		assignments:      make([]*domain.Assignment, 0, len(s.assignments)),
		users:            s.users,
		languages:        s.languages,
		translatorLangs:  s.translatorLangs,
		blacklist:        s.blacklist,
		nextJobID:        s.nextJobID,
		nextAssignmentID: s.nextAssignmentID,
	}
	for id, j := range s.jobs {
		c.jobs[id] = j.Clone()
	}
	for _, a := range s.assignments {
		c.assignments = append(c.assignments, a.Clone())
	}
	return c
}

// Memory is an in-process Store used by the api service in development and by
// tests. Transactions work on a copy of jobs and assignments that replaces the
// live state on commit; users and languages are reference data shared by both.
type Memory struct {
	mu    *sync.Mutex
	state *memoryState
	inTx  bool
}

var _ domain.Store = (*Memory)(nil)

// NewMemory creates an empty store
func NewMemory() *Memory {
	return &Memory{
		mu: &sync.Mutex{},
		state: &memoryState{
			jobs:            make(map[int64]*domain.Job),
			users:           make(map[int64]*domain.User),
			languages:       make(map[int64]string),
			translatorLangs: make(map[int64][]int64),
			blacklist:       make(map[int64][]int64),
		},
	}
}

func (m *Memory) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

// AddUser registers a user
func (m *Memory) AddUser(u *domain.User) {
	defer m.lock()()
	c := *u
	m.state.users[u.ID] = &c
}

// AddLanguage registers a language name
func (m *Memory) AddLanguage(id int64, name string) {
	defer m.lock()()
	m.state.languages[id] = name
}

// AddTranslatorLanguage records that a translator works with a language
func (m *Memory) AddTranslatorLanguage(translatorID, languageID int64) {
	defer m.lock()()
	m.state.translatorLangs[translatorID] = append(m.state.translatorLangs[translatorID], languageID)
}

// AddBlacklist keeps a translator away from a customer's bookings
func (m *Memory) AddBlacklist(customerID, translatorID int64) {
	defer m.lock()()
	m.state.blacklist[customerID] = append(m.state.blacklist[customerID], translatorID)
}

func (m *Memory) WithinTx(ctx context.Context, fn func(tx domain.Store) error) error {
	if m.inTx {
		return fn(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	tx := &Memory{mu: m.mu, state: work, inTx: true}
	if err := fn(tx); err != nil {
		return err
	}

	m.state = work
	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

func (m *Memory) FindJob(ctx context.Context, id int64) (*domain.Job, error) {
	defer m.lock()()
	j, ok := m.state.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return j.Clone(), nil
}

func (m *Memory) CreateJob(ctx context.Context, job *domain.Job) error {
	defer m.lock()()
	m.state.nextJobID++
	job.ID = m.state.nextJobID
	m.state.jobs[job.ID] = job.Clone()
	return nil
}

func (m *Memory) UpdateJob(ctx context.Context, job *domain.Job) error {
	defer m.lock()()
	if _, ok := m.state.jobs[job.ID]; !ok {
		return domain.ErrJobNotFound
	}
	m.state.jobs[job.ID] = job.Clone()
	return nil
}

func (m *Memory) ActiveAssignment(ctx context.Context, jobID int64) (*domain.Assignment, error) {
	defer m.lock()()
	if a := m.state.active(jobID); a != nil {
		return a.Clone(), nil
	}
	return nil, nil
}

func (s *memoryState) active(jobID int64) *domain.Assignment {
	for _, a := range s.assignments {
		if a.JobID == jobID && a.Active() {
			return a
		}
	}
	return nil
}

func (s *memoryState) assignment(id int64) (*domain.Assignment, error) {
	for _, a := range s.assignments {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: id %d", domain.ErrAssignmentNotFound, id)
}

func (s *memoryState) insert(a *domain.Assignment) error {
	if a.Active() && s.active(a.JobID) != nil {
		return domain.ErrActiveAssignmentExists
	}
	s.nextAssignmentID++
	a.ID = s.nextAssignmentID
	s.assignments = append(s.assignments, a.Clone())
	return nil
}

func (m *Memory) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	defer m.lock()()
	return m.state.insert(a)
}

func (m *Memory) CancelAssignment(ctx context.Context, id int64, at time.Time) error {
	defer m.lock()()
	a, err := m.state.assignment(id)
	if err != nil {
		return err
	}
	a.CancelAt = &at
	return nil
}

func (m *Memory) CompleteAssignment(ctx context.Context, id int64, at time.Time, by int64) error {
	defer m.lock()()
	a, err := m.state.assignment(id)
	if err != nil {
		return err
	}
	a.CompletedAt = &at
	a.CompletedBy = &by
	return nil
}

func (m *Memory) CancelActiveAssignments(ctx context.Context, jobID int64, at time.Time) error {
	defer m.lock()()
	for _, a := range m.state.assignments {
		if a.JobID == jobID && a.CancelAt == nil {
			cancelAt := at
			a.CancelAt = &cancelAt
		}
	}
	return nil
}

func (m *Memory) AssignmentHistory(ctx context.Context, jobID int64) ([]*domain.Assignment, error) {
	defer m.lock()()
	var out []*domain.Assignment
	for _, a := range m.state.assignments {
		if a.JobID == jobID {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

func (m *Memory) IsTranslatorBooked(ctx context.Context, translatorID, jobID int64, due time.Time) (bool, error) {
	defer m.lock()()
	for _, a := range m.state.assignments {
		if a.UserID != translatorID || a.JobID == jobID || !a.Active() {
			continue
		}
		if j, ok := m.state.jobs[a.JobID]; ok && j.Due.Equal(due) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) ClaimPendingJob(ctx context.Context, jobID, translatorID int64, at time.Time) (*domain.Assignment, error) {
	defer m.lock()()

	j, ok := m.state.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	if j.Status != domain.StatusPending || m.state.active(jobID) != nil {
		return nil, domain.ErrJobAlreadyAccepted
	}

	a := &domain.Assignment{UserID: translatorID, JobID: jobID, CreatedAt: at}
	if err := m.state.insert(a); err != nil {
		return nil, err
	}
	j.Status = domain.StatusAssigned
	j.UpdatedAt = at

	return a, nil
}

func (m *Memory) FindUser(ctx context.Context, id int64) (*domain.User, error) {
	defer m.lock()()
	u, ok := m.state.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (m *Memory) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	defer m.lock()()
	for _, u := range m.state.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *Memory) PotentialTranslators(ctx context.Context, criteria domain.TranslatorCriteria) ([]*domain.User, error) {
	defer m.lock()()

	blocked := make(map[int64]bool)
	for _, id := range m.state.blacklist[criteria.CustomerID] {
		blocked[id] = true
	}

	var out []*domain.User
	for _, u := range m.state.users {
		if u.Role != domain.RoleTranslator || blocked[u.ID] || u.ID == criteria.ExcludeUserID {
			continue
		}
		if criteria.TranslatorType != "" && u.TranslatorType != criteria.TranslatorType {
			continue
		}
		if criteria.Gender != nil && u.Gender != string(*criteria.Gender) {
			continue
		}
		if len(criteria.Levels) > 0 && !containsString(criteria.Levels, u.TranslatorLevel) {
			continue
		}
		if criteria.LanguageID != 0 && !containsID(m.state.translatorLangs[u.ID], criteria.LanguageID) {
			continue
		}
		c := *u
		out = append(out, &c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) NotificationPreferences(ctx context.Context, userID int64) (*domain.NotificationPreferences, error) {
	defer m.lock()()
	u, ok := m.state.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &domain.NotificationPreferences{
		NoNotifications: u.NoNotifications,
		NoNightTimePush: u.NoNightTimePush,
	}, nil
}

func (m *Memory) LanguageName(ctx context.Context, id int64) (string, error) {
	defer m.lock()()
	name, ok := m.state.languages[id]
	if !ok {
		return "", domain.ErrLanguageNotFound
	}
	return name, nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsID(list []int64, v int64) bool {
	for _, id := range list {
		if id == v {
			return true
		}
	}
	return false
}
