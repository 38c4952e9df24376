// Package memstore keeps every record in process memory behind one lock.
// It implements the same store interfaces as the gorm managers in
// internal/models and backs STORE_DRIVER=memory and the service tests.
// Every read returns a copy, so callers never share state with the store.
package memstore

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"rentflow/internal/models"
)

type state struct {
	mu  sync.RWMutex
	now func() time.Time

	users         map[uuid.UUID]models.User
	properties    map[uuid.UUID]models.Property
	enquiries     map[uuid.UUID]models.Enquiry
	invites       map[uuid.UUID]models.ApplicationInvite
	inviteOrder   []uuid.UUID
	apps          map[uuid.UUID]models.Application
	appOrder      []uuid.UUID
	personal      map[uuid.UUID]models.ApplicantPersonalDetails
	residential   map[uuid.UUID]models.ResidentialInformation
	employment    map[uuid.UUID]models.EmploymentInformation
	guarantors    map[uuid.UUID]models.GuarantorInformation
	emergency     map[uuid.UUID]models.EmergencyContact
	referees      map[uuid.UUID]models.Referee
	questions     map[uuid.UUID]models.ApplicationQuestion
	documents     map[uuid.UUID][]models.ApplicationDocument
	declarations  map[uuid.UUID]models.Declaration
	landlordRefs  map[uuid.UUID]models.LandlordReferenceForm
	agreements    map[uuid.UUID]models.GuarantorAgreement
	employeeRefs  map[uuid.UUID]models.EmployeeReferenceForm
	tenants       map[uuid.UUID]models.Tenant
	notifications []models.Notification
}

// Store mirrors models.DB: one handle per record family, all sharing the
// same state.
type Store struct {
	Users         *Users
	Properties    *Properties
	Enquiries     *Enquiries
	Invites       *Invites
	Applications  *Applications
	Forms         *Forms
	References    *References
	Tenants       *Tenants
	Notifications *Notifications
}

type Option func(*state)

// WithClock replaces time.Now for created/updated timestamps
func WithClock(now func() time.Time) Option {
	return func(s *state) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &state{
		now:          time.Now,
		users:        map[uuid.UUID]models.User{},
		properties:   map[uuid.UUID]models.Property{},
		enquiries:    map[uuid.UUID]models.Enquiry{},
		invites:      map[uuid.UUID]models.ApplicationInvite{},
		apps:         map[uuid.UUID]models.Application{},
		personal:     map[uuid.UUID]models.ApplicantPersonalDetails{},
		residential:  map[uuid.UUID]models.ResidentialInformation{},
		employment:   map[uuid.UUID]models.EmploymentInformation{},
		guarantors:   map[uuid.UUID]models.GuarantorInformation{},
		emergency:    map[uuid.UUID]models.EmergencyContact{},
		referees:     map[uuid.UUID]models.Referee{},
		questions:    map[uuid.UUID]models.ApplicationQuestion{},
		documents:    map[uuid.UUID][]models.ApplicationDocument{},
		declarations: map[uuid.UUID]models.Declaration{},
		landlordRefs: map[uuid.UUID]models.LandlordReferenceForm{},
		agreements:   map[uuid.UUID]models.GuarantorAgreement{},
		employeeRefs: map[uuid.UUID]models.EmployeeReferenceForm{},
		tenants:      map[uuid.UUID]models.Tenant{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return &Store{
		Users:         &Users{s},
		Properties:    &Properties{s},
		Enquiries:     &Enquiries{s},
		Invites:       &Invites{s},
		Applications:  &Applications{s},
		Forms:         &Forms{s},
		References:    &References{s},
		Tenants:       &Tenants{s},
		Notifications: &Notifications{s},
	}
}

// stamp fills in the id and timestamps of a record about to be created
func (s *state) stamp(b *models.BaseModel) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := s.now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

func cloneHistory[T ~string](h models.History[T]) models.History[T] {
	if h == nil {
		return models.History[T]{}
	}
	return slices.Clone(h)
}

func ptr[T any](v T) *T {
	return &v
}
