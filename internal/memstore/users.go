package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"rentflow/internal/apperr"
	"rentflow/internal/models"
)

type Users struct{ *state }

func (s *Users) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return apperr.Duplicate("email already registered")
		}
	}
	s.stamp(&user.BaseModel)
	s.users[user.ID] = *user
	return nil
}

func (s *Users) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	return &u, nil
}

// UpsertOAuthUser finds the user by provider identity and refreshes the
// profile fields, or creates it
func (s *Users) UpsertOAuthUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.Provider == user.Provider && u.ProviderID == user.ProviderID {
			u.Email = user.Email
			u.FirstName = user.FirstName
			u.LastName = user.LastName
			u.AvatarURL = user.AvatarURL
			u.UpdatedAt = s.now()
			s.users[id] = u
			*user = u
			return nil
		}
	}
	if user.Role == "" {
		user.Role = models.RoleApplicant
	}
	s.stamp(&user.BaseModel)
	s.users[user.ID] = *user
	return nil
}

type Properties struct{ *state }

func (s *Properties) Create(_ context.Context, property *models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&property.BaseModel)
	s.properties[property.ID] = *property
	return nil
}

func (s *Properties) GetProperty(_ context.Context, id uuid.UUID) (*models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.properties[id]
	if !ok || p.IsDeleted {
		return nil, apperr.NotFound("property")
	}
	return &p, nil
}

type Enquiries struct{ *state }

func (s *Enquiries) Create(_ context.Context, enquiry *models.Enquiry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enquiry.Status == "" {
		enquiry.Status = models.EnquiryNew
	}
	s.stamp(&enquiry.BaseModel)
	s.enquiries[enquiry.ID] = *enquiry
	return nil
}

func (s *Enquiries) GetEnquiry(_ context.Context, id uuid.UUID) (*models.Enquiry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.enquiries[id]
	if !ok {
		return nil, apperr.NotFound("enquiry")
	}
	return &e, nil
}

func (s *Enquiries) SetEnquiryStatus(_ context.Context, id uuid.UUID, status models.EnquiryStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enquiries[id]
	if !ok {
		return apperr.NotFound("enquiry")
	}
	e.Status = status
	e.UpdatedAt = s.now()
	s.enquiries[id] = e
	return nil
}

type Notifications struct{ *state }

func (s *Notifications) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&n.BaseModel)
	s.notifications = append(s.notifications, *n)
	return nil
}

// ListForUser returns the user's notifications, newest first
func (s *Notifications) ListForUser(_ context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Notification
	for i := len(s.notifications) - 1; i >= 0; i-- {
		if s.notifications[i].UserID == userID {
			out = append(out, s.notifications[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Notifications) MarkRead(_ context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		n := &s.notifications[i]
		if n.ID == id && n.UserID == userID {
			n.ReadAt = ptr(s.now())
			return nil
		}
	}
	return apperr.NotFound("notification")
}
