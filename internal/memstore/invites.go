package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"rentflow/internal/apperr"
	"rentflow/internal/models"
)

type Invites struct{ *state }

func (s *Invites) CreateInvite(_ context.Context, invite *models.ApplicationInvite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&invite.BaseModel)
	if invite.Response == "" {
		invite.Response = models.ResponsePending
	}
	row := *invite
	row.ResponseStepsCompleted = cloneHistory(invite.ResponseStepsCompleted)
	row.Property, row.InvitedBy, row.UserInvited, row.Enquiry, row.Application = nil, nil, nil, nil, nil
	s.invites[row.ID] = row
	s.inviteOrder = append(s.inviteOrder, row.ID)
	return nil
}

// live returns the stored invite unless it is missing or soft-deleted.
// Callers hold the lock.
func (s *Invites) live(id uuid.UUID) (models.ApplicationInvite, error) {
	inv, ok := s.invites[id]
	if !ok || inv.IsDeleted {
		return models.ApplicationInvite{}, apperr.NotFound("invite")
	}
	return inv, nil
}

// resolve copies an invite and loads the same relations as InviteManager
func (s *Invites) resolve(inv models.ApplicationInvite) *models.ApplicationInvite {
	out := inv
	out.ResponseStepsCompleted = cloneHistory(inv.ResponseStepsCompleted)
	if p, ok := s.properties[inv.PropertyID]; ok {
		out.Property = &p
	}
	if u, ok := s.users[inv.InvitedByLandlordID]; ok {
		out.InvitedBy = &u
	}
	if u, ok := s.users[inv.UserInvitedID]; ok {
		out.UserInvited = &u
	}
	if inv.EnquiryID != nil {
		if e, ok := s.enquiries[*inv.EnquiryID]; ok {
			out.Enquiry = &e
		}
	}
	return &out
}

func (s *Invites) GetInvite(_ context.Context, id uuid.UUID) (*models.ApplicationInvite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, err := s.live(id)
	if err != nil {
		return nil, err
	}
	return s.resolve(inv), nil
}

func (s *Invites) UpdateInviteFields(_ context.Context, id uuid.UUID, update models.InviteUpdate) error {
	if len(update.Columns()) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, err := s.live(id)
	if err != nil {
		return err
	}
	update.ApplyTo(&inv)
	inv.UpdatedAt = s.now()
	s.invites[id] = inv
	return nil
}

// AppendInviteResponse sets the response and appends it to the history
// unless present. The check and the write happen under one lock.
func (s *Invites) AppendInviteResponse(_ context.Context, id uuid.UUID, response models.InviteResponse) (*models.ApplicationInvite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, err := s.live(id)
	if err != nil {
		return nil, err
	}
	inv.Response = response
	inv.ResponseStepsCompleted, _ = cloneHistory(inv.ResponseStepsCompleted).Append(response)
	inv.UpdatedAt = s.now()
	s.invites[id] = inv
	return s.resolve(inv), nil
}

// landlordInvites returns the landlord's live invites matching keep,
// newest first
func (s *Invites) landlordInvites(landlordID uuid.UUID, keep func(models.History[models.InviteResponse]) bool) []models.ApplicationInvite {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ApplicationInvite
	for i := len(s.inviteOrder) - 1; i >= 0; i-- {
		inv := s.invites[s.inviteOrder[i]]
		if inv.IsDeleted {
			continue
		}
		p, ok := s.properties[inv.PropertyID]
		if !ok || p.LandlordID != landlordID || !keep(inv.ResponseStepsCompleted) {
			continue
		}
		out = append(out, *s.resolve(inv))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Invites) ListInvitesWithout(_ context.Context, landlordID uuid.UUID, excluded []models.InviteResponse) ([]models.ApplicationInvite, error) {
	return s.landlordInvites(landlordID, func(h models.History[models.InviteResponse]) bool {
		return !h.ContainsAny(excluded...)
	}), nil
}

func (s *Invites) ListInvitesWith(_ context.Context, landlordID uuid.UUID, required []models.InviteResponse) ([]models.ApplicationInvite, error) {
	return s.landlordInvites(landlordID, func(h models.History[models.InviteResponse]) bool {
		return h.ContainsAll(required...)
	}), nil
}

func (s *Invites) ListAwaitingApplication(_ context.Context, cutoff time.Time) ([]models.ApplicationInvite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ApplicationInvite
	for _, id := range s.inviteOrder {
		inv := s.invites[id]
		h := inv.ResponseStepsCompleted
		if inv.IsDeleted || inv.ApplicationID != nil || !inv.UpdatedAt.Before(cutoff) {
			continue
		}
		if !h.Contains(models.ResponseApply) || h.ContainsAny(models.ResponseDeclined, models.ResponseRejected) {
			continue
		}
		out = append(out, *s.resolve(inv))
	}
	return out, nil
}

func (s *Invites) AttachApplication(_ context.Context, id, applicationID uuid.UUID) error {
	return s.set(id, func(inv *models.ApplicationInvite) { inv.ApplicationID = &applicationID })
}

func (s *Invites) AttachTenant(_ context.Context, id, tenantID uuid.UUID) error {
	return s.set(id, func(inv *models.ApplicationInvite) { inv.TenantID = &tenantID })
}

func (s *Invites) SoftDeleteInvite(_ context.Context, id uuid.UUID) (*models.ApplicationInvite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, err := s.live(id)
	if err != nil {
		return nil, err
	}
	inv.IsDeleted = true
	inv.UpdatedAt = s.now()
	s.invites[id] = inv
	return s.resolve(inv), nil
}

func (s *Invites) set(id uuid.UUID, fn func(*models.ApplicationInvite)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, err := s.live(id)
	if err != nil {
		return err
	}
	fn(&inv)
	inv.UpdatedAt = s.now()
	s.invites[id] = inv
	return nil
}
