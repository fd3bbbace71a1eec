// Package contact keeps each user's emergency contacts as one JSON list in
// the kv namespace. Contacts are created and deleted, never edited.
package contact

import (
	"context"
	"encoding/json"
	"slices"

	"backend-nepaltrip/internal/apperr"
	"backend-nepaltrip/internal/content"
	"backend-nepaltrip/internal/kv"
	"backend-nepaltrip/internal/shared/validate"

	"github.com/google/uuid"
)

type Service struct {
	ns kv.Namespace
}

func NewService(ns kv.Namespace) *Service {
	return &Service{ns: ns}
}

func key(userID string) string {
	return "emergency_contacts:" + userID
}

func (s *Service) List(ctx context.Context, userID string) ([]content.EmergencyContact, error) {
	data, err := s.ns.Get(ctx, key(userID))
	if err != nil {
		return nil, apperr.Storage(err, "read contacts")
	}
	return decode(data)
}

func (s *Service) Create(ctx context.Context, userID string, in content.EmergencyContact) (content.EmergencyContact, error) {
	if err := validate.Input(in); err != nil {
		return content.EmergencyContact{}, err
	}
	in.ID = uuid.NewString()

	err := s.update(ctx, userID, func(contacts []content.EmergencyContact) []content.EmergencyContact {
		return append(contacts, in)
	})
	if err != nil {
		return content.EmergencyContact{}, err
	}
	return in, nil
}

// Delete is idempotent.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.update(ctx, userID, func(contacts []content.EmergencyContact) []content.EmergencyContact {
		return slices.DeleteFunc(contacts, func(c content.EmergencyContact) bool { return c.ID == id })
	})
}

func decode(data []byte) ([]content.EmergencyContact, error) {
	contacts := []content.EmergencyContact{}
	if len(data) == 0 {
		return contacts, nil
	}
	if err := json.Unmarshal(data, &contacts); err != nil {
		return nil, apperr.Storage(err, "decode contacts")
	}
	return contacts, nil
}

// update applies fn to the user's list atomically.
func (s *Service) update(ctx context.Context, userID string, fn func([]content.EmergencyContact) []content.EmergencyContact) error {
	var failed error
	err := s.ns.Update(ctx, key(userID), func(data []byte) ([]byte, error) {
		failed = nil
		contacts, err := decode(data)
		if err != nil {
			failed = err
			return nil, err
		}
		out, err := json.Marshal(fn(contacts))
		if err != nil {
			failed = apperr.Storage(err, "encode contacts")
			return nil, failed
		}
		return out, nil
	})
	if failed != nil {
		return failed
	}
	if err != nil {
		return apperr.Storage(err, "write contacts")
	}
	return nil
}
