package accounts

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
)

type UpdateProfileMessage struct {
	AccountID  uuid.UUID       `json:"-" form:"-"`
	Name       string          `json:"nombre" form:"nombre"`
	Email      string          `json:"email" form:"email"`
	Phone      string          `json:"telefono" form:"telefono"`
	Website    string          `json:"web" form:"web"`
	OnResponse func(p Profile) `json:"-" form:"-"`
	region     string
}

func (e UpdateProfileMessage) Type() string { return "account.profile.update" }

func (e UpdateProfileMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&e.Phone, validation.By(ValidatePhone(e.region))),
		validation.Field(&e.Website, is.URL),
	)
}

type UpdateProfileHandler struct {
	deps *serviceDeps
}

func (h *UpdateProfileHandler) Execute(ctx context.Context, event UpdateProfileMessage) error {
	if err := h.deps.cancelled(ctx, "profile update"); err != nil {
		return err
	}
	return h.execute(ctx, event)
}

func (h *UpdateProfileHandler) execute(ctx context.Context, event UpdateProfileMessage) error {
	ctx, cancel := context.WithTimeout(ctx, h.deps.timeout)
	defer cancel()

	account, err := h.deps.findByID(ctx, event.AccountID)
	if err != nil {
		return err
	}

	event.region = h.deps.phoneRegion
	if err := event.Validate(); err != nil {
		return validationFailed(err)
	}

	phone, err := NormalizePhone(event.Phone, h.deps.phoneRegion)
	if err != nil {
		return validationFailed(validation.Errors{"telefono": errInvalidPhone})
	}

	profile := Profile{
		Name:    strings.TrimSpace(event.Name),
		Email:   NormalizeEmail(event.Email),
		Phone:   phone,
		Website: strings.TrimSpace(event.Website),
	}

	// optional fields left out of the payload keep their stored value
	if profile.Phone == "" {
		profile.Phone = account.Phone
	}
	if profile.Website == "" {
		profile.Website = account.Website
	}

	// keeping the current email never collides with the account itself
	if profile.Email != account.Email {
		existing, err := h.deps.store.FindByEmail(ctx, profile.Email)
		switch {
		case err == nil && existing.ID != account.ID:
			return ErrEmailTaken
		case err != nil && !errors.Is(err, ErrRecordNotFound):
			return persistenceFailure(err, "failed to check email availability")
		}
	}

	updated, err := h.deps.store.UpdateProfile(ctx, account.ID, profile)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateRecord):
			return ErrEmailTaken
		case errors.Is(err, ErrRecordNotFound):
			return ErrAccountNotFound
		}
		return persistenceFailure(err, "failed to update profile")
	}

	h.deps.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventProfileUpdated,
		AccountID: updated.ID.String(),
		FromState: updated.State(),
		ToState:   updated.State(),
		Metadata:  map[string]any{"email_changed": profile.Email != account.Email},
	})

	if event.OnResponse != nil {
		event.OnResponse(updated.Profile())
	}

	return nil
}
