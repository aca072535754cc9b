package model

import (
	"github.com/go-playground/validator/v10"

	"github.com/Mutter0815/mailflow/internal/campaign"
)

var validate = newValidator()

// newValidator registers uuid_text so ids follow the same rule as campaign
// requests: canonical 8-4-4-4-12 hex in either case.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("uuid_text", func(fl validator.FieldLevel) bool {
		return campaign.IsUUID(fl.Field().String())
	})
	return v
}

type Contact struct {
	ID    string `json:"id"    validate:"required,uuid_text"`
	Name  string `json:"name"  validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// ContactInput is the body for creating or updating a contact.
type ContactInput struct {
	Name  string `json:"name"  validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

type Segment struct {
	ID       string    `json:"id"       validate:"required,uuid_text"`
	Name     string    `json:"name"     validate:"required"`
	Contacts []Contact `json:"contacts" validate:"dive"`
}

type SegmentInput struct {
	Name       string   `json:"name"        validate:"required"`
	ContactIDs []string `json:"contact_ids" validate:"dive,uuid_text"`
}

type Template struct {
	ID         string `json:"id"         validate:"required,uuid_text"`
	Name       string `json:"name"       validate:"required"`
	About      string `json:"about"      validate:"required"`
	IsFavorite bool   `json:"isFavorite"`
	Version    string `json:"version"`
}

type TemplateInput struct {
	Name    string `json:"name"    validate:"required"`
	About   string `json:"about"   validate:"required"`
	Subject string `json:"subject" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// Page is one page of a filtered listing.
type Page[T any] struct {
	Content       []T `json:"content"       validate:"dive"`
	Page          int `json:"page"`
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
}

// Validate runs the struct tags of any model value.
func Validate(v any) error {
	return validate.Struct(v)
}
