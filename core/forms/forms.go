// Package forms is the closed registry of form types the agent may ask the
// client to render. Each type carries its ephemerality (whether the rendered
// form must be purged once superseded) and a generated field schema that
// renderers can use to lay out and validate input.
package forms

import "github.com/invopop/jsonschema"

// Type identifies a known form type by its wire name.
type Type string

const (
	// TypePhoneAuth requests the user's phone number for authentication.
	TypePhoneAuth Type = "phone_auth"
	// TypeOTPCode requests the one-time code sent to the user's phone.
	TypeOTPCode Type = "otp_code"
	// TypeAddress requests a delivery address.
	TypeAddress Type = "delivery_address"
	// TypeFeedback requests a rating and free-text comment after delivery.
	TypeFeedback Type = "feedback"
)

// PhoneAuthSubmission is the payload of a completed phone auth form.
type PhoneAuthSubmission struct {
	PhoneNumber string `json:"phone_number" jsonschema:"title=Phone number,description=Phone number in international format"`
}

// OTPCodeSubmission is the payload of a completed one-time-code form.
type OTPCodeSubmission struct {
	Code string `json:"code" jsonschema:"title=Code,description=One-time code received via SMS"`
}

// AddressSubmission is the payload of a completed delivery address form.
type AddressSubmission struct {
	Street string `json:"street" jsonschema:"title=Street,description=Street name and number"`
	City   string `json:"city" jsonschema:"title=City"`
	Notes  string `json:"notes,omitempty" jsonschema:"title=Notes,description=Delivery instructions"`
}

// FeedbackSubmission is the payload of a completed feedback form.
type FeedbackSubmission struct {
	Rating  int    `json:"rating" jsonschema:"title=Rating,minimum=1,maximum=5"`
	Comment string `json:"comment,omitempty" jsonschema:"title=Comment"`
}

// Ephemeral reports whether a rendered form of this type must be purged
// once superseded. Authentication forms are ephemeral so stale credential
// prompts never linger in the rendered log.
func Ephemeral(t Type) bool {
	switch t {
	case TypePhoneAuth, TypeOTPCode:
		return true
	}
	return false
}

// Known reports whether the type is part of the registry. Unknown types are
// still rendered as generic forms, just without schema metadata.
func Known(t Type) bool {
	_, ok := submissionPrototypes[t]
	return ok
}

var submissionPrototypes = map[Type]any{
	TypePhoneAuth: PhoneAuthSubmission{},
	TypeOTPCode:   OTPCodeSubmission{},
	TypeAddress:   AddressSubmission{},
	TypeFeedback:  FeedbackSubmission{},
}

// Schema returns the generated submission schema for a known form type.
func Schema(t Type) (*jsonschema.Schema, bool) {
	prototype, ok := submissionPrototypes[t]
	if !ok {
		return nil, false
	}

	reflector := jsonschema.Reflector{DoNotReference: true}
	return reflector.Reflect(prototype), true
}
