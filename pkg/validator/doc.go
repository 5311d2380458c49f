// Package validator builds declarative validation rules for request input.
//
// Each helper returns a Rule pairing a Check with the field error reported
// when the check fails. Apply evaluates every rule and aggregates failures
// into Errors, which implements error and maps fields to messages.
//
//	err := validator.Apply(
//		validator.Required("label", req.Label),
//		validator.Between("digits", req.Digits, 6, 8),
//		validator.OneOf("visibility", req.Visibility, "team", "private"),
//	)
//
// Rules are plain values with no shared state, so they are safe to build
// from concurrent requests.
package validator
