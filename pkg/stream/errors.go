package stream

import "errors"

// ErrMalformedEvent indicates an event envelope that is not valid JSON.
var ErrMalformedEvent = errors.New("malformed event payload")

// ErrMissingEventType indicates a JSON payload with no type discriminator.
var ErrMissingEventType = errors.New("event payload missing type")

// ErrUnknownEventType indicates a type discriminator outside the closed set.
var ErrUnknownEventType = errors.New("unknown event type")
