package mqtt

import "errors"

// Errors returned by Client. Wrapped variants carry the paho error or the
// timeout; match them with errors.Is.
var (
	ErrNotConnected      = errors.New("mqtt: broker connection down")
	ErrConnectionFailed  = errors.New("mqtt: cannot connect to broker")
	ErrPublishFailed     = errors.New("mqtt: publish rejected")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe rejected")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe rejected")

	// ErrInvalidQoS is returned for QoS values above 2.
	ErrInvalidQoS = errors.New("mqtt: qos must be 0, 1 or 2")

	// ErrInvalidTopic is returned for an empty topic string.
	ErrInvalidTopic = errors.New("mqtt: empty topic")
)
