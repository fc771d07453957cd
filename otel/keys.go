package otel

import "go.opentelemetry.io/otel/attribute"

var (
	requestIDKey = attribute.Key("bugtracker.request_id")
	actorIDKey   = attribute.Key("bugtracker.actor_id")
)
