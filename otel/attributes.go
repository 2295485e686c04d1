package otel

import "go.opentelemetry.io/otel/attribute"

var (
	AttrProcessStatus = attribute.Key("stream.process.status")
	AttrErrorPhase    = attribute.Key("stream.error.phase")
	AttrConsumerID    = attribute.Key("stream.consumer.id")
)

const (
	StatusSuccess = "success"
	StatusDropped = "dropped"
	StatusFailed  = "failed"
)
