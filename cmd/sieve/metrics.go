package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("sieve")

var postEventsReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "sieve_post_events_received",
	Help: "Number of post-submit webhook events received",
})

var commentEventsReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "sieve_comment_events_received",
	Help: "Number of comment-create webhook events received",
})
