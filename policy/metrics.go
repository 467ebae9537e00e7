package policy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "modwatch_event_duration_sec",
	Help: "Total duration of policy event processing",
}, []string{"type"})

var eventProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modwatch_event_processed",
	Help: "Number of events processed",
}, []string{"type"})

var eventErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modwatch_event_errors",
	Help: "Number of events which failed processing",
}, []string{"type"})

var postsRemovedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modwatch_posts_removed",
	Help: "Number of posts removed, by violation reason",
}, []string{"reason"})

var commentsRemovedCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modwatch_comments_removed",
	Help: "Number of comments removed",
})

var noticesPostedCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modwatch_removal_notices_posted",
	Help: "Number of removal-notice comments posted",
})

var bansIssuedCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modwatch_bans_issued",
	Help: "Number of escalation bans issued",
})

var actionRetryCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modwatch_action_retries",
	Help: "Number of action sequence retries",
}, []string{"type"})

var actionDroppedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modwatch_actions_dropped",
	Help: "Number of actions dropped after exhausting retries",
}, []string{"type"})
