package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var pairingTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "swipe_pairing_transitions_total",
	Help: "Number of successful pairing state transitions",
}, []string{"transition"})

var pairingFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "swipe_pairing_failures_total",
	Help: "Number of rejected or failed pairing operations",
}, []string{"operation"})

var likesRecorded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "swipe_likes_recorded_total",
	Help: "Number of like operations",
})

var matchesFound = promauto.NewCounter(prometheus.CounterOpts{
	Name: "swipe_matches_found_total",
	Help: "Number of likes that completed a match",
})

var imagesUploaded = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "swipe_images_uploaded_total",
	Help: "Number of image uploads by outcome",
}, []string{"outcome"})

var mirrorRepairs = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "swipe_mirror_repairs_total",
	Help: "Number of diverged pairing records repaired",
}, []string{"kind"})
