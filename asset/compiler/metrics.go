package compiler

import (
	"github.com/achilleasa/accel/asset/compiler/bvh"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	levelLabel = "level"

	meshLevel  = "mesh"
	sceneLevel = "scene"
)

var (
	bvhBuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "accel_bvh_build_seconds",
		Help:    "The time to build a BVH tree.",
		Buckets: prometheus.ExponentialBuckets(1e-4, 4, 10),
	}, []string{
		levelLabel,
	})

	bvhNodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accel_bvh_nodes",
		Help: "The number of BVH nodes built.",
	}, []string{
		levelLabel,
	})

	bvhDuplicatedReferences = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accel_bvh_duplicated_references",
		Help: "The number of primitive references duplicated by spatial splits.",
	})

	tlasRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accel_tlas_rebuilds",
		Help: "The number of scene BVH rebuilds triggered by instance updates.",
	})
)

func instrumentBuild(level string, stats bvh.Stats) {
	labels := prometheus.Labels{
		levelLabel: level,
	}
	bvhBuildDuration.With(labels).Observe(stats.BuildTime.Seconds())
	bvhNodes.With(labels).Add(float64(stats.Nodes))
	bvhDuplicatedReferences.Add(float64(stats.Duplicates))
}

func instrumentTLASRebuild() {
	tlasRebuilds.Inc()
}
