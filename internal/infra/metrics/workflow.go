package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(workflowStepsTotal, workflowRunsTotal) }

var (
	workflowStepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_steps_total",
			Help: "Workflow step executions by step name and outcome.",
		},
		[]string{"step", "outcome"},
	)

	workflowRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_runs_total",
			Help: "Completed workflow runs by result (ok/degraded/error/cached).",
		},
		[]string{"result"},
	)
)

func IncWorkflowStep(step, outcome string) {
	workflowStepsTotal.WithLabelValues(norm(step), norm(outcome)).Inc()
}

func IncWorkflowRun(result string) {
	workflowRunsTotal.WithLabelValues(norm(result)).Inc()
}
