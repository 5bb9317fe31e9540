package shared

// Reporting permissions.
const (
	PermDashboardView  = "dashboard.view"
	PermStatementsView = "statements.view"
	PermJobsRun        = "jobs.run"
)

// ReportingScopes lists every permission checked by the HTTP layer.
func ReportingScopes() []string {
	return []string{
		PermDashboardView,
		PermStatementsView,
		PermJobsRun,
	}
}
