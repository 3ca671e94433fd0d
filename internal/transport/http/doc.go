// Package http implements the dashboard's HTTP handlers. Handlers are a thin
// layer over the services package: they bind the query string, call a
// service and shape the response.
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → analytics
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Query Parameters
//
// Dashboard routes share one set of parameters, bound into services.Query by
// DashboardHandler.QueryCtx and validated with go-playground/validator.
// List parameters may be repeated or comma separated:
//
//	GET /api/dashboard/top?flow=export&year=2023,2024&by=country&n=10&others=true
//
// # Responses
//
// JSON views use a fixed envelope:
//
//	{"status": "success", "data": ..., "count": 3}
//
// Charts are served as image/png and exports as CSV or XLSX attachments.
// Download headers are only sent once the service writes its first byte, so
// a failure before any output still gets a proper error response.
//
// # Error Handling
//
// Errors follow RFC 7807 Problem Details:
//
//	{
//	    "type": "/errors/data/not-found",
//	    "title": "Not Found",
//	    "status": 404,
//	    "detail": "No records match the selected filters",
//	    "instance": "/api/dashboard/top",
//	    "error_code": "NO_DATA"
//	}
package http
