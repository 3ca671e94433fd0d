// Package services holds the dashboard's business logic between the HTTP
// handlers and the analytics package.
//
// DashboardService owns the loaded dataset. The table is immutable and is
// swapped as a whole on Reload, so queries take a read lock only long enough
// to grab the current pointer and then filter and aggregate without holding
// it:
//
//	svc := services.NewDashboardService(source, cfg, hub, metrics, logger)
//	if _, err := svc.Reload(ctx); err != nil {
//	    // the service keeps serving the previous table, if any
//	}
//	top, err := svc.Top(ctx, services.Query{Dimension: "country", N: 10})
//
// Every query method returns ErrDatasetNotLoaded before the first successful
// load. Views return ErrNoData when the filters select no rows; Summary
// reports zeros instead.
//
// HealthService reports liveness, readiness (a dataset is loaded) and build
// information.
package services
