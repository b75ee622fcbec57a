/*
Package client provides the REST client for the road-alert backend API.

The client wraps resty with the base URL, a default per-request timeout, and
optional bearer-token authentication. Every method takes a context and maps
a non-2xx response to *APIError, which preserves the status code and body
for callers that need to distinguish a validation rejection from an outage.

# Endpoints

	GET    /api/alert              ListAlerts
	GET    /api/alert/active       ListActiveAlerts
	POST   /api/alert              CreateAlert
	PATCH  /api/alert/{id}/status  UpdateStatus
	DELETE /api/alert/{id}         DeleteAlert
	POST   /api/alert/{id}/vote    Vote
	POST   /api/alert/{id}/comment Comment
	GET    /api/health             Health

# Usage

	c := client.NewClient("https://backend.example.com",
		client.WithToken(token),
		client.WithTimeout(10*time.Second),
	)

	alerts, err := c.ListAlerts(ctx)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			// backend answered with a non-2xx status
		}
		// otherwise transport-level failure
	}

Health doubles as the connectivity probe: a nil error means the backend is
reachable, anything else counts as offline.

# See Also

  - pkg/connectivity for the probe loop built on Health
  - pkg/syncer for the replay loop built on CreateAlert and ListAlerts
  - resty documentation: https://github.com/go-resty/resty
*/
package client
