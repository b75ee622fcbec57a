/*
Package config loads and validates the roadwatch YAML configuration.

A config file only needs backend_url; everything else has a default. The
WebSocket endpoint is derived from the backend URL when not set explicitly
(http becomes ws, https becomes wss, path /ws appended). The bearer token is
read from a separate token file so the config file itself never carries a
credential; an absent token file means anonymous access, not an error.

	backend_url: https://backend.example.com
	data_dir: /var/lib/roadwatch
	cache_capacity: 120
	sync_max_attempts: 10
	reconnect_base_delay: 3s
	reconnect_max_attempts: 5
	ping_interval: 30s
	probe_interval: 15s
	log_level: info
	log_format: console
*/
package config
