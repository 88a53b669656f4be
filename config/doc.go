// Package config loads the KivDB server configuration from YAML.
//
// Every field has a default; a configuration file only needs the values it
// changes:
//
//	server:
//	  http_address: "0.0.0.0:7312"
//	storage:
//	  path: "/var/lib/kivdb/data.kiv"
//	  history: true
//	  checkpoint_interval: "5m"
//	logging:
//	  level: debug
//	  format: text
package config
