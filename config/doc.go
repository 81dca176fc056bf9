// Package config loads collector configuration.
//
// Loading is layered. Load starts from Default, merges each file layer in
// the order added (".json" via encoding/json, ".yaml"/".yml" via yaml.v3),
// applies SENSORSTREAMS_* environment overrides and finally validates:
//
//	loader := config.NewLoader()
//	loader.AddLayer("configs/base.yaml")
//	loader.AddLayer("configs/site.json")
//	loader.EnableValidation(true)
//	cfg, err := loader.Load()
//
// Maps merge key by key; lists such as sources are replaced as a whole.
// Durations accept Go duration strings ("200ms", "5s"), a day suffix ("2d")
// or integer nanoseconds.
//
// Environment overrides:
//
//	SENSORSTREAMS_HOST           default source host
//	SENSORSTREAMS_CREDENTIAL     credential sent after connect
//	SENSORSTREAMS_OUTPUT_PATH    persisted text file
//	SENSORSTREAMS_METRICS_PORT   metrics and health port (0 disables)
//	SENSORSTREAMS_NATS_URL       enables the NATS mirror
//	SENSORSTREAMS_NATS_USERNAME, _NATS_PASSWORD, _NATS_TOKEN
//
// A minimal YAML file:
//
//	host: 10.0.0.5
//	sources:
//	  - {port: 5123, schema: climate}
//	  - {port: 5124, schema: motion, id: arm}
//	output:
//	  path: /var/lib/sensorstreams/sensor_data.txt
//	  sync: true
//	session:
//	  timeout: 5s
//	  reconnect_delay: 1s
package config
