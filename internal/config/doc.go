// Package config provides configuration loading for livestate processes.
//
// Configuration lives in livestate.json or livestate.yaml in the working
// directory. Missing sections take their defaults; unknown fields are rejected.
//
// # Configuration File Structure
//
//	log:
//	  level: debug
//	  format: json
//	server:
//	  addr: ":7070"
//	  sendBuffer: 64
//	  writeTimeout: 10s
//	metrics:
//	  enabled: true
//	  namespace: livestate
//	  path: /metrics
//	tracing:
//	  enabled: false
//	redis:
//	  enabled: true
//	  addr: localhost:6379
//	  channel: livestate:events
//	state:
//	  round: {number: 1}
//	  scores: {}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Server.Addr)
package config
