// Package logger provides structured logging on top of zerolog.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("transfer")
//	log.Debug("chunk written", logger.TransferFields(n, total))
package logger
