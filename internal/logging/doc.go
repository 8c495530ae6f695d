// Package logging provides slog-based structured logging for the tico
// services.
//
// Each service builds one logger at startup via New and derives
// component loggers with NewComponentLogger. Console output is colorized when
// attached to a terminal; the json format is intended for log shippers.
package logging
