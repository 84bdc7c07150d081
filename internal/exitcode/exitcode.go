package exitcode

const (
	Success     = 0
	UsageError  = 1
	ConfigError = 2
	OpenError   = 3
	ParseError  = 4
	ReportError = 5
	StoreError  = 6
)

// Interrupted follows the shell convention for SIGINT.
const Interrupted = 130
