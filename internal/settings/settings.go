package settings

import (
	"fmt"
	"time"
)

const CmdName = "stackflow"

const (
	DefaultQueueSize     = 1000
	DefaultInterval      = 50 * time.Millisecond
	DefaultAttachTimeout = 30 * time.Second
	DefaultMaxDepth      = 128
	DefaultWaitTimeout   = 2 * time.Minute
	DefaultWaitRetry     = 500 * time.Millisecond
)

var (
	PidFile             = fmt.Sprintf("/tmp/%s.pid", CmdName)
	LogFile             = fmt.Sprintf("/tmp/%s.log", CmdName)
	HealthCheckSockPath = fmt.Sprintf("/tmp/%s.sock", CmdName)
	ReportFile          = fmt.Sprintf("%s-report.json", CmdName)
)
