package blockdownload

import (
	"github.com/kaspanet/chainconsensus/infrastructure/logger"
)

var log = logger.RegisterSubSystem("BDLD")
