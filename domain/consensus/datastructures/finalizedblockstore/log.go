package finalizedblockstore

import (
	"github.com/kaspanet/chainconsensus/infrastructure/logger"
)

var log = logger.RegisterSubSystem("FBST")
