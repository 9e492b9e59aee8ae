package headertree

import (
	"github.com/kaspanet/chainconsensus/infrastructure/logger"
)

var log = logger.RegisterSubSystem("HTRE")
