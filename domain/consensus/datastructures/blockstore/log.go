package blockstore

import (
	"github.com/kaspanet/chainconsensus/infrastructure/logger"
)

var log = logger.RegisterSubSystem("BSTR")
