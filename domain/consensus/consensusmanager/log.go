package consensusmanager

import (
	"github.com/kaspanet/chainconsensus/infrastructure/logger"
	"github.com/kaspanet/chainconsensus/util/panics"
)

var log = logger.RegisterSubSystem("CMGR")
var spawn = panics.GoroutineWrapperFunc(log)
