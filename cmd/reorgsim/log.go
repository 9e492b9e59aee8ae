package main

import (
	"github.com/kaspanet/chainconsensus/infrastructure/logger"
)

var log = logger.RegisterSubSystem("RSIM")
