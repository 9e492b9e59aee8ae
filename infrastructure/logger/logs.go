package logger

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// BackendLog is the logging backend used to create all subsystem loggers.
var BackendLog = NewBackend()

var (
	subsystemLoggersLock sync.Mutex
	subsystemLoggers     = make(map[string]*Logger)
)

// RegisterSubSystem returns the logger of the given subsystem tag, creating
// it on first use.
func RegisterSubSystem(subsystemTag string) *Logger {
	subsystemLoggersLock.Lock()
	defer subsystemLoggersLock.Unlock()

	logger, exists := subsystemLoggers[subsystemTag]
	if !exists {
		logger = BackendLog.Logger(subsystemTag)
		subsystemLoggers[subsystemTag] = logger
	}
	return logger
}

// InitLog attaches the log file, the error log file and stderr to the
// backend and starts it.
func InitLog(logFile, errLogFile string) {
	err := BackendLog.AddLogFile(logFile, LevelTrace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding log file %s as log rotator for level %s: %s", logFile, LevelTrace, err)
		os.Exit(1)
	}
	err = BackendLog.AddLogFile(errLogFile, LevelWarn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding log file %s as log rotator for level %s: %s", errLogFile, LevelWarn, err)
		os.Exit(1)
	}
	InitLogStdout(LevelInfo)
}

// InitLogStdout attaches stderr to the backend at the given level and starts
// the backend if it isn't running yet.
func InitLogStdout(logLevel Level) {
	err := BackendLog.AddLogWriter(stderrWriter{}, logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding stderr to the logger for level %s: %s", logLevel, err)
		os.Exit(1)
	}
	if !BackendLog.IsRunning() {
		err = BackendLog.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error starting the logger: %s ", err)
			os.Exit(1)
		}
	}
}

// SupportedSubsystems returns a sorted slice of the registered subsystem tags.
func SupportedSubsystems() []string {
	subsystemLoggersLock.Lock()
	defer subsystemLoggersLock.Unlock()

	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsystemTag := range subsystemLoggers {
		subsystems = append(subsystems, subsystemTag)
	}
	sort.Strings(subsystems)
	return subsystems
}

// SetLogLevels sets the logging level of every registered subsystem.
func SetLogLevels(level Level) {
	subsystemLoggersLock.Lock()
	defer subsystemLoggersLock.Unlock()

	for _, logger := range subsystemLoggers {
		logger.SetLevel(level)
	}
}

// ParseAndSetLogLevels parses a debug level string of the form
// `level` or `SUBSYS=level,SUBSYS2=level` and applies it.
func ParseAndSetLogLevels(debugLevel string) error {
	if !strings.Contains(debugLevel, "=") {
		level, ok := LevelFromString(debugLevel)
		if !ok {
			return errors.Errorf("the specified debug level [%s] is invalid", debugLevel)
		}
		SetLogLevels(level)
		return nil
	}

	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		fields := strings.Split(logLevelPair, "=")
		if len(fields) != 2 {
			return errors.Errorf("the specified debug level contains an invalid subsystem/level pair [%s]", logLevelPair)
		}
		subsystemTag, levelString := fields[0], fields[1]
		level, ok := LevelFromString(levelString)
		if !ok {
			return errors.Errorf("the specified debug level [%s] is invalid", levelString)
		}

		subsystemLoggersLock.Lock()
		logger, exists := subsystemLoggers[subsystemTag]
		subsystemLoggersLock.Unlock()
		if !exists {
			return errors.Errorf("the specified subsystem [%s] is invalid -- supported subsystems %v",
				subsystemTag, SupportedSubsystems())
		}
		logger.SetLevel(level)
	}
	return nil
}
