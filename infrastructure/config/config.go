package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/kaspanet/chainconsensus/domain/chainconfig"
	"github.com/kaspanet/chainconsensus/domain/consensus/blockdownload"
	"github.com/kaspanet/chainconsensus/domain/consensus/consensusmanager"
	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/kaspanet/chainconsensus/infrastructure/logger"
	"github.com/pkg/errors"
)

const (
	defaultAppDirname     = ".chainconsensus"
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "chainconsensus.log"
	defaultErrLogFilename = "chainconsensus_err.log"
	defaultLogLevel       = "info"
	defaultDBCacheSizeMiB = 64
	defaultBlockCacheSize = 1000

	// useNetworkMaxReorgLength keeps the network's own max reorg length.
	useNetworkMaxReorgLength = -1

	// assumeValidNone disables assume-valid.
	assumeValidNone = "none"
)

var (
	// DefaultAppDir is the default home directory.
	DefaultAppDir = defaultAppDir()
)

func defaultAppDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return defaultAppDirname
	}
	return filepath.Join(homeDir, defaultAppDirname)
}

// Flags defines the configuration options of the consensus manager.
//
// See LoadConfig for details on the configuration load process.
type Flags struct {
	AppDir                string        `short:"b" long:"appdir" description:"Directory to store data"`
	LogDir                string        `long:"logdir" description:"Directory to log output."`
	DebugLevel            string        `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
	MaxReorgLength        int64         `long:"maxreorglength" description:"Deepest fork, in blocks behind the tip, that is accepted -- 0 disables the limit (default: the network's)"`
	AssumeValid           string        `long:"assumevalid" description:"Hash of a block whose ancestors are not fully validated -- Use none to validate everything (default: the network's)"`
	NoCheckpoints         bool          `long:"nocheckpoints" description:"Disable built-in checkpoints"`
	AddCheckpoints        []string      `long:"addcheckpoint" description:"Add a custom checkpoint. Format: '<height>:<hash>'"`
	MaxBlocksInFlight     uint64        `long:"maxblocksinflight" description:"Maximum number of blocks requested but not yet consumed"`
	MaxUnconsumedMiB      uint64        `long:"maxunconsumedmb" description:"Maximum size in MiB of blocks requested but not yet consumed"`
	MaxPartialValidations int64         `long:"maxpartialvalidations" description:"Maximum number of blocks partially validated concurrently (default: number of CPUs)"`
	BanDuration           time.Duration `long:"banduration" description:"How long to ban misbehaving peers. Valid time units are {s, m, h}. Minimum 1 second"`
	DBCacheSizeMiB        int           `long:"dbcachesize" description:"Size in MiB of the database block cache"`
	BlockCacheSize        int           `long:"blockcachesize" description:"Number of blocks cached in memory by the block store"`
	NetworkFlags
}

// Config defines the configuration options of the consensus manager.
//
// See LoadConfig for details on the configuration load process.
type Config struct {
	*Flags
	DataDir string
}

func defaultFlags() *Flags {
	return &Flags{
		AppDir:            DefaultAppDir,
		DebugLevel:        defaultLogLevel,
		MaxReorgLength:    useNetworkMaxReorgLength,
		MaxBlocksInFlight: consensusmanager.DefaultMaxBlocksInFlight,
		MaxUnconsumedMiB:  consensusmanager.DefaultMaxUnconsumedBytes / (1024 * 1024),
		BanDuration:       consensusmanager.DefaultBanDuration,
		DBCacheSizeMiB:    defaultDBCacheSizeMiB,
		BlockCacheSize:    defaultBlockCacheSize,
	}
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(DefaultAppDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}
	return filepath.Clean(os.ExpandEnv(path))
}

// LoadConfig parses the given command line arguments and validates the
// result. Unknown arguments are returned untouched.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Override with the command line options
//  3. Resolve the network and apply the network dependent overrides
func LoadConfig(args []string) (*Config, []string, error) {
	cfgFlags := defaultFlags()
	parser := flags.NewParser(cfgFlags, flags.HelpFlag|flags.IgnoreUnknown)
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}

	err = cfgFlags.ResolveNetwork(parser)
	if err != nil {
		return nil, nil, err
	}

	cfg := &Config{Flags: cfgFlags}
	cfg.AppDir = cleanAndExpandPath(cfg.AppDir)
	cfg.DataDir = filepath.Join(cfg.AppDir, defaultDataDirname, cfg.NetParams().Name)
	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(cfg.AppDir, defaultLogDirname, cfg.NetParams().Name)
	}
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	err = cfg.validate()
	if err != nil {
		return nil, nil, err
	}
	err = cfg.applyNetworkOverrides()
	if err != nil {
		return nil, nil, err
	}

	return cfg, remainingArgs, nil
}

func (cfg *Config) validate() error {
	if cfg.BanDuration < time.Second {
		return errors.Errorf("the banduration option may not be less than 1s -- parsed [%s]", cfg.BanDuration)
	}
	if cfg.MaxReorgLength < useNetworkMaxReorgLength {
		return errors.Errorf("the maxreorglength option may not be negative -- parsed [%d]", cfg.MaxReorgLength)
	}
	if cfg.MaxBlocksInFlight == 0 {
		return errors.New("the maxblocksinflight option must be positive")
	}
	if cfg.MaxUnconsumedMiB == 0 {
		return errors.New("the maxunconsumedmb option must be positive")
	}
	if cfg.MaxPartialValidations < 0 {
		return errors.Errorf("the maxpartialvalidations option may not be negative -- parsed [%d]",
			cfg.MaxPartialValidations)
	}
	if cfg.BlockCacheSize <= 0 {
		return errors.Errorf("the blockcachesize option must be positive -- parsed [%d]", cfg.BlockCacheSize)
	}
	return nil
}

func (cfg *Config) applyNetworkOverrides() error {
	params := cfg.ActiveNetParams

	if cfg.MaxReorgLength != useNetworkMaxReorgLength {
		params.MaxReorgLength = uint64(cfg.MaxReorgLength)
	}

	switch cfg.AssumeValid {
	case "":
	case assumeValidNone:
		params.AssumeValid = nil
	default:
		assumeValid, err := externalapi.NewDomainHashFromString(cfg.AssumeValid)
		if err != nil {
			return errors.Wrapf(err, "the assumevalid option is not a valid hash")
		}
		params.AssumeValid = assumeValid
	}

	if cfg.NoCheckpoints {
		params.Checkpoints = nil
	}
	if len(cfg.AddCheckpoints) > 0 {
		checkpoints := make([]chainconfig.Checkpoint, 0, len(cfg.AddCheckpoints))
		for _, checkpointString := range cfg.AddCheckpoints {
			checkpoint, err := chainconfig.ParseCheckpoint(checkpointString)
			if err != nil {
				return err
			}
			checkpoints = append(checkpoints, checkpoint)
		}
		cfg.ActiveNetParams = params.AddCheckpoints(checkpoints...)
	}
	return nil
}

// InitLog initializes the log files in LogDir and applies DebugLevel.
func (cfg *Config) InitLog() error {
	logger.InitLog(filepath.Join(cfg.LogDir, defaultLogFilename),
		filepath.Join(cfg.LogDir, defaultErrLogFilename))
	return logger.ParseAndSetLogLevels(cfg.DebugLevel)
}

// ConsensusManagerConfig builds the configuration of the consensus
// manager. metrics may be nil.
func (cfg *Config) ConsensusManagerConfig(metrics *blockdownload.Metrics) *consensusmanager.Config {
	managerConfig := consensusmanager.DefaultConfig(cfg.NetParams())
	managerConfig.MaxBlocksInFlight = cfg.MaxBlocksInFlight
	managerConfig.MaxUnconsumedBytes = cfg.MaxUnconsumedMiB * 1024 * 1024
	if cfg.MaxPartialValidations > 0 {
		managerConfig.MaxConcurrentPartialValidations = cfg.MaxPartialValidations
	}
	managerConfig.BanDuration = cfg.BanDuration
	managerConfig.Metrics = metrics
	return managerConfig
}
