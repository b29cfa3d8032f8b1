package main

import (
	"fmt"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/btcsuite/utxocore/coin"
	"github.com/btcsuite/utxocore/compiler"
	"github.com/btcsuite/utxocore/planner"
	"github.com/btcsuite/utxocore/sighash"
	"github.com/btcsuite/utxocore/signer"
)

// backendLog is the logging backend used to create all subsystem loggers.
// It writes to stderr so command output on stdout stays machine readable.
var backendLog = btclog.NewBackend(os.Stderr)

var (
	plnrLog = backendLog.Logger("PLNR")
	cmplLog = backendLog.Logger("CMPL")
	sgnrLog = backendLog.Logger("SGNR")
	sighLog = backendLog.Logger("SIGH")
	coinLog = backendLog.Logger("COIN")
)

// subsystemLoggers maps each subsystem identifier to its logger.
var subsystemLoggers = map[string]btclog.Logger{
	"PLNR": plnrLog,
	"CMPL": cmplLog,
	"SGNR": sgnrLog,
	"SIGH": sighLog,
	"COIN": coinLog,
}

// Initialize package-global logger variables.
func init() {
	planner.UseLogger(plnrLog)
	compiler.UseLogger(cmplLog)
	signer.UseLogger(sgnrLog)
	sighash.UseLogger(sighLog)
	coin.UseLogger(coinLog)
}

// setLogLevels sets the log level of every subsystem logger.
func setLogLevels(debugLevel string) error {
	level, ok := btclog.LevelFromString(debugLevel)
	if !ok {
		return fmt.Errorf("invalid debug level %q", debugLevel)
	}

	for _, logger := range subsystemLoggers {
		logger.SetLevel(level)
	}

	return nil
}
