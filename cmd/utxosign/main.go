// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// utxosign plans, signs and inspects UTXO transactions from the command
// line. Requests use the JSON schema of the coin package; offline signers
// exchange digests and signatures through a PSBT.
//
//	utxosign preimage --request req.json --changekey 03ab.. > pre.json
//	utxosign compile --request req.json --changekey 03ab.. --psbt signed.b64
package main

import (
	"errors"
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Println(flagsErr.Message)
			os.Exit(0)
		}

		fail("%v", err)
	}
}

// run parses args and executes the selected command.
func run(args []string) error {
	cfg := defaultConfig()
	parser := newParser(&cfg)

	// Logging must be configured before a command runs, so the level is
	// applied from the command hook once the global options are parsed.
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if err := setLogLevels(cfg.DebugLevel); err != nil {
			return err
		}

		if cmd == nil {
			return nil
		}

		return cmd.Execute(args)
	}

	_, err := parser.ParseArgs(args)

	return err
}

// newParser builds the command line parser. Every command reads the shared
// options through cfg.
func newParser(cfg *config) *flags.Parser {
	parser := flags.NewParser(cfg, flags.HelpFlag|flags.PassDoubleDash)

	commands := []struct {
		name, short string
		data        any
	}{
		{"plan", "Select inputs and project the fee of a request",
			&planCommand{cfg: cfg}},
		{"preimage", "Print the digests and PSBT of a request",
			&preimageCommand{cfg: cfg}},
		{"compile", "Assemble a request signed offline",
			&compileCommand{cfg: cfg}},
		{"sign", "Sign a request with a private key",
			&signCommand{cfg: cfg}},
		{"decode", "Decode a raw transaction",
			&decodeCommand{cfg: cfg}},
		{"txid", "Print the id of a raw transaction",
			&txidCommand{}},
		{"address", "Derive an address from a public key",
			&addressCommand{cfg: cfg}},
		{"signmessage", "Sign a message",
			&signMessageCommand{cfg: cfg}},
		{"verifymessage", "Verify a signed message",
			&verifyMessageCommand{cfg: cfg}},
		{"buildsign", "Sign a TLV encoded single-input P2PKH spend",
			&buildSignCommand{}},
	}
	for _, c := range commands {
		// The names are static, so registration cannot fail.
		_, _ = parser.AddCommand(c.name, c.short, c.short, c.data)
	}

	return parser
}

// fail prints the error and exits.
func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
