// Command refguard-check validates the live redirect chain end to end
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"refguard/internal/modkit"
	"refguard/internal/platform/config"
	perr "refguard/internal/platform/errors"
	"refguard/internal/platform/logger"
	"refguard/internal/platform/version"

	linkcheckmod "refguard/internal/services/linkcheck/module"
)

func main() { os.Exit(run()) }

func run() int {
	root := config.New()
	l := logger.Named("refguard-check")

	deps, err := modkit.NewDeps(root)
	if err != nil {
		l.Error().Err(err).Msg("invalid configuration")
		return perr.Exit(err)
	}
	opts := linkcheckmod.FromConfig(root, deps.Ref)

	var (
		fEndpoint = flag.String("endpoint", opts.Endpoint, "redirect endpoint to probe (REFCHECK_ENDPOINT)")
		fCases    = flag.String("cases", opts.CasesPath, "YAML cases file (REFCHECK_CASES); empty runs one synthetic case")
		fDest     = flag.String("destination", opts.Destination, "destination of the synthetic case (REFCHECK_DESTINATION)")
		fJSON     = flag.Bool("json", false, "print the summary as JSON on stdout")
		fVersion  = flag.Bool("version", false, "print the build and exit")
	)
	flag.Parse()
	if *fVersion {
		fmt.Println(version.Info("refguard-check"))
		return perr.ExitOK
	}
	opts.Endpoint, opts.CasesPath, opts.Destination = *fEndpoint, *fCases, *fDest

	mod, err := linkcheckmod.New(deps, opts)
	if err != nil {
		l.Error().Err(err).Msg("invalid configuration")
		return perr.Exit(err)
	}
	cases, err := mod.Cases()
	if err != nil {
		l.Error().Err(err).Msg("cannot load probe cases")
		return perr.Exit(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := mod.Checker().Check(ctx, cases)
	if *fJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(sum)
	}
	if err != nil {
		l.Error().Err(err).Int("exit", perr.Exit(err)).Msg("redirect chain check failed")
		return perr.Exit(err)
	}
	return perr.ExitOK
}
