// Command refguard-repair runs the map repair pass over the persisted referral map
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

	"refguard/internal/services/repair/domain"
	repairmod "refguard/internal/services/repair/module"
)

func main() { os.Exit(run()) }

func run() int {
	root := config.New()
	l := logger.Named("refguard-repair")

	deps, err := modkit.NewDeps(root)
	if err != nil {
		l.Error().Err(err).Msg("invalid configuration")
		return perr.Exit(err)
	}
	mod := repairmod.New(deps)

	var (
		fPath    = flag.String("path", mod.Options().MapPath, "referral map to repair (REPAIR_MAP_PATH)")
		fDryRun  = flag.Bool("dry-run", false, "repair and report without writing")
		fCheck   = flag.Bool("check", false, "like --dry-run, but exit 1 when the map is not at its fixed point")
		fJSON    = flag.Bool("json", false, "print the report as JSON on stdout")
		fVersion = flag.Bool("version", false, "print the build and exit")
	)
	flag.Parse()
	if *fVersion {
		fmt.Println(version.Info("refguard-repair"))
		return perr.ExitOK
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := mod.Runner().Run(ctx, *fPath, domain.Mode{DryRun: *fDryRun, Check: *fCheck})
	if *fJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(rep)
	}
	if err != nil {
		l.Error().Err(err).Str("path", *fPath).Int("exit", perr.Exit(err)).Msg("repair pass failed")
		return perr.Exit(err)
	}
	return perr.ExitOK
}
