// Command guard runs the org profile evidence pipeline from the shell.
//
// Exit codes follow the audit convention: 0 means clean/verified, 1 means
// drift or an integrity mismatch, 2 means an operational error (I/O, parse,
// bad config).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/digest"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/guard"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/manifest"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/observe"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/platform/config"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/platform/logger"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/platform/metrics"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/seal"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/witness"
)

const (
	exitClean       = 0
	exitDrift       = 1
	exitOperational = 2
)

var (
	pass = color.New(color.FgGreen).SprintFunc()
	fail = color.New(color.FgRed, color.Bold).SprintFunc()
	warn = color.New(color.FgYellow).SprintFunc()
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return exitOperational
	}

	flags := flag.NewFlagSet(args[0], flag.ExitOnError)
	configPath := flags.String("config", "guard.yaml", "path to guard.yaml")
	gitRepo := flags.String("git-repo", "", "repository slug recorded in manifests")
	gitHead := flags.String("git-head", "", "commit recorded in manifests")
	gitBranch := flags.String("git-branch", "", "branch recorded in manifests")
	withWitness := flags.Bool("witness", false, "embed external time witnesses in the manifest")
	_ = flags.Parse(args[1:])

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, fail("config:"), err)
		return exitOperational
	}
	eng, err := digest.New(cfg.Algorithm)
	if err != nil {
		fmt.Fprintln(os.Stderr, fail("digest:"), err)
		return exitOperational
	}

	source := observe.NewGitHub(cfg.GitHubToken, log)
	prober := witness.NewProber(cfg.Witness.URLs, cfg.Witness.Timeout.Std(), log)
	svc := guard.New(cfg, source, eng, prober, metrics.New(), log)
	ctx := context.Background()

	switch args[0] {
	case "run":
		return cmdRun(ctx, svc)
	case "verify-evidence":
		return cmdVerifyEvidence(svc, eng, flags.Args())
	case "verify-anchor":
		return cmdVerifyAnchor(svc)
	case "manifest":
		git := manifest.Git{Repo: *gitRepo, Head: *gitHead, Branch: *gitBranch}
		return cmdManifest(ctx, svc, git, *withWitness)
	case "witness":
		return cmdWitness(ctx, prober)
	default:
		usage()
		return exitOperational
	}
}

func cmdRun(ctx context.Context, svc *guard.Service) int {
	res, err := svc.Run(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, fail("run failed:"), err)
		return exitOperational
	}

	fmt.Printf("run %s anchored at chain index %d (prev %s)\n", res.RunID, res.ChainIndex, res.Anchor.PrevHash)
	if res.Drift.Clean {
		fmt.Println(pass("profile matches expectation"))
		return exitClean
	}

	fmt.Println(fail("profile drift detected"))
	for _, pin := range res.Drift.MissingPins {
		fmt.Printf("  %s missing pin %q\n", fail("-"), pin)
	}
	for _, pin := range res.Drift.UnexpectedPins {
		fmt.Printf("  %s unexpected pin %q\n", warn("+"), pin)
	}
	if res.Drift.ReadmeMissing {
		fmt.Printf("  %s profile README missing\n", fail("-"))
	}
	return exitDrift
}

func cmdVerifyEvidence(svc *guard.Service, eng digest.Engine, extra []string) int {
	// With explicit paths, audit many independent files; otherwise check the
	// configured emitted evidence.
	if len(extra) > 0 {
		return verifyMany(eng, extra)
	}

	res, err := svc.VerifyEvidence()
	if err != nil {
		fmt.Fprintln(os.Stderr, fail("verify:"), err)
		return exitOperational
	}
	return printSealResult("evidence", res)
}

func verifyMany(eng digest.Engine, paths []string) int {
	code := exitClean
	for _, fr := range seal.VerifyFiles(eng, paths) {
		switch {
		case fr.Err != nil:
			fmt.Printf("%s %s: %v\n", fail("ERROR"), fr.Path, fr.Err)
			code = exitOperational
		case !fr.Result.OK:
			fmt.Printf("%s %s: %s\n", fail("FAIL"), fr.Path, fr.Result.Reason)
			if code == exitClean {
				code = exitDrift
			}
		default:
			fmt.Printf("%s %s\n", pass("OK"), fr.Path)
		}
	}
	return code
}

func printSealResult(name string, res seal.Result) int {
	if res.OK {
		fmt.Printf("%s %s seal intact (%s)\n", pass("OK"), name, res.ExpectedDigest)
		return exitClean
	}
	fmt.Printf("%s %s: %s\n", fail("FAIL"), name, res.Reason)
	if res.ActualDigest != "" {
		fmt.Printf("  expected %s\n  actual   %s\n", res.ExpectedDigest, res.ActualDigest)
	}
	return exitDrift
}

func cmdVerifyAnchor(svc *guard.Service) int {
	report, err := svc.VerifyAnchor()
	if err != nil {
		fmt.Fprintln(os.Stderr, fail("verify-anchor:"), err)
		return exitOperational
	}
	if report.OK {
		fmt.Printf("%s anchor chain intact, %d entries\n", pass("OK"), report.EntriesVerified)
		return exitClean
	}
	fmt.Printf("%s %s\n", fail("BROKEN"), report.Err)
	return exitDrift
}

func cmdManifest(ctx context.Context, svc *guard.Service, git manifest.Git, withWitness bool) int {
	doc, err := svc.Manifest(ctx, git, withWitness)
	if err != nil {
		fmt.Fprintln(os.Stderr, fail("manifest:"), err)
		return exitOperational
	}
	fmt.Printf("%s manifest written (anchor log %s)\n", pass("OK"), doc.Bindings["anchor_log_sha256"])
	return exitClean
}

func cmdWitness(ctx context.Context, prober *witness.Prober) int {
	for _, rep := range prober.Probe(ctx) {
		if rep.OK {
			fmt.Printf("%s %s date=%q server=%q\n", pass("OK"), rep.URL, rep.Date, rep.Server)
		} else {
			fmt.Printf("%s %s %s\n", warn("MISS"), rep.URL, rep.Note)
		}
	}
	return exitClean
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: guard <command> [flags]

commands:
  run              observe the org profile, seal and anchor the evidence
  verify-evidence  verify seals (configured file, or explicit paths)
  verify-anchor    replay the anchor log chain
  manifest         cut a manifest over the current artifacts
  witness          probe the configured time witnesses`)
}
