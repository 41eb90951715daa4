// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"os"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/genomatrix/encoding/lineindex"
	"v.io/x/lib/cmdline"
)

func indexFlags(cmd *cmdline.Command) *lineindex.Opts {
	opts := &lineindex.Opts{}
	cmd.Flags.IntVar(&opts.LinesPerInterval, "lines-per-interval", 1000,
		"Number of data lines per index interval; the unit of parsing and caching")
	cmd.Flags.IntVar(&opts.HeaderLines, "header-lines", 1, "Number of non-comment header lines")
	cmd.Flags.IntVar(&opts.SavedColumns, "saved-columns", 11,
		"Number of leading columns of every line stored in the index")
	return opts
}

func newCmdBgzip() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "bgzip",
		Short:    "Compress a Hapmap file to BGZF and index it",
		ArgsName: "srcpath destpath",
		Long: `
bgzip compresses the plain-text Hapmap file srcpath into BGZF blocks at
destpath, and writes the line index to destpath.lix.`,
	}
	opts := indexFlags(cmd)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("bgzip takes srcpath destpath, but got %v", argv)
		}
		return bgzip(vcontext.Background(), env.Stdout, argv[0], argv[1], *opts)
	})
	return cmd
}

func newCmdIndex() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "index",
		Short:    "Build the line index of a BGZF Hapmap file",
		ArgsName: "path",
	}
	opts := indexFlags(cmd)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("index takes one pathname argument, but got %v", argv)
		}
		return index(vcontext.Background(), env.Stdout, argv[0], *opts)
	})
	return cmd
}

func newCmdStats() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "stats",
		Short:    "Print per-site allele summaries",
		ArgsName: "path",
		Long: `
stats prints one tab-separated line per site: the site index, chromosome,
position, marker name, major and minor alleles with their frequencies, the
fraction of non-missing calls and the fraction of heterozygous calls.

Paths ending in .h5 are read as HDF5 genotype files; anything else must be a
BGZF Hapmap file with a line index.`,
	}
	flags := statsFlags{}
	cmd.Flags.IntVar(&flags.start, "start", 0, "First site to print")
	cmd.Flags.IntVar(&flags.end, "end", -1, "One past the last site to print; -1 prints through the last site")
	cmd.Flags.IntVar(&flags.lookAhead, "look-ahead", 0, "Intervals parsed ahead of the reader; 0 uses the default")
	cmd.Flags.Int64Var(&flags.maxMemory, "max-memory", 0, "Memory ceiling used to size caches; 0 uses the process limit")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("stats takes one pathname argument, but got %v", argv)
		}
		return stats(vcontext.Background(), env.Stdout, argv[0], flags)
	})
	return cmd
}

func newCmdH5() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "h5",
		Short:    "Write an HDF5 genotype file from a BGZF Hapmap file",
		ArgsName: "srcpath destpath",
		Long: `
h5 copies every call of srcpath into a new HDF5 file at destpath, computes the
site and taxon annotations, and locks the genotype module. It requires a
binary built with the "hdf5" tag.`,
	}
	keepOpen := cmd.Flags.Bool("ko", false, "Keep the genotype module open (unlocked)")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("h5 takes srcpath destpath, but got %v", argv)
		}
		return writeH5(vcontext.Background(), argv[0], argv[1], *keepOpen)
	})
	return cmd
}

// Run runs the bio-genotype command tree and exits.
func Run() {
	shutdown := grail.Init()
	cmdline.HideGlobalFlagsExcept()
	root := &cmdline.Command{
		Name:     "bio-genotype",
		Short:    "Tools for working with genotype matrices",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdBgzip(),
			newCmdIndex(),
			newCmdStats(),
			newCmdH5(),
		},
	}
	env := cmdline.EnvFromOS()
	err := cmdline.ParseAndRun(root, env, os.Args[1:])
	shutdown()
	os.Exit(cmdline.ExitCode(err, env.Stderr))
}
