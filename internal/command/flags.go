// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"os/exec"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"
)

var (
	tldrFlag *cli.BoolFlag = &cli.BoolFlag{
		Name:        "tldr",
		Usage:       "show tldr page",
		Hidden:      !pathHas("tldr"),
		HideDefault: true,
	}

	workspaceFlag *cli.StringFlag = &cli.StringFlag{
		Name:    "workspace",
		Aliases: []string{"w"},
		Usage:   "workspace to use. Overrides the backend",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("TFBACK_WORKSPACE"),
		),
		Value: "",
	}
)

func NewGlobalFlags(params ...string) (flags []cli.Flag) {
	flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output",
			Value:   false,
		},
		&cli.BoolFlag{
			Name:    "local",
			Aliases: []string{"l"},
			Usage:   "show local timestamps",
			Value:   false,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format",
			Value:   "text",
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
		&cli.IntFlag{
			Name:   "padding",
			Hidden: true,
			Usage:  "column padding for text output",
			Value:  2,
		},
		&cli.BoolFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Value:   false,
		},
	}

	return
}

// NewBackendFlags constructs the flag set every state command shares: the
// pointer fields plus encryption controls. Each string flag resolves
// through its TFBACK_* environment variable and then the backend.* keys of
// the config file, so an explicit flag always wins. params[0] is the config
// file; omit it to force the pointer to come from the rootDir or flags.
func NewBackendFlags(params ...string) (flags []cli.Flag) {
	bucket := &cli.StringFlag{
		Name:    "bucket",
		Aliases: []string{"b"},
		Usage:   "state bucket. Overrides the backend",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("TFBACK_BUCKET"),
		),
	}
	key := &cli.StringFlag{
		Name:    "key",
		Aliases: []string{"k"},
		Usage:   "state object key. Overrides the backend",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("TFBACK_KEY"),
		),
	}
	region := &cli.StringFlag{
		Name:    "region",
		Aliases: []string{"r"},
		Usage:   "AWS region. Overrides the backend",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("TFBACK_REGION"),
			cli.EnvVar("AWS_REGION"),
		),
	}
	table := &cli.StringFlag{
		Name:  "table",
		Usage: "DynamoDB lock table. Overrides the backend",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("TFBACK_TABLE"),
		),
	}
	profile := &cli.StringFlag{
		Name:  "profile",
		Usage: "AWS shared config profile",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("TFBACK_PROFILE"),
		),
	}
	kmsKeyID := &cli.StringFlag{
		Name:  "kms-key-id",
		Usage: "KMS key for server-side encryption",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("TFBACK_KMS_KEY_ID"),
		),
	}

	if len(params) == 1 {
		for _, f := range []*cli.StringFlag{bucket, key, region, table, profile, kmsKeyID} {
			NameSpacedValueChainFlagFromConfigFile("backend", params[0], f)
		}
	}

	flags = []cli.Flag{
		bucket,
		key,
		region,
		table,
		profile,
		kmsKeyID,
		&cli.BoolFlag{
			Name:  "encrypt",
			Usage: "server-side encrypt the state object",
			Value: true,
		},
	}

	return
}

// NameSpacedValueChainFlagFromConfigFile adds namespaced and global config file
// sources to the given flag's Sources chain.
func NameSpacedValueChainFlagFromConfigFile(ns string, path string, flag *cli.StringFlag) *cli.StringFlag {
	src := yaml.YAML(ns+"."+flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	src = yaml.YAML(flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	return flag
}

// pathHas checks if the given executable exists on PATH.
func pathHas(target string) bool {
	_, err := exec.LookPath(target)
	return err == nil
}
