// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/tfback/tfback/internal/meta"
)

const bashCompletionScript = `# bash completion for tfback
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_tfback()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "up bq lq lock unlock sq svq push gen completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
  local common="--color -c --local -l --output -o --titles -t --tldr"
  local backend="--bucket -b --key -k --region -r --table --profile --kms-key-id --encrypt --workspace -w"

    # Determine if an optional RootDir (first non-flag after subcommand) has
		# already been provided
    local have_rootdir=0
    local idx=2
    while [[ $idx -lt ${#COMP_WORDS[@]} ]]; do
        local w=${COMP_WORDS[$idx]}
        if [[ $w != -* ]]; then
            have_rootdir=1
            break
        fi
        ((idx++))
    done

    case "$cmd" in
    up)
      local opts="$common $backend"
            ;;
        bq)
      local opts="$common $backend"
            ;;
        lq)
      local opts="$common $backend"
            ;;
        lock)
      local opts="$common $backend --operation"
            ;;
        unlock)
      local opts="$common $backend --force --id"
            ;;
        sq)
      local opts="$common $backend --diff --passphrase --sv"
            ;;
        svq)
      local opts="$common $backend --limit"
            ;;
        push)
      local opts="$common $backend --file -f --token"
            ;;
        gen)
      local opts="$common $backend --out --overwrite"
            ;;
        completion)
            local opts="bash zsh"
            COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$common"
            ;;
    esac

    if [[ "$prev" == "--output" || "$prev" == "-o" ]]; then
        COMPREPLY=( $(compgen -W "text json raw yaml" -- "$cur") )
        return 0
    fi

  # If current token starts with '-', or we've already consumed RootDir, offer flags
  if [[ "$cur" == -* || $have_rootdir -eq 1 ]]; then
    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
  fi

  # Otherwise, we're on the (optional) RootDir positional; complete directories
  COMPREPLY=( $(compgen -o dirnames -- "$cur") )
  return 0
}

complete -F _tfback tfback
`

const zshCompletionScript = `#compdef tfback

_tfback() {
  local -a cmds
  cmds=(
    'up:provision the state bucket and lock table'
    'bq:backend substrate query'
    'lq:lock query'
    'lock:take the state lock'
    'unlock:release the state lock'
    'sq:state query'
    'svq:state version query'
    'push:upload a local state file'
    'gen:generate the terraform backend block'
    'completion:generate shell completion script'
  )

  local -a common
  common=(
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-l --local)'{-l,--local}'[show local timestamps]'
  '(-o --output)'{-o,--output}'[output format]:format:(text json raw yaml)'
  '(-t --titles)'{-t,--titles}'[show titles]'
  '--tldr[show tldr page]'
  )

  local -a backend
  backend=(
  '(-b --bucket)'{-b,--bucket}'[state bucket]:bucket'
  '(-k --key)'{-k,--key}'[state object key]:key'
  '(-r --region)'{-r,--region}'[AWS region]:region'
  '--table[DynamoDB lock table]:table'
  '--profile[AWS shared config profile]:profile'
  '--kms-key-id[KMS key for server-side encryption]:key'
  '--encrypt[server-side encrypt the state object]'
  '(-w --workspace)'{-w,--workspace}'[workspace]'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'tfback commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    up)
      _arguments -C $common $backend '::RootDir:_directories'
      ;;
    bq)
      _arguments -C $common $backend '::RootDir:_directories'
      ;;
    lq)
      _arguments -C $common $backend '::RootDir:_directories'
      ;;
    lock)
      _arguments -C \
        $common \
        $backend \
        '--operation[operation recorded in the lock info]:operation' \
        '::RootDir:_directories'
      ;;
    unlock)
      _arguments -C \
        $common \
        $backend \
        '--force[evict the lock regardless of holder]' \
        '--id[lock token]:id' \
        '::RootDir:_directories'
      ;;
    sq)
      _arguments -C \
        $common \
        $backend \
        '--diff[find difference between state versions]' \
        '--passphrase[encrypted state passphrase]' \
        '--sv[state version to query]' \
        '::RootDir:_directories'
      ;;
    svq)
      _arguments -C \
        $common \
        $backend \
        '--limit[limit state versions returned]':limit \
        '::RootDir:_directories'
      ;;
    push)
      _arguments -C \
        $common \
        $backend \
        '(-f --file)'{-f,--file}'[state file to upload]:file:_files' \
        '--token[lock token]:token' \
        '::RootDir:_directories'
      ;;
    gen)
      _arguments -C \
        $common \
        $backend \
        '--out[write the block to this file]:file:_files' \
        '--overwrite[replace an existing --out file]' \
        '::RootDir:_directories'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $common '*:directory:_directories'
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys
# is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _tfback tfback tfback
`

func completionCommandAction(ctx context.Context, cmd *cli.Command) error {
	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	switch shell {
	case "bash":
		fmt.Fprint(os.Stdout, bashCompletionScript)
	case "zsh":
		fmt.Fprint(os.Stdout, zshCompletionScript)
	default:
		// Try to detect from SHELL or print help
		sh := os.Getenv("SHELL")
		switch {
		case strings.HasSuffix(sh, "zsh"):
			fmt.Fprint(os.Stdout, zshCompletionScript)
		case strings.HasSuffix(sh, "bash"):
			fmt.Fprint(os.Stdout, bashCompletionScript)
		default:
			fmt.Fprintln(os.Stderr, "usage: tfback completion [bash|zsh]")
			return nil
		}
	}
	return nil
}

func completionCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "tfback completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: completionCommandAction,
	}
}
