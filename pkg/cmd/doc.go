// Package cmd provides the CLI commands of streamkeeper.
//
// Commands are constructed by fx and collected through the "commands" value
// group. Each returns a *cli.Command following the urfave/cli/v3 pattern.
//
// # Available Commands
//
//   - submit: Submit one or more tasks to their engines
//   - plan: Show the assembled script and statement plan of a task
//   - engines: List configured engines and the runtime types they serve
//
// # Global Options
//
//   - --config, -c: Config file (STREAMKEEPER_CONFIG, defaults to streamkeeper.yaml)
//   - --log-level: debug, info, warn or error
//   - --log-format: text or json
//
// # Example Usage
//
//	streamkeeper submit --task-id 12 --task-id 13
//	streamkeeper submit -t 12,13 --parallel 2
//	streamkeeper submit -t 12 --dry-run
//	streamkeeper plan -t 12 --script
//	streamkeeper -c /etc/streamkeeper.yaml engines
//
// Commands that talk to the task catalogue or the engines go through a
// Backend, which tests replace with in-memory collaborators.
package cmd
