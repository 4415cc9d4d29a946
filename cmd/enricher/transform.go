package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"mercator-hq/enricher/pkg/cli"
	"mercator-hq/enricher/pkg/config"
	"mercator-hq/enricher/pkg/transform/headerrules"
	"mercator-hq/enricher/pkg/transform/jsonrules"
	"mercator-hq/enricher/pkg/transform/ruleset"
)

var transformFlags struct {
	direction string
	file      string
	headers   []string
	builtin   bool
}

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Apply body rules to a JSON document offline",
	Long: `Run one direction's body rules over a document and print the result, the
same way the proxy would rewrite a buffered body. Nothing is forwarded.

Bodies that are not valid UTF-8 JSON are printed unchanged. Rules that copy
request headers read them from --header.

Examples:
  # Response rules from the config file, body from a file
  enricher transform --direction response --file body.json

  # Built-in request rules, body from stdin, with a request id
  echo '{"user_id":"42"}' | enricher transform --builtin -H "X-Request-ID: abc"`,
	RunE: transformBody,
}

func init() {
	rootCmd.AddCommand(transformCmd)

	transformCmd.Flags().StringVarP(&transformFlags.direction, "direction", "d", "request", "rule direction: request, response")
	transformCmd.Flags().StringVarP(&transformFlags.file, "file", "f", "-", "input file (- for stdin)")
	transformCmd.Flags().StringArrayVarP(&transformFlags.headers, "header", "H", nil, `request header visible to rules ("Name: value", repeatable)`)
	transformCmd.Flags().BoolVar(&transformFlags.builtin, "builtin", false, "use the built-in rules instead of the config file")
}

func transformBody(cmd *cobra.Command, args []string) error {
	var out io.Writer = os.Stdout
	var in io.Reader = os.Stdin
	if cmd != nil {
		out = cmd.OutOrStdout()
		in = cmd.InOrStdin()
	}

	set, err := loadRules()
	if err != nil {
		return err
	}

	rules, err := bodyRulesFor(set, transformFlags.direction)
	if err != nil {
		return err
	}

	headers, err := parseHeaders(transformFlags.headers)
	if err != nil {
		return err
	}

	body, err := readInput(transformFlags.file, in)
	if err != nil {
		return cli.NewCommandError("transform", err)
	}

	result, outcome := jsonrules.Transform(body, rules, jsonrules.Context{HeaderLookup: headers.Get})
	if verbose {
		fmt.Fprintf(os.Stderr, "outcome: %s (%d -> %d bytes)\n", outcome, len(body), len(result))
	}

	if _, err := out.Write(result); err != nil {
		return cli.NewCommandError("transform", err)
	}
	if outcome != jsonrules.OutcomePassThrough {
		fmt.Fprintln(out)
	}
	return nil
}

func loadRules() (*ruleset.Set, error) {
	if transformFlags.builtin {
		return ruleset.Default(), nil
	}
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	set, err := ruleset.Build(cfg.Rules)
	if err != nil {
		return nil, cli.NewConfigError("rules", err.Error())
	}
	return set, nil
}

func bodyRulesFor(set *ruleset.Set, direction string) ([]jsonrules.Rule, error) {
	switch strings.ToLower(direction) {
	case "request":
		return set.RequestBody, nil
	case "response":
		return set.ResponseBody, nil
	default:
		return nil, fmt.Errorf("invalid direction %q (expected request or response)", direction)
	}
}

func parseHeaders(lines []string) (*headerrules.List, error) {
	list := headerrules.NewList()
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (expected \"Name: value\")", line)
		}
		list.Add(name, strings.TrimSpace(value))
	}
	return list, nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
